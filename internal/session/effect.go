package session

// Persisted slice keys.
const (
	KeyUser     = "user"
	KeyCart     = "cart"
	KeyWishlist = "wishlist"
	KeyOrders   = "orders"
	KeyLanguage = "language"
	KeyActivity = "activity"
)

// Keys lists every persisted slice key in hydration order.
func Keys() []string {
	return []string{KeyCart, KeyWishlist, KeyLanguage, KeyOrders, KeyUser, KeyActivity}
}

// EffectOp is the kind of mirror write an Effect requests.
type EffectOp int

const (
	OpPersist EffectOp = iota + 1
	OpRemove
)

func (op EffectOp) String() string {
	switch op {
	case OpPersist:
		return "persist"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Effect is a mirror write produced by a reduction.
type Effect struct {
	Op    EffectOp
	Key   string
	Value any
}

func persist(key string, v any) Effect { return Effect{Op: OpPersist, Key: key, Value: v} }

func remove(key string) Effect { return Effect{Op: OpRemove, Key: key} }
