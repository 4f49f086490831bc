package session

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonMirror keeps persisted slices as JSON bytes so a second Store sees
// them the way a restarted process would.
type jsonMirror struct {
	mu      sync.Mutex
	data    map[string][]byte
	history []string
}

func newJSONMirror() *jsonMirror {
	return &jsonMirror{data: make(map[string][]byte)}
}

func (m *jsonMirror) Persist(key string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	m.data[key] = b
	m.history = append(m.history, "persist:"+key)
}

func (m *jsonMirror) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.history = append(m.history, "remove:"+key)
}

func (m *jsonMirror) Load(key string, dst any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

func (m *jsonMirror) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func fixedClock() func() time.Time {
	return func() time.Time { return t0 }
}

func mustDispatch(t *testing.T, s *Store, actions ...Action) Snapshot {
	t.Helper()
	var snap Snapshot
	for _, a := range actions {
		var err error
		snap, err = s.Dispatch(a)
		require.NoError(t, err)
	}
	return snap
}

func populate(t *testing.T, s *Store) Snapshot {
	t.Helper()
	orig := int64(1200)
	p1 := product("P1", 900)
	p1.OriginalPrice = &orig
	p1.Tags = []string{"sale"}
	p2 := product("P2", 250)

	return mustDispatch(t, s,
		Login{User: User{
			ID:          "u1",
			Name:        "Asha",
			Email:       "asha@example.com",
			Language:    "en",
			Preferences: &Preferences{Categories: []string{"Electronics"}, PriceRange: [2]int64{0, 5000}},
		}},
		AddToCart{Product: p1, Quantity: 2, Size: "M"},
		AddToCart{Product: p2},
		AddToWishlist{Product: p2},
		SetLanguage{Code: "hi"},
		AddOrder{Order: Order{
			ID:    "ORD1740000000000",
			Items: []CartLine{{Product: p2, Quantity: 1}},
			Total: 295,
			CustomerInfo: CustomerInfo{
				Name: "Asha", Mobile: "9876543210", Email: "asha@example.com",
				Address: "12 MG Road", City: "Pune", Pincode: "411001", PaymentMode: PaymentUPI,
			},
			OrderDate: t0,
			Status:    OrderConfirmed,
		}},
		AddClickedCategory{Category: "Electronics"},
		AddSearchQuery{Query: "headphones"},
		AddViewedProduct{Product: p1},
	)
}

func TestStoreRoundTrip(t *testing.T) {
	m := newJSONMirror()
	first := New(WithMirror(m), WithClock(fixedClock()))
	before := populate(t, first)

	second := New(WithMirror(m), WithClock(fixedClock()))
	after := second.Hydrate()

	assert.Equal(t, before.Cart, after.Cart)
	assert.Equal(t, before.User, after.User)
	assert.True(t, after.IsAuthenticated)
	assert.Equal(t, before.Orders, after.Orders)
	assert.Equal(t, "hi", after.Language)
	assert.Equal(t, before.Activity, after.Activity)

	// The wishlist is written but not read back by default.
	assert.True(t, m.has(KeyWishlist))
	assert.Empty(t, after.Wishlist)
}

func TestStoreWishlistRestore(t *testing.T) {
	m := newJSONMirror()
	before := populate(t, New(WithMirror(m), WithClock(fixedClock())))

	restored := New(WithMirror(m), WithClock(fixedClock()), WithWishlistRestore(true)).Hydrate()
	require.Len(t, restored.Wishlist, 1)
	assert.Equal(t, before.Wishlist, restored.Wishlist)
}

func TestStoreHydrateOnce(t *testing.T) {
	m := newJSONMirror()
	s := New(WithMirror(m), WithClock(fixedClock()))
	s.Hydrate()
	mustDispatch(t, s, AddToCart{Product: product("P1", 1)})

	m.Persist(KeyCart, []CartLine{})
	snap := s.Hydrate()
	assert.Len(t, snap.Cart, 1, "second Hydrate must not reload")
}

func TestStoreHydrateSkipsCorruptSlices(t *testing.T) {
	m := newJSONMirror()
	m.data[KeyCart] = []byte(`{"not":"a list"}`)
	m.data[KeyLanguage] = []byte(`"ta"`)
	m.data[KeyUser] = []byte(`null`)

	snap := New(WithMirror(m), WithClock(fixedClock())).Hydrate()
	assert.Empty(t, snap.Cart)
	assert.Equal(t, "ta", snap.Language)
	assert.Nil(t, snap.User)
	assert.False(t, snap.IsAuthenticated)
}

func TestStoreLogoutClearsPersistedSlices(t *testing.T) {
	m := newJSONMirror()
	s := New(WithMirror(m), WithClock(fixedClock()))
	populate(t, s)

	snap := mustDispatch(t, s, Logout{})
	assert.Equal(t, "hi", snap.Language)

	assert.False(t, m.has(KeyUser))
	assert.False(t, m.has(KeyCart))
	assert.False(t, m.has(KeyWishlist))
	assert.True(t, m.has(KeyOrders))
	assert.True(t, m.has(KeyActivity))
	assert.True(t, m.has(KeyLanguage))

	restarted := New(WithMirror(m), WithClock(fixedClock())).Hydrate()
	assert.Nil(t, restarted.User)
	assert.Empty(t, restarted.Cart)
	assert.Equal(t, "hi", restarted.Language)
}

func TestStorePersistsBeforeDispatchReturns(t *testing.T) {
	m := newJSONMirror()
	s := New(WithMirror(m), WithClock(fixedClock()))

	mustDispatch(t, s, AddToCart{Product: product("P1", 100)})
	assert.Equal(t, []string{"persist:cart"}, m.history)

	mustDispatch(t, s, AddRecentlyViewed{Product: product("P1", 100)}, ToggleChat{})
	assert.Equal(t, []string{"persist:cart"}, m.history, "ephemeral slices are not persisted")

	mustDispatch(t, s, ClearCart{})
	assert.Equal(t, []string{"persist:cart", "remove:cart"}, m.history)
}

func TestStoreRejectsInvalidAction(t *testing.T) {
	m := newJSONMirror()
	s := New(WithMirror(m))
	before := s.Snapshot()

	snap, err := s.Dispatch(AddToCart{Product: product("", 100)})
	require.ErrorIs(t, err, ErrInvalidAction)
	assert.Equal(t, before, snap)
	assert.Empty(t, m.history)
	assert.Zero(t, s.Version())
}

func TestStoreSubscribe(t *testing.T) {
	s := New(WithClock(fixedClock()))

	var got []int
	cancel := s.Subscribe(func(snap Snapshot) {
		got = append(got, snap.CartCount())
	})

	mustDispatch(t, s,
		AddToCart{Product: product("P1", 1)},
		AddToCart{Product: product("P1", 1), Quantity: 2},
	)
	cancel()
	mustDispatch(t, s, AddToCart{Product: product("P1", 1)})

	assert.Equal(t, []int{1, 3}, got)
	assert.Equal(t, uint64(3), s.Version())
}

func TestStoreSubscribersSeeDispatchOrder(t *testing.T) {
	s := New(WithClock(fixedClock()))

	var mu sync.Mutex
	var versions []int
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		versions = append(versions, snap.CartCount())
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, err := s.Dispatch(AddToCart{Product: product("P1", 1)})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	require.Len(t, versions, 200)
	for i, n := range versions {
		assert.Equal(t, i+1, n)
	}
	assert.Equal(t, 200, s.Snapshot().CartCount())
}

func TestStoresAreIndependent(t *testing.T) {
	a := New(WithClock(fixedClock()))
	b := New(WithClock(fixedClock()))
	mustDispatch(t, a, AddToCart{Product: product("P1", 1)}, SetLanguage{Code: "hi"})

	assert.Empty(t, b.Snapshot().Cart)
	assert.Equal(t, DefaultLanguage, b.Snapshot().Language)
}

func TestSchemasCoverPersistedKeys(t *testing.T) {
	schemas := Schemas()
	for _, key := range Keys() {
		src, ok := schemas[SchemaFile(key)]
		require.True(t, ok, "schema for %s", key)
		assert.True(t, json.Valid([]byte(src)), "schema for %s is not JSON", key)
	}
	assert.Contains(t, schemas, "product.schema.json")
}
