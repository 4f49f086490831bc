package mirror_test

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartshop/internal/catalog"
	"smartshop/internal/kv"
	"smartshop/internal/mirror"
	"smartshop/internal/session"
)

var t0 = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

// failingStore fails every operation.
type failingStore struct{}

var errDisk = errors.New("disk full")

func (failingStore) Get(string) ([]byte, error) { return nil, errDisk }
func (failingStore) Put(string, []byte) error   { return errDisk }
func (failingStore) Delete(string) error        { return errDisk }
func (failingStore) Keys() ([]string, error)    { return nil, errDisk }
func (failingStore) Close() error               { return nil }

func newMirror(t *testing.T, store kv.Store, opts ...mirror.Option) *mirror.Mirror {
	t.Helper()
	opts = append([]mirror.Option{mirror.WithSchemas(session.Schemas())}, opts...)
	m, err := mirror.New(store, opts...)
	require.NoError(t, err)
	return m
}

func lamp() catalog.Product {
	orig := int64(2499)
	return catalog.Product{
		ID:            "7",
		Name:          "Desk Lamp",
		Price:         1999,
		OriginalPrice: &orig,
		Category:      "Home",
		Rating:        4.5,
		InStock:       true,
		Features:      []string{"LED", "Dimmable"},
	}
}

func TestPersistAndLoad(t *testing.T) {
	m := newMirror(t, kv.NewMemory())

	cart := []session.CartLine{{Product: lamp(), Quantity: 2, SelectedColor: "white"}}
	m.Persist(session.KeyCart, cart)

	var got []session.CartLine
	require.True(t, m.Load(session.KeyCart, &got))
	assert.Equal(t, cart, got)

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.Persisted)
	assert.Equal(t, uint64(1), stats.Loaded)
}

func TestLoadMissingKey(t *testing.T) {
	m := newMirror(t, kv.NewMemory())

	lang := "unchanged"
	assert.False(t, m.Load(session.KeyLanguage, &lang))
	assert.Equal(t, "unchanged", lang)
	assert.Equal(t, uint64(1), m.Stats().LoadMisses)
}

func TestRemove(t *testing.T) {
	store := kv.NewMemory()
	m := newMirror(t, store)

	m.Persist(session.KeyUser, &session.User{ID: "u1", Name: "Asha", Email: "a@b.co"})
	m.Remove(session.KeyUser)
	m.Remove(session.KeyUser)

	_, err := store.Get(session.KeyUser)
	assert.ErrorIs(t, err, kv.ErrNotFound)
	assert.Equal(t, uint64(2), m.Stats().Removed)
}

func TestFailuresAreSwallowed(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := newMirror(t, failingStore{}, mirror.WithLogger(logger))

	m.Persist(session.KeyCart, []session.CartLine{})
	m.Remove(session.KeyCart)
	var cart []session.CartLine
	assert.False(t, m.Load(session.KeyCart, &cart))

	// Values that cannot be encoded never reach the store.
	m.Persist("bad", make(chan int))

	stats := m.Stats()
	assert.Equal(t, uint64(2), stats.PersistFailures)
	assert.Equal(t, uint64(1), stats.RemoveFailures)
	assert.Equal(t, uint64(1), stats.LoadFailures)
	assert.Zero(t, stats.Persisted)
	assert.Contains(t, logs.String(), "disk full")
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		key  string
		raw  string
	}{
		{"cart quantity zero", session.KeyCart, `[{"product":{"id":"1","name":"x","price":1},"quantity":0}]`},
		{"cart negative price", session.KeyCart, `[{"product":{"id":"1","name":"x","price":-1},"quantity":1}]`},
		{"cart not a list", session.KeyCart, `{"product":{}}`},
		{"user without id", session.KeyUser, `{"name":"Asha","email":"a@b.co"}`},
		{"order unknown status", session.KeyOrders, `[{"id":"ORD1","items":[],"total":0,"orderDate":"2026-03-01T09:30:00Z","status":"lost"}]`},
		{"empty language", session.KeyLanguage, `""`},
		{"activity over cap", session.KeyActivity, `{"clickedCategories":["a","b","c","d","e","f"]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := kv.NewMemory()
			require.NoError(t, store.Put(tc.key, []byte(tc.raw)))
			m := newMirror(t, store)

			var dst any
			assert.False(t, m.Load(tc.key, &dst))
			assert.Equal(t, uint64(1), m.Stats().LoadFailures)
		})
	}
}

func TestLoadAcceptsNumericProductIDs(t *testing.T) {
	store := kv.NewMemory()
	require.NoError(t, store.Put(session.KeyCart,
		[]byte(`[{"product":{"id":12,"name":"Lamp","price":10,"category":"Home","rating":4,"inStock":true},"quantity":3}]`)))
	m := newMirror(t, store)

	var cart []session.CartLine
	require.True(t, m.Load(session.KeyCart, &cart))
	require.Len(t, cart, 1)
	assert.Equal(t, catalog.ID("12"), cart[0].Product.ID)
}

func TestCorruptJSONIsAbsent(t *testing.T) {
	store := kv.NewMemory()
	require.NoError(t, store.Put(session.KeyOrders, []byte(`[{"id":`)))
	m := newMirror(t, store)

	var orders []session.Order
	assert.False(t, m.Load(session.KeyOrders, &orders))
	assert.Nil(t, orders)
}

func TestInvalidSchemaFailsNew(t *testing.T) {
	_, err := mirror.New(kv.NewMemory(), mirror.WithSchemas(map[string]string{
		"cart.schema.json": `{"type": 12}`,
	}))
	assert.Error(t, err)
}

// TestSessionRoundTrip drives a session through a real on-disk store and a
// restart, for every backend that survives one.
func TestSessionRoundTrip(t *testing.T) {
	for _, kind := range []string{kv.KindSQLite, kv.KindLog} {
		t.Run(kind, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), kv.FileName(kind))
			clock := session.WithClock(func() time.Time { return t0 })

			store, err := kv.Open(kind, path)
			require.NoError(t, err)
			first := session.New(session.WithMirror(newMirror(t, store)), clock)
			first.Hydrate()

			steps := []session.Action{
				session.Login{User: session.User{ID: "u1", Name: "Asha", Email: "asha@example.com", Language: "en"}},
				session.AddToCart{Product: lamp(), Quantity: 2},
				session.AddToWishlist{Product: lamp()},
				session.SetLanguage{Code: "hi"},
				session.AddOrder{Order: session.Order{
					ID:        "ORD1740000000000",
					Items:     []session.CartLine{{Product: lamp(), Quantity: 1}},
					Total:     2358,
					OrderDate: t0,
					Status:    session.OrderPending,
					CustomerInfo: session.CustomerInfo{
						Name: "Asha", Mobile: "9876543210", Email: "asha@example.com",
						Address: "1 Main St", City: "Pune", Pincode: "411001",
						PaymentMode: session.PaymentCOD,
					},
				}},
				session.AddSearchQuery{Query: "lamp"},
			}
			var before session.Snapshot
			for _, a := range steps {
				before, err = first.Dispatch(a)
				require.NoError(t, err)
			}
			require.NoError(t, store.Close())

			store, err = kv.Open(kind, path)
			require.NoError(t, err)
			defer store.Close()
			after := session.New(session.WithMirror(newMirror(t, store)), clock).Hydrate()

			assert.Equal(t, before.Cart, after.Cart)
			assert.Equal(t, before.User, after.User)
			assert.Equal(t, before.Orders, after.Orders)
			assert.Equal(t, before.Language, after.Language)
			assert.Equal(t, before.Activity, after.Activity)
			assert.Empty(t, after.Wishlist, "wishlist is not restored by default")
		})
	}
}
