package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartshop/internal/kv"
)

func healthy(ctx context.Context) CheckResult { return CheckResult{Status: StatusHealthy} }

func TestOverallStatus(t *testing.T) {
	boom := func(ctx context.Context) CheckResult { return CheckResult{Status: StatusUnhealthy} }

	tests := []struct {
		name     string
		critical bool
		check    Check
		want     Status
	}{
		{"all healthy", true, healthy, StatusHealthy},
		{"optional failure degrades", false, boom, StatusDegraded},
		{"critical failure", true, boom, StatusUnhealthy},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChecker()
			c.RegisterFunc("store", true, healthy)
			c.RegisterFunc("probe", tc.critical, tc.check)

			r := c.Check(context.Background())
			assert.Equal(t, tc.want, r.Status)
			assert.Equal(t, []string{"probe", "store"}, r.Names())
		})
	}
}

func TestCheckTimeoutAndPanic(t *testing.T) {
	c := NewChecker()
	c.Register(&Component{
		Name:     "slow",
		Critical: true,
		Timeout:  20 * time.Millisecond,
		Check: func(ctx context.Context) CheckResult {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			return CheckResult{Status: StatusHealthy}
		},
	})
	c.RegisterFunc("broken", false, func(ctx context.Context) CheckResult { panic("nil map") })

	r := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Equal(t, "check timed out", r.Components["slow"].Message)
	assert.Equal(t, "nil map", r.Components["broken"].Error)
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck("backend", func(ctx context.Context) error { return nil })(context.Background())
	assert.Equal(t, StatusHealthy, ok.Status)

	bad := PingCheck("backend", func(ctx context.Context) error { return errors.New("connection refused") })(context.Background())
	assert.Equal(t, StatusUnhealthy, bad.Status)
	assert.Equal(t, "connection refused", bad.Error)
}

func TestStoreCheck(t *testing.T) {
	store := kv.NewMemory()
	require.NoError(t, store.Put("cart", []byte("[]")))

	r := StoreCheck(store)(context.Background())
	assert.Equal(t, StatusHealthy, r.Status)
	assert.Equal(t, "1 keys", r.Message)

	require.NoError(t, store.Close())
	r = StoreCheck(store)(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)
}

func TestWritableCheck(t *testing.T) {
	dir := t.TempDir()
	r := WritableCheck(dir)(context.Background())
	assert.Equal(t, StatusHealthy, r.Status)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	r = WritableCheck(filepath.Join(dir, "missing"))(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)
}

func TestFailureCheck(t *testing.T) {
	var n uint64
	check := FailureCheck("persist", func() uint64 { return n })

	assert.Equal(t, StatusHealthy, check(context.Background()).Status)
	n = 3
	r := check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, "3 persist failures", r.Message)
}
