package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/pipeline/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	return store.New(store.Options{Addr: mr.Addr()}, zerolog.Nop())
}

// S5: age trim boundary, and I7 idempotence of trim.
func TestTrimByAgeBoundaryAndIdempotence(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	entries := map[string]time.Time{
		"fresh":  now.Add(-(23*time.Hour + 59*time.Minute)),
		"stale1": now.Add(-(24*time.Hour + time.Minute)),
		"stale2": now.Add(-48 * time.Hour),
	}
	// Push newest-first (head = newest): fresh, stale1, stale2.
	require.NoError(t, st.PushHead(ctx, "q", []byte("stale2")))
	require.NoError(t, st.PushHead(ctx, "q", []byte("stale1")))
	require.NoError(t, st.PushHead(ctx, "q", []byte("fresh")))

	extract := func(entry string) (time.Time, bool) {
		t, ok := entries[entry]
		return t, ok
	}

	cutoff := now.Add(-24 * time.Hour)
	removed, err := st.TrimByAge(ctx, "q", cutoff, extract)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	length, err := st.Len(ctx, "q")
	require.NoError(t, err)
	require.EqualValues(t, 1, length)

	// Idempotent: running again removes nothing further.
	removed2, err := st.TrimByAge(ctx, "q", cutoff, extract)
	require.NoError(t, err)
	require.EqualValues(t, 0, removed2)

	length2, err := st.Len(ctx, "q")
	require.NoError(t, err)
	require.EqualValues(t, 1, length2)
}

// S6: time-window dedup expiry.
func TestTimeWindowDedupExpiry(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	window := 24 * time.Hour

	t0 := time.Now().UTC().Add(-25 * time.Hour)
	require.NoError(t, st.AddWindow(ctx, "idcache", "F", t0))

	t1 := time.Now().UTC()
	dup, err := st.IsDuplicateWindow(ctx, "idcache", "F", t1, window)
	require.NoError(t, err)
	require.False(t, dup, "entry older than the window must not register as a duplicate")

	require.NoError(t, st.AddWindow(ctx, "idcache", "F", t1))
	_, err = st.ExpireWindow(ctx, "idcache", t1, window)
	require.NoError(t, err)

	card, err := st.CardWindow(ctx, "idcache")
	require.NoError(t, err)
	require.EqualValues(t, 1, card)
}

func TestTrimToSizeBackstop(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, st.PushHead(ctx, "q", []byte("x")))
	}
	removed, err := st.TrimToSize(ctx, "q", 3)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	length, err := st.Len(ctx, "q")
	require.NoError(t, err)
	require.EqualValues(t, 3, length)
}
