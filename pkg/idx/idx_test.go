package idx

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewProducesSortableUniqueIDs(t *testing.T) {
	seen := make(map[ID]struct{})
	var prev ID
	for range 100 {
		id := New()
		require.NotContains(t, seen, id)
		seen[id] = struct{}{}
		require.True(t, prev.String() < id.String(), "ids must be monotonically increasing")
		prev = id
	}
}

func TestNewIsSafeForConcurrentUse(t *testing.T) {
	const perWorker = 50
	var (
		mu  sync.Mutex
		ids = make(map[ID]struct{})
		wg  sync.WaitGroup
	)

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				id := New()
				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, ids, 8*perWorker)
}

func TestParse(t *testing.T) {
	t.Run("round trips generated ids", func(t *testing.T) {
		id := New()
		parsed, err := Parse(id.String())
		require.NoError(t, err)
		require.Equal(t, id, parsed)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		for _, s := range []string{"", "  ", "not-a-ulid", "0000"} {
			_, err := Parse(s)
			require.ErrorIs(t, err, ErrInvalid)
		}
	})
}

func TestTimeEmbedsCreationInstant(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id := NewAt(at)
	require.WithinDuration(t, at, id.Time(), time.Millisecond)

	require.True(t, Zero.Time().IsZero())
}
