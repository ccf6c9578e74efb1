package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/voyage/pkg/adapters/memory"
	"github.com/aretw0/voyage/pkg/domain"
	"github.com/aretw0/voyage/pkg/ports"
	"github.com/aretw0/voyage/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, state *domain.State) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, sessionID, state)
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, sessionID)
}

func TestManager_UpdateSerializesWrites(t *testing.T) {
	store := &SlowStore{memory.NewStore()}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	writers := 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, id, func(ctx context.Context, s *domain.State) (*domain.State, error) {
				s.Messages = append(s.Messages, domain.HumanMessage("hi"))
				return s, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Read-modify-write without locking would lose appends.
	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Len(t, state.Messages, writers)
}

func TestManager_LoadOrStart(t *testing.T) {
	store := &SlowStore{memory.NewStore()}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "atomic-init"

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, loaded, err := manager.LoadOrStart(ctx, id)
			assert.NoError(t, err)
			assert.NotNil(t, state)
			if !loaded {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load(), "exactly one caller creates the session")

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseModelStep, state.Phase)
	assert.Equal(t, id, state.SessionID)
}

func TestManager_UpdateSavesProgressOnError(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()
	boom := errors.New("model unavailable")

	_, err := manager.Update(ctx, "s", func(ctx context.Context, s *domain.State) (*domain.State, error) {
		s.Messages = append(s.Messages, domain.HumanMessage("book me a flight"))
		return s, boom
	})
	require.ErrorIs(t, err, boom)

	state, err := manager.Load(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, state.Messages, 1)
}

func TestManager_UpdateNilSkipsSave(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	_, err := manager.Update(ctx, "s", func(ctx context.Context, s *domain.State) (*domain.State, error) {
		s.Messages = append(s.Messages, domain.HumanMessage("discarded"))
		return nil, nil
	})
	require.NoError(t, err)

	state, err := manager.Load(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, state.Messages)
}

func TestManager_UpdateExisting(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	called := false
	_, err := manager.UpdateExisting(ctx, "ghost", func(ctx context.Context, s *domain.State) (*domain.State, error) {
		called = true
		return s, nil
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.False(t, called)

	ids, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "a missing session is not created")

	_, _, err = manager.LoadOrStart(ctx, "real")
	require.NoError(t, err)
	state, err := manager.UpdateExisting(ctx, "real", func(ctx context.Context, s *domain.State) (*domain.State, error) {
		s.Output = "done"
		return s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", state.Output)
}

type countingLocker struct {
	locks   atomic.Int32
	unlocks atomic.Int32
}

func (c *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	c.locks.Add(1)
	return func(ctx context.Context) error {
		c.unlocks.Add(1)
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, manager.Save(ctx, "s", domain.NewState("s")))
	_, err := manager.Load(ctx, "s")
	require.NoError(t, err)

	assert.Equal(t, int32(2), locker.locks.Load())
	assert.Equal(t, int32(2), locker.unlocks.Load())
}
