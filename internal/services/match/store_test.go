package match

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bullscows/internal/model"
)

func TestStoreWithMissingSession(t *testing.T) {
	store := NewStore()

	err := store.With("NOPE99", func(*model.Session) error { return nil })
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
	assert.Empty(t, store.locks)
}

func TestStoreWithPassesErrorThrough(t *testing.T) {
	store := NewStore()
	store.Put(&model.Session{Code: code})

	boom := errors.New("boom")
	err := store.With(code, func(*model.Session) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestStoreDeleteIfIgnoresReplacedSession(t *testing.T) {
	store := NewStore()
	old := &model.Session{Code: code}
	store.Put(old)
	current := &model.Session{Code: code}
	store.Put(current)

	assert.False(t, store.DeleteIf(code, old))
	assert.Equal(t, 1, store.Len())
	assert.True(t, store.DeleteIf(code, current))
	assert.Equal(t, 0, store.Len())
}

func TestStoreLockSerializesRoom(t *testing.T) {
	store := NewStore()
	store.Put(&model.Session{Code: code})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.With(code, func(s *model.Session) error {
				s.RoundNumber++
				return nil
			})
		}()
	}
	wg.Wait()

	require.NotNil(t, store.Get(code))
	assert.Equal(t, 50, store.Get(code).RoundNumber)
	assert.Empty(t, store.locks)
}
