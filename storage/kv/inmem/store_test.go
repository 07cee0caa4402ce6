package inmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "chats")
	assert.Equal(t, core.ErrKeyNotFound, err)

	value := []byte(`[{"id":"chat_a_b"}]`)
	require.NoError(t, s.Set(ctx, "chats", value))
	value[0] = 'X' // the store keeps its own copy

	got, err := s.Get(ctx, "chats")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"chat_a_b"}]`, string(got))

	s.Delete(ctx, "chats")
	_, err = s.Get(ctx, "chats")
	assert.Equal(t, core.ErrKeyNotFound, err)
	assert.NoError(t, s.Close())
}
