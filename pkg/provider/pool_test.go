package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedClient struct{ name string }

func (c *namedClient) Name() string { return c.name }
func (c *namedClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	return ChatResponse{}, nil
}

func TestPool_Next_RoundRobin(t *testing.T) {
	a, b, c := &namedClient{"a"}, &namedClient{"b"}, &namedClient{"c"}
	pool := NewPool([]ChatClient{a, b, c}, nil)

	var seen []string
	for i := 0; i < 6; i++ {
		seen = append(seen, pool.Next().Name())
	}

	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, seen)
}

func TestPool_Next_EmptyPoolReturnsNil(t *testing.T) {
	pool := NewPool(nil, nil)
	assert.Nil(t, pool.Next())
}

func TestDistribute(t *testing.T) {
	t.Run("splits evenly", func(t *testing.T) {
		groups := Distribute([]int{1, 2, 3, 4}, 2)
		require.Len(t, groups, 2)
		assert.Equal(t, []int{1, 2}, groups[0])
		assert.Equal(t, []int{3, 4}, groups[1])
	})

	t.Run("remainder goes to the earliest groups", func(t *testing.T) {
		groups := Distribute([]int{1, 2, 3, 4, 5}, 2)
		require.Len(t, groups, 2)
		assert.Equal(t, []int{1, 2, 3}, groups[0])
		assert.Equal(t, []int{4, 5}, groups[1])
	})

	t.Run("n greater than item count yields empty trailing groups", func(t *testing.T) {
		groups := Distribute([]int{1}, 3)
		require.Len(t, groups, 3)
		assert.Equal(t, []int{1}, groups[0])
		assert.Empty(t, groups[1])
		assert.Empty(t, groups[2])
	})

	t.Run("n<=0 normalizes to one group", func(t *testing.T) {
		groups := Distribute([]int{1, 2, 3}, 0)
		require.Len(t, groups, 1)
		assert.Equal(t, []int{1, 2, 3}, groups[0])
	})
}
