package navigation

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestContextPushPop(t *testing.T) {
	c := &Context{TenantID: 1, UserID: 2}

	_, ok := c.AtMenu()
	assert.False(t, ok)

	c.Push(10)
	c.Push(20)
	assert.Equal(t, pq.Int64Array{10, 20}, c.Path)
	id, ok := c.AtMenu()
	assert.True(t, ok)
	assert.Equal(t, int64(20), id)

	id, ok = c.Pop()
	assert.True(t, ok)
	assert.Equal(t, int64(10), id)
	assert.Equal(t, pq.Int64Array{10}, c.Path)

	_, ok = c.Pop()
	assert.False(t, ok)
	assert.Empty(t, c.Path)
	_, ok = c.AtMenu()
	assert.False(t, ok)
}

func TestContextPopOnEmptyPath(t *testing.T) {
	c := &Context{}
	_, ok := c.Pop()
	assert.False(t, ok)
	assert.Empty(t, c.Path)
}

func TestContextReset(t *testing.T) {
	c := &Context{}
	c.Push(1)
	c.Push(2)
	c.Push(3)

	c.Reset(7)
	assert.Equal(t, pq.Int64Array{7}, c.Path)
	id, ok := c.AtMenu()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	c.Clear()
	assert.Empty(t, c.Path)
	_, ok = c.AtMenu()
	assert.False(t, ok)
}
