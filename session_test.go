package deliblade

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/deliblade/provider"
)

func TestSessionStoreAppendAndGet(t *testing.T) {
	assert := assert.New(t)

	store := NewSessionStore(10, time.Minute)

	store.Append("s1", provider.Message{Role: provider.RoleUser, Content: "hi"})
	store.Append("s1", provider.Message{Role: provider.RoleAssistant, Content: "hello"})

	turns := store.GetOrCreate("s1")
	assert.Len(turns, 2)
	assert.Equal("hi", turns[0].Content)

	// The snapshot is a copy.
	turns[0].Content = "mutated"
	assert.Equal("hi", store.GetOrCreate("s1")[0].Content)
}

func TestSessionStoreEviction(t *testing.T) {
	assert := assert.New(t)

	store := NewSessionStore(3, time.Minute)

	for i := 0; i < 3; i++ {
		store.Append(fmt.Sprintf("s%d", i), provider.Message{Role: provider.RoleUser, Content: "x"})
	}

	// Touch s0 so s1 becomes the least recently accessed.
	store.GetOrCreate("s0")

	store.Append("s3", provider.Message{Role: provider.RoleUser, Content: "x"})

	assert.Equal(3, store.Len())
	assert.Empty(store.GetOrCreate("s1"))
	assert.Len(store.GetOrCreate("s0"), 1)
}

func TestSessionStoreExpiry(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()

	store := NewSessionStore(10, time.Minute)
	store.now = func() time.Time { return now }

	store.Append("s1", provider.Message{Role: provider.RoleUser, Content: "hi"})

	now = now.Add(30 * time.Second)
	assert.Len(store.GetOrCreate("s1"), 1)

	// An expired session restarts with empty history.
	now = now.Add(2 * time.Minute)
	assert.Empty(store.GetOrCreate("s1"))
}

func TestSessionStoreSweep(t *testing.T) {
	assert := assert.New(t)

	now := time.Now()

	store := NewSessionStore(10, time.Minute)
	store.now = func() time.Time { return now }

	store.Append("s1", provider.Message{Role: provider.RoleUser, Content: "hi"})
	store.Append("s2", provider.Message{Role: provider.RoleUser, Content: "hi"})

	now = now.Add(2 * time.Minute)
	store.Append("s3", provider.Message{Role: provider.RoleUser, Content: "hi"})

	store.Sweep()

	assert.Equal(1, store.Len())
	assert.Len(store.GetOrCreate("s3"), 1)
}
