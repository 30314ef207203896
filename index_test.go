package deliblade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testItems() []*Item {
	return []*Item{
		{ID: "itm_turkey", Name: "Turkey", Active: true, Public: true, Price: 6.5, Quantity: 4},
		{ID: "itm_club", Name: "Turkey Club", Active: true, Public: true, Price: 8.5, Quantity: 2},
		{ID: "itm_blt", Name: "BLT", Aliases: []string{"bacon lettuce tomato"}, Active: true, Public: true, Price: 7.0, Quantity: 9},
	}
}

func TestNameIndexExactMatch(t *testing.T) {
	assert := assert.New(t)

	ix := buildNameIndex(testItems())

	id, ok := ix.Resolve("Turkey Club")
	assert.True(ok)
	assert.Equal("itm_club", id)

	id, ok = ix.Resolve("  turkey   club ")
	assert.True(ok)
	assert.Equal("itm_club", id)
}

func TestNameIndexContainsMatch(t *testing.T) {
	assert := assert.New(t)

	ix := buildNameIndex(testItems())

	// Longest name wins when both "turkey" and "turkey club" appear.
	id, ok := ix.Resolve("do you have a turkey club today?")
	assert.True(ok)
	assert.Equal("itm_club", id)

	id, ok = ix.Resolve("got any turkey?")
	assert.True(ok)
	assert.Equal("itm_turkey", id)

	// Substring matches require word boundaries.
	_, ok = ix.Resolve("how are your turkeyburgers")
	assert.False(ok)
}

func TestNameIndexAlias(t *testing.T) {
	assert := assert.New(t)

	ix := buildNameIndex(testItems())

	id, ok := ix.Resolve("one bacon lettuce tomato please")
	assert.True(ok)
	assert.Equal("itm_blt", id)
}

func TestNameIndexNilSafe(t *testing.T) {
	assert := assert.New(t)

	var ix *nameIndex

	_, ok := ix.Resolve("anything")
	assert.False(ok)
}
