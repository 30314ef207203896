package deliblade

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestDurationJSONUnmarshal(t *testing.T) {
	assert := assert.New(t)

	input := `{"idleTTL": "45m"}`

	var config struct {
		IdleTTL Duration `json:"idleTTL"`
	}

	if err := json.Unmarshal([]byte(input), &config); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(45*time.Minute, config.IdleTTL.Duration())
}

func TestDurationYAMLUnmarshal(t *testing.T) {
	assert := assert.New(t)

	input := `sessions:
  maxEntries: 50
  idleTTL: 90s`

	var config Config
	if err := yaml.Unmarshal([]byte(input), &config); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(50, config.Sessions.MaxEntries)
	assert.Equal(90*time.Second, config.Sessions.IdleTTL.Duration())
}

func TestConfigApplyDefaults(t *testing.T) {
	assert := assert.New(t)

	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal("USD", cfg.Store.Currency)
	assert.Equal(4, cfg.Agent.TopK)
	assert.Equal(0.35, cfg.Agent.SimilarityThreshold)
	assert.Equal(10, cfg.Agent.HistoryLimit)
	assert.Equal(1000, cfg.Sessions.MaxEntries)
	assert.Equal(30*time.Minute, cfg.Sessions.IdleTTL.Duration())
	assert.Equal("items", cfg.Vector.Collection)
	assert.Equal("11:00 PM", cfg.Store.HotCutoff)
}

func TestItemIndexText(t *testing.T) {
	assert := assert.New(t)

	item := &Item{
		ID:       "itm_001",
		Name:     "Turkey Club",
		Category: "sandwich",
		Price:    8.5,
		Quantity: 12,
	}

	assert.Equal("Turkey Club | Type: sandwich | In stock: 12 | Price: $8.50", item.IndexText())

	free := &Item{Name: "Napkins", Quantity: 3}
	assert.Equal("Napkins | Type: item | In stock: 3", free.IndexText())
}

func TestItemToDocument(t *testing.T) {
	assert := assert.New(t)

	item := &Item{
		ID:       "itm_001",
		Name:     "Turkey Club",
		Category: "sandwich",
		Price:    8.5,
		Quantity: 0,
	}

	doc := ItemToDocument(item)

	assert.Equal("itm_001", doc.ID)
	assert.Equal("Turkey Club", doc.Metadata["name"])
	assert.Equal("8.50", doc.Metadata["price"])
	assert.Equal("false", doc.Metadata["in_stock"])
}

func TestRounding(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(8.68, Round2(8.675000000001))
	assert.Equal(0.1, Round2(0.1))
	assert.Equal(int64(850), Cents(8.5))
	assert.Equal(int64(1999), Cents(19.99))
}
