package deliblade

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flarexio/deliblade/vector"
)

var (
	ErrValidation          = errors.New("invalid input")
	ErrItemNotFound        = errors.New("item not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNotPayable     = errors.New("order is not in a payable state")
	ErrOrderNotCancellable = errors.New("order is not in a cancellable state")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	ErrVectorDBNotSet      = errors.New("vector database not set")
	ErrEmbedderNotSet      = errors.New("embedder not set")
	ErrCatalogNotSet       = errors.New("catalog not set")
	ErrOrderStoreNotSet    = errors.New("order store not set")
)

type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Agent    AgentConfig    `yaml:"agent"`
	Sessions SessionConfig  `yaml:"sessions"`
	Vector   vector.Config  `yaml:"vector"`
	Provider ProviderConfig `yaml:"providers"`
}

// StoreConfig holds store-level facts the assistant may answer from
// without touching the catalog or any provider.
type StoreConfig struct {
	Name           string  `yaml:"name"`
	Currency       string  `yaml:"currency"`
	TaxRate        float64 `yaml:"taxRate"`
	OpenTime       string  `yaml:"open"`
	CloseTime      string  `yaml:"close"`
	HotCutoff      string  `yaml:"hotSandwichCutoff"`
	LateDealsStart string  `yaml:"lateDealsStart"`
}

type AgentConfig struct {
	TopK                int     `yaml:"topK"`
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	HistoryLimit        int     `yaml:"historyLimit"`
}

type SessionConfig struct {
	MaxEntries    int      `yaml:"maxEntries"`
	IdleTTL       Duration `yaml:"idleTTL"`
	SweepInterval Duration `yaml:"sweepInterval"`
}

type RemoteConfig struct {
	BaseURL   string   `yaml:"baseURL"`
	APIKeyEnv string   `yaml:"apiKeyEnv"`
	Model     string   `yaml:"model"`
	Timeout   Duration `yaml:"timeout"`
}

type ProviderConfig struct {
	Embeddings RemoteConfig `yaml:"embeddings"`
	LLM        RemoteConfig `yaml:"llm"`
	Payments   RemoteConfig `yaml:"payments"`
}

func (cfg *Config) ApplyDefaults() {
	if cfg.Store.Currency == "" {
		cfg.Store.Currency = "USD"
	}
	if cfg.Store.OpenTime == "" {
		cfg.Store.OpenTime = "6:00 AM"
	}
	if cfg.Store.CloseTime == "" {
		cfg.Store.CloseTime = "12:00 AM"
	}
	if cfg.Store.HotCutoff == "" {
		cfg.Store.HotCutoff = "11:00 PM"
	}
	if cfg.Store.LateDealsStart == "" {
		cfg.Store.LateDealsStart = "10:00 PM"
	}
	if cfg.Agent.TopK <= 0 {
		cfg.Agent.TopK = 4
	}
	if cfg.Agent.SimilarityThreshold <= 0 {
		cfg.Agent.SimilarityThreshold = 0.35
	}
	if cfg.Agent.HistoryLimit <= 0 {
		cfg.Agent.HistoryLimit = 10
	}
	if cfg.Sessions.MaxEntries <= 0 {
		cfg.Sessions.MaxEntries = 1000
	}
	if cfg.Sessions.IdleTTL <= 0 {
		cfg.Sessions.IdleTTL = Duration(30 * time.Minute)
	}
	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = "items"
	}
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() ([]byte, error) {
	str := d.Duration().String()
	return yaml.Marshal(str)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

// Item is a catalog item. The catalog is the authority for price and
// quantity; the vector index only carries a denormalized snapshot.
type Item struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Aliases  []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Category string   `json:"category,omitempty" yaml:"category,omitempty"`
	Price    float64  `json:"price" yaml:"price"`
	Quantity int      `json:"qty" yaml:"qty"`
	Active   bool     `json:"active" yaml:"active"`
	Public   bool     `json:"public" yaml:"public"`
}

func (it *Item) InStock() bool {
	return it.Quantity > 0
}

// IndexText composes the description embedded into the vector index.
func (it *Item) IndexText() string {
	category := it.Category
	if category == "" {
		category = "item"
	}

	desc := fmt.Sprintf("%s | Type: %s | In stock: %d", it.Name, category, it.Quantity)
	if it.Price > 0 {
		desc += fmt.Sprintf(" | Price: $%.2f", it.Price)
	}

	return desc
}

// ItemToDocument denormalizes an item into a vector store document.
// The embedding is attached by the reconciler.
func ItemToDocument(it *Item) vector.Document {
	return vector.Document{
		ID:      it.ID,
		Content: it.IndexText(),
		Metadata: map[string]string{
			"name":     it.Name,
			"category": it.Category,
			"price":    fmt.Sprintf("%.2f", it.Price),
			"in_stock": fmt.Sprintf("%t", it.InStock()),
		},
	}
}

type OrderStatus string

const (
	OrderDraft          OrderStatus = "draft"
	OrderPaymentPending OrderStatus = "payment_pending"
	OrderPaid           OrderStatus = "paid"
	OrderFailed         OrderStatus = "failed"
	OrderCancelled      OrderStatus = "cancelled"
)

type OrderLineInput struct {
	ItemID string `json:"item_id"`
	Qty    int    `json:"qty"`
}

type OrderLine struct {
	ItemID    string  `json:"item_id"`
	Name      string  `json:"name"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

type Order struct {
	ID         string      `json:"id"`
	Status     OrderStatus `json:"status"`
	Lines      []OrderLine `json:"lines"`
	Subtotal   float64     `json:"subtotal"`
	Tax        float64     `json:"tax"`
	Total      float64     `json:"total"`
	Currency   string      `json:"currency"`
	PaymentRef string      `json:"payment_ref,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (o *Order) Clone() *Order {
	clone := *o
	clone.Lines = make([]OrderLine, len(o.Lines))
	copy(clone.Lines, o.Lines)
	return &clone
}

type SearchResult struct {
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
	InStock  bool    `json:"in_stock"`
	Score    float64 `json:"score"`
}

type Path string

const (
	PathFast   Path = "fast"
	PathNormal Path = "normal"
)

// Reply is the sole observable contract of the agent router.
type Reply struct {
	Reply     string   `json:"reply"`
	UsedTools []string `json:"used_tools"`
	Path      Path     `json:"path"`
}

type InventoryItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
}

type InventoryResult struct {
	Found bool           `json:"found"`
	Item  *InventoryItem `json:"item,omitempty"`
}

// Round2 rounds a dollar amount to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Cents converts a dollar amount to an integer cent amount for
// payment providers.
func Cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}
