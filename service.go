package deliblade

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flarexio/deliblade/provider"
	"github.com/flarexio/deliblade/vector"
)

// Service defines the core logic of Deliblade: the vector index
// lifecycle, the two-path agent router, and the order/stock state
// machine.
type Service interface {

	// Close gracefully shuts down the service.
	Close() error

	// RouteMessage answers a single inbound message, choosing between
	// the deterministic fast path and the retrieval-augmented normal
	// path.
	RouteMessage(ctx context.Context, message string, sessionID string) (*Reply, error)

	// Search returns the top-K in-stock catalog items by cosine
	// similarity above the threshold, with fresh price and stock
	// joined from the catalog. Zero topK or threshold fall back to
	// the configured defaults.
	Search(ctx context.Context, query string, topK int, threshold float64) ([]SearchResult, error)

	// LookupInventory resolves an item by exact or substring name
	// match and returns its live quantity and price.
	LookupInventory(ctx context.Context, query string) (*InventoryResult, error)

	// RebuildIndex re-embeds the whole catalog and swaps in the fresh
	// index. Returns the number of indexed items.
	RebuildIndex(ctx context.Context) (int, error)

	// CreateOrder validates and prices lines into a draft order.
	CreateOrder(ctx context.Context, lines []OrderLineInput) (*Order, error)

	// IssuePayment obtains a payment intent and moves the order to
	// payment_pending.
	IssuePayment(ctx context.Context, orderID string) (*provider.PaymentIntent, error)

	// FinalizeOrder verifies payment and atomically decrements stock,
	// marking the order paid or failed.
	FinalizeOrder(ctx context.Context, orderID string, confirmation string) (*Order, error)

	// CancelOrder cancels a draft or payment_pending order.
	CancelOrder(ctx context.Context, orderID string) (*Order, error)

	// Order returns a single order.
	Order(ctx context.Context, orderID string) (*Order, error)

	// Orders returns all orders, newest first.
	Orders(ctx context.Context) ([]*Order, error)
}

type ServiceMiddleware func(Service) Service

// Dependencies are the external collaborators of the service. Catalog,
// Orders, Vector, and Embedder are required; the remaining providers
// are optional and the service degrades without them.
type Dependencies struct {
	Catalog    Catalog
	Orders     OrderStore
	Vector     vector.VectorDB
	Embedder   provider.Embedder
	Completer  provider.Completer
	Classifier provider.Classifier
	Payments   provider.Payments
}

func NewService(ctx context.Context, cfg Config, deps Dependencies) (Service, error) {
	log := zap.L().With(
		zap.String("service", "deliblade"),
	)

	cfg.ApplyDefaults()

	switch {
	case deps.Catalog == nil:
		return nil, ErrCatalogNotSet
	case deps.Orders == nil:
		return nil, ErrOrderStoreNotSet
	case deps.Vector == nil:
		return nil, ErrVectorDBNotSet
	case deps.Embedder == nil:
		return nil, ErrEmbedderNotSet
	}

	ctx, cancel := context.WithCancel(ctx)

	svc := &service{
		catalog:    deps.Catalog,
		orders:     deps.Orders,
		vector:     deps.Vector,
		embedder:   deps.Embedder,
		completer:  deps.Completer,
		classifier: deps.Classifier,
		payments:   deps.Payments,
		sessions:   NewSessionStore(cfg.Sessions.MaxEntries, cfg.Sessions.IdleTTL.Duration()),

		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	// Build the initial index. A failure is logged, not fatal: the
	// service starts and serves once a rebuild succeeds.
	if _, err := svc.RebuildIndex(ctx); err != nil {
		log.Error(err.Error(), zap.String("action", "startup_rebuild"))
	}

	if interval := cfg.Sessions.SweepInterval.Duration(); interval > 0 {
		go svc.sessionSweeper(ctx, interval)
	}

	return svc, nil
}

type service struct {
	catalog    Catalog
	orders     OrderStore
	vector     vector.VectorDB
	embedder   provider.Embedder
	completer  provider.Completer
	classifier provider.Classifier
	payments   provider.Payments
	sessions   *SessionStore

	// Served index; swapped wholesale by RebuildIndex.
	mu         sync.RWMutex
	collection vector.Collection
	names      *nameIndex

	cfg    Config
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func (svc *service) Close() error {
	if svc.cancel != nil {
		svc.cancel()
		svc.cancel = nil
	}

	return nil
}

func (svc *service) sessionSweeper(ctx context.Context, interval time.Duration) {
	log := svc.log.With(
		zap.String("action", "session_sweeper"),
		zap.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("done")
			return

		case <-ticker.C:
			svc.sessions.Sweep()
		}
	}
}

func (svc *service) Search(ctx context.Context, query string, topK int, threshold float64) ([]SearchResult, error) {
	if query == "" {
		return nil, ErrValidation
	}

	if topK <= 0 {
		topK = svc.cfg.Agent.TopK
	}

	if threshold <= 0 {
		threshold = svc.cfg.Agent.SimilarityThreshold
	}

	collection, _ := svc.index()
	if collection == nil {
		return nil, ErrVectorDBNotSet
	}

	embedding, err := svc.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	where := map[string]string{"in_stock": "true"}

	hits, err := collection.Query(ctx, embedding, topK, where)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		score := float64(hit.Similarity)
		if score > 1 {
			score = 1
		}

		if score < threshold {
			continue
		}

		// Re-fetch authoritative stock and price; the index snapshot
		// may be stale between reconciliations. A hit whose item is
		// gone from the catalog is a stale entry, not a result.
		it, err := svc.catalog.Item(ctx, hit.ID)
		if err != nil {
			continue
		}

		results = append(results, SearchResult{
			ItemID:   hit.ID,
			Name:     it.Name,
			Category: it.Category,
			Price:    it.Price,
			InStock:  it.InStock(),
			Score:    score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ItemID < results[j].ItemID
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

func (svc *service) LookupInventory(ctx context.Context, query string) (*InventoryResult, error) {
	if query == "" {
		return nil, ErrValidation
	}

	_, names := svc.index()

	id, ok := names.Resolve(query)
	if !ok {
		return &InventoryResult{Found: false}, nil
	}

	it, err := svc.catalog.Item(ctx, id)
	if err != nil {
		return nil, err
	}

	return &InventoryResult{
		Found: true,
		Item: &InventoryItem{
			ID:    it.ID,
			Name:  it.Name,
			Qty:   it.Quantity,
			Price: it.Price,
		},
	}, nil
}
