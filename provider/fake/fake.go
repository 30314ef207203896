// Package fake provides deterministic in-process implementations of
// the provider capabilities for tests and offline development.
package fake

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/flarexio/deliblade/provider"
)

// Embedder produces deterministic bag-of-words embeddings: each token
// is hashed into a bucket of a fixed-dimension vector, which is then
// L2-normalized. Texts sharing tokens get a positive cosine
// similarity, which is enough for ranking assertions.
type Embedder struct {
	Dimension int
	Err       error
}

func NewEmbedder(dimension int) *Embedder {
	return &Embedder{Dimension: dimension}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, provider.Wrap("fake-embeddings", e.Err)
	}

	dim := e.Dimension
	if dim <= 0 {
		dim = 64
	}

	vec := make([]float32, dim)
	for _, token := range tokens(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(dim)] += 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}

	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}

	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}

	return vec, nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.Err != nil {
		return nil, provider.Wrap("fake-embeddings", e.Err)
	}

	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}

		vecs[i] = vec
	}

	return vecs, nil
}

func tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}

// Completer returns a canned reply, or delegates to Fn when set.
type Completer struct {
	Reply string
	Fn    func(messages []provider.Message) (string, error)
	Err   error

	mu    sync.Mutex
	calls [][]provider.Message
}

func (c *Completer) Complete(ctx context.Context, messages []provider.Message) (string, error) {
	if c.Err != nil {
		return "", provider.Wrap("fake-llm", c.Err)
	}

	c.mu.Lock()
	c.calls = append(c.calls, messages)
	c.mu.Unlock()

	if c.Fn != nil {
		return c.Fn(messages)
	}

	if c.Reply != "" {
		return c.Reply, nil
	}

	return "Happy to help!", nil
}

// Calls returns every message list the completer has been invoked with.
func (c *Completer) Calls() [][]provider.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	calls := make([][]provider.Message, len(c.calls))
	copy(calls, c.calls)
	return calls
}

// Classifier delegates to Fn, defaulting to the question intent.
type Classifier struct {
	Fn  func(text string) *provider.Classification
	Err error
}

func (c *Classifier) Classify(ctx context.Context, text string, history []provider.Message) (*provider.Classification, error) {
	if c.Err != nil {
		return nil, provider.Wrap("fake-classifier", c.Err)
	}

	if c.Fn != nil {
		return c.Fn(text), nil
	}

	return &provider.Classification{Intent: provider.IntentQuestion}, nil
}

// Payments keeps intents in memory. Intents confirm successfully
// unless FailConfirm is set; ErrCreate / ErrConfirm inject provider
// failures.
type Payments struct {
	FailConfirm bool
	ErrCreate   error
	ErrConfirm  error

	mu      sync.Mutex
	counter int
	intents map[string]bool
}

func NewPayments() *Payments {
	return &Payments{intents: make(map[string]bool)}
}

func (p *Payments) CreateIntent(ctx context.Context, amountCents int64, currency string, orderID string) (*provider.PaymentIntent, error) {
	if p.ErrCreate != nil {
		return nil, provider.Wrap("fake-payments", p.ErrCreate)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.counter++
	handle := fmt.Sprintf("pi_%06d", p.counter)
	p.intents[handle] = !p.FailConfirm

	return &provider.PaymentIntent{
		Handle:       handle,
		ClientSecret: handle + "_secret",
	}, nil
}

func (p *Payments) Confirm(ctx context.Context, handle string) (bool, error) {
	if p.ErrConfirm != nil {
		return false, provider.Wrap("fake-payments", p.ErrConfirm)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	succeeded, ok := p.intents[handle]
	if !ok {
		return false, provider.Wrap("fake-payments", errors.New("unknown intent"))
	}

	return succeeded, nil
}

// SetConfirmable flips whether an existing intent confirms successfully.
func (p *Payments) SetConfirmable(handle string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents[handle] = ok
}
