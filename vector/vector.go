package vector

import "context"

type Config struct {
	Enabled    bool   `yaml:"enabled"`
	Persistent bool   `yaml:"persistent"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

type VectorDB interface {
	// Collection returns the named collection, creating it if needed.
	Collection(name string) (Collection, error)

	// Rebuild returns a fresh, empty collection under the same name.
	// Readers holding the previous Collection keep seeing the old
	// contents; the caller swaps its reference once the rebuild
	// succeeds.
	Rebuild(name string) (Collection, error)
}

type Collection interface {
	Upsert(ctx context.Context, docs []Document) error
	Query(ctx context.Context, embedding []float32, k int, where map[string]string) ([]Result, error)
	Count() int
}

type Document struct {
	ID        string            `json:"id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"embedding,omitempty"`
}

type Result struct {
	Document
	Similarity float32 `json:"similarity"`
}
