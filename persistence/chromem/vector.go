package chromem

import (
	"context"

	"github.com/philippgille/chromem-go"

	"github.com/flarexio/deliblade/vector"
)

func NewChromemVectorDB(cfg vector.Config) (vector.VectorDB, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, err
		}

		db = d
	}

	return &chromemVectorDB{db}, nil
}

type chromemVectorDB struct {
	db *chromem.DB
}

func (vdb *chromemVectorDB) Collection(name string) (vector.Collection, error) {
	// Embeddings are always supplied by the caller, so no embedding
	// function is configured on the collection.
	c, err := vdb.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, err
	}

	return &collection{c}, nil
}

func (vdb *chromemVectorDB) Rebuild(name string) (vector.Collection, error) {
	// CreateCollection replaces the registry entry under this name.
	// Existing Collection handles keep serving the old contents.
	c, err := vdb.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, err
	}

	return &collection{c}, nil
}

type collection struct {
	collection *chromem.Collection
}

func (c *collection) Upsert(ctx context.Context, docs []vector.Document) error {
	documents := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		documents[i] = chromem.Document{
			ID:        doc.ID,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
			Content:   doc.Content,
		}
	}

	return c.collection.AddDocuments(ctx, documents, 1)
}

func (c *collection) Query(ctx context.Context, embedding []float32, k int, where map[string]string) ([]vector.Result, error) {
	count := c.collection.Count()
	if count == 0 {
		return nil, nil
	}

	if k > count {
		k = count
	}

	results, err := c.collection.QueryEmbedding(ctx, embedding, k, where, nil)
	if err != nil {
		return nil, err
	}

	docs := make([]vector.Result, len(results))
	for i, result := range results {
		docs[i] = vector.Result{
			Document: vector.Document{
				ID:        result.ID,
				Metadata:  result.Metadata,
				Embedding: result.Embedding,
				Content:   result.Content,
			},
			Similarity: result.Similarity,
		}
	}

	return docs, nil
}

func (c *collection) Count() int {
	return c.collection.Count()
}
