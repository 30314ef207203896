package deliblade

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flarexio/deliblade/vector"
)

const (
	embedBatchSize   = 32
	embedConcurrency = 4
)

type nameEntry struct {
	name string
	id   string
	re   *regexp.Regexp
}

// nameIndex resolves item names and aliases to item IDs without a
// store round-trip. It is immutable once built; the reconciler swaps
// in a freshly built index after every rebuild.
type nameIndex struct {
	exact   map[string]string
	entries []nameEntry
}

func buildNameIndex(items []*Item) *nameIndex {
	ix := &nameIndex{
		exact: make(map[string]string),
	}

	add := func(name string, id string) {
		nm := normalizeName(name)
		if nm == "" {
			return
		}

		if _, ok := ix.exact[nm]; ok {
			return
		}

		ix.exact[nm] = id
		ix.entries = append(ix.entries, nameEntry{
			name: nm,
			id:   id,
			re:   regexp.MustCompile(`\b` + regexp.QuoteMeta(nm) + `\b`),
		})
	}

	for _, it := range items {
		add(it.Name, it.ID)
		for _, alias := range it.Aliases {
			add(alias, it.ID)
		}
	}

	// Longer names first, so "turkey club" wins over "turkey" when
	// both appear in the message.
	sort.Slice(ix.entries, func(i, j int) bool {
		a, b := ix.entries[i], ix.entries[j]
		if len(a.name) != len(b.name) {
			return len(a.name) > len(b.name)
		}
		return a.name < b.name
	})

	return ix
}

var candidateWords = regexp.MustCompile(`[a-zA-Z][a-zA-Z\-& ]+`)

// Resolve tries an exact-name match first, then a conservative
// word-boundary contains match.
func (ix *nameIndex) Resolve(text string) (string, bool) {
	if ix == nil {
		return "", false
	}

	q := normalizeName(text)
	if id, ok := ix.exact[q]; ok {
		return id, true
	}

	cand := strings.Join(candidateWords.FindAllString(q, -1), " ")
	for _, entry := range ix.entries {
		if entry.re.MatchString(cand) {
			return entry.id, true
		}
	}

	return "", false
}

// RebuildIndex re-embeds every active, public item into a fresh
// collection and swaps it in together with a rebuilt name index. The
// previous index keeps serving until the swap; any failure leaves it
// authoritative.
func (svc *service) RebuildIndex(ctx context.Context) (int, error) {
	if svc.vector == nil {
		return 0, ErrVectorDBNotSet
	}

	items, err := svc.catalog.ActiveItems(ctx)
	if err != nil {
		return 0, err
	}

	docs := make([]vector.Document, len(items))
	for i, it := range items {
		docs[i] = ItemToDocument(it)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(docs); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(docs) {
			end = len(docs)
		}

		batch := docs[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, doc := range batch {
				texts[i] = doc.Content
			}

			vecs, err := svc.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}

			for i := range batch {
				batch[i].Embedding = vecs[i]
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	fresh, err := svc.vector.Rebuild(svc.cfg.Vector.Collection)
	if err != nil {
		return 0, err
	}

	if len(docs) > 0 {
		if err := fresh.Upsert(ctx, docs); err != nil {
			return 0, err
		}
	}

	names := buildNameIndex(items)

	svc.mu.Lock()
	svc.collection = fresh
	svc.names = names
	svc.mu.Unlock()

	svc.log.Info("index rebuilt",
		zap.String("action", "rebuild_index"),
		zap.Int("count", len(items)),
	)

	return len(items), nil
}

// index returns the currently served collection and name index.
func (svc *service) index() (vector.Collection, *nameIndex) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	return svc.collection, svc.names
}
