// Package product matches free-text purchase labels against the catalog's
// known product names.
package product

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
)

// indexDocument is the shape stored per product name.
type indexDocument struct {
	Name string `json:"name"`
}

// Index narrows large catalogs down to a candidate set before exact scoring.
// It is an in-memory full-text index rebuilt from the catalog snapshot at the
// start of each import.
type Index struct {
	index bleve.Index
	count int
	mu    sync.RWMutex
}

// NewIndex builds an in-memory index over the given product names.
func NewIndex(names []string) (*Index, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	batch := index.NewBatch()
	for _, name := range names {
		if err := batch.Index(name, indexDocument{Name: name}); err != nil {
			return nil, fmt.Errorf("failed to index product %q: %w", name, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return nil, fmt.Errorf("failed to execute batch index: %w", err)
	}

	return &Index{index: index, count: len(names)}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = simple.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// Candidates returns up to limit product names whose tokens approximately
// match the label. An empty result means the index has no opinion and the
// caller should fall back to the full catalog.
func (i *Index) Candidates(label string, limit int) ([]string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	matchQuery := bleve.NewMatchQuery(label)
	matchQuery.SetFuzziness(1)

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = limit

	searchResults, err := i.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("candidate search failed: %w", err)
	}

	names := make([]string, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		names = append(names, hit.ID)
	}
	return names, nil
}

// Size returns the number of indexed product names.
func (i *Index) Size() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.count
}

// Close releases the index resources.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}
