// Package search indexes confirmed documents for free-text lookup. The index
// is a projection of the documents table: it can be rebuilt from there at any
// time, so losing a write costs a search hit, never data.
package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document"
)

// Entry is the searchable projection of one confirmed document.
type Entry struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Type        string  `json:"type"`
	Beneficiary string  `json:"beneficiary"`
	Payer       string  `json:"payer"`
	Text        string  `json:"text"`
	Value       string  `json:"value"`
	DueDate     string  `json:"due_date"`
	Confidence  float64 `json:"confidence"`
}

// Result is one search hit with its relevance score.
type Result struct {
	Entry Entry
	Score float64
}

// Index wraps a Bleve index over confirmed documents. With an empty path the
// index lives in memory and dies with the process; with a path it persists
// and is reopened on restart.
type Index struct {
	index bleve.Index
	mu    sync.RWMutex
	path  string
}

func New(path string) (*Index, error) {
	var (
		idx bleve.Index
		err error
	)
	indexMapping := buildIndexMapping()

	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o755); mkdirErr != nil {
				return nil, fmt.Errorf("create index directory: %w", mkdirErr)
			}
			idx, err = bleve.New(path, indexMapping)
		} else {
			idx, err = bleve.Open(path)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}

	return &Index{index: idx, path: path}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	// Simple analyzer for the free-text fields, keyword for the ones queried
	// by exact value.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("user_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("type", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("beneficiary", textFieldMapping)
	docMapping.AddFieldMappingsAt("payer", textFieldMapping)
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("value", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("due_date", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("confidence", bleve.NewNumericFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// Index adds or replaces one confirmed document. Replays of the same result
// id overwrite in place, so a retried confirmation never doubles a hit.
func (i *Index) Index(doc *document.CommittedDocument) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry := entryFrom(doc)
	if err := i.index.Index(entry.ID, entry); err != nil {
		return fmt.Errorf("index document %s: %w", entry.ID, err)
	}
	return nil
}

// Reindex loads a batch in one pass, used to rebuild the index from the
// documents table at startup.
func (i *Index) Reindex(docs []*document.CommittedDocument) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.index.NewBatch()
	for _, doc := range docs {
		entry := entryFrom(doc)
		if err := batch.Index(entry.ID, entry); err != nil {
			return fmt.Errorf("batch document %s: %w", entry.ID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("run index batch: %w", err)
	}
	return nil
}

// Search runs a fuzzy free-text query over one user's documents. An empty
// query returns everything the user has.
func (i *Index) Search(userID uuid.UUID, text string, limit int) ([]Result, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	var req *bleve.SearchRequest
	if strings.TrimSpace(text) == "" {
		req = bleve.NewSearchRequest(bleve.NewConjunctionQuery(userTerm(userID), bleve.NewMatchAllQuery()))
	} else {
		matchQuery := bleve.NewMatchQuery(text)
		matchQuery.SetFuzziness(1)
		req = bleve.NewSearchRequest(bleve.NewConjunctionQuery(userTerm(userID), matchQuery))
	}
	req.Size = limit
	return i.run(req)
}

// SearchByType returns one user's documents of an exact kind.
func (i *Index) SearchByType(userID uuid.UUID, docType document.Type, limit int) ([]Result, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	typeQuery := bleve.NewTermQuery(string(docType))
	typeQuery.SetField("type")

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(userTerm(userID), typeQuery))
	req.Size = limit
	return i.run(req)
}

// DocCount reports how many documents the index holds.
func (i *Index) DocCount() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.DocCount()
}

// Close releases the index; on-disk indexes need it to flush.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.index != nil {
		return i.index.Close()
	}
	return nil
}

func userTerm(userID uuid.UUID) *query.TermQuery {
	t := bleve.NewTermQuery(userID.String())
	t.SetField("user_id")
	return t
}

func (i *Index) run(req *bleve.SearchRequest) ([]Result, error) {
	req.Fields = []string{"*"}
	searchResults, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return i.convertResults(searchResults), nil
}

func entryFrom(doc *document.CommittedDocument) Entry {
	res := doc.Result
	return Entry{
		ID:          res.ID.String(),
		UserID:      doc.UserID.String(),
		Type:        string(res.Type),
		Beneficiary: res.Fields[document.FieldBeneficiary],
		Payer:       res.Fields[document.FieldPayer],
		Text:        res.SourceText,
		Value:       res.Fields[document.FieldValue],
		DueDate:     res.Fields[document.FieldDueDate],
		Confidence:  res.Confidence,
	}
}

func (i *Index) convertResults(searchResults *bleve.SearchResult) []Result {
	results := make([]Result, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		entry := Entry{ID: hit.ID}
		if v, ok := hit.Fields["user_id"].(string); ok {
			entry.UserID = v
		}
		if v, ok := hit.Fields["type"].(string); ok {
			entry.Type = v
		}
		if v, ok := hit.Fields["beneficiary"].(string); ok {
			entry.Beneficiary = v
		}
		if v, ok := hit.Fields["payer"].(string); ok {
			entry.Payer = v
		}
		if v, ok := hit.Fields["text"].(string); ok {
			entry.Text = v
		}
		if v, ok := hit.Fields["value"].(string); ok {
			entry.Value = v
		}
		if v, ok := hit.Fields["due_date"].(string); ok {
			entry.DueDate = v
		}
		if v, ok := hit.Fields["confidence"].(float64); ok {
			entry.Confidence = v
		}
		results = append(results, Result{Entry: entry, Score: hit.Score})
	}
	return results
}
