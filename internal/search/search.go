package search

import (
	"github.com/streed/memo/internal/models"
	"github.com/streed/memo/internal/query"
)

// SearchProvider runs query-language searches over notes.
type SearchProvider interface {
	Search(opts models.SearchOptions) (*models.SearchResult, error)
	Explain(raw string) (*query.Explanation, error)
}

var _ SearchProvider = (*Searcher)(nil)
var _ models.PredicateCompiler = (*Searcher)(nil)
