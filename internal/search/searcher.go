package search

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/streed/memo/internal/logger"
	"github.com/streed/memo/internal/metrics"
	"github.com/streed/memo/internal/models"
	"github.com/streed/memo/internal/query"
)

type Options struct {
	// CacheSize bounds the number of compiled queries kept. Zero disables caching.
	CacheSize int
	CacheTTL  time.Duration
	Columns   query.Columns
}

// compiled is the cached outcome of one raw query, errors included.
type compiled struct {
	pred *query.Predicate
	err  error
}

// Searcher compiles queries through a TTL cache and runs them against the
// note repository.
type Searcher struct {
	repo     *models.NoteRepository
	compiler *query.Compiler
	cache    *ttlcache.Cache[string, compiled]
	metrics  *metrics.Metrics
}

// NewSearcher routes repo's query compilation through the returned
// Searcher's cache. m may be nil.
func NewSearcher(repo *models.NoteRepository, opts Options, m *metrics.Metrics) *Searcher {
	s := &Searcher{
		repo:     repo,
		compiler: query.NewCompiler(opts.Columns),
		metrics:  m,
	}

	if opts.CacheSize > 0 {
		s.cache = ttlcache.New[string, compiled](
			ttlcache.WithTTL[string, compiled](opts.CacheTTL),
			ttlcache.WithCapacity[string, compiled](uint64(opts.CacheSize)),
			ttlcache.WithDisableTouchOnHit[string, compiled](),
		)
	}

	if repo != nil {
		repo.WithCompiler(s)
	}
	return s
}

// Compile returns a copy of the cached predicate for raw, compiling it on a
// miss. Callers may modify the returned predicate.
func (s *Searcher) Compile(raw string) (*query.Predicate, error) {
	if s.cache != nil {
		if item := s.cache.Get(raw); item != nil {
			s.metrics.ObserveCache(true)
			c := item.Value()
			return c.pred.Clone(), c.err
		}
		s.metrics.ObserveCache(false)
	}

	node, err := query.Parse(query.Tokenize(raw))
	s.metrics.ObserveCompile(err)

	var c compiled
	if err != nil {
		logger.Debug("Query %q failed to parse: %v", raw, err)
		c.err = err
	} else {
		c.pred = s.compiler.Compile(node)
	}

	if s.cache != nil {
		s.cache.Set(raw, c, ttlcache.DefaultTTL)
	}
	return c.pred.Clone(), c.err
}

// Explain reports every compilation stage for raw. It bypasses the cache.
func (s *Searcher) Explain(raw string) (*query.Explanation, error) {
	return s.compiler.Explain(raw)
}

func (s *Searcher) Search(opts models.SearchOptions) (*models.SearchResult, error) {
	result, err := s.repo.Search(opts)
	s.metrics.ObserveSearch(err)
	return result, err
}

// CachedQueries reports how many compiled queries are currently cached.
func (s *Searcher) CachedQueries() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}

// Purge drops every cached query.
func (s *Searcher) Purge() {
	if s.cache != nil {
		s.cache.DeleteAll()
	}
}
