package search

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streed/memo/internal/metrics"
	"github.com/streed/memo/internal/migrations"
	"github.com/streed/memo/internal/models"
	"github.com/streed/memo/internal/query"
)

func setupRepo(t *testing.T) *models.NoteRepository {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "search.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.NewMigrationRunner(db).RunMigrations())
	return models.NewNoteRepository(db)
}

func TestSearcherCachesCompiledQueries(t *testing.T) {
	m := metrics.New()
	s := NewSearcher(nil, Options{CacheSize: 8, CacheTTL: time.Minute}, m)

	first, err := s.Compile("@tags:work OR urgent")
	require.NoError(t, err)
	second, err := s.Compile("@tags:work OR urgent")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, s.CachedQueries())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryCache.WithLabelValues(metrics.LblMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryCache.WithLabelValues(metrics.LblHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryCompile.WithLabelValues(metrics.LblOK)))
}

func TestSearcherReturnsCopies(t *testing.T) {
	s := NewSearcher(nil, Options{CacheSize: 8, CacheTTL: time.Minute}, nil)

	first, err := s.Compile("alpha")
	require.NoError(t, err)
	first.Params[0] = "tampered"
	first.Fragment = "1=1"

	second, err := s.Compile("alpha")
	require.NoError(t, err)
	assert.Equal(t, []any{"%alpha%", "%alpha%"}, second.Params)
	assert.Equal(t, "(n.title LIKE ? OR n.content LIKE ?)", second.Fragment)
}

func TestSearcherCachesParseErrors(t *testing.T) {
	m := metrics.New()
	s := NewSearcher(nil, Options{CacheSize: 8, CacheTTL: time.Minute}, m)

	for i := 0; i < 3; i++ {
		pred, err := s.Compile("(broken")
		assert.Nil(t, pred)
		assert.ErrorIs(t, err, query.ErrMismatchedParenthesis)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryCompile.WithLabelValues(metrics.LblError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueryCache.WithLabelValues(metrics.LblHit)))
}

func TestSearcherEmptyQuery(t *testing.T) {
	s := NewSearcher(nil, Options{CacheSize: 8, CacheTTL: time.Minute}, nil)

	for _, raw := range []string{"", "   ", `""`} {
		pred, err := s.Compile(raw)
		require.NoError(t, err)
		assert.Nil(t, pred, "%q should mean no filter", raw)
	}
}

func TestSearcherCapacityAndTTL(t *testing.T) {
	s := NewSearcher(nil, Options{CacheSize: 2, CacheTTL: 20 * time.Millisecond}, nil)

	for _, q := range []string{"a", "b", "c"} {
		_, err := s.Compile(q)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, s.CachedQueries(), "capacity evicts the oldest entry")

	m := metrics.New()
	s = NewSearcher(nil, Options{CacheSize: 2, CacheTTL: 20 * time.Millisecond}, m)
	_, err := s.Compile("a")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = s.Compile("a")
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueryCache.WithLabelValues(metrics.LblMiss)), "expired entry is recompiled")

	s.Purge()
	assert.Zero(t, s.CachedQueries())
}

func TestSearcherWithoutCache(t *testing.T) {
	m := metrics.New()
	s := NewSearcher(nil, Options{}, m)

	for i := 0; i < 2; i++ {
		_, err := s.Compile("x")
		require.NoError(t, err)
	}
	assert.Zero(t, s.CachedQueries())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueryCompile.WithLabelValues(metrics.LblOK)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.QueryCache.WithLabelValues(metrics.LblMiss)))
}

func TestSearcherCustomColumns(t *testing.T) {
	s := NewSearcher(nil, Options{Columns: query.Columns{Title: "x.t", Content: "x.c", NoteID: "x.id"}}, nil)

	pred, err := s.Compile("@title:hi")
	require.NoError(t, err)
	assert.Equal(t, "x.t LIKE ?", pred.Fragment)
}

func TestSearcherSearch(t *testing.T) {
	repo := setupRepo(t)
	m := metrics.New()
	s := NewSearcher(repo, Options{CacheSize: 8, CacheTTL: time.Minute}, m)

	_, err := repo.Create("Groceries", "milk and eggs")
	require.NoError(t, err)
	_, err = repo.Create("Meeting", "discuss roadmap")
	require.NoError(t, err)

	result, err := s.Search(models.SearchOptions{Query: "milk OR roadmap", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, result.Notes, 2)

	result, err = s.Search(models.SearchOptions{Query: "milk -eggs", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, result.Notes)

	_, err = s.Search(models.SearchOptions{Query: "()", Page: 1, Limit: 10})
	assert.ErrorIs(t, err, query.ErrUnexpectedEndOfInput)

	assert.Equal(t, 3, s.CachedQueries(), "repository compiles through the searcher")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchTotal.WithLabelValues(metrics.LblOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchTotal.WithLabelValues(metrics.LblError)))
}

func TestSearcherExplain(t *testing.T) {
	s := NewSearcher(nil, Options{CacheSize: 8, CacheTTL: time.Minute}, nil)

	exp, err := s.Explain("@title:plan")
	require.NoError(t, err)
	assert.Equal(t, `Term("@title:plan")`, exp.Tree)
	assert.Equal(t, "n.title LIKE ?", exp.Predicate.Fragment)
	assert.Zero(t, s.CachedQueries())
}
