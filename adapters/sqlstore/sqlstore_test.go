package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/crudkit/core/model"
	"github.com/artpar/crudkit/core/query"
)

func articleModel() *model.Model {
	return &model.Model{
		Name:  "article",
		Table: "articles",
		Fields: []model.Field{
			{Name: "id", Type: model.TypeInteger, PrimaryKey: true},
			{Name: "title", Type: model.TypeString, MaxLength: 100},
			{Name: "body", Type: model.TypeText, Nullable: true},
			{Name: "published", Type: model.TypeBoolean, Default: false},
			{Name: "price", Type: model.TypeNumeric, Precision: 8, Scale: 2, Nullable: true},
			{Name: "posted", Type: model.TypeDateTime, Nullable: true},
		},
	}
}

func setup(t *testing.T) (*Pool, *Manager) {
	t.Helper()

	var acquired int
	pool, err := Open(DriverSQLite, ":memory:", Options{
		OnAcquire: func(time.Duration, error) { acquired++ },
	})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	m := articleModel()
	require.NoError(t, EnsureTable(context.Background(), pool, m))
	require.NoError(t, EnsureTable(context.Background(), pool, m), "EnsureTable is idempotent")
	assert.Equal(t, 2, acquired)

	return pool, NewManager(pool, m)
}

func TestCreateTableSQL(t *testing.T) {
	got := CreateTableSQL(articleModel())
	assert.Contains(t, got, `CREATE TABLE IF NOT EXISTS "articles"`)
	assert.Contains(t, got, `"id" INTEGER PRIMARY KEY`)
	assert.Contains(t, got, `"title" VARCHAR(100) NOT NULL`)
	assert.Contains(t, got, `"body" TEXT,`)
	assert.Contains(t, got, `"published" INTEGER NOT NULL DEFAULT 0`)
}

func TestManager_CRUD(t *testing.T) {
	_, mgr := setup(t)
	ctx := context.Background()
	m := mgr.Model()

	posted := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	created, err := mgr.Create(ctx, model.NewRecordFrom(m, map[string]any{
		"title":     "Hello",
		"body":      nil,
		"published": true,
		"price":     "12.50",
		"posted":    posted,
	}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.PK())
	assert.Equal(t, true, created.Get("published"))
	assert.Equal(t, "12.50", created.Get("price"))
	assert.Equal(t, "2024-05-01T12:00:00Z", created.Get("posted"))
	assert.Nil(t, created.Get("body"))

	created.Set("title", "Hello again")
	updated, err := mgr.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Hello again", updated.Get("title"))

	got, err := mgr.Get(ctx, query.Eq("id", int64(1)))
	require.NoError(t, err)
	assert.Equal(t, "Hello again", got.Get("title"))

	require.NoError(t, mgr.Delete(ctx, got))
	_, err = mgr.Get(ctx, query.Eq("id", int64(1)))
	assert.True(t, errors.Is(err, query.ErrNotFound))

	assert.True(t, errors.Is(mgr.Delete(ctx, got), query.ErrNotFound))
	_, err = mgr.Update(ctx, got)
	assert.True(t, errors.Is(err, query.ErrNotFound))
}

func TestManager_CreateUsesDefaults(t *testing.T) {
	_, mgr := setup(t)

	rec, err := mgr.Create(context.Background(), model.NewRecordFrom(mgr.Model(), map[string]any{"title": "x"}))
	require.NoError(t, err)
	assert.Equal(t, false, rec.Get("published"))
}

func TestManager_ConstraintViolationRollsBack(t *testing.T) {
	_, mgr := setup(t)
	ctx := context.Background()

	_, err := mgr.Create(ctx, model.NewRecordFrom(mgr.Model(), map[string]any{"title": nil}))
	require.Error(t, err)

	n, err := mgr.All().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueryset(t *testing.T) {
	_, mgr := setup(t)
	ctx := context.Background()
	m := mgr.Model()

	for _, title := range []string{"Go 100%", "Rust", "go_tips", "Zig", "Going"} {
		_, err := mgr.Create(ctx, model.NewRecordFrom(m, map[string]any{"title": title}))
		require.NoError(t, err)
	}

	total, err := mgr.All().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)

	recs, err := mgr.All().Filter(query.Contains("title", "GO")).OrderBy(query.Desc("title")).Execute(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "go_tips", recs[0].Get("title"))

	// LIKE wildcards in the term are literal
	recs, err = mgr.All().Filter(query.Contains("title", "%")).Execute(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Go 100%", recs[0].Get("title"))

	recs, err = mgr.All().Filter(query.Or(query.Eq("title", "Rust"), query.Eq("title", "Zig"))).Execute(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	page := mgr.All().Slice(1, 2)
	recs, err = page.Execute(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(2), recs[0].PK())

	n, err := page.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = mgr.All().Slice(4, -1).Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	recs, err = mgr.All().Filter(query.Eq("body", nil)).Execute(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 5)

	_, err = mgr.All().Filter(query.Eq("nope", 1)).Execute(ctx)
	assert.ErrorContains(t, err, `unknown field "nope"`)
}

func TestPool_CancelledContext(t *testing.T) {
	pool, mgr := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Acquire(ctx)
	assert.Error(t, err)

	_, err = mgr.Create(ctx, model.NewRecordFrom(mgr.Model(), map[string]any{"title": "x"}))
	assert.Error(t, err)

	require.NoError(t, pool.Ping(context.Background()), "pool stays usable")
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("postgres", "", Options{})
	assert.ErrorContains(t, err, "unsupported driver")
}
