package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/artpar/crudkit/adapters/memory"
	"github.com/artpar/crudkit/core/model"
	"github.com/artpar/crudkit/core/query"
)

func noteModel() *model.Model {
	return &model.Model{
		Name:  "note",
		Table: "notes",
		Fields: []model.Field{
			{Name: "id", Type: model.TypeInteger, PrimaryKey: true},
			{Name: "body", Type: model.TypeText},
		},
	}
}

func TestStore_CreateAssignsIDs(t *testing.T) {
	m := noteModel()
	store := memory.NewStore(m)
	ctx := context.Background()

	first, err := store.Create(ctx, model.NewRecordFrom(m, map[string]any{"body": "a"}))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if first.PK() != int64(1) {
		t.Errorf("PK = %v, want 1", first.PK())
	}

	if _, err := store.Create(ctx, model.NewRecordFrom(m, map[string]any{"id": int64(10), "body": "b"})); err != nil {
		t.Fatalf("Create with explicit id failed: %v", err)
	}
	next, _ := store.Create(ctx, model.NewRecordFrom(m, map[string]any{"body": "c"}))
	if next.PK() != int64(11) {
		t.Errorf("PK = %v, want 11", next.PK())
	}

	if _, err := store.Create(ctx, model.NewRecordFrom(m, map[string]any{"id": int64(10)})); err == nil {
		t.Error("expected duplicate primary key error")
	}
	if store.Len() != 3 {
		t.Errorf("Len = %d, want 3", store.Len())
	}
}

func TestStore_UpdateDelete(t *testing.T) {
	m := noteModel()
	store := memory.NewStore(m)
	ctx := context.Background()

	rec, _ := store.Create(ctx, model.NewRecordFrom(m, map[string]any{"body": "draft"}))
	rec.Set("body", "final")

	if _, err := store.Update(ctx, rec); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, err := store.Get(ctx, query.Eq("id", rec.PK()))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Get("body") != "final" {
		t.Errorf("body = %v, want final", got.Get("body"))
	}

	if err := store.Delete(ctx, rec); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, rec); !errors.Is(err, query.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
	if _, err := store.Update(ctx, rec); !errors.Is(err, query.ErrNotFound) {
		t.Errorf("Update after delete err = %v, want ErrNotFound", err)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	m := noteModel()
	store := memory.NewStore(m)
	ctx := context.Background()

	rec, _ := store.Create(ctx, model.NewRecordFrom(m, map[string]any{"body": "x"}))
	rec.Set("body", "mutated")

	got, _ := store.Get(ctx, query.Eq("id", rec.PK()))
	if got.Get("body") != "x" {
		t.Errorf("store row changed through returned record: %v", got.Get("body"))
	}
}

func TestStore_Concurrent(t *testing.T) {
	m := noteModel()
	store := memory.NewStore(m)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Create(ctx, model.NewRecordFrom(m, map[string]any{"body": "n"}))
			store.All().Count(ctx)
		}()
	}
	wg.Wait()

	n, err := store.All().Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 50 {
		t.Errorf("Count = %d, want 50", n)
	}
}

func TestStore_CancelledContext(t *testing.T) {
	store := memory.NewStore(noteModel())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.All().Execute(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Execute err = %v, want context.Canceled", err)
	}
}
