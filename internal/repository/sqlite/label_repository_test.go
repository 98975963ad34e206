package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"labelcam/internal/model"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "labels.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func record(class, label string, score float64) *model.LabelRecord {
	return &model.LabelRecord{
		FrameID: "frame-1",
		LabeledDetection: model.LabeledDetection{
			Detection: model.Detection{
				Box:   model.Box{X: 10, Y: 20, Width: 30.5, Height: 40},
				Class: class,
				Score: score,
			},
			Type: label,
		},
	}
}

func TestDatabase_CreatesFileAndDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "labels.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestDatabase_MigrationIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "labels.db")

	for i := 0; i < 2; i++ {
		db, err := New(dbPath)
		if err != nil {
			t.Fatalf("Open %d failed: %v", i, err)
		}
		db.Close()
	}
}

func TestLabelRepository_InsertAssignsIncreasingIDs(t *testing.T) {
	repo := NewLabelRepository(setupTestDB(t))
	ctx := context.Background()

	var last int64
	for i := 0; i < 3; i++ {
		rec := record("person", "person", 0.9)
		id, err := repo.Insert(ctx, rec)
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if id <= last {
			t.Errorf("Expected id greater than %d, got %d", last, id)
		}
		if rec.ID != id {
			t.Errorf("Expected record ID %d to be set, got %d", id, rec.ID)
		}
		if rec.CreatedAt.IsZero() {
			t.Error("Expected CreatedAt to be set")
		}
		last = id
	}
}

func TestLabelRepository_GetAllRoundTrip(t *testing.T) {
	repo := NewLabelRepository(setupTestDB(t))
	ctx := context.Background()

	if _, err := repo.Insert(ctx, record("person", "pedestrian", 0.873)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := repo.Insert(ctx, record("car", "car", 0.61)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	records, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.Class != "person" || first.Type != "pedestrian" || first.Score != 0.873 || first.FrameID != "frame-1" {
		t.Errorf("Unexpected first record: %+v", first)
	}
	if first.Box != (model.Box{X: 10, Y: 20, Width: 30.5, Height: 40}) {
		t.Errorf("Unexpected box: %+v", first.Box)
	}
	if records[1].Class != "car" {
		t.Errorf("Expected insertion order, got %s second", records[1].Class)
	}
}

func TestLabelRepository_EmptyStore(t *testing.T) {
	repo := NewLabelRepository(setupTestDB(t))
	ctx := context.Background()

	records, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", records)
	}

	count, err := repo.Count(ctx)
	if err != nil || count != 0 {
		t.Errorf("Expected count 0, got %d (err %v)", count, err)
	}
}

func TestLabelRepository_GetClassesDistinctAndCaseSensitive(t *testing.T) {
	repo := NewLabelRepository(setupTestDB(t))
	ctx := context.Background()

	for _, class := range []string{"person", "car", "person", "Person", "person "} {
		if _, err := repo.Insert(ctx, record(class, "x", 0.5)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	classes, err := repo.GetClasses(ctx)
	if err != nil {
		t.Fatalf("GetClasses failed: %v", err)
	}
	want := []string{"Person", "car", "person", "person "}
	if !reflect.DeepEqual(classes, want) {
		t.Errorf("Expected %q, got %q", want, classes)
	}
}

func TestLabelRepository_ConcurrentInserts(t *testing.T) {
	repo := NewLabelRepository(setupTestDB(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Insert(ctx, record("dog", "dog", 0.7)); err != nil {
				t.Errorf("Concurrent insert failed: %v", err)
			}
		}()
	}
	wg.Wait()

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 10 {
		t.Errorf("Expected 10 records, got %d", count)
	}
}
