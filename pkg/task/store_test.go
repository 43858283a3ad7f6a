package task

import (
	"strings"
	"testing"

	"github.com/KodaTao/SessionAdapter/pkg/storage"
)

// setupTestStore 创建基于内存库的任务记录存储
func setupTestStore(t *testing.T) *Store {
	db, err := storage.Open(storage.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestManager_ExecuteRecordsHistory(t *testing.T) {
	store := setupTestStore(t)
	m := NewManagerWithStore(store)

	result := m.Execute(TypeImageGeneration, map[string]any{"prompt": "a cat"})
	if !result.Success {
		t.Fatalf("Execute() failed: %s", result.Error)
	}

	records, err := store.ListRecent(10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("ListRecent() len = %d, want 1", len(records))
	}

	rec := records[0]
	if rec.TaskType != TypeImageGeneration {
		t.Errorf("TaskType = %q, want %q", rec.TaskType, TypeImageGeneration)
	}
	if rec.Status != "completed" {
		t.Errorf("Status = %q, want completed", rec.Status)
	}
	if !strings.Contains(rec.Payload, "a cat") {
		t.Errorf("Payload = %q, want prompt preserved", rec.Payload)
	}
	if !strings.Contains(rec.Result, "image_url") {
		t.Errorf("Result = %q, want execution result", rec.Result)
	}
}

func TestManager_ExecuteRecordsFailure(t *testing.T) {
	store := setupTestStore(t)
	m := NewManagerWithStore(store)

	result := m.Execute("mystery", nil)
	if result.Success {
		t.Fatal("Execute() Success = true, want false")
	}

	records, err := store.ListRecent(10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("ListRecent() len = %d, want 1", len(records))
	}
	if records[0].Status != "failed" {
		t.Errorf("Status = %q, want failed", records[0].Status)
	}
}

func TestStore_ListRecentOrder(t *testing.T) {
	store := setupTestStore(t)
	m := NewManagerWithStore(store)

	m.Execute(TypeImageGeneration, map[string]any{"prompt": "first"})
	m.Execute(TypeTextGeneration, map[string]any{"prompt": "second"})

	records, err := store.ListRecent(1)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("ListRecent(1) len = %d, want 1", len(records))
	}
}
