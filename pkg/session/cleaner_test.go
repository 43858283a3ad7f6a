package session

import (
	"errors"
	"testing"
	"time"
)

func TestCleaner_RemovesStaleSessions(t *testing.T) {
	service := setupTestService(t)

	stale := &Session{
		ID:        "stale",
		Title:     "old",
		CreatorID: "u-1",
		CreatedAt: time.Now().Add(-48 * time.Hour),
		UpdatedAt: time.Now().Add(-48 * time.Hour),
	}
	if err := service.sessions.Create(stale); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	cleaner := NewCleaner(service, "@every 100ms", 24*time.Hour)
	if err := cleaner.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer cleaner.Stop()

	// 等待至少一轮清理
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := service.sessions.GetByID("stale"); errors.Is(err, ErrSessionNotFound) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("stale session was not cleaned within deadline")
}

func TestCleaner_RejectsBadSchedule(t *testing.T) {
	service := setupTestService(t)

	cleaner := NewCleaner(service, "not a schedule", time.Hour)
	if err := cleaner.Start(); err == nil {
		t.Error("Start() error = nil, want schedule parse error")
	}
}
