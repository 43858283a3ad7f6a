// Package session 提供会话与消息的持久化存储
package session

import (
	"errors"
	"testing"
	"time"

	"github.com/KodaTao/SessionAdapter/pkg/storage"
)

// setupTestService 创建基于内存库的会话服务
func setupTestService(t *testing.T) *Service {
	db, err := storage.Open(storage.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	service, err := NewService(db)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	return service
}

func TestService_CreateSession(t *testing.T) {
	service := setupTestService(t)

	sess, err := service.CreateSession(&Session{
		Title:     "测试会话",
		AgentID:   "agent-1",
		CreatorID: "u-1",
	})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if sess.ID == "" {
		t.Error("CreateSession() did not assign an ID")
	}
	if sess.CreatedAt.IsZero() || sess.UpdatedAt.IsZero() {
		t.Error("CreateSession() did not set timestamps")
	}
}

func TestService_CreateSessionRequiresCreator(t *testing.T) {
	service := setupTestService(t)

	_, err := service.CreateSession(&Session{Title: "no creator"})
	if !errors.Is(err, ErrCreatorRequired) {
		t.Errorf("CreateSession() error = %v, want ErrCreatorRequired", err)
	}
}

func TestService_GetUserSessions(t *testing.T) {
	service := setupTestService(t)

	first, err := service.CreateSession(&Session{Title: "first", CreatorID: "u-1"})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := service.CreateSession(&Session{Title: "second", CreatorID: "u-1"}); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := service.CreateSession(&Session{Title: "other user", CreatorID: "u-2"}); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	// 向第一个会话写消息会刷新活跃时间，列表应把它排到最前
	if _, err := service.CreateMessage(&Message{
		SessionID: first.ID,
		Content:   "hello",
		Role:      RoleUser,
		CreatorID: "u-1",
	}, "u-1"); err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}

	sessions, err := service.GetUserSessions("u-1")
	if err != nil {
		t.Fatalf("GetUserSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("GetUserSessions() len = %d, want 2", len(sessions))
	}
	if sessions[0].ID != first.ID {
		t.Errorf("GetUserSessions()[0] = %s, want most recently active session", sessions[0].Title)
	}
	if sessions[0].MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", sessions[0].MessageCount)
	}
}

func TestService_CreateMessage(t *testing.T) {
	service := setupTestService(t)

	sess, err := service.CreateSession(&Session{Title: "chat", CreatorID: "u-1"})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	msg, err := service.CreateMessage(&Message{
		SessionID: sess.ID,
		Content:   "你好",
		Role:      RoleUser,
		CreatorID: "u-1",
	}, "u-1")
	if err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}
	if msg.ID == "" {
		t.Error("CreateMessage() did not assign an ID")
	}
	if msg.Timestamp == "" {
		t.Error("CreateMessage() did not set timestamp")
	}
}

func TestService_CreateMessageValidation(t *testing.T) {
	service := setupTestService(t)

	sess, err := service.CreateSession(&Session{Title: "chat", CreatorID: "u-1"})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	tests := []struct {
		name    string
		msg     *Message
		acting  string
		wantErr error
	}{
		{
			name:    "missing acting user",
			msg:     &Message{SessionID: sess.ID, Content: "x"},
			acting:  "",
			wantErr: ErrCreatorRequired,
		},
		{
			name:    "missing session id",
			msg:     &Message{Content: "x"},
			acting:  "u-1",
			wantErr: ErrSessionRequired,
		},
		{
			name:    "unknown session",
			msg:     &Message{SessionID: "missing", Content: "x"},
			acting:  "u-1",
			wantErr: ErrSessionNotFound,
		},
		{
			name:    "wrong user",
			msg:     &Message{SessionID: sess.ID, Content: "x"},
			acting:  "u-2",
			wantErr: ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateMessage(tt.msg, tt.acting)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_GetSessionMessagesOrdered(t *testing.T) {
	service := setupTestService(t)

	sess, err := service.CreateSession(&Session{Title: "chat", CreatorID: "u-1"})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	// 同一时间戳下应保持写入顺序
	ts := time.Now().Format(time.RFC3339)
	contents := []string{"first", "second", "third"}
	for _, c := range contents {
		if _, err := service.CreateMessage(&Message{
			SessionID: sess.ID,
			Content:   c,
			Role:      RoleUser,
			Timestamp: ts,
			CreatorID: "u-1",
		}, "u-1"); err != nil {
			t.Fatalf("CreateMessage(%s) error = %v", c, err)
		}
	}

	messages, err := service.GetSessionMessages(sess.ID, "u-1")
	if err != nil {
		t.Fatalf("GetSessionMessages() error = %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("GetSessionMessages() len = %d, want 3", len(messages))
	}
	for i, c := range contents {
		if messages[i].Content != c {
			t.Errorf("messages[%d] = %q, want %q", i, messages[i].Content, c)
		}
	}
}

func TestService_GetSessionMessagesAuthorization(t *testing.T) {
	service := setupTestService(t)

	sess, err := service.CreateSession(&Session{Title: "chat", CreatorID: "u-1"})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if _, err := service.GetSessionMessages(sess.ID, "u-2"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("GetSessionMessages() error = %v, want ErrUnauthorized", err)
	}
	if _, err := service.GetSessionMessages("missing", "u-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSessionMessages() error = %v, want ErrSessionNotFound", err)
	}
}

func TestService_LegacySessionWithoutCreatorIsOpen(t *testing.T) {
	service := setupTestService(t)

	// 直接走数据访问层模拟没有记录创建者的历史数据
	sess := &Session{ID: "legacy", Title: "legacy"}
	if err := service.sessions.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := service.CreateMessage(&Message{
		SessionID: "legacy",
		Content:   "hello",
		Role:      RoleUser,
	}, "anyone"); err != nil {
		t.Errorf("CreateMessage() error = %v, want legacy session to be writable", err)
	}
}

func TestService_DeleteSessionCascades(t *testing.T) {
	service := setupTestService(t)

	sess, err := service.CreateSession(&Session{Title: "chat", CreatorID: "u-1"})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := service.CreateMessage(&Message{
		SessionID: sess.ID,
		Content:   "hello",
		Role:      RoleUser,
	}, "u-1"); err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}

	if err := service.DeleteSession(sess.ID, "u-1"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}

	if _, err := service.GetSessionMessages(sess.ID, "u-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSessionMessages() after delete error = %v, want ErrSessionNotFound", err)
	}

	count, err := service.messages.CountBySession(sess.ID)
	if err != nil {
		t.Fatalf("CountBySession() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountBySession() = %d, want 0 after cascade delete", count)
	}
}

func TestService_DeleteSessionAuthorization(t *testing.T) {
	service := setupTestService(t)

	sess, err := service.CreateSession(&Session{Title: "chat", CreatorID: "u-1"})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if err := service.DeleteSession(sess.ID, "u-2"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("DeleteSession() error = %v, want ErrUnauthorized", err)
	}
	if err := service.DeleteSession("missing", "u-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("DeleteSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestService_CleanStale(t *testing.T) {
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
	if _, err := service.CreateSession(&Session{Title: "fresh", CreatorID: "u-1"}); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	count, err := service.CleanStale(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanStale() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CleanStale() = %d, want 1", count)
	}

	sessions, err := service.GetUserSessions("u-1")
	if err != nil {
		t.Fatalf("GetUserSessions() error = %v", err)
	}
	if len(sessions) != 1 || sessions[0].Title != "fresh" {
		t.Errorf("remaining sessions = %v, want only fresh", sessions)
	}
}
