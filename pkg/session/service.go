// Package session 提供会话与消息的持久化存储
package session

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/KodaTao/SessionAdapter/pkg/observability"
)

// Service 会话服务
// 在数据访问层之上做归属校验：消息的写入和读取都要求
// 会话存在且属于操作用户，避免跨用户串读
type Service struct {
	sessions *SessionRepository
	messages *MessageRepository
}

// NewService 创建会话服务并迁移表结构
func NewService(db *gorm.DB) (*Service, error) {
	if err := db.AutoMigrate(&Session{}, &Message{}); err != nil {
		return nil, err
	}
	return &Service{
		sessions: NewSessionRepository(db),
		messages: NewMessageRepository(db),
	}, nil
}

// CreateSession 创建新会话
func (s *Service) CreateSession(sess *Session) (*Session, error) {
	if sess.CreatorID == "" {
		return nil, ErrCreatorRequired
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = sess.CreatedAt
	}

	if err := s.sessions.Create(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetUserSessions 获取用户的所有会话，附带消息数量
func (s *Service) GetUserSessions(creatorID string) ([]Session, error) {
	if creatorID == "" {
		return nil, ErrCreatorRequired
	}

	sessions, err := s.sessions.ListByCreator(creatorID)
	if err != nil {
		return nil, err
	}

	for i := range sessions {
		count, err := s.messages.CountBySession(sessions[i].ID)
		if err != nil {
			observability.Warn("Failed to count session messages",
				"session_id", sessions[i].ID, "error", err)
			continue
		}
		sessions[i].MessageCount = count
	}
	return sessions, nil
}

// DeleteSession 删除会话，同时删除关联的消息
func (s *Service) DeleteSession(sessionID, creatorID string) error {
	if creatorID == "" {
		return ErrCreatorRequired
	}
	if _, err := s.authorize(sessionID, creatorID); err != nil {
		return err
	}

	// 先删消息再删会话
	if err := s.messages.DeleteBySession(sessionID); err != nil {
		return err
	}
	return s.sessions.DeleteByID(sessionID)
}

// GetSessionMessages 按时间顺序获取会话内的消息，需验证归属
func (s *Service) GetSessionMessages(sessionID, userID string) ([]Message, error) {
	if userID == "" {
		return nil, ErrCreatorRequired
	}
	if _, err := s.authorize(sessionID, userID); err != nil {
		return nil, err
	}
	return s.messages.ListBySession(sessionID)
}

// CreateMessage 创建消息，需验证会话归属
// 成功后刷新会话的活跃时间
func (s *Service) CreateMessage(msg *Message, actingUserID string) (*Message, error) {
	if actingUserID == "" {
		return nil, ErrCreatorRequired
	}
	if msg.SessionID == "" {
		return nil, ErrSessionRequired
	}
	if _, err := s.authorize(msg.SessionID, actingUserID); err != nil {
		return nil, err
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().Format(time.RFC3339)
	}

	if err := s.messages.Create(msg); err != nil {
		return nil, err
	}

	if err := s.sessions.Touch(msg.SessionID); err != nil {
		observability.Warn("Failed to touch session", "session_id", msg.SessionID, "error", err)
	}
	return msg, nil
}

// CleanStale 清理活跃时间超过 ttl 的会话及其消息，返回清理数量
func (s *Service) CleanStale(ttl time.Duration) (int, error) {
	stale, err := s.sessions.ListUpdatedBefore(time.Now().Add(-ttl))
	if err != nil {
		return 0, err
	}

	count := 0
	for _, sess := range stale {
		if err := s.messages.DeleteBySession(sess.ID); err != nil {
			observability.Error("Failed to delete stale session messages",
				"session_id", sess.ID, "error", err)
			continue
		}
		if err := s.sessions.DeleteByID(sess.ID); err != nil {
			observability.Error("Failed to delete stale session",
				"session_id", sess.ID, "error", err)
			continue
		}
		count++
	}
	return count, nil
}

// authorize 校验会话存在且属于操作用户
// 历史数据可能没有记录创建者，此时放行
func (s *Service) authorize(sessionID, userID string) (*Session, error) {
	sess, err := s.sessions.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.CreatorID != "" && sess.CreatorID != userID {
		return nil, ErrUnauthorized
	}
	return sess, nil
}
