// Package session 提供会话与消息的持久化存储
package session

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// SessionRepository Session 数据访问层
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建 Repository
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create 创建会话
func (r *SessionRepository) Create(s *Session) error {
	return r.db.Create(s).Error
}

// GetByID 根据 ID 获取会话
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	var s Session
	err := r.db.First(&s, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByCreator 列出用户的所有会话
func (r *SessionRepository) ListByCreator(creatorID string) ([]Session, error) {
	var sessions []Session
	err := r.db.Where("creator_id = ?", creatorID).
		Order("updated_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// Touch 更新会话的活跃时间
func (r *SessionRepository) Touch(id string) error {
	return r.db.Model(&Session{}).Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

// DeleteByID 根据 ID 删除会话
func (r *SessionRepository) DeleteByID(id string) error {
	result := r.db.Delete(&Session{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListUpdatedBefore 列出活跃时间早于给定时刻的会话
func (r *SessionRepository) ListUpdatedBefore(t time.Time) ([]Session, error) {
	var sessions []Session
	err := r.db.Where("updated_at < ?", t).Find(&sessions).Error
	return sessions, err
}

// MessageRepository Message 数据访问层
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建 Repository
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create 创建消息
func (r *MessageRepository) Create(m *Message) error {
	return r.db.Create(m).Error
}

// ListBySession 按时间顺序列出会话内的消息
// rowid 兜底保证同一时间戳下保持写入顺序
func (r *MessageRepository) ListBySession(sessionID string) ([]Message, error) {
	var messages []Message
	err := r.db.Where("session_id = ?", sessionID).
		Order("timestamp ASC, rowid ASC").
		Find(&messages).Error
	return messages, err
}

// CountBySession 统计会话内的消息数量
func (r *MessageRepository) CountBySession(sessionID string) (int64, error) {
	var count int64
	err := r.db.Model(&Message{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}

// DeleteBySession 删除会话内的全部消息
func (r *MessageRepository) DeleteBySession(sessionID string) error {
	return r.db.Delete(&Message{}, "session_id = ?", sessionID).Error
}

// 错误定义
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnauthorized    = errors.New("unauthorized access to session")
	ErrCreatorRequired = errors.New("creator_id is required")
	ErrSessionRequired = errors.New("session_id is required")
)
