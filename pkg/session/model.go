// Package session 提供会话与消息的持久化存储
package session

import (
	"time"
)

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session 会话记录
// 记录客户端与某个 Agent 的一段对话，消息挂在会话下
type Session struct {
	ID               string    `gorm:"primaryKey" json:"id"`
	Title            string    `json:"title"`
	AgentID          string    `gorm:"index" json:"agentId"`
	AgentName        string    `json:"agentName"`
	AgentDescription string    `json:"agentDescription"`
	AgentAddress     string    `json:"agentAddress"`
	CreatorID        string    `gorm:"index" json:"creatorId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `gorm:"index" json:"updatedAt"`

	// MessageCount 派生字段，列表查询时填充
	MessageCount int64 `gorm:"-" json:"messageCount"`
}

// TableName 指定表名
func (Session) TableName() string {
	return "sessions"
}

// Message 会话消息记录
// Timestamp 保持客户端使用的 ISO-8601 字符串格式
type Message struct {
	ID        string `gorm:"primaryKey" json:"id"`
	SessionID string `gorm:"index;not null" json:"sessionId"`
	Content   string `gorm:"type:text" json:"content"`
	Role      string `json:"role"` // user / assistant
	Timestamp string `json:"timestamp"`
	CreatorID string `json:"creatorId"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}
