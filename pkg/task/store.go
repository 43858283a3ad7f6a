// Package task 提供任务类型校验与执行
package task

import (
	"time"

	"gorm.io/gorm"
)

// Record 任务执行记录
type Record struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	TaskType  string    `gorm:"index" json:"taskType"`
	Status    string    `json:"status"` // completed / failed
	Payload   string    `gorm:"type:text" json:"payload"`
	Result    string    `gorm:"type:text" json:"result"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// TableName 指定表名
func (Record) TableName() string {
	return "tasks"
}

// Store 任务记录存储
type Store struct {
	db *gorm.DB
}

// NewStore 创建任务记录存储并迁移表结构
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Save 保存执行记录
func (s *Store) Save(rec *Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return s.db.Create(rec).Error
}

// ListRecent 按时间倒序列出最近的执行记录
func (s *Store) ListRecent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []Record
	err := s.db.Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}
