// Package session 提供会话与消息的持久化存储
package session

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/KodaTao/SessionAdapter/pkg/observability"
)

// Cleaner 过期会话清理器
// 按固定周期扫描存储，删除长期不活跃的会话及其消息
type Cleaner struct {
	service  *Service
	cron     *cron.Cron
	schedule string
	ttl      time.Duration
}

// NewCleaner 创建清理器
// schedule 为标准 cron 表达式（如 "@hourly"），ttl 为会话保留时长
func NewCleaner(service *Service, schedule string, ttl time.Duration) *Cleaner {
	return &Cleaner{
		service:  service,
		cron:     cron.New(),
		schedule: schedule,
		ttl:      ttl,
	}
}

// Start 启动周期清理
func (c *Cleaner) Start() error {
	_, err := c.cron.AddFunc(c.schedule, func() {
		count, err := c.service.CleanStale(c.ttl)
		if err != nil {
			observability.Error("Session cleanup failed", "error", err)
			return
		}
		if count > 0 {
			observability.Info("Cleaned stale sessions", "count", count, "ttl", c.ttl.String())
		}
	})
	if err != nil {
		return err
	}

	c.cron.Start()
	observability.Info("Session cleaner started", "schedule", c.schedule, "ttl", c.ttl.String())
	return nil
}

// Stop 停止周期清理，等待进行中的清理完成
func (c *Cleaner) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}
