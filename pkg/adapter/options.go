// Package adapter 提供消息适配核心框架
package adapter

import (
	"time"

	"github.com/KodaTao/SessionAdapter/pkg/llm"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      llm.Config     `mapstructure:"llm"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Session  SessionConfig  `mapstructure:"session"`
	Handler  HandlerConfig  `mapstructure:"handler"`
	Agent    AgentCard      `mapstructure:"agent"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// Host 监听地址
	Host string `mapstructure:"host"`

	// Port 监听端口
	Port int `mapstructure:"port"`

	// Mode 运行模式：debug, release, test
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Path 数据库文件路径
	Path string `mapstructure:"path"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别：debug, info, warn, error
	Level string `mapstructure:"level"`

	// Format 日志格式：text, json
	Format string `mapstructure:"format"`

	// Output 输出目标：stdout, file
	Output string `mapstructure:"output"`

	// FilePath 日志文件路径（当 Output 为 file 时生效）
	FilePath string `mapstructure:"file_path"`
}

// SessionConfig 会话存储配置
type SessionConfig struct {
	// CleanupSchedule 过期会话清理的 cron 表达式，留空则不清理
	CleanupSchedule string `mapstructure:"cleanup_schedule"`

	// TTL 会话过期时间
	TTL time.Duration `mapstructure:"ttl"`
}

// HandlerConfig 消息处理配置
type HandlerConfig struct {
	// AgentTimeout Agent 调用超时时间
	AgentTimeout time.Duration `mapstructure:"agent_timeout"`

	// MaxConcurrent Agent 并发调用上限
	MaxConcurrent int `mapstructure:"max_concurrent"`

	// HistoryWindow 注入 Agent 上下文的历史消息条数
	HistoryWindow int `mapstructure:"history_window"`
}

// AgentCard Agent 配置卡片
// agent_config_request 消息返回的自描述信息
type AgentCard struct {
	ID           string   `mapstructure:"id" json:"id"`
	Name         string   `mapstructure:"name" json:"name"`
	Description  string   `mapstructure:"description" json:"description"`
	SystemPrompt string   `mapstructure:"system_prompt" json:"system_prompt"`
	Model        string   `mapstructure:"model" json:"model"`
	Address      string   `mapstructure:"address" json:"address"`
	Capabilities []string `mapstructure:"capabilities" json:"capabilities"`
	Status       string   `mapstructure:"status" json:"status"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "debug",
		},
		LLM: llm.Config{
			Provider:    "openai",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4",
			Timeout:     60,
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Database: DatabaseConfig{
			Path: "~/.sessionadapter/data.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Session: SessionConfig{
			CleanupSchedule: "",
			TTL:             7 * 24 * time.Hour,
		},
		Handler: HandlerConfig{
			AgentTimeout:  30 * time.Second,
			MaxConcurrent: 8,
			HistoryWindow: 10,
		},
		Agent: AgentCard{
			Name:         "Session Adapter Agent",
			Description:  "通用会话消息适配 Agent",
			Model:        "gpt-4",
			Capabilities: []string{"chat", "team-formation"},
			Status:       "active",
		},
	}
}

// Option 配置选项函数
type Option func(*Config)

// WithServerPort 设置服务器端口
func WithServerPort(port int) Option {
	return func(c *Config) {
		c.Server.Port = port
	}
}

// WithServerMode 设置运行模式
func WithServerMode(mode string) Option {
	return func(c *Config) {
		c.Server.Mode = mode
	}
}

// WithLLMConfig 设置 LLM 配置
func WithLLMConfig(cfg llm.Config) Option {
	return func(c *Config) {
		c.LLM = cfg
	}
}

// WithLogLevel 设置日志级别
func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.Log.Level = level
	}
}

// WithDatabasePath 设置数据库路径
func WithDatabasePath(path string) Option {
	return func(c *Config) {
		c.Database.Path = path
	}
}

// WithAgentTimeout 设置 Agent 调用超时时间
func WithAgentTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Handler.AgentTimeout = d
	}
}

// WithHistoryWindow 设置历史上下文条数
func WithHistoryWindow(n int) Option {
	return func(c *Config) {
		c.Handler.HistoryWindow = n
	}
}

// WithAgentCard 设置 Agent 卡片信息
func WithAgentCard(card AgentCard) Option {
	return func(c *Config) {
		c.Agent = card
	}
}
