// Package adapter 提供消息适配核心框架
package adapter

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/KodaTao/SessionAdapter/pkg/llm"
	"github.com/KodaTao/SessionAdapter/pkg/llm/openai"
	"github.com/KodaTao/SessionAdapter/pkg/observability"
	"github.com/KodaTao/SessionAdapter/pkg/session"
	"github.com/KodaTao/SessionAdapter/pkg/storage"
	"github.com/KodaTao/SessionAdapter/pkg/task"
)

// App 应用实例
// 负责组装日志、存储、会话服务、LLM Provider 和消息适配器
type App struct {
	config    *Config
	db        *gorm.DB
	service   *session.Service
	cleaner   *session.Cleaner
	tasks     *task.Manager
	taskStore *task.Store
	provider  llm.Provider
	adapter   *Adapter
}

// NewApp 创建 App 实例
func NewApp(opts ...Option) *App {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &App{config: config}
}

// NewAppWithConfig 用现成的配置创建 App 实例
func NewAppWithConfig(config *Config) *App {
	if config == nil {
		config = DefaultConfig()
	}
	return &App{config: config}
}

// Initialize 初始化应用
// 顺序：日志 → 数据库 → 会话服务 → 清理任务 → LLM Provider → 适配器
func (a *App) Initialize() error {
	if err := observability.InitLogger(observability.LogConfig{
		Level:    a.config.Log.Level,
		Format:   a.config.Log.Format,
		Output:   a.config.Log.Output,
		FilePath: a.config.Log.FilePath,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	observability.Info("Initializing SessionAdapter",
		"server_port", a.config.Server.Port,
		"database_path", a.config.Database.Path,
	)

	db, err := storage.Open(storage.Config{Path: a.config.Database.Path})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db

	service, err := session.NewService(db)
	if err != nil {
		return fmt.Errorf("failed to initialize session service: %w", err)
	}
	a.service = service

	if a.config.Session.CleanupSchedule != "" {
		cleaner := session.NewCleaner(service, a.config.Session.CleanupSchedule, a.config.Session.TTL)
		if err := cleaner.Start(); err != nil {
			return fmt.Errorf("failed to start session cleaner: %w", err)
		}
		a.cleaner = cleaner
		observability.Info("Session cleaner started",
			"schedule", a.config.Session.CleanupSchedule,
			"ttl", a.config.Session.TTL,
		)
	}

	// LLM 是可选的：没有配置 API Key 时全部对话走内置回退应答
	var runner Runner
	apiKey := llm.ResolveAPIKey(a.config.LLM.APIKey)
	if apiKey != "" {
		switch a.config.LLM.Provider {
		case "openai", "azure", "custom":
			a.provider = openai.NewProviderFromLLMConfig(llm.Config{
				Provider:    a.config.LLM.Provider,
				APIKey:      apiKey,
				BaseURL:     a.config.LLM.BaseURL,
				Model:       a.config.LLM.Model,
				Timeout:     a.config.LLM.Timeout,
				MaxTokens:   a.config.LLM.MaxTokens,
				Temperature: a.config.LLM.Temperature,
			})
		default:
			return fmt.Errorf("unsupported LLM provider: %s", a.config.LLM.Provider)
		}

		runner = &providerRunner{
			provider:     a.provider,
			systemPrompt: a.config.Agent.SystemPrompt,
		}

		observability.Info("LLM Provider initialized",
			"provider", a.provider.Name(),
			"model", a.config.LLM.Model,
			"api_key", llm.MaskAPIKey(apiKey),
		)
	} else {
		observability.Info("No LLM API key configured, using builtin responder")
	}

	taskStore, err := task.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to initialize task store: %w", err)
	}
	a.taskStore = taskStore
	a.tasks = task.NewManagerWithStore(taskStore)

	a.adapter = New(a.config, runner, service, a.tasks)

	observability.Info("SessionAdapter initialized")
	return nil
}

// GetAdapter 获取消息适配器
func (a *App) GetAdapter() *Adapter {
	return a.adapter
}

// GetSessionService 获取会话服务
func (a *App) GetSessionService() *session.Service {
	return a.service
}

// GetTaskManager 获取任务管理器
func (a *App) GetTaskManager() *task.Manager {
	return a.tasks
}

// GetTaskStore 获取任务记录存储
func (a *App) GetTaskStore() *task.Store {
	return a.taskStore
}

// GetConfig 获取配置
func (a *App) GetConfig() *Config {
	return a.config
}

// GetProvider 获取 LLM Provider
func (a *App) GetProvider() llm.Provider {
	return a.provider
}

// Shutdown 关闭应用
func (a *App) Shutdown() error {
	observability.Info("Shutting down SessionAdapter")

	if a.cleaner != nil {
		a.cleaner.Stop()
	}

	if a.db != nil {
		if err := storage.Close(a.db); err != nil {
			observability.Error("Failed to close database", "error", err)
			return err
		}
	}

	observability.Info("SessionAdapter shutdown complete")
	return nil
}

// providerRunner 将 LLM Provider 适配为 Runner
type providerRunner struct {
	provider     llm.Provider
	systemPrompt string
}

// Run 实现 Runner 接口
func (r *providerRunner) Run(ctx context.Context, prompt string) (string, error) {
	messages := make([]llm.Message, 0, 2)
	if r.systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: r.systemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})
	return r.provider.Chat(ctx, messages)
}
