// Package adapter 提供消息适配核心框架
package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/KodaTao/SessionAdapter/pkg/observability"
	"github.com/KodaTao/SessionAdapter/pkg/protocol"
	"github.com/KodaTao/SessionAdapter/pkg/session"
	"github.com/KodaTao/SessionAdapter/pkg/task"
)

// Runner 外部 Agent 的可调用抽象
// 实现方只需把 prompt 变成应答文本，超时和并发由执行器负责
type Runner interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// RunnerFunc 函数形式的 Runner
type RunnerFunc func(ctx context.Context, prompt string) (string, error)

// Run 实现 Runner 接口
func (f RunnerFunc) Run(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Store 会话持久化协作方
type Store interface {
	// CreateMessage 保存消息，actingUserID 用于归属校验
	CreateMessage(msg *session.Message, actingUserID string) (*session.Message, error)

	// GetSessionMessages 拉取会话的全部历史消息
	GetSessionMessages(sessionID, userID string) ([]session.Message, error)
}

// Adapter 消息适配器
// 接收后端透传的原始消息，归一化后路由到对应处理器，返回线格式应答。
// 全部协作方在构造时注入，实例创建后不再变更。
type Adapter struct {
	runner    Runner
	store     Store
	tasks     *task.Manager
	card      AgentCard
	parser    *protocol.Parser
	encoder   *protocol.Encoder
	executor  *Executor
	responder *Responder
	history   int
}

// New 创建消息适配器
// runner 为 nil 时全部对话走内置回退应答；store 为 nil 时不做会话持久化
func New(cfg *Config, runner Runner, store Store, tasks *task.Manager) *Adapter {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	history := cfg.Handler.HistoryWindow
	if history <= 0 {
		history = 10
	}

	return &Adapter{
		runner:    runner,
		store:     store,
		tasks:     tasks,
		card:      cfg.Agent,
		parser:    protocol.NewParser(),
		encoder:   protocol.NewEncoder(),
		executor:  NewExecutor(cfg.Handler.AgentTimeout, cfg.Handler.MaxConcurrent),
		responder: NewResponder(),
		history:   history,
	}
}

// HandleMessage 处理一条原始消息，返回序列化后的应答
// 任何内部失败都折叠为一条 success=false 的应答，不向调用方抛出
func (a *Adapter) HandleMessage(ctx context.Context, raw string) string {
	result, err := a.parser.Parse(raw)
	if err != nil {
		var decodeErr *protocol.DecodeError
		if errors.As(err, &decodeErr) {
			// JSON 形态但解不开：按字面聊天文本降级处理
			observability.Error("JSON decode error", "error", err)
			result = a.parser.LiteralChat(raw)
		} else {
			return a.encoder.Format(protocol.NewErrorResponse(err.Error(), ""))
		}
	}
	if !result.Success {
		return a.encoder.Format(protocol.NewErrorResponse(result.Error, ""))
	}

	resp := a.dispatch(ctx, result)
	return a.encoder.Format(resp)
}

// dispatch 按消息类型路由到处理器
func (a *Adapter) dispatch(ctx context.Context, result *protocol.ParseResult) (resp *protocol.AgentResponse) {
	requestID := protocol.StringField(result.Data, "request_id")

	defer func() {
		if r := recover(); r != nil {
			observability.Error("Message handler panicked",
				"message_type", string(result.Type),
				"panic", r,
			)
			resp = protocol.NewErrorResponse(fmt.Sprintf("internal error: %v", r), requestID)
		}
	}()

	switch result.Type {
	case protocol.TypeChat:
		return a.handleChat(ctx, result.Data)
	case protocol.TypeSessionLifecycle:
		return a.handleSessionLifecycle(ctx, result.Data)
	case protocol.TypeAgentConfigRequest:
		return a.handleAgentConfig(ctx, result.Data)
	case protocol.TypeTask:
		return a.handleTask(ctx, result.Data)
	default:
		observability.Warn("Unsupported message type", "message_type", string(result.Type))
		return protocol.NewErrorResponse(fmt.Sprintf("Unsupported message type: %s", result.Type), requestID)
	}
}
