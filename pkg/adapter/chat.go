// Package adapter 提供消息适配核心框架
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KodaTao/SessionAdapter/pkg/observability"
	"github.com/KodaTao/SessionAdapter/pkg/protocol"
	"github.com/KodaTao/SessionAdapter/pkg/session"
)

// handleChat 处理聊天消息
// 流程：入站落库 → 拉取历史 → Agent 调用 → 出站落库；
// 入站落库失败视为处理失败，历史和出站落库失败只记录不阻断
func (a *Adapter) handleChat(ctx context.Context, data map[string]any) *protocol.AgentResponse {
	sessionID := protocol.StringField(data, "session_id")
	userID := protocol.StringField(data, "user_id")
	userMessage := protocol.StringField(data, "user_message")
	requestID := protocol.StringField(data, "request_id")

	// 占位身份不参与归属，折叠成统一的未知用户
	actualUser := "unknown_user"
	if userID != "" && userID != protocol.DefaultUserID {
		actualUser = userID
	}

	ctx = observability.WithSessionID(observability.WithRequestID(ctx, requestID), sessionID)
	observability.InfoContext(ctx, "Handling chat message",
		"user_id", actualUser,
		"message_preview", preview(userMessage, 60),
	)

	if a.store != nil && sessionID != "" {
		if err := a.saveMessage(sessionID, userMessage, session.RoleUser, actualUser); err != nil {
			observability.ErrorContext(ctx, "Failed to save user message", "error", err)
			return protocol.NewErrorResponse(fmt.Sprintf("save user message: %v", err), requestID)
		}
	}

	// 历史是尽力而为的上下文，拿不到就当没有
	var history []session.Message
	if a.store != nil && sessionID != "" {
		h, err := a.store.GetSessionMessages(sessionID, actualUser)
		if err != nil {
			observability.ErrorContext(ctx, "Failed to load session history", "error", err)
		} else {
			history = h
		}
	}

	if a.runner != nil {
		resp, err := a.runAgent(ctx, data, history, sessionID, actualUser, requestID)
		if err == nil {
			return resp
		}
		observability.ErrorContext(ctx, "Agent processing failed, using fallback", "error", err)
	}

	return a.fallbackResponse(ctx, sessionID, userMessage, actualUser, requestID, len(history))
}

// runAgent 调用外部 Agent 并组装应答
func (a *Adapter) runAgent(ctx context.Context, data map[string]any, history []session.Message, sessionID, actualUser, requestID string) (*protocol.AgentResponse, error) {
	prompt := a.buildPrompt(data, history)

	output, err := a.executor.Invoke(ctx, a.runner, prompt)
	if err != nil {
		return nil, err
	}

	content, toolCalls, success := decodeAgentOutput(output)
	a.saveOutbound(ctx, sessionID, content, actualUser)

	return protocol.NewAgentResponse(success, content, toolCalls, requestID), nil
}

// buildPrompt 构造发给 Agent 的输入
// 有历史时注入最近的若干条消息，整体序列化成 JSON；没有历史时原样透传用户消息
func (a *Adapter) buildPrompt(data map[string]any, history []session.Message) string {
	userMessage := protocol.StringField(data, "user_message")
	if len(history) == 0 {
		return userMessage
	}

	recent := history
	if len(recent) > a.history {
		recent = recent[len(recent)-a.history:]
	}

	messages := make([]protocol.ChatEntry, 0, len(recent)+1)
	for _, m := range recent {
		messages = append(messages, protocol.ChatEntry{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, protocol.ChatEntry{Role: session.RoleUser, Content: userMessage})

	enriched := make(map[string]any, len(data)+1)
	for k, v := range data {
		enriched[k] = v
	}
	enriched["messages"] = messages

	b, err := json.Marshal(enriched)
	if err != nil {
		observability.Warn("Failed to marshal enriched message", "error", err)
		return userMessage
	}
	return string(b)
}

// fallbackResponse 生成内置回退应答
func (a *Adapter) fallbackResponse(ctx context.Context, sessionID, userMessage, actualUser, requestID string, historyLen int) *protocol.AgentResponse {
	content, toolCalls := a.responder.Generate(userMessage, historyLen)
	a.saveOutbound(ctx, sessionID, content, actualUser)
	return protocol.NewAgentResponse(true, content, toolCalls, requestID)
}

// saveMessage 保存一条会话消息
func (a *Adapter) saveMessage(sessionID, content, role, actualUser string) error {
	msg := &session.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Content:   content,
		Role:      role,
		Timestamp: time.Now().Format(time.RFC3339),
		CreatorID: actualUser,
	}
	_, err := a.store.CreateMessage(msg, actualUser)
	return err
}

// saveOutbound 保存出站应答，失败只记录
func (a *Adapter) saveOutbound(ctx context.Context, sessionID, content, actualUser string) {
	if a.store == nil || sessionID == "" {
		return
	}
	if err := a.saveMessage(sessionID, content, session.RoleAssistant, actualUser); err != nil {
		observability.ErrorContext(ctx, "Failed to save assistant message", "error", err)
	}
}

// decodeAgentOutput 解析 Agent 的输出
// 输出是带 content 字段的 JSON 对象时按结构化应答处理（success 缺省为 true），
// 否则整段输出就是应答正文
func decodeAgentOutput(output string) (content string, toolCalls []protocol.ToolCall, success bool) {
	var structured struct {
		Success   *bool               `json:"success"`
		Content   *string             `json:"content"`
		ToolCalls []protocol.ToolCall `json:"tool_calls"`
	}
	if err := json.Unmarshal([]byte(output), &structured); err == nil && structured.Content != nil {
		success = true
		if structured.Success != nil {
			success = *structured.Success
		}
		return *structured.Content, structured.ToolCalls, success
	}
	return output, nil, true
}

// preview 截取日志用的消息预览
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
