// Package adapter 提供消息适配核心框架
package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/KodaTao/SessionAdapter/pkg/observability"
	"github.com/KodaTao/SessionAdapter/pkg/protocol"
)

// handleSessionLifecycle 处理会话生命周期事件
// 事件只需确认，不改变适配器状态
func (a *Adapter) handleSessionLifecycle(ctx context.Context, data map[string]any) *protocol.AgentResponse {
	action := protocol.StringField(data, "action")
	sessionID := protocol.StringField(data, "session_id")
	requestID := protocol.StringField(data, "request_id")

	observability.InfoContext(ctx, "Session lifecycle event",
		"action", action,
		"session_id", sessionID,
	)

	return protocol.NewAgentResponse(true, fmt.Sprintf("Session %s acknowledged", action), nil, requestID)
}

// handleAgentConfig 处理 Agent 配置请求
// 返回以 node_id 标识的配置卡片
func (a *Adapter) handleAgentConfig(ctx context.Context, data map[string]any) *protocol.AgentResponse {
	nodeID := protocol.StringField(data, "node_id")
	requestID := protocol.StringField(data, "request_id")

	if nodeID == "" {
		return protocol.NewErrorResponse("node_id is required", requestID)
	}

	card := a.card
	card.ID = nodeID
	card.Address = nodeID
	if card.Status == "" {
		card.Status = "active"
	}

	b, err := json.Marshal(card)
	if err != nil {
		observability.ErrorContext(ctx, "Failed to marshal agent config", "error", err)
		return protocol.NewErrorResponse(fmt.Sprintf("marshal agent config: %v", err), requestID)
	}

	observability.InfoContext(ctx, "Agent config served", "node_id", nodeID)
	return protocol.NewAgentResponse(true, string(b), nil, requestID)
}

// handleTask 处理任务请求
func (a *Adapter) handleTask(ctx context.Context, data map[string]any) *protocol.AgentResponse {
	taskType := protocol.StringField(data, "task_type")
	requestID := protocol.StringField(data, "request_id")

	if a.tasks == nil {
		return protocol.NewErrorResponse("task support is not configured", requestID)
	}
	if taskType == "" {
		return protocol.NewErrorResponse("task_type is required", requestID)
	}

	taskData, _ := data["task_data"].(map[string]any)
	if !a.tasks.Validate(taskType, taskData) {
		observability.WarnContext(ctx, "Invalid task data", "task_type", taskType)
		return protocol.NewErrorResponse("Invalid task data", requestID)
	}

	result := a.tasks.Execute(taskType, taskData)
	if !result.Success {
		return protocol.NewErrorResponse(result.Error, requestID)
	}

	b, err := json.Marshal(result.Result)
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("marshal task result: %v", err), requestID)
	}

	observability.InfoContext(ctx, "Task executed", "task_type", taskType)
	return protocol.NewAgentResponse(true, string(b), nil, requestID)
}
