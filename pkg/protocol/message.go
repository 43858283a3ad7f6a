// Package protocol 提供消息规范化和响应编码
package protocol

import (
	"time"
)

// MessageType 规范消息类型
type MessageType string

const (
	TypeChat               MessageType = "chat"
	TypeAgentConfigRequest MessageType = "agent_config_request"
	TypeSessionLifecycle   MessageType = "session_lifecycle"
	TypeTask               MessageType = "task"
	TypeUnknown            MessageType = "unknown"
)

// ParseResult 解析结果信封
// Data 是规范化后的消息字段，Type 总是有值（未识别时为 unknown）
type ParseResult struct {
	Success bool           `json:"success"`
	Type    MessageType    `json:"type"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ChatEntry 对话消息条目
type ChatEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolFunction 工具调用的函数描述
type ToolFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolCall 响应中的工具调用指令
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// AgentResponse 规范响应格式
// 这是返回给远端客户端的线格式契约
type AgentResponse struct {
	Success   bool       `json:"success"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls"`
	Timestamp string     `json:"timestamp"`
	RequestID string     `json:"request_id"`
	Error     string     `json:"error"`
}

// NewAgentResponse 创建标准响应
func NewAgentResponse(success bool, content string, toolCalls []ToolCall, requestID string) *AgentResponse {
	if toolCalls == nil {
		toolCalls = []ToolCall{}
	}
	return &AgentResponse{
		Success:   success,
		Content:   content,
		ToolCalls: toolCalls,
		Timestamp: time.Now().Format(time.RFC3339),
		RequestID: requestID,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(errMsg string, requestID string) *AgentResponse {
	resp := NewAgentResponse(false, "", nil, requestID)
	resp.Error = errMsg
	return resp
}

// StringField 从消息字段中读取字符串值，缺失或类型不符时返回空串
func StringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

// MessageEntries 从消息字段中读取 messages 序列
// 兼容 JSON 解码产生的 []any 形态，跳过无法识别的条目
func MessageEntries(data map[string]any) []ChatEntry {
	raw, ok := data["messages"].([]any)
	if !ok {
		return nil
	}

	entries := make([]ChatEntry, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entry := ChatEntry{}
		if role, ok := m["role"].(string); ok {
			entry.Role = role
		}
		if content, ok := m["content"].(string); ok {
			entry.Content = content
		}
		entries = append(entries, entry)
	}
	return entries
}
