// Package protocol 提供消息规范化和响应编码
package protocol

import (
	"encoding/json"

	"github.com/KodaTao/SessionAdapter/pkg/observability"
)

// formatFallback 编码失败时的固定失败载荷
// 编码层绝不向外抛出，保证调用方总能拿到可解码的线格式文本
const formatFallback = `{"success":false,"error":"Failed to format response"}`

// Encoder 响应编码器
type Encoder struct{}

// NewEncoder 创建编码器实例
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Format 将规范响应编码为 JSON 线格式
func (e *Encoder) Format(resp *AgentResponse) string {
	if resp == nil {
		observability.Error("Format called with nil response")
		return formatFallback
	}
	if resp.ToolCalls == nil {
		resp.ToolCalls = []ToolCall{}
	}

	b, err := json.Marshal(resp)
	if err != nil {
		observability.Error("Failed to format response", "error", err)
		return formatFallback
	}
	return string(b)
}
