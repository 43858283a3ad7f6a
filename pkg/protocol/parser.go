// Package protocol 提供消息规范化和响应编码
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KodaTao/SessionAdapter/pkg/observability"
)

// 信封包装标记
// 节点框架会把真正的载荷转义后嵌在消息对象的字符串表示里，
// 同时出现这三个标记时按信封包装处理
const (
	envelopeContextMarker = "contextId="
	envelopeMessageMarker = "messageId="
	envelopePartMarker    = "parts=[Part(root=TextPart("

	envelopeTextPrefix = "text='"
)

// DefaultUserID 纯文本消息合成时使用的占位用户
const DefaultUserID = "default_user"

// Parser 消息规范化器
// 将传输层收到的原始消息（纯文本 / 直接 JSON / 信封包装 JSON）
// 规范化为带类型标签的消息。除直接 JSON 解码失败外不返回硬错误，
// 解码失败会降级为 chat 消息以保证系统总能给出可解释的结果
type Parser struct{}

// NewParser 创建规范化器实例
func NewParser() *Parser {
	return &Parser{}
}

// Parse 规范化原始消息
// 按来源变体依次探测：信封包装 → 直接 JSON 对象 → 纯文本合成。
// 直接 JSON 的解码错误向上传递，由调度层决定如何降级
func (p *Parser) Parse(raw string) (result *ParseResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			observability.Error("Parser panicked", "panic", r)
			result = &ParseResult{Success: false, Error: fmt.Sprintf("parse message: %v", r)}
			err = nil
		}
	}()

	data, err := p.decode(raw)
	if err != nil {
		return nil, err
	}

	msgType := TypeUnknown
	if t, ok := data["type"].(string); ok && t != "" {
		msgType = MessageType(t)
	}

	p.normalize(msgType, data)

	return &ParseResult{
		Success: true,
		Type:    msgType,
		Data:    data,
	}, nil
}

// decode 按来源变体探测并解码
func (p *Parser) decode(raw string) (map[string]any, error) {
	// 变体一：信封包装，提取并反转义内层载荷
	if payload, ok := extractEnvelopePayload(raw); ok {
		data, err := decodeObject(unescapePayload(payload))
		if err != nil {
			observability.Error("Failed to decode envelope payload",
				"error", err,
				"payload_len", len(payload),
			)
			// 内层载荷损坏时整体按纯文本降级
			return p.literalChatFields(raw), nil
		}
		observability.Info("Extracted payload from envelope wrapper", "type", data["type"])
		return data, nil
	}

	// 变体二：直接 JSON 对象
	if strings.HasPrefix(strings.TrimSpace(raw), "{") {
		data, err := decodeObject(raw)
		if err != nil {
			return nil, &DecodeError{Message: "JSON decode error", Cause: err}
		}
		return data, nil
	}

	// 变体三：纯文本，合成 chat 消息
	return p.literalChatFields(raw), nil
}

// normalize 按消息类型校验并补齐字段
// 缺失字段只告警不拒绝
func (p *Parser) normalize(msgType MessageType, data map[string]any) {
	switch msgType {
	case TypeChat:
		if _, ok := data["user_id"]; !ok {
			if sessionID, ok := data["session_id"].(string); ok && sessionID != "" {
				data["user_id"] = sessionID
			} else {
				data["user_id"] = "unknown_user"
			}
		}
		if _, ok := data["user_message"]; !ok {
			// 从 messages 序列中取最后一条用户消息
			entries := MessageEntries(data)
			for i := len(entries) - 1; i >= 0; i-- {
				if entries[i].Role == "user" {
					data["user_message"] = entries[i].Content
					break
				}
			}
		}
	case TypeAgentConfigRequest:
		if _, ok := data["node_id"]; !ok {
			observability.Warn("agent_config_request missing node_id")
		}
	case TypeSessionLifecycle:
		if _, ok := data["action"]; !ok {
			observability.Warn("session_lifecycle missing action")
		}
	case TypeTask:
		if _, ok := data["task_type"]; !ok {
			observability.Warn("task message missing task_type")
		}
	}
}

// LiteralChat 将原始文本整体合成为 chat 规范消息
// 用于纯文本输入和各级解码失败后的降级路径
func (p *Parser) LiteralChat(raw string) *ParseResult {
	return &ParseResult{
		Success: true,
		Type:    TypeChat,
		Data:    p.literalChatFields(raw),
	}
}

// literalChatFields 合成 chat 消息字段
func (p *Parser) literalChatFields(raw string) map[string]any {
	return map[string]any{
		"type":         string(TypeChat),
		"user_id":      DefaultUserID,
		"session_id":   "",
		"user_message": raw,
		"messages": []any{
			map[string]any{"role": "user", "content": raw},
		},
		"system_prompt": "",
		"timestamp":     time.Now().Format(time.RFC3339),
		"request_id":    uuid.NewString(),
	}
}

// extractEnvelopePayload 从信封包装中提取被引用的内层载荷
// 三个标记同时命中才认定为信封，载荷位于 text='...' 中
func extractEnvelopePayload(raw string) (string, bool) {
	if !strings.Contains(raw, envelopeContextMarker) ||
		!strings.Contains(raw, envelopeMessageMarker) ||
		!strings.Contains(raw, envelopePartMarker) {
		return "", false
	}

	start := strings.Index(raw, envelopeTextPrefix)
	if start == -1 {
		observability.Warn("Envelope wrapper without text payload")
		return "", false
	}
	start += len(envelopeTextPrefix)

	end := strings.Index(raw[start:], "'")
	if end == -1 {
		observability.Warn("Envelope wrapper with unterminated text payload")
		return "", false
	}

	return raw[start : start+end], true
}

// unescapePayload 反转义内层载荷
// 信封包装时引号和反斜杠会被转义，按同样顺序还原
func unescapePayload(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

// decodeObject 解码 JSON 对象
func decodeObject(s string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return nil, err
	}
	return data, nil
}

// DecodeError 载荷解码错误
type DecodeError struct {
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}
