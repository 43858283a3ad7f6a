// Package adapter 提供消息适配核心框架
package adapter

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/KodaTao/SessionAdapter/pkg/observability"
	"github.com/KodaTao/SessionAdapter/pkg/protocol"
	"github.com/KodaTao/SessionAdapter/pkg/task"
)

// teamKeywords 触发组队工具调用的关键词
var teamKeywords = []string{"组队", "小队", "recruit", "team", "招聘", "组建", "协作"}

// teamFormationContent 组队应答的正文
const teamFormationContent = "正在为您组建AI项目开发小队..."

// Responder 内置回退应答生成器
// Agent 缺席或调用失败时兜底，保证对话总有回复
type Responder struct{}

// NewResponder 创建回退应答生成器
func NewResponder() *Responder {
	return &Responder{}
}

// Generate 根据用户消息和历史条数生成回退应答
// 内部异常不外溢，降级为致歉文案
func (r *Responder) Generate(userMessage string, historyLen int) (content string, toolCalls []protocol.ToolCall) {
	defer func() {
		if rec := recover(); rec != nil {
			observability.Error("Fallback generation failed", "panic", rec)
			content = fmt.Sprintf("抱歉，我暂时无法处理您的请求。Error: %v", rec)
			toolCalls = nil
		}
	}()

	if triggersTeamFormation(userMessage) {
		return teamFormationContent, []protocol.ToolCall{newTeamFormationCall()}
	}

	contextInfo := ""
	if historyLen > 0 {
		contextInfo = fmt.Sprintf(" (历史记录: %d 条消息)", historyLen)
	}
	return fmt.Sprintf("Echo: %s%s", userMessage, contextInfo), nil
}

// triggersTeamFormation 判断消息是否命中组队关键词
func triggersTeamFormation(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range teamKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// newTeamFormationCall 构造组队工具调用
// 成员和技能是演示用静态数据
func newTeamFormationCall() protocol.ToolCall {
	members := task.DefaultTeamMembers()
	return protocol.ToolCall{
		ID:   "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		Type: "function",
		Function: protocol.ToolFunction{
			Name: "team-formation",
			Arguments: map[string]any{
				"task":          "AI项目开发小队",
				"requiredRoles": []string{"工程师", "数据科学家", "前端开发", "项目经理"},
				"maxMembers":    4,
				"status":        "completed",
				"progress":      1.0,
				"currentStep":   "小队组建完成！",
				"members":       members,
				"teamStats": map[string]any{
					"totalMembers": len(members),
					"skills":       []string{"AI图片创作", "数据分析", "智能问答", "流程编排"},
				},
			},
		},
	}
}
