// Package task 提供任务类型校验与执行
package task

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/KodaTao/SessionAdapter/pkg/observability"
)

// 可用任务类型
const (
	TypeTeamFormation   = "team-formation"
	TypeDataAnalysis    = "data-analysis"
	TypeImageGeneration = "image-generation"
	TypeTextGeneration  = "text-generation"
)

// TeamMember 组队任务的成员描述
type TeamMember struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Skill       string `json:"skill"`
	Avatar      string `json:"avatar"`
	Description string `json:"description"`
}

// DefaultTeamMembers 返回可招募的成员列表
// 演示用静态数据，组队结果从这里按上限截取
func DefaultTeamMembers() []TeamMember {
	return []TeamMember{
		{
			Name:        "Magic Image Agent",
			Role:        "图像生成",
			Skill:       "AI图片创作",
			Avatar:      "🖼️",
			Description: "根据文本描述生成高质量图片，支持风格化和多场景渲染",
		},
		{
			Name:        "Data Insight Agent",
			Role:        "数据分析",
			Skill:       "自动化数据洞察",
			Avatar:      "📊",
			Description: "擅长大数据分析、趋势预测和可视化报告",
		},
		{
			Name:        "Smart QA Agent",
			Role:        "智能问答",
			Skill:       "知识检索/FAQ",
			Avatar:      "💡",
			Description: "快速响应用户问题，支持多领域知识库",
		},
		{
			Name:        "Workflow Orchestrator",
			Role:        "流程编排",
			Skill:       "多Agent协作调度",
			Avatar:      "🕹️",
			Description: "负责各智能体之间的任务分配与流程自动化",
		},
	}
}

// Result 任务执行结果
type Result struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Result  map[string]any `json:"result,omitempty"`
}

// Manager 任务管理器
// 维护可用任务类型，负责任务数据校验和执行；
// 配置了存储时为每次执行留痕
type Manager struct {
	available []string
	store     *Store
}

// NewManager 创建任务管理器
func NewManager() *Manager {
	return &Manager{
		available: []string{
			TypeTeamFormation,
			TypeDataAnalysis,
			TypeImageGeneration,
			TypeTextGeneration,
		},
	}
}

// NewManagerWithStore 创建带执行留痕的任务管理器
func NewManagerWithStore(store *Store) *Manager {
	m := NewManager()
	m.store = store
	return m
}

// AvailableTasks 返回可用任务类型列表
func (m *Manager) AvailableTasks() []string {
	out := make([]string, len(m.available))
	copy(out, m.available)
	return out
}

// Validate 校验任务数据是否满足该类型的必填字段
func (m *Manager) Validate(taskType string, taskData map[string]any) bool {
	var required []string
	switch taskType {
	case TypeTeamFormation:
		required = []string{"task", "requiredRoles"}
	case TypeDataAnalysis:
		required = []string{"dataSource", "analysisType"}
	case TypeImageGeneration, TypeTextGeneration:
		required = []string{"prompt"}
	default:
		return false
	}

	for _, field := range required {
		if _, ok := taskData[field]; !ok {
			return false
		}
	}
	return true
}

// Execute 执行任务并返回结果
// 未知类型和内部错误都折叠进 Result，不向上抛出
func (m *Manager) Execute(taskType string, taskData map[string]any) Result {
	var result Result
	switch taskType {
	case TypeTeamFormation:
		result = m.executeTeamFormation(taskData)
	case TypeDataAnalysis:
		result = m.executeDataAnalysis(taskData)
	case TypeImageGeneration:
		result = m.executeImageGeneration(taskData)
	case TypeTextGeneration:
		result = m.executeTextGeneration(taskData)
	default:
		observability.Warn("Unsupported task type", "task_type", taskType)
		result = Result{Success: false, Error: fmt.Sprintf("Unsupported task type: %s", taskType)}
	}

	m.record(taskType, taskData, result)
	return result
}

// record 保存执行记录，失败只记录日志
func (m *Manager) record(taskType string, taskData map[string]any, result Result) {
	if m.store == nil {
		return
	}

	status := "completed"
	if !result.Success {
		status = "failed"
	}

	payload, _ := json.Marshal(taskData)
	resultJSON, _ := json.Marshal(result.Result)

	rec := &Record{
		ID:       uuid.NewString(),
		TaskType: taskType,
		Status:   status,
		Payload:  string(payload),
		Result:   string(resultJSON),
	}
	if err := m.store.Save(rec); err != nil {
		observability.Error("Failed to save task record", "task_type", taskType, "error", err)
	}
}

// executeTeamFormation 执行组队任务
func (m *Manager) executeTeamFormation(taskData map[string]any) Result {
	taskName := stringOr(taskData, "task", "General AI Task")
	requiredRoles := taskData["requiredRoles"]

	maxMembers := 4
	if v, ok := taskData["maxMembers"].(float64); ok && int(v) > 0 {
		maxMembers = int(v)
	}

	members := DefaultTeamMembers()
	if maxMembers < len(members) {
		members = members[:maxMembers]
	}

	return Result{
		Success: true,
		Result: map[string]any{
			"team_id":        uuid.NewString(),
			"task":           taskName,
			"required_roles": requiredRoles,
			"members":        members,
			"status":         "assembled",
			"created_at":     time.Now().Format(time.RFC3339),
		},
	}
}

// executeDataAnalysis 执行数据分析任务
func (m *Manager) executeDataAnalysis(taskData map[string]any) Result {
	return Result{
		Success: true,
		Result: map[string]any{
			"analysis_id":   uuid.NewString(),
			"data_source":   stringOr(taskData, "dataSource", "unknown"),
			"analysis_type": stringOr(taskData, "analysisType", "summary"),
			"insights": []string{
				"Trend analysis shows upward movement",
				"Data quality is high",
			},
			"status":     "completed",
			"created_at": time.Now().Format(time.RFC3339),
		},
	}
}

// executeImageGeneration 执行图片生成任务
func (m *Manager) executeImageGeneration(taskData map[string]any) Result {
	return Result{
		Success: true,
		Result: map[string]any{
			"image_id":   uuid.NewString(),
			"prompt":     stringOr(taskData, "prompt", ""),
			"style":      stringOr(taskData, "style", "realistic"),
			"image_url":  fmt.Sprintf("https://placeholder.example.com/generated/%s.jpg", uuid.NewString()),
			"status":     "generated",
			"created_at": time.Now().Format(time.RFC3339),
		},
	}
}

// executeTextGeneration 执行文本生成任务
func (m *Manager) executeTextGeneration(taskData map[string]any) Result {
	responses := []string{
		"我理解您的问题，让我来帮助您。",
		"这是一个很好的问题，我来为您分析一下。",
		"根据您的描述，我建议考虑以下几个方面。",
		"让我来为您提供一些有用的信息。",
	}
	generated := responses[rand.Intn(len(responses))]

	return Result{
		Success: true,
		Result: map[string]any{
			"text_id":        uuid.NewString(),
			"prompt":         stringOr(taskData, "prompt", ""),
			"generated_text": generated,
			"length":         len([]rune(generated)),
			"status":         "completed",
			"created_at":     time.Now().Format(time.RFC3339),
		},
	}
}

// stringOr 读取字符串字段，缺失时返回默认值
func stringOr(data map[string]any, key, fallback string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
