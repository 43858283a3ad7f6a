package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEncoder_Format(t *testing.T) {
	encoder := NewEncoder()

	tests := []struct {
		name     string
		resp     *AgentResponse
		contains []string
	}{
		{
			name: "success response",
			resp: NewAgentResponse(true, "你好", nil, "r-1"),
			contains: []string{
				`"success":true`,
				`"content":"你好"`,
				`"tool_calls":[]`,
				`"request_id":"r-1"`,
			},
		},
		{
			name: "error response",
			resp: NewErrorResponse("node_id is required", "r-2"),
			contains: []string{
				`"success":false`,
				`"error":"node_id is required"`,
			},
		},
		{
			name: "response with tool call",
			resp: NewAgentResponse(true, "ok", []ToolCall{
				{
					ID:   "call_1",
					Type: "function",
					Function: ToolFunction{
						Name:      "team-formation",
						Arguments: map[string]any{"maxMembers": 4},
					},
				},
			}, "r-3"),
			contains: []string{
				`"name":"team-formation"`,
				`"id":"call_1"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encoder.Format(tt.resp)

			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Format() = %s, missing %s", got, want)
				}
			}

			// 输出必须总是可解码的 JSON 对象
			var decoded map[string]any
			if err := json.Unmarshal([]byte(got), &decoded); err != nil {
				t.Errorf("Format() output is not valid JSON: %v", err)
			}
		})
	}
}

func TestEncoder_FormatNil(t *testing.T) {
	encoder := NewEncoder()

	got := encoder.Format(nil)
	if got != formatFallback {
		t.Errorf("Format(nil) = %s, want fallback payload", got)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("fallback payload is not valid JSON: %v", err)
	}
	if decoded["success"] != false {
		t.Error("fallback payload success != false")
	}
}

func TestEncoder_FormatNilToolCalls(t *testing.T) {
	encoder := NewEncoder()

	resp := &AgentResponse{Success: true, Content: "hi"}
	got := encoder.Format(resp)

	if !strings.Contains(got, `"tool_calls":[]`) {
		t.Errorf("Format() = %s, want empty tool_calls array", got)
	}
}

func TestNewAgentResponse_Timestamp(t *testing.T) {
	resp := NewAgentResponse(true, "x", nil, "r-1")
	if resp.Timestamp == "" {
		t.Error("NewAgentResponse() Timestamp is empty")
	}
	if resp.ToolCalls == nil {
		t.Error("NewAgentResponse() ToolCalls is nil")
	}
}
