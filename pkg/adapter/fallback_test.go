package adapter

import (
	"strings"
	"testing"
)

func TestResponder_Echo(t *testing.T) {
	responder := NewResponder()

	tests := []struct {
		name       string
		message    string
		historyLen int
		want       string
	}{
		{
			name:       "no history",
			message:    "hello",
			historyLen: 0,
			want:       "Echo: hello",
		},
		{
			name:       "with history",
			message:    "继续",
			historyLen: 3,
			want:       "Echo: 继续 (历史记录: 3 条消息)",
		},
		{
			name:       "empty message",
			message:    "",
			historyLen: 0,
			want:       "Echo: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, toolCalls := responder.Generate(tt.message, tt.historyLen)
			if content != tt.want {
				t.Errorf("Generate() content = %q, want %q", content, tt.want)
			}
			if len(toolCalls) != 0 {
				t.Errorf("Generate() toolCalls = %v, want none", toolCalls)
			}
		})
	}
}

func TestResponder_TeamFormation(t *testing.T) {
	responder := NewResponder()

	tests := []struct {
		name    string
		message string
	}{
		{name: "chinese keyword", message: "帮我组队做个项目"},
		{name: "english keyword lowercase", message: "please recruit a team"},
		{name: "english keyword mixed case", message: "Build a TEAM for me"},
		{name: "keyword inside sentence", message: "我想招聘几个帮手"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, toolCalls := responder.Generate(tt.message, 0)

			if content != teamFormationContent {
				t.Errorf("Generate() content = %q, want %q", content, teamFormationContent)
			}
			if len(toolCalls) != 1 {
				t.Fatalf("Generate() toolCalls len = %d, want 1", len(toolCalls))
			}

			call := toolCalls[0]
			if call.Function.Name != "team-formation" {
				t.Errorf("tool call name = %q, want team-formation", call.Function.Name)
			}
			if !strings.HasPrefix(call.ID, "call_") {
				t.Errorf("tool call id = %q, want call_ prefix", call.ID)
			}

			args := call.Function.Arguments
			if args["status"] != "completed" {
				t.Errorf("status = %v, want completed", args["status"])
			}
			if args["maxMembers"] != 4 {
				t.Errorf("maxMembers = %v, want 4", args["maxMembers"])
			}

			stats, ok := args["teamStats"].(map[string]any)
			if !ok {
				t.Fatal("teamStats missing")
			}
			if stats["totalMembers"] != 4 {
				t.Errorf("totalMembers = %v, want 4", stats["totalMembers"])
			}
		})
	}
}

func TestResponder_TeamFormationCallIDsDiffer(t *testing.T) {
	responder := NewResponder()

	_, first := responder.Generate("组队", 0)
	_, second := responder.Generate("组队", 0)

	if len(first) != 1 || len(second) != 1 {
		t.Fatal("expected one tool call per response")
	}
	if first[0].ID == second[0].ID {
		t.Errorf("tool call ids should differ, both = %q", first[0].ID)
	}
}
