package agent

import (
	"sort"

	"github.com/zachwill/ralph/internal/stream"
)

// Event types emitted by the agent runtime in JSON mode. Only the ones the
// loop cares about are listed.
const (
	EventAgentStart         = "agent_start"
	EventAgentEnd           = "agent_end"
	EventTurnStart          = "turn_start"
	EventTurnEnd            = "turn_end"
	EventMessageEnd         = "message_end"
	EventToolExecutionStart = "tool_execution_start"
	EventToolExecutionEnd   = "tool_execution_end"
)

// Stop reasons reported on assistant messages.
const (
	StopReasonStop    = "stop"
	StopReasonLength  = "length"
	StopReasonToolUse = "toolUse"
	StopReasonError   = "error"
	StopReasonAborted = "aborted"
)

// ToolExecutionStart is the payload of a tool_execution_start event.
type ToolExecutionStart struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
}

// MessageEnd is the payload of a message_end event.
type MessageEnd struct {
	Message Message `json:"message"`
}

// Message is the subset of a conversation message that RunStats reads.
type Message struct {
	Role         string `json:"role"`
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
	StopReason   string `json:"stopReason,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Usage is the token accounting attached to an assistant message.
type Usage struct {
	Input      int  `json:"input"`
	Output     int  `json:"output"`
	CacheRead  int  `json:"cacheRead"`
	CacheWrite int  `json:"cacheWrite"`
	Cost       Cost `json:"cost"`
}

// Cost is the reported price of a message in dollars.
type Cost struct {
	Total float64 `json:"total"`
}

// RunStats summarizes one agent invocation. A fresh value is used for every
// invocation.
type RunStats struct {
	ToolCalls    map[string]int
	InputTokens  int
	OutputTokens int
	Turns        int
	Cost         float64

	// StopReason and ErrorMessage come from the last assistant message.
	StopReason   string
	ErrorMessage string

	Events int
}

// NewRunStats returns empty stats.
func NewRunStats() *RunStats {
	return &RunStats{ToolCalls: make(map[string]int)}
}

// Observe folds one event into the stats. Events it does not understand are
// counted and otherwise ignored.
func (s *RunStats) Observe(ev stream.Event) {
	s.Events++

	switch ev.Type {
	case EventToolExecutionStart:
		var payload ToolExecutionStart
		if err := ev.Decode(&payload); err != nil || payload.ToolName == "" {
			return
		}
		if s.ToolCalls == nil {
			s.ToolCalls = make(map[string]int)
		}
		s.ToolCalls[payload.ToolName]++

	case EventMessageEnd:
		var payload MessageEnd
		if err := ev.Decode(&payload); err != nil || payload.Message.Role != "assistant" {
			return
		}
		s.Turns++
		if u := payload.Message.Usage; u != nil {
			s.InputTokens += u.Input
			s.OutputTokens += u.Output
			s.Cost += u.Cost.Total
		}
		if payload.Message.StopReason != "" {
			s.StopReason = payload.Message.StopReason
			s.ErrorMessage = payload.Message.ErrorMessage
		}
	}
}

// TotalToolCalls returns the number of tool executions across all tools.
func (s *RunStats) TotalToolCalls() int {
	total := 0
	for _, n := range s.ToolCalls {
		total += n
	}
	return total
}

// Failed reports whether the last assistant message ended in failure.
func (s *RunStats) Failed() bool {
	return s.StopReason == StopReasonError || s.StopReason == StopReasonAborted
}

// StoppedNormally reports whether the last assistant message ended without
// failure.
func (s *RunStats) StoppedNormally() bool {
	return s.StopReason != "" && !s.Failed()
}

// ToolNames returns the names of the tools used, sorted.
func (s *RunStats) ToolNames() []string {
	names := make([]string, 0, len(s.ToolCalls))
	for name := range s.ToolCalls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
