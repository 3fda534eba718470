package testutil

import (
	"encoding/json"
	"strings"
)

// SampleChecklist is a checklist with two open items and one closed item.
const SampleChecklist = `# TODO

- [x] Set up the repository
- [ ] Implement the parser
- [ ] Add tests for the parser
`

// SampleSpec is the body of a small spec file.
const SampleSpec = `# Add push cadence

Push to origin every N commits. Failures are logged and retried at the
next cadence point.
`

// ToolStartEvent returns a tool_execution_start event line.
func ToolStartEvent(tool string) string {
	return mustJSON(map[string]interface{}{
		"type":       "tool_execution_start",
		"toolCallId": "call_" + tool,
		"toolName":   tool,
		"args":       map[string]interface{}{},
	})
}

// AssistantEndEvent returns a message_end event for an assistant message with
// the given stop reason and token usage.
func AssistantEndEvent(stopReason string, input, output int) string {
	return mustJSON(map[string]interface{}{
		"type": "message_end",
		"message": map[string]interface{}{
			"role":       "assistant",
			"stopReason": stopReason,
			"usage": map[string]interface{}{
				"input":  input,
				"output": output,
				"cost":   map[string]interface{}{"total": 0.01},
			},
		},
	})
}

// AssistantErrorEvent returns a message_end event for a failed assistant turn.
func AssistantErrorEvent(message string) string {
	return mustJSON(map[string]interface{}{
		"type": "message_end",
		"message": map[string]interface{}{
			"role":         "assistant",
			"stopReason":   "error",
			"errorMessage": message,
		},
	})
}

// AgentEndEvent returns an agent_end event line.
func AgentEndEvent() string {
	return `{"type":"agent_end","messages":[]}`
}

// EventStream joins event lines into newline-delimited output.
func EventStream(lines ...string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
