package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zachwill/ralph/internal/stream"
	"github.com/zachwill/ralph/internal/testutil"
)

func observeAll(output string) *RunStats {
	stats := NewRunStats()
	p := stream.NewParser()
	for _, ev := range p.Feed([]byte(output)) {
		stats.Observe(ev)
	}
	for _, ev := range p.Flush() {
		stats.Observe(ev)
	}
	return stats
}

func TestRunStatsObserve(t *testing.T) {
	stats := observeAll(testutil.EventStream(
		`{"type":"agent_start"}`,
		testutil.ToolStartEvent("read"),
		testutil.ToolStartEvent("bash"),
		testutil.ToolStartEvent("read"),
		testutil.AssistantEndEvent(StopReasonToolUse, 100, 20),
		`{"type":"message_end","message":{"role":"user"}}`,
		`{"type":"message_end","message":{"role":"toolResult","usage":{"input":999}}}`,
		testutil.AssistantEndEvent(StopReasonStop, 50, 5),
		testutil.AgentEndEvent(),
	))

	assert.Equal(t, map[string]int{"read": 2, "bash": 1}, stats.ToolCalls)
	assert.Equal(t, 3, stats.TotalToolCalls())
	assert.Equal(t, []string{"bash", "read"}, stats.ToolNames())
	assert.Equal(t, 150, stats.InputTokens)
	assert.Equal(t, 25, stats.OutputTokens)
	assert.Equal(t, 2, stats.Turns)
	assert.InDelta(t, 0.02, stats.Cost, 1e-9)
	assert.Equal(t, StopReasonStop, stats.StopReason)
	assert.True(t, stats.StoppedNormally())
	assert.False(t, stats.Failed())
	assert.Equal(t, 9, stats.Events)
}

func TestRunStatsFailure(t *testing.T) {
	stats := observeAll(testutil.EventStream(
		testutil.AssistantEndEvent(StopReasonToolUse, 1, 1),
		testutil.AssistantErrorEvent("overloaded"),
	))

	assert.True(t, stats.Failed())
	assert.Equal(t, StopReasonError, stats.StopReason)
	assert.Equal(t, "overloaded", stats.ErrorMessage)
}

func TestRunStatsIgnoresOddEvents(t *testing.T) {
	stats := observeAll(testutil.EventStream(
		`{"type":"tool_execution_start"}`,
		`{"type":"tool_execution_start","toolName":42}`,
		`{"type":"message_end","message":"nope"}`,
		`[1,2]`,
	))

	assert.Zero(t, stats.TotalToolCalls())
	assert.Zero(t, stats.Turns)
	assert.Empty(t, stats.StopReason)
	assert.False(t, stats.StoppedNormally())
	assert.Equal(t, 4, stats.Events)
}

func TestRunStatsZeroValue(t *testing.T) {
	var stats RunStats
	p := stream.NewParser()
	for _, ev := range p.Feed([]byte(testutil.ToolStartEvent("edit") + "\n")) {
		stats.Observe(ev)
	}
	assert.Equal(t, 1, stats.ToolCalls["edit"])
}
