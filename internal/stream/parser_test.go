package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raws(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = string(ev.Raw)
	}
	return out
}

func TestParserRecordSplitAcrossChunks(t *testing.T) {
	p := NewParser()

	first := p.Feed([]byte("{\"a\":1}\n{\"b\":"))
	second := p.Feed([]byte("2}\n"))

	assert.Equal(t, []string{`{"a":1}`}, raws(first))
	assert.Equal(t, []string{`{"b":2}`}, raws(second))
	assert.Equal(t, 0, p.Buffered())
	assert.Equal(t, int64(len("{\"a\":1}\n{\"b\":2}\n")), p.Consumed())
}

func TestParserManyRecordsInOneChunk(t *testing.T) {
	p := NewParser()

	events := p.Feed([]byte(`{"type":"agent_start"}` + "\n" +
		`{"type":"turn_start"}` + "\n" +
		`{"type":"tool_execution_start","toolName":"bash"}` + "\n"))

	require.Len(t, events, 3)
	assert.Equal(t, "agent_start", events[0].Type)
	assert.Equal(t, "turn_start", events[1].Type)
	assert.Equal(t, "tool_execution_start", events[2].Type)
}

func TestParserChunkWithoutRecords(t *testing.T) {
	p := NewParser()

	assert.Empty(t, p.Feed(nil))
	assert.Empty(t, p.Feed([]byte(`{"type":`)))
	assert.Empty(t, p.Feed([]byte(`"turn_end"`)))
	assert.Equal(t, len(`{"type":"turn_end"`), p.Buffered())
	assert.Equal(t, int64(0), p.Consumed())

	events := p.Feed([]byte("}\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "turn_end", events[0].Type)
}

func TestParserEveryChunkBoundary(t *testing.T) {
	input := `{"type":"message_end","message":{"role":"assistant"}}` + "\n" +
		`{"type":"tool_execution_start","toolName":"read"}` + "\n" +
		`[1,2,3]` + "\n"

	for split := 0; split <= len(input); split++ {
		p := NewParser()
		var events []Event
		events = append(events, p.Feed([]byte(input[:split]))...)
		events = append(events, p.Feed([]byte(input[split:]))...)
		events = append(events, p.Flush()...)

		require.Len(t, events, 3, "split at %d", split)
		assert.Equal(t, "message_end", events[0].Type)
		assert.Equal(t, "tool_execution_start", events[1].Type)
		assert.Equal(t, "", events[2].Type)
		assert.Equal(t, "[1,2,3]", string(events[2].Raw))
	}
}

func TestParserSkipsBlankAndMalformedLines(t *testing.T) {
	p := NewParser()

	events := p.Feed([]byte("\n   \nnot json\n{\"type\":\"agent_end\"}\r\n"))

	require.Len(t, events, 1)
	assert.Equal(t, "agent_end", events[0].Type)
	assert.Equal(t, 1, p.Skipped())
}

func TestParserFlushTrailingRecord(t *testing.T) {
	p := NewParser()

	assert.Empty(t, p.Feed([]byte(`{"type":"agent_end"}`)))
	events := p.Flush()
	require.Len(t, events, 1)
	assert.Equal(t, "agent_end", events[0].Type)
	assert.Empty(t, p.Flush())
}

func TestParserEventsSurviveLaterFeeds(t *testing.T) {
	p := NewParser()

	events := p.Feed([]byte("{\"type\":\"a\"}\n{\"ty"))
	p.Feed([]byte("pe\":\"b\"}\n"))

	assert.Equal(t, `{"type":"a"}`, string(events[0].Raw))
}

func TestEventDecode(t *testing.T) {
	p := NewParser()
	events := p.Feed([]byte(`{"type":"tool_execution_start","toolName":"edit"}` + "\n"))
	require.Len(t, events, 1)

	var payload struct {
		ToolName string `json:"toolName"`
	}
	require.NoError(t, events[0].Decode(&payload))
	assert.Equal(t, "edit", payload.ToolName)
}

func TestConsumeOneByteReads(t *testing.T) {
	input := "{\"type\":\"a\"}\n{\"type\":\"b\"}\n{\"type\":\"c\"}"
	var types []string

	err := Consume(iotest.OneByteReader(strings.NewReader(input)), func(ev Event) error {
		types = append(types, ev.Type)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, types)
}

func TestConsumeStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0

	err := Consume(strings.NewReader("{}\n{}\n{}\n"), func(Event) error {
		calls++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestConsumeReturnsReadError(t *testing.T) {
	boom := errors.New("pipe broke")
	r := io.MultiReader(strings.NewReader("{}\n"), iotest.ErrReader(boom))

	var count int
	err := Consume(r, func(Event) error {
		count++
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, count)
}
