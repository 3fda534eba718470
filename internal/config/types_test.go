package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"0", 0},
		{"300", 5 * time.Minute},
		{" 45 ", 45 * time.Second},
		{"5m", 5 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"250ms", 250 * time.Millisecond},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.Std(), tt.in)
	}

	for _, bad := range []string{"-5", "-1m", "five", "5 minutes"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestDuration_YAML(t *testing.T) {
	t.Parallel()

	var v struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 90\nb: 2m\n"), &v))
	assert.Equal(t, 90*time.Second, v.A.Std())
	assert.Equal(t, 2*time.Minute, v.B.Std())

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "a: 1m30s\nb: 2m0s\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte("a: [1]\n"), &v))
}

func TestDuration_Flag(t *testing.T) {
	t.Parallel()

	var d Duration
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Var(&d, "timeout", "per-run timeout")

	require.NoError(t, fs.Parse([]string{"--timeout", "120"}))
	assert.Equal(t, 2*time.Minute, d.Std())
	assert.Equal(t, "duration", fs.Lookup("timeout").Value.Type())
	assert.Equal(t, "2m0s", fs.Lookup("timeout").Value.String())

	assert.Error(t, fs.Parse([]string{"--timeout", "later"}))
	assert.Equal(t, "0", Duration(0).String())
}

func TestAgentConfig_RunOptions(t *testing.T) {
	t.Parallel()

	agent := AgentConfig{Model: "sonnet", Models: "a,b", Provider: "anthropic", Thinking: "low", Tools: "read"}
	opts := agent.RunOptions(Duration(time.Minute))

	assert.Equal(t, "sonnet", opts.Model)
	assert.Equal(t, "a,b", opts.Models)
	assert.Equal(t, "anthropic", opts.Provider)
	assert.Equal(t, "low", opts.Thinking)
	assert.Equal(t, "read", opts.Tools)
	assert.Equal(t, time.Minute, opts.Timeout)
}

func TestSupervisorConfig_RunOptions(t *testing.T) {
	t.Parallel()

	agent := AgentConfig{Models: "opus,gpt5", Thinking: "low", Tools: "read,bash"}
	loop := LoopConfig{Timeout: Duration(time.Hour)}

	inherited := SupervisorConfig{}.RunOptions(agent, loop)
	assert.Equal(t, "opus,gpt5", inherited.Models)
	assert.Equal(t, "low", inherited.Thinking)
	assert.Equal(t, time.Hour, inherited.Timeout)

	own := SupervisorConfig{Model: "sonnet", Thinking: "high", Tools: "read", Timeout: Duration(time.Minute)}.RunOptions(agent, loop)
	assert.Equal(t, "sonnet", own.Model)
	assert.Empty(t, own.Models, "an explicit supervisor model replaces the agent list")
	assert.Equal(t, "high", own.Thinking)
	assert.Equal(t, "read", own.Tools)
	assert.Equal(t, time.Minute, own.Timeout)
}

func TestPhaseConfig_RunOptions(t *testing.T) {
	t.Parallel()

	agent := AgentConfig{Model: "sonnet", Thinking: "low"}
	loop := LoopConfig{Timeout: Duration(time.Hour)}

	inherited := PhaseConfig{}.RunOptions(agent, loop)
	assert.Equal(t, "sonnet", inherited.Model)
	assert.Equal(t, time.Hour, inherited.Timeout)

	list := PhaseConfig{Models: "opus:high,gpt5"}.RunOptions(agent, loop)
	assert.Empty(t, list.Model, "a phase model list replaces the agent model")
	assert.Equal(t, "opus:high,gpt5", list.Models)
	assert.Equal(t, "low", list.Thinking)

	p := PhaseConfig{Provider: "openai", Thinking: "high", Timeout: Duration(time.Minute)}
	own := p.RunOptions(agent, loop)
	assert.Empty(t, own.Model)
	assert.Equal(t, "openai", own.Provider)
	assert.Equal(t, time.Minute, own.Timeout)

	p.ClearModel()
	assert.Equal(t, "sonnet", p.RunOptions(agent, loop).Model)
	assert.Equal(t, "high", p.RunOptions(agent, loop).Thinking, "only the model selection is cleared")
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	t.Parallel()

	original := DefaultConfig()
	original.Agent.Models = "opus:high"
	original.Loop.PushEvery = 3
	original.Specs.Research.Model = "opus"

	data, err := yaml.Marshal(original)
	require.NoError(t, err)

	var parsed Config
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Equal(t, original, parsed)
}
