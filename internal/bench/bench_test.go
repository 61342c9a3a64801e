package bench_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelab/tau2ctl/internal/bench"
	"github.com/kestrelab/tau2ctl/internal/config"
)

func evalFixture() *config.Eval {
	return &config.Eval{
		Domain:   "airline",
		Agent:    "llm_agent_pctx",
		AgentLLM: "openrouter/openai/gpt-5",
		UserLLM:  "openrouter/openai/gpt-4o-2024-05-13",
		LogLevel: "INFO",
	}
}

func TestArgvFlagOrder(t *testing.T) {
	argv := bench.Argv(evalFixture(), []string{"7"})
	assert.Equal(t, []string{
		"tau2", "run",
		"--domain", "airline",
		"--agent", "llm_agent_pctx",
		"--agent-llm", "openrouter/openai/gpt-5",
		"--user-llm", "openrouter/openai/gpt-4o-2024-05-13",
		"--log-level", "INFO",
		"--task-ids", "7",
	}, argv)
}

func TestArgvLauncherPrefix(t *testing.T) {
	eval := evalFixture()
	eval.Launcher = []string{"uv", "run"}
	argv := bench.Argv(eval, []string{"7"})
	assert.Equal(t, []string{"uv", "run", "tau2", "run"}, argv[:4])
}

func TestArgvMultipleTaskIDs(t *testing.T) {
	argv := bench.Argv(evalFixture(), []string{"7", "12"})
	assert.Equal(t, []string{"--task-ids", "7", "12"}, argv[len(argv)-3:])
}

func TestRunRelaysExitCode(t *testing.T) {
	eval := evalFixture()
	eval.Launcher = []string{"sh", "-c", "exit 7"}
	code, err := bench.Run(context.Background(), &bench.Invocation{
		Eval:    eval,
		TaskIDs: []string{"7"},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, code)
}

func TestRunStreamsOutput(t *testing.T) {
	eval := evalFixture()
	// echo relays the generated argv to stdout
	eval.Launcher = []string{"echo"}
	var out bytes.Buffer
	code, err := bench.Run(context.Background(), &bench.Invocation{
		Eval:    eval,
		TaskIDs: []string{"7"},
		Stdout:  &out,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "--domain airline")
	assert.Contains(t, out.String(), "--task-ids 7")
}

func TestRunMissingBinary(t *testing.T) {
	eval := evalFixture()
	eval.Launcher = []string{"/nonexistent/launcher"}
	_, err := bench.Run(context.Background(), &bench.Invocation{
		Eval:    eval,
		TaskIDs: []string{"7"},
	})
	assert.Error(t, err)
}
