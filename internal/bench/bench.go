package bench

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/kestrelab/tau2ctl/internal/config"
)

// Invocation is one benchmark CLI run: the evaluation parameters pass
// through to the external tool unchanged.
type Invocation struct {
	Eval    *config.Eval
	TaskIDs []string
	Dir     string
	Env     []string
	Stdout  io.Writer
	Stderr  io.Writer
}

// Argv builds the benchmark command line. Flag order is part of the
// harness contract: domain, agent, agent-llm, user-llm, log-level,
// task-ids. An optional launcher (e.g. "uv run") prefixes the command.
func Argv(eval *config.Eval, taskIDs []string) []string {
	argv := append([]string{}, eval.Launcher...)
	argv = append(argv,
		"tau2", "run",
		"--domain", eval.Domain,
		"--agent", eval.Agent,
		"--agent-llm", eval.AgentLLM,
		"--user-llm", eval.UserLLM,
		"--log-level", eval.LogLevel,
		"--task-ids",
	)
	argv = append(argv, taskIDs...)
	return argv
}

// Run invokes the benchmark CLI as a blocking subprocess, relaying its
// output. Returns the exit code; a non-zero code is not an error here,
// the caller decides what it means.
func Run(ctx context.Context, inv *Invocation) (int, error) {
	argv := Argv(inv.Eval, inv.TaskIDs)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	cmd.Stdout = inv.Stdout
	cmd.Stderr = inv.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("running %s: %w", argv[0], err)
}
