package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrelab/tau2ctl/internal/config"
)

func TestLoadMinimal(t *testing.T) {
	cfg, err := config.Load("../../testdata/minimal.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Eval.Domain != "airline" {
		t.Errorf("expected domain 'airline', got %q", cfg.Eval.Domain)
	}
	if cfg.Eval.Agent != "llm_agent_pctx" {
		t.Errorf("expected agent 'llm_agent_pctx', got %q", cfg.Eval.Agent)
	}
	if len(cfg.Eval.TaskIDs) != 1 || cfg.Eval.TaskIDs[0] != "7" {
		t.Errorf("expected task_ids [7], got %v", cfg.Eval.TaskIDs)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("../../testdata/minimal.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine != config.EngineDocker {
		t.Errorf("expected default engine docker, got %q", cfg.Engine)
	}
	if cfg.Resources.CPUs != 2.0 {
		t.Errorf("expected default cpus 2.0, got %f", cfg.Resources.CPUs)
	}
	if cfg.Resources.MemoryMB != 4096 {
		t.Errorf("expected default memory 4096, got %d", cfg.Resources.MemoryMB)
	}
	if cfg.Resources.TimeoutS != 21600 {
		t.Errorf("expected default timeout 21600, got %d", cfg.Resources.TimeoutS)
	}
	if cfg.Eval.LogLevel != "INFO" {
		t.Errorf("expected default log level INFO, got %q", cfg.Eval.LogLevel)
	}
	if cfg.Eval.Trials != 1 {
		t.Errorf("expected default trials 1, got %d", cfg.Eval.Trials)
	}
	if cfg.Sidecar.Command != "pctx" {
		t.Errorf("expected default sidecar command pctx, got %q", cfg.Sidecar.Command)
	}
	if cfg.Sidecar.Env["PCTX_MODE"] != "fs" {
		t.Errorf("expected default PCTX_MODE fs, got %q", cfg.Sidecar.Env["PCTX_MODE"])
	}
	if cfg.Sidecar.Ready.Type != "exec" {
		t.Errorf("expected default probe type exec, got %q", cfg.Sidecar.Ready.Type)
	}
	if cfg.Sidecar.Ready.Target != "pctx status" {
		t.Errorf("expected default probe target 'pctx status', got %q", cfg.Sidecar.Ready.Target)
	}
	if len(cfg.Secrets.Names) != 1 || cfg.Secrets.Names[0] != "openrouter" {
		t.Errorf("expected default secret name openrouter, got %v", cfg.Secrets.Names)
	}
	if cfg.Eval.WorkDir != "/root/tau2-bench" {
		t.Errorf("expected default work dir /root/tau2-bench, got %q", cfg.Eval.WorkDir)
	}
}

func TestLoadFull(t *testing.T) {
	cfg, err := config.Load("../../testdata/full.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Image.CopyDirs) != 2 {
		t.Errorf("expected 2 copy dirs, got %d", len(cfg.Image.CopyDirs))
	}
	if cfg.Image.CopyDirs[0].Target != "/root/tau2-bench" {
		t.Errorf("expected copy target /root/tau2-bench, got %q", cfg.Image.CopyDirs[0].Target)
	}
	if len(cfg.Eval.TaskIDs) != 2 {
		t.Errorf("expected 2 task IDs, got %d", len(cfg.Eval.TaskIDs))
	}
	if cfg.Eval.Trials != 3 {
		t.Errorf("expected 3 trials, got %d", cfg.Eval.Trials)
	}
	if len(cfg.Eval.Launcher) != 2 || cfg.Eval.Launcher[0] != "uv" {
		t.Errorf("expected launcher [uv run], got %v", cfg.Eval.Launcher)
	}
	if cfg.Pricing.Table != "pricing.yaml" {
		t.Errorf("expected pricing table path, got %q", cfg.Pricing.Table)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing domain", "eval:\n  agent: a\n  agent_llm: x\n  user_llm: y\n  task_ids: [\"1\"]\n"},
		{"missing task ids", "eval:\n  domain: airline\n  agent: a\n  agent_llm: x\n  user_llm: y\n"},
		{"bad engine", "engine: kubernetes\neval:\n  domain: airline\n  agent: a\n  agent_llm: x\n  user_llm: y\n  task_ids: [\"1\"]\n"},
		{"tcp probe without target", "eval:\n  domain: airline\n  agent: a\n  agent_llm: x\n  user_llm: y\n  task_ids: [\"1\"]\nsidecar:\n  ready:\n    type: tcp\n"},
		{"copy dir without target", "eval:\n  domain: airline\n  agent: a\n  agent_llm: x\n  user_llm: y\n  task_ids: [\"1\"]\nimage:\n  copy_dirs:\n    - source: .\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			os.WriteFile(path, []byte(tt.yaml), 0o644)
			if _, err := config.Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := config.Load("nonexistent.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalid(t *testing.T) {
	_, err := config.Load("../../testdata/invalid.yaml")
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}
