package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Engine    Engine    `yaml:"engine"`
	Image     Image     `yaml:"image"`
	Resources Resources `yaml:"resources"`
	Eval      Eval      `yaml:"eval"`
	Sidecar   Sidecar   `yaml:"sidecar"`
	Secrets   Secrets   `yaml:"secrets"`
	Results   Results   `yaml:"results"`
	Pricing   Pricing   `yaml:"pricing"`
}

type Engine string

const (
	EngineDocker Engine = "docker"
	EngineLocal  Engine = "local"
)

type Image struct {
	Base          string    `yaml:"base"`
	AptPackages   []string  `yaml:"apt_packages"`
	PipPackages   []string  `yaml:"pip_packages"`
	SetupCommands []string  `yaml:"setup_commands"`
	CopyDirs      []CopyDir `yaml:"copy_dirs"`
}

type CopyDir struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

type Resources struct {
	CPUs     float64 `yaml:"cpus"`
	MemoryMB int64   `yaml:"memory_mb"`
	TimeoutS int     `yaml:"timeout_s"`
}

type Eval struct {
	Domain   string   `yaml:"domain"`
	Agent    string   `yaml:"agent"`
	AgentLLM string   `yaml:"agent_llm"`
	UserLLM  string   `yaml:"user_llm"`
	LogLevel string   `yaml:"log_level"`
	TaskIDs  []string `yaml:"task_ids"`
	Trials   int      `yaml:"trials"`
	Launcher []string `yaml:"launcher"`
	WorkDir  string   `yaml:"work_dir"`
	DataDir  string   `yaml:"data_dir"`
	Setup    []string `yaml:"setup"`
}

type Sidecar struct {
	Command  string            `yaml:"command"`
	Args     []string          `yaml:"args"`
	StopArgs []string          `yaml:"stop_args"`
	Env      map[string]string `yaml:"env"`
	Ready    Probe             `yaml:"ready"`
	LogDir   string            `yaml:"log_dir"`
}

type Probe struct {
	Type      string `yaml:"type"`
	Target    string `yaml:"target"`
	TimeoutS  int    `yaml:"timeout_s"`
	IntervalS int    `yaml:"interval_s"`
}

type Secrets struct {
	Dir     string   `yaml:"dir"`
	Names   []string `yaml:"names"`
	EnvFile string   `yaml:"env_file"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

type Pricing struct {
	Table string `yaml:"table"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Engine == "" {
		cfg.Engine = EngineDocker
	}
	if cfg.Engine != EngineDocker && cfg.Engine != EngineLocal {
		return fmt.Errorf("engine must be %q or %q, got %q", EngineDocker, EngineLocal, cfg.Engine)
	}

	if cfg.Image.Base == "" {
		cfg.Image.Base = "python:3.10-slim"
	}
	for i, d := range cfg.Image.CopyDirs {
		if d.Source == "" {
			return fmt.Errorf("image copy_dirs %d: source is required", i)
		}
		if d.Target == "" {
			return fmt.Errorf("image copy_dirs %d: target is required", i)
		}
	}

	if cfg.Resources.CPUs <= 0 {
		cfg.Resources.CPUs = 2.0
	}
	if cfg.Resources.MemoryMB <= 0 {
		cfg.Resources.MemoryMB = 4096
	}
	if cfg.Resources.TimeoutS <= 0 {
		cfg.Resources.TimeoutS = 21600
	}

	if cfg.Eval.Domain == "" {
		return fmt.Errorf("eval domain is required")
	}
	if cfg.Eval.Agent == "" {
		return fmt.Errorf("eval agent is required")
	}
	if cfg.Eval.AgentLLM == "" {
		return fmt.Errorf("eval agent_llm is required")
	}
	if cfg.Eval.UserLLM == "" {
		return fmt.Errorf("eval user_llm is required")
	}
	if cfg.Eval.LogLevel == "" {
		cfg.Eval.LogLevel = "INFO"
	}
	if len(cfg.Eval.TaskIDs) == 0 {
		return fmt.Errorf("eval task_ids is required")
	}
	if cfg.Eval.Trials < 1 {
		cfg.Eval.Trials = 1
	}
	if cfg.Eval.WorkDir == "" {
		cfg.Eval.WorkDir = "/root/tau2-bench"
	}
	if cfg.Eval.DataDir == "" {
		cfg.Eval.DataDir = "data"
	}

	if cfg.Sidecar.Command == "" {
		cfg.Sidecar.Command = "pctx"
	}
	if len(cfg.Sidecar.Args) == 0 {
		cfg.Sidecar.Args = []string{"start"}
	}
	if len(cfg.Sidecar.StopArgs) == 0 {
		cfg.Sidecar.StopArgs = []string{"stop"}
	}
	if cfg.Sidecar.Env == nil {
		cfg.Sidecar.Env = map[string]string{}
	}
	if _, ok := cfg.Sidecar.Env["PCTX_MODE"]; !ok {
		cfg.Sidecar.Env["PCTX_MODE"] = "fs"
	}
	if err := validateProbe(&cfg.Sidecar.Ready, cfg.Sidecar.Command); err != nil {
		return err
	}

	if cfg.Secrets.Dir == "" {
		cfg.Secrets.Dir = "secrets"
	}
	if len(cfg.Secrets.Names) == 0 {
		cfg.Secrets.Names = []string{"openrouter"}
	}

	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
	return nil
}

func validateProbe(p *Probe, sidecarCmd string) error {
	switch p.Type {
	case "":
		p.Type = "exec"
	case "exec", "tcp":
	default:
		return fmt.Errorf("sidecar ready type must be \"exec\" or \"tcp\", got %q", p.Type)
	}
	if p.Target == "" {
		if p.Type == "exec" {
			p.Target = sidecarCmd + " status"
		} else {
			return fmt.Errorf("sidecar ready target is required for tcp probes")
		}
	}
	if p.TimeoutS <= 0 {
		p.TimeoutS = 30
	}
	if p.IntervalS <= 0 {
		p.IntervalS = 1
	}
	return nil
}
