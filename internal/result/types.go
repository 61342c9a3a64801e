package result

import "time"

type SessionMeta struct {
	RunID        string  `json:"run_id"`
	Domain       string  `json:"domain"`
	Agent        string  `json:"agent"`
	AgentLLM     string  `json:"agent_llm"`
	UserLLM      string  `json:"user_llm"`
	TaskID       string  `json:"task_id"`
	Trial        int     `json:"trial"`
	DurationS    int     `json:"duration_s"`
	ExitCode     int     `json:"exit_code"`
	ExitReason   string  `json:"exit_reason"`
	Reward       float64 `json:"reward"`
	TotalTokens  int     `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

type Manifest struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Engine    string    `json:"engine"`
	Image     string    `json:"image,omitempty"`
	Domain    string    `json:"domain"`
	Agent     string    `json:"agent"`
	AgentLLM  string    `json:"agent_llm"`
	UserLLM   string    `json:"user_llm"`
	TaskIDs   []string  `json:"task_ids"`
	Trials    int       `json:"trials"`
}
