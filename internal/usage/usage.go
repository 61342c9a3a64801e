package usage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Record is one simulation's usage as reported by the benchmark CLI in
// its result artifacts.
type Record struct {
	TaskID           string  `json:"task_id"`
	Trial            int     `json:"trial"`
	Reward           float64 `json:"reward"`
	AgentCost        float64 `json:"agent_cost"`
	UserCost         float64 `json:"user_cost"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	DurationS        float64 `json:"duration_s"`
}

// resultFile mirrors the benchmark's simulation result JSON. Fields the
// harness does not consume are ignored.
type resultFile struct {
	Simulations []struct {
		TaskID     string  `json:"task_id"`
		Trial      int     `json:"trial"`
		Duration   float64 `json:"duration"`
		RewardInfo struct {
			Reward float64 `json:"reward"`
		} `json:"reward_info"`
		AgentCost float64 `json:"agent_cost"`
		UserCost  float64 `json:"user_cost"`
		Usage     struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	} `json:"simulations"`
}

// ParseResultsDir walks the benchmark data dir and collects simulation
// records from every result file it can read. Files that are not result
// artifacts are skipped silently; the data dir also holds domain data.
func ParseResultsDir(dir string) ([]Record, error) {
	var records []Record
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			return nil
		}
		recs, err := ParseResultFile(path)
		if err != nil {
			return nil
		}
		records = append(records, recs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func ParseResultFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rf resultFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, err
	}
	var records []Record
	for _, s := range rf.Simulations {
		records = append(records, Record{
			TaskID:           s.TaskID,
			Trial:            s.Trial,
			Reward:           s.RewardInfo.Reward,
			AgentCost:        s.AgentCost,
			UserCost:         s.UserCost,
			PromptTokens:     s.Usage.PromptTokens,
			CompletionTokens: s.Usage.CompletionTokens,
			DurationS:        s.Duration,
		})
	}
	return records, nil
}

// ForTask filters records down to one task ID.
func ForTask(records []Record, taskID string) []Record {
	var out []Record
	for _, r := range records {
		if r.TaskID == taskID {
			out = append(out, r)
		}
	}
	return out
}

// Totals sums tokens, cost, and reward across records.
func Totals(records []Record) (tokens int, costUSD, reward float64) {
	for _, r := range records {
		tokens += r.PromptTokens + r.CompletionTokens
		costUSD += r.AgentCost + r.UserCost
		reward += r.Reward
	}
	return
}
