package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/kestrelab/tau2ctl/internal/result"
)

type TaskSummary struct {
	TaskID         string  `json:"task_id"`
	Trials         int     `json:"trials"`
	CompletionRate float64 `json:"completion_rate"`
	MeanReward     float64 `json:"mean_reward"`
	MeanTokens     float64 `json:"mean_tokens"`
	MeanCostUSD    float64 `json:"mean_cost_usd"`
}

// Generate reads session metas under a run dir and produces a summary.
func Generate(runDir, format string, w io.Writer) error {
	metas, err := collectMetas(runDir)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		return fmt.Errorf("no session results found in %s", runDir)
	}

	summaries := aggregate(metas)

	switch format {
	case "markdown":
		return writeMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	default:
		return writeTable(summaries, w)
	}
}

func collectMetas(runDir string) ([]*result.SessionMeta, error) {
	var metas []*result.SessionMeta
	err := filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Name() == "meta.json" {
			meta, err := result.ReadSessionMeta(path)
			if err != nil {
				return nil
			}
			metas = append(metas, meta)
		}
		return nil
	})
	return metas, err
}

func aggregate(metas []*result.SessionMeta) []TaskSummary {
	type accum struct {
		count     int
		completed int
		reward    float64
		tokens    float64
		cost      float64
	}
	byTask := map[string]*accum{}

	for _, m := range metas {
		a, ok := byTask[m.TaskID]
		if !ok {
			a = &accum{}
			byTask[m.TaskID] = a
		}
		a.count++
		a.reward += m.Reward
		a.tokens += float64(m.TotalTokens)
		a.cost += m.TotalCostUSD
		if m.ExitReason == "completed" {
			a.completed++
		}
	}

	var summaries []TaskSummary
	for taskID, a := range byTask {
		summaries = append(summaries, TaskSummary{
			TaskID:         taskID,
			Trials:         a.count,
			CompletionRate: float64(a.completed) / float64(a.count),
			MeanReward:     a.reward / float64(a.count),
			MeanTokens:     a.tokens / float64(a.count),
			MeanCostUSD:    a.cost / float64(a.count),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].TaskID < summaries[j].TaskID
	})
	return summaries
}

func writeTable(summaries []TaskSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tTRIALS\tCOMPLETED\tMEAN REWARD\tMEAN TOKENS\tMEAN COST")
	fmt.Fprintln(tw, strings.Repeat("-", 72))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%.0f%%\t%.3f\t%.0f\t$%.2f\n",
			s.TaskID, s.Trials, s.CompletionRate*100, s.MeanReward, s.MeanTokens, s.MeanCostUSD)
	}
	return tw.Flush()
}

func writeMarkdown(summaries []TaskSummary, w io.Writer) error {
	fmt.Fprintln(w, "| Task | Trials | Completed | Mean Reward | Mean Tokens | Mean Cost |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|")
	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %d | %.0f%% | %.3f | %.0f | $%.2f |\n",
			s.TaskID, s.Trials, s.CompletionRate*100, s.MeanReward, s.MeanTokens, s.MeanCostUSD)
	}
	return nil
}

func writeJSON(summaries []TaskSummary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}
