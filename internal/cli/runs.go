package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/starkviz/pkg/runlog"
)

const defaultRunLimit = 20

// runsCommand creates the runs command that lists recent runs.
func (c *CLI) runsCommand() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent runs",
		Long: `Show recent runs, newest first.

Runs are read from MongoDB when ` + EnvMongoURI + ` is set and from the local
history file otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := recentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				for _, r := range runs {
					if err := enc.Encode(r); err != nil {
						return err
					}
				}
				return nil
			}
			if len(runs) == 0 {
				printInfo("No runs recorded")
				return nil
			}
			fmt.Println(runsTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultRunLimit, "number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per run")

	return cmd
}

func recentRuns(ctx context.Context, limit int) ([]runlog.Run, error) {
	if uri := os.Getenv(EnvMongoURI); uri != "" {
		rec, err := runlog.NewMongoRecorder(ctx, runlog.MongoConfig{URI: uri})
		if err != nil {
			return nil, err
		}
		defer rec.Close()
		return rec.Recent(ctx, int64(limit))
	}

	path, err := runLogPath()
	if err != nil {
		return nil, fmt.Errorf("get cache dir: %w", err)
	}
	rec, err := runlog.NewFileRecorder(path)
	if err != nil {
		return nil, err
	}
	runs, err := rec.Runs()
	if err != nil {
		return nil, err
	}
	return newestFirst(runs, limit), nil
}

// newestFirst returns up to limit runs, most recent first. A limit below
// one returns every run.
func newestFirst(runs []runlog.Run, limit int) []runlog.Run {
	out := slices.Clone(runs)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func runsTable(runs []runlog.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := styleIconSuccess.Render(iconSuccess)
		if !r.Success {
			status = styleIconError.Render(iconError)
		}
		cached := ""
		if r.CacheHit {
			cached = iconCached
		}
		rows = append(rows, []string{
			status,
			r.ID[:min(8, len(r.ID))],
			r.Started.Local().Format(time.DateTime),
			r.Kind,
			fmt.Sprintf("%dx%d", r.Width, r.Height),
			strconv.Itoa(r.Partitions),
			strconv.Itoa(r.Stats.Drawn),
			strconv.Itoa(r.Stats.Skipped),
			(time.Duration(r.DurationMS) * time.Millisecond).String(),
			cached,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Run", "Started", "Kind", "Size", "Parts", "Drawn", "Skipped", "Took", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite).Padding(0, 1)
		})
	return t.String()
}
