package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/starkviz/pkg/observability"
)

// progressBarWidth is the number of cells in the partition bar.
const progressBarWidth = 30

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// =============================================================================
// Messages
// =============================================================================

type partitionMsg struct {
	index  int
	report observability.PartitionReport
}

type runDoneMsg struct {
	duration time.Duration
	err      error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// =============================================================================
// progressModel - Partition progress view
// =============================================================================

// progressModel shows how many partitions have finished while a run is in
// flight.
type progressModel struct {
	total   int
	done    int
	records int
	drawn   int
	skipped int
	frame   int

	finished bool
	err      error
	elapsed  time.Duration

	// cancel stops the run when the user presses ctrl+c.
	cancel context.CancelFunc
}

func newProgressModel(total int, cancel context.CancelFunc) progressModel {
	return progressModel{total: total, cancel: cancel}
}

func (m progressModel) Init() tea.Cmd {
	return tick()
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.cancel != nil {
				m.cancel()
			}
		}
	case partitionMsg:
		m.done++
		m.records += msg.report.Records
		m.drawn += msg.report.Drawn
		m.skipped += msg.report.Skipped
	case runDoneMsg:
		m.finished = true
		m.err = msg.err
		m.elapsed = msg.duration
		return m, tea.Quit
	case tickMsg:
		if m.finished {
			return m, nil
		}
		m.frame++
		return m, tick()
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.finished {
		return ""
	}
	var b strings.Builder
	b.WriteString(styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)]))
	b.WriteString(" ")
	b.WriteString(StyleTitle.Render("Rendering"))
	b.WriteString(" ")
	b.WriteString(m.bar())
	b.WriteString(" ")
	b.WriteString(StyleNumber.Render(fmt.Sprintf("%d/%d", m.done, m.total)))
	b.WriteString(StyleDim.Render(" partitions"))
	b.WriteString(StyleDim.Render(fmt.Sprintf(" · %d records · %d drawn", m.records, m.drawn)))
	if m.skipped > 0 {
		b.WriteString(StyleDim.Render(" · "))
		b.WriteString(StyleWarning.Render(fmt.Sprintf("%d skipped", m.skipped)))
	}
	b.WriteString("\n")
	return b.String()
}

func (m progressModel) bar() string {
	filled := progressBarWidth
	if m.total > 0 {
		filled = min(m.done*progressBarWidth/m.total, progressBarWidth)
	}
	return styleCached.Render(strings.Repeat("█", filled)) +
		StyleDim.Render(strings.Repeat("░", progressBarWidth-filled))
}

// =============================================================================
// Hooks
// =============================================================================

// progressHooks forwards pipeline events to a running program.
type progressHooks struct {
	observability.NoopPipelineHooks
	send func(tea.Msg)
}

func (h *progressHooks) OnPartitionComplete(_ context.Context, _ string, i int, r observability.PartitionReport) {
	h.send(partitionMsg{index: i, report: r})
}

func (h *progressHooks) OnRunComplete(_ context.Context, _ string, d time.Duration, err error) {
	h.send(runDoneMsg{duration: d, err: err})
}

// runWithProgress runs fn while showing partition progress on stderr.
// A display that cannot start is logged and fn still runs to completion.
func runWithProgress(ctx context.Context, partitions int, fn func(context.Context)) error {
	logger := loggerFromContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(partitions, cancel),
		tea.WithContext(ctx),
		tea.WithOutput(os.Stderr),
	)

	observability.SetPipelineHooks(&progressHooks{send: p.Send})
	defer observability.SetPipelineHooks(observability.NoopPipelineHooks{})

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer p.Quit()
		fn(ctx)
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Warn("progress display unavailable", "error", err)
	}
	<-finished
	return ctx.Err()
}
