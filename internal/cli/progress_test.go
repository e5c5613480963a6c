package cli

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/starkviz/pkg/observability"
)

func TestProgressModel(t *testing.T) {
	var m tea.Model = newProgressModel(4, nil)

	m, _ = m.Update(partitionMsg{index: 2, report: observability.PartitionReport{Records: 10, Drawn: 8, Skipped: 2}})
	m, _ = m.Update(partitionMsg{index: 0, report: observability.PartitionReport{Records: 5, Drawn: 5}})

	pm := m.(progressModel)
	if pm.done != 2 || pm.records != 15 || pm.drawn != 13 || pm.skipped != 2 {
		t.Errorf("model = %+v", pm)
	}
	view := pm.View()
	if !strings.Contains(view, "2/4") {
		t.Errorf("View() = %q, should show 2/4", view)
	}
	if !strings.Contains(view, "2 skipped") {
		t.Errorf("View() = %q, should show skipped records", view)
	}

	m, cmd := m.Update(runDoneMsg{duration: time.Second, err: errors.New("boom")})
	pm = m.(progressModel)
	if !pm.finished || pm.err == nil {
		t.Error("runDoneMsg should finish the model and keep the error")
	}
	if cmd == nil {
		t.Fatal("runDoneMsg should quit the program")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("runDoneMsg command should produce tea.QuitMsg")
	}
	if pm.View() != "" {
		t.Error("finished model should render nothing")
	}
}

func TestProgressModelBar(t *testing.T) {
	tests := []struct {
		total, done int
		want        int
	}{
		{4, 0, 0},
		{4, 2, progressBarWidth / 2},
		{4, 4, progressBarWidth},
		{3, 5, progressBarWidth},
		{0, 0, progressBarWidth},
	}
	for _, tt := range tests {
		m := progressModel{total: tt.total, done: tt.done}
		if got := strings.Count(m.bar(), "█"); got != tt.want {
			t.Errorf("bar(%d/%d) filled = %d, want %d", tt.done, tt.total, got, tt.want)
		}
	}
}

func TestProgressModelCtrlCCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := newProgressModel(1, cancel)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if ctx.Err() == nil {
		t.Error("ctrl+c should cancel the run")
	}
}

func TestProgressHooks(t *testing.T) {
	var msgs []tea.Msg
	h := &progressHooks{send: func(m tea.Msg) { msgs = append(msgs, m) }}

	ctx := context.Background()
	h.OnRunStart(ctx, "run", "geometry", 2)
	h.OnPartitionComplete(ctx, "run", 1, observability.PartitionReport{Records: 3})
	h.OnReduceComplete(ctx, "run", 2, time.Millisecond, nil)
	h.OnRunComplete(ctx, "run", time.Millisecond, nil)

	if len(msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(msgs))
	}
	if p, ok := msgs[0].(partitionMsg); !ok || p.index != 1 || p.report.Records != 3 {
		t.Errorf("first message = %#v, want partition 1", msgs[0])
	}
	if _, ok := msgs[1].(runDoneMsg); !ok {
		t.Errorf("second message = %#v, want runDoneMsg", msgs[1])
	}
}
