package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/dashd/internal/application"
	"github.com/bnema/dashd/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	progressPendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	progressOKStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	progressDegradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	progressFailedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type sourceDoneMsg struct {
	result domain.Result
}

type cycleDoneMsg struct {
	err error
}

// cycleProgressModel animates while a cycle runs and ticks off each source
// as its result arrives.
type cycleProgressModel struct {
	spinner  spinner.Model
	order    []domain.SourceID
	results  map[domain.SourceID]domain.Result
	work     tea.Cmd
	err      error
	finished bool
}

func newCycleProgressModel(order []domain.SourceID, work tea.Cmd) cycleProgressModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("39"))),
	)

	return cycleProgressModel{
		spinner: s,
		order:   order,
		results: make(map[domain.SourceID]domain.Result, len(order)),
		work:    work,
	}
}

func (m cycleProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.work)
}

func (m cycleProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case sourceDoneMsg:
		m.results[msg.result.Source] = msg.result
		return m, nil
	case cycleDoneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m cycleProgressModel) View() string {
	if m.finished {
		return ""
	}

	marks := make([]string, 0, len(m.order))
	for _, id := range m.order {
		marks = append(marks, sourceMark(id, m.results[id]))
	}
	return fmt.Sprintf("%s Refreshing %d/%d  %s", m.spinner.View(), len(m.results), len(m.order), strings.Join(marks, "  "))
}

func sourceMark(id domain.SourceID, res domain.Result) string {
	name := string(id)
	switch {
	case res.Outcome == "":
		return progressPendingStyle.Render(name + " …")
	case res.Outcome == domain.OutcomeDegraded:
		return progressDegradedStyle.Render(name + " ~")
	case res.OK():
		return progressOKStyle.Render(name + " ✓")
	default:
		return progressFailedStyle.Render(name + " ✗")
	}
}

// withCycleProgress runs work while drawing per-source progress on output.
// work must report each finished source through the Progress it receives.
func withCycleProgress(ctx context.Context, output io.Writer, order []domain.SourceID, work func(context.Context, application.Progress) error) error {
	var p *tea.Program
	p = tea.NewProgram(
		newCycleProgressModel(order, func() tea.Msg {
			return cycleDoneMsg{err: work(ctx, func(res domain.Result) {
				p.Send(sourceDoneMsg{result: res})
			})}
		}),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	final, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := final.(cycleProgressModel)
	if !ok {
		return fmt.Errorf("unexpected final progress model type %T", final)
	}
	return result.err
}
