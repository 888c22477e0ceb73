// Package dashboard draws source panels as a terminal grid.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bnema/dashd/internal/domain"
	"github.com/bnema/dashd/internal/ports"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

// clearScreen homes the cursor and wipes the terminal before a frame.
const clearScreen = "\x1b[H\x1b[2J"

type Options struct {
	PanelWidth int
	// Clear redraws in place instead of appending frames.
	Clear  bool
	Footer string
}

type frameReadyMsg struct{}

type model struct {
	panels []domain.Panel
	opts   Options
	styles styles
	output string
}

func newModel(panels []domain.Panel, opts Options) model {
	if opts.PanelWidth <= 0 {
		opts.PanelWidth = defaultColWidth
	}
	return model{panels: panels, opts: opts, styles: newStyles(opts.PanelWidth)}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg { return frameReadyMsg{} }
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(frameReadyMsg); ok {
		m.output = renderView(m.panels, m.opts, m.styles)
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	return m.output
}

// Frame lays out panels through a one-shot bubbletea program.
func Frame(ctx context.Context, panels []domain.Panel, opts Options) (string, error) {
	p := tea.NewProgram(
		newModel(panels, opts),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("render frame: %w", err)
	}
	rendered, ok := final.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}
	return rendered.View(), nil
}

type Renderer struct {
	out  io.Writer
	opts Options
	mu   sync.Mutex
}

var _ ports.Renderer = (*Renderer)(nil)

func NewRenderer(out io.Writer, opts Options) *Renderer {
	return &Renderer{out: out, opts: opts}
}

func (r *Renderer) Render(ctx context.Context, panels []domain.Panel) error {
	frame, err := Frame(ctx, panels, r.opts)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opts.Clear {
		frame = clearScreen + frame
	}
	if _, err := io.WriteString(r.out, frame+"\n"); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
