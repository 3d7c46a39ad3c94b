package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/bindpost/config"
	"github.com/wippyai/bindpost/pipeline"
)

var (
	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))
)

type interactiveModel struct {
	err     error
	report  *pipeline.Report
	run     tea.Cmd
	cancel  context.CancelFunc
	spinner spinner.Model
	dir     string
	steps   []pipeline.Step
	current int
	dryRun  bool
	done    bool
}

type stepMsg pipeline.Step

type doneMsg struct {
	err    error
	report *pipeline.Report
}

func newInteractiveModel(cfg *config.Config, dryRun bool) *interactiveModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	steps := []pipeline.Step{
		pipeline.StepRead,
		pipeline.StepCompat,
		pipeline.StepTransform,
		pipeline.StepRewrite,
		pipeline.StepVerify,
		pipeline.StepEmit,
	}
	if !dryRun {
		steps = append(steps, pipeline.StepWrite)
	}
	return &interactiveModel{
		spinner: s,
		dir:     cfg.ArtifactDir(),
		steps:   steps,
		current: -1,
		dryRun:  dryRun,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "enter":
			if m.done {
				return m, tea.Quit
			}
		}

	case stepMsg:
		for i, s := range m.steps {
			if s == pipeline.Step(msg) {
				m.current = i
			}
		}

	case doneMsg:
		m.done = true
		m.err = msg.err
		m.report = msg.report
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("bindpost"))
	b.WriteString(" ")
	b.WriteString(m.dir)
	b.WriteString("\n\n")

	for i, s := range m.steps {
		switch {
		case i < m.current || (m.done && m.err == nil):
			b.WriteString(doneStyle.Render("✓ " + string(s)))
		case i == m.current && m.done:
			b.WriteString(errorStyle.Render("✗ " + string(s)))
		case i == m.current:
			b.WriteString(m.spinner.View() + " " + string(s))
		default:
			b.WriteString(pendingStyle.Render("  " + string(s)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if !m.done {
		b.WriteString(helpStyle.Render("q cancel"))
		return b.String()
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	} else {
		b.WriteString(renderSummary(m.report, m.dryRun, 80))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter/q quit"))
	return b.String()
}

func runInteractive(ctx context.Context, cfg *config.Config, opts pipeline.Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newInteractiveModel(cfg, opts.DryRun)
	m.cancel = cancel
	p := tea.NewProgram(m)

	opts.OnStep = func(s pipeline.Step) { p.Send(stepMsg(s)) }
	m.run = func() tea.Msg {
		report, err := pipeline.RunWithOptions(ctx, cfg, opts)
		return doneMsg{err: err, report: report}
	}

	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(*interactiveModel); ok && fm.err != nil {
		return fm.err
	}
	return nil
}
