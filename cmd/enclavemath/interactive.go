package main

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/enclave-math/codec"
	"github.com/wippyai/enclave-math/host"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	opStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// calcOp is one entry of the operation menu.
type calcOp struct {
	name   string
	params []string
	run    func(ctx context.Context, c *host.Client, args []string) (string, error)
}

func calcOps() []calcOp {
	ints := func(args []string) (*big.Int, *big.Int, error) {
		a, err := codec.DecodeInt(strings.TrimSpace(args[0]), 10)
		if err != nil {
			return nil, nil, err
		}
		b, err := codec.DecodeInt(strings.TrimSpace(args[1]), 10)
		if err != nil {
			return nil, nil, err
		}
		return a, b, nil
	}
	intOp := func(fn func(*host.Client, context.Context, *big.Int, *big.Int) (*big.Int, error)) func(context.Context, *host.Client, []string) (string, error) {
		return func(ctx context.Context, c *host.Client, args []string) (string, error) {
			a, b, err := ints(args)
			if err != nil {
				return "", err
			}
			v, err := fn(c, ctx, a, b)
			if err != nil {
				return "", err
			}
			return v.String(), nil
		}
	}
	return []calcOp{
		{name: "add", params: []string{"a", "b"}, run: intOp((*host.Client).Add)},
		{name: "multiply", params: []string{"a", "b"}, run: intOp((*host.Client).Multiply)},
		{name: "divide", params: []string{"a", "b"}, run: intOp((*host.Client).Divide)},
		{
			name:   "decimal divide",
			params: []string{"a", "b", "digits"},
			run: func(ctx context.Context, c *host.Client, args []string) (string, error) {
				a, b, err := ints(args)
				if err != nil {
					return "", err
				}
				digits, err := strconv.Atoi(strings.TrimSpace(args[2]))
				if err != nil {
					return "", fmt.Errorf("digits: %w", err)
				}
				v, err := c.DecimalDivide(ctx, a, b, digits)
				if err != nil {
					return "", err
				}
				return v.Text('f', digits), nil
			},
		},
		{
			name:   "estimate pi",
			params: []string{"digits"},
			run: func(ctx context.Context, c *host.Client, args []string) (string, error) {
				digits, err := strconv.Atoi(strings.TrimSpace(args[0]))
				if err != nil {
					return "", fmt.Errorf("digits: %w", err)
				}
				v, err := c.EstimateConstant(ctx, digits)
				if err != nil {
					return "", err
				}
				return v.Text('f', digits), nil
			},
		},
	}
}

type interactiveModel struct {
	err      error
	host     *host.Host
	opts     options
	result   string
	ops      []calcOp
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(opts options) *interactiveModel {
	return &interactiveModel{
		opts:  opts,
		ops:   calcOps(),
		state: stateSelectOp,
	}
}

type launchedMsg struct {
	err  error
	host *host.Host
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.launch
}

func (m *interactiveModel) launch() tea.Msg {
	h, err := host.Launch(context.Background(), &host.Config{
		Simulation: m.opts.sim,
		Radix:      m.opts.radix,
	})
	return launchedMsg{host: h, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.close()
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				m.close()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(m.ops)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				if m.host == nil {
					return m, nil
				}
				m.prepareInputs()
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.call

			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectOp
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}
		}

	case launchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.host = msg.host

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) close() {
	if m.host != nil {
		m.host.Close(context.Background())
		m.host = nil
	}
}

func (m *interactiveModel) prepareInputs() {
	op := m.ops[m.selected]
	m.inputs = make([]textinput.Model, len(op.params))
	for i, p := range op.params {
		ti := textinput.New()
		ti.Prompt = p + ": "
		ti.Width = 60
		if p == "digits" {
			ti.SetValue(strconv.Itoa(m.opts.digits))
		}
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) call() tea.Msg {
	if m.host == nil {
		return callResultMsg{err: fmt.Errorf("enclave not launched")}
	}
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = input.Value()
	}
	result, err := m.ops[m.selected].run(context.Background(), m.host.Client(), args)
	return callResultMsg{result: result, err: err}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.host == nil {
		return "Launching enclave..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Enclave Math"))
	fmt.Fprintf(&b, " %s, radix %d\n\n", m.host.Support(), m.host.Enclave().Radix())

	switch m.state {
	case stateSelectOp:
		b.WriteString("Select an operation:\n\n")
		for i, op := range m.ops {
			line := op.name + "(" + strings.Join(op.params, ", ") + ")"
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + opStyle.Render(line))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter choose • q quit"))

	case stateInputArgs:
		fmt.Fprintf(&b, "Calling %s\n\n", opStyle.Render(m.ops[m.selected].name))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		fmt.Fprintf(&b, "Result of %s:\n\n", opStyle.Render(m.ops[m.selected].name))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func runInteractive(opts options) error {
	m := newInteractiveModel(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	m.close()
	return err
}
