// research-tui is a terminal client for the autonomous research stream.
//
// Usage:
//
//	go run cmd/research-tui/main.go -endpoint http://localhost:8080/api/chat/autonomous
//
// Type a question and press enter; ctrl+c or esc quits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SebastianBO/quant-platform-sub005/internal/research"
	"github.com/SebastianBO/quant-platform-sub005/pkg/logger"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3"))

	taskDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	taskRunningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	taskPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type snapshotMsg research.Snapshot

type phaseResetMsg struct{}

type model struct {
	client   *research.Client
	input    textinput.Model
	spinner  spinner.Model
	snapshot research.Snapshot
	width    int
}

func initialModel(client *research.Client) model {
	ti := textinput.New()
	ti.Placeholder = "Ask about a ticker, e.g. \"How profitable is AAPL?\""
	ti.Focus()
	ti.CharLimit = 280
	ti.Width = 76

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = phaseStyle

	return model{
		client:   client,
		input:    ti,
		spinner:  sp,
		snapshot: research.Snapshot{Phase: research.PhaseIdle},
		width:    80,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			query := strings.TrimSpace(m.input.Value())
			if query == "" || m.snapshot.Loading {
				return m, nil
			}
			m.input.Reset()
			// Submit blocks for the whole stream; snapshots arrive via
			// program.Send from the OnUpdate callback.
			go m.client.Submit(context.Background(), query)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 4

	case snapshotMsg:
		m.snapshot = research.Snapshot(msg)
		if !m.snapshot.Loading && terminalPhase(m.snapshot.Phase) {
			return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg {
				return phaseResetMsg{}
			})
		}
		return m, nil

	case phaseResetMsg:
		if !m.snapshot.Loading {
			m.snapshot.Phase = research.PhaseIdle
			m.snapshot.Tasks = nil
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Research Assistant"))
	b.WriteString("\n\n")

	for _, msg := range m.snapshot.Messages {
		switch msg.Role {
		case research.RoleUser:
			b.WriteString(userStyle.Render("You: "))
		default:
			b.WriteString(assistantStyle.Render("Assistant: "))
		}
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}

	if m.snapshot.Loading {
		b.WriteString(m.spinner.View())
		b.WriteString(phaseStyle.Render(phaseLabel(m.snapshot.Phase)))
		b.WriteString("\n")
		for _, task := range m.snapshot.Tasks {
			b.WriteString("  ")
			b.WriteString(taskLine(task))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(taskPendingStyle.Render("enter to send, esc to quit"))
	b.WriteString("\n")

	return b.String()
}

func terminalPhase(p research.Phase) bool {
	return p == research.PhaseComplete || p == research.PhaseError
}

func phaseLabel(p research.Phase) string {
	switch p {
	case research.PhaseUnderstand:
		return "Understanding the question..."
	case research.PhasePlan:
		return "Planning research tasks..."
	case research.PhaseExecute:
		return "Gathering data..."
	case research.PhaseReflect:
		return "Reviewing findings..."
	case research.PhaseAnswer:
		return "Writing the answer..."
	default:
		return "Working..."
	}
}

func taskLine(task research.Task) string {
	switch task.Status {
	case research.TaskCompleted:
		return taskDoneStyle.Render("✓ " + task.Description)
	case research.TaskRunning:
		return taskRunningStyle.Render("▸ " + task.Description)
	default:
		return taskPendingStyle.Render("○ " + task.Description)
	}
}

func main() {
	var endpoint, modelName string
	flag.StringVar(&endpoint, "endpoint", "http://localhost:8080/api/chat/autonomous", "autonomous chat endpoint")
	flag.StringVar(&modelName, "model", "", "model override sent with each request")
	flag.Parse()

	logger.Init("error", "text")

	client := research.NewClient(endpoint, modelName)
	p := tea.NewProgram(initialModel(client))

	client.OnUpdate(func(s research.Snapshot) {
		p.Send(snapshotMsg(s))
	})

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "research-tui: %v\n", err)
		os.Exit(1)
	}
}
