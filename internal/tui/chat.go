package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/medsplain/medsplain/internal/api"
	"github.com/medsplain/medsplain/internal/orchestrator"
	"github.com/medsplain/medsplain/internal/report"
	"github.com/medsplain/medsplain/internal/session"
	"github.com/medsplain/medsplain/prompts"
)

// ============================================================================
// ChatModel
// ============================================================================

// ChatModel is the chat screen. It only reads the session through
// snapshots; every change goes through the orchestrator.
type ChatModel struct {
	ctx      context.Context
	orch     *orchestrator.Orchestrator
	keys     KeyMap
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	mode     session.Mode
	level    orchestrator.Level
	notice   string
	warn     bool
	inFlight bool
	width    int
	height   int
}

// NewChatModel creates a chat screen driven by orch.
func NewChatModel(ctx context.Context, orch *orchestrator.Orchestrator) ChatModel {
	ti := textinput.New()
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(primaryColor))

	m := ChatModel{
		ctx:      ctx,
		orch:     orch,
		keys:     DefaultKeyMap,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		mode:     session.ModeAssistant,
		level:    orch.Level(),
		width:    80,
		height:   30,
	}
	m.input.Placeholder = placeholder(m.mode)
	m.refresh()
	return m
}

// Init returns the initial command for the chat view.
func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles messages for the chat view.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	sess := m.orch.Session()

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Mode):
			m.mode = nextMode(m.mode)
			m.input.Placeholder = placeholder(m.mode)
			m.notice = ""
			return m, nil

		case key.Matches(msg, m.keys.Level):
			m.level = m.level.Next()
			return m, nil

		case key.Matches(msg, m.keys.Reset):
			m.orch.Reset()
			m.notice = ""
			m.refresh()
			return m, nil

		case key.Matches(msg, m.keys.AddMed):
			if m.mode == session.ModeInteractions {
				for _, name := range orchestrator.SplitMedications(m.input.Value()) {
					sess.AddSelectedMedication(name)
				}
				m.input.Reset()
				sess.SetDraft("")
			}
			return m, nil

		case key.Matches(msg, m.keys.ClearMed):
			sess.ClearSelectedMedications()
			return m, nil

		case key.Matches(msg, m.keys.Helpful), key.Matches(msg, m.keys.Unclear):
			kind := api.FeedbackHelpful
			if key.Matches(msg, m.keys.Unclear) {
				kind = api.FeedbackUnclear
			}
			name := lastMedication(sess.History())
			if name == "" {
				m.notice = "Look up a medication first to leave feedback."
				m.warn = true
				return m, nil
			}
			return m, m.feedback(name, kind)

		case key.Matches(msg, m.keys.Submit):
			// Input is disabled while a request is in flight. inFlight covers
			// the gap before the command reaches the session.
			if m.inFlight || sess.IsLoading() {
				return m, nil
			}
			intent := orchestrator.Intent{Mode: m.mode, Text: m.input.Value(), Level: m.level}
			if m.mode == session.ModeInteractions {
				sess.SetDraft(intent.Text)
			}
			m.input.Reset()
			m.notice = ""
			m.inFlight = true
			return m, tea.Batch(m.dispatch(intent), m.spinner.Tick)
		}

	case dispatchDoneMsg:
		m.inFlight = false
		m.refresh()
		return m, nil

	case feedbackDoneMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			m.warn = true
		} else {
			m.notice = msg.ack
			m.warn = false
		}
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refresh()
		return m, nil
	}

	if !m.inFlight && !sess.IsLoading() {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		if m.mode == session.ModeInteractions {
			sess.SetDraft(m.input.Value())
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the chat view.
func (m ChatModel) View() string {
	snap := m.orch.Session().Snapshot()
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Medsplain"))
	b.WriteString("  ")
	b.WriteString(renderTabs(m.mode))
	b.WriteString("  ")
	b.WriteString(DimStyle.Render("Level: " + string(m.level)))
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")

	if snap.LastError != nil {
		b.WriteString(ErrorStyle.Render(snap.LastError.Title))
		if snap.LastError.ActionHint != "" {
			b.WriteString(DimStyle.Render(" · " + snap.LastError.ActionHint))
		}
		b.WriteString("\n")
	}

	if m.mode == session.ModeInteractions {
		b.WriteString(renderWorkingSet(snap.SelectedMedications))
		b.WriteString("\n")
	}

	if m.notice != "" {
		style := SuccessStyle
		if m.warn {
			style = WarningStyle
		}
		b.WriteString(style.Render(m.notice))
		b.WriteString("\n")
	}

	if snap.IsLoading || m.inFlight {
		b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), session.PendingText))
		b.WriteString("\n")
		b.WriteString(DimStyle.Render(m.input.View()))
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n\n")

	b.WriteString(DimStyle.Render(footer(m.mode)))

	return BoxStyle.Width(max(m.width-2, 20)).Render(b.String())
}

func (m ChatModel) dispatch(intent orchestrator.Intent) tea.Cmd {
	return func() tea.Msg {
		return dispatchDoneMsg{err: m.orch.Dispatch(m.ctx, intent)}
	}
}

func (m ChatModel) feedback(name, kind string) tea.Cmd {
	return func() tea.Msg {
		ack, err := m.orch.SubmitFeedback(m.ctx, name, kind)
		return feedbackDoneMsg{ack: ack, err: err}
	}
}

func (m *ChatModel) resize() {
	// header 2, gaps 2, error 1, working set 1, notice 1, input 2, footer 1, border 2
	vpHeight := m.height - 14
	if vpHeight < 5 {
		vpHeight = 5
	}
	vpWidth := m.width - 6
	if vpWidth < 20 {
		vpWidth = 20
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.input.Width = vpWidth - 4
}

func (m *ChatModel) refresh() {
	m.viewport.SetContent(formatHistory(m.orch.Session().History(), m.spinner.View()))
	m.viewport.GotoBottom()
}

// formatHistory formats the conversation for display in the viewport.
func formatHistory(history []session.ChatMessage, spin string) string {
	if len(history) == 0 {
		return DimStyle.Render(prompts.Welcome)
	}

	var b strings.Builder
	for i, msg := range history {
		if msg.Role == session.RoleUser {
			b.WriteString(userStyle.Render("You: "))
			b.WriteString(DimStyle.Render("[" + string(msg.Mode) + "] "))
			b.WriteString(msg.Content)
		} else {
			b.WriteString(assistantStyle.Render("Medsplain: "))
			switch msg.Status {
			case session.StatusPending:
				b.WriteString(DimStyle.Render(spin + " " + msg.Content))
			case session.StatusError:
				b.WriteString(ErrorStyle.Render(msg.Content))
			default:
				if msg.Variant == session.VariantPlain {
					b.WriteString(msg.Content)
				} else {
					b.WriteString("\n")
					b.WriteString(strings.TrimRight(report.FormatMessage(msg), "\n"))
				}
			}
		}

		if i < len(history)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func renderTabs(active session.Mode) string {
	labels := map[session.Mode]string{
		session.ModeAssistant:    "Assistant",
		session.ModeSearch:       "Lookup",
		session.ModeInteractions: "Interactions",
	}
	var tabs []string
	for _, mode := range session.Modes {
		style := InactiveTabStyle
		if mode == active {
			style = ActiveTabStyle
		}
		tabs = append(tabs, style.Render(labels[mode]))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func renderWorkingSet(meds []string) string {
	if len(meds) == 0 {
		return DimStyle.Render("No medications added. Type names separated by commas, or add them one at a time with ctrl+a.")
	}
	var chips []string
	for _, m := range meds {
		chips = append(chips, ChipStyle.Render(m))
	}
	return "Checking: " + lipgloss.JoinHorizontal(lipgloss.Top, chips...)
}

func nextMode(mode session.Mode) session.Mode {
	for i, m := range session.Modes {
		if m == mode {
			return session.Modes[(i+1)%len(session.Modes)]
		}
	}
	return session.ModeAssistant
}

func placeholder(mode session.Mode) string {
	switch mode {
	case session.ModeSearch:
		return "Medication name, e.g. ibuprofen"
	case session.ModeInteractions:
		return "Medications separated by commas, e.g. aspirin, warfarin"
	default:
		return "Ask a question about your medications"
	}
}

func footer(mode session.Mode) string {
	parts := []string{"Enter: Send", "Tab: Mode", "Ctrl+L: Level", "Ctrl+R: New chat"}
	if mode == session.ModeInteractions {
		parts = append(parts, "Ctrl+A: Add", "Ctrl+X: Clear")
	}
	parts = append(parts, "Ctrl+Y/N: Feedback", "Esc: Quit")
	return strings.Join(parts, " · ")
}

// lastMedication returns the name of the most recent medication shown.
func lastMedication(history []session.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if m := history[i]; m.Medication != nil {
			return m.Medication.GenericName
		}
	}
	return ""
}
