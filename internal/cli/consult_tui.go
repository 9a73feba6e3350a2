package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/raphaelgruber/medconsult-go/internal/models"
	"github.com/raphaelgruber/medconsult-go/internal/session"
	"github.com/raphaelgruber/medconsult-go/internal/summary"
)

// maxVisibleMessages bounds how much of the log is drawn.
const maxVisibleMessages = 12

type phase int

const (
	phaseChat phase = iota
	phaseSummarizing
	phaseSummary
)

// stateChangedMsg signals that the session snapshot changed.
type stateChangedMsg struct{}

// sendResultMsg carries the outcome of a text submission.
type sendResultMsg struct {
	text string
	err  error
}

// recordResultMsg carries the outcome of a start/stop/retry recording action.
type recordResultMsg struct {
	err error
}

// endResultMsg carries the outcome of ending the session.
type endResultMsg struct {
	id  string
	err error
}

// summaryResultMsg carries the generated summary.
type summaryResultMsg struct {
	summary *models.Summary
	err     error
}

// consultModel is the bubbletea model for a consultation.
type consultModel struct {
	ctx       context.Context
	orch      *session.Orchestrator
	summaries *summary.Service

	input     textinput.Model
	spinner   spinner.Model
	theme     Theme
	width     int
	languages string

	state  session.State
	status string // last error, cleared by the next successful action

	phase          phase
	conversationID string
	summary        *models.Summary
	summaryErr     error
	quitting       bool
}

// newConsultModel creates the consultation model.
func newConsultModel(ctx context.Context, orch *session.Orchestrator, summaries *summary.Service, languages string) consultModel {
	in := textinput.New()
	in.Placeholder = "Type a message"
	in.CharLimit = 2000
	in.Focus()

	return consultModel{
		ctx:       ctx,
		orch:      orch,
		summaries: summaries,
		input:     in,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:     defaultTheme,
		languages: languages,
		state:     orch.Snapshot(),
	}
}

// Init starts the cursor blink and the activity spinner.
// The input is already focused; Focus here only yields the blink command.
func (m consultModel) Init() tea.Cmd {
	return tea.Batch(m.input.Focus(), m.spinner.Tick)
}

// Update handles messages and returns the updated model.
func (m consultModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(max(msg.Width-14, 20))
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == phaseChat {
			return m.updateChat(msg)
		}
		return m.updateSummary(msg)

	case stateChangedMsg:
		m.state = m.orch.Snapshot()
		return m, nil

	case sendResultMsg:
		if msg.err != nil {
			m.status = describeError(msg.err)
			// Keep the draft so the message can be resent.
			if m.input.Value() == "" {
				m.input.SetValue(msg.text)
				m.input.CursorEnd()
			}
			return m, nil
		}
		m.status = ""
		return m, nil

	case recordResultMsg:
		if msg.err != nil {
			m.status = describeError(msg.err)
			if m.orch.Snapshot().PendingAudio {
				m.status += " (ctrl+u to resend)"
			}
			return m, nil
		}
		m.status = ""
		return m, nil

	case endResultMsg:
		if msg.err != nil {
			m.status = describeError(msg.err)
			return m, nil
		}
		m.status = ""
		m.conversationID = msg.id
		m.phase = phaseSummarizing
		m.input.Blur()
		return m, m.generateSummary()

	case summaryResultMsg:
		m.phase = phaseSummary
		m.summary = msg.summary
		m.summaryErr = msg.err
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

func (m consultModel) updateChat(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.input.Reset()
		return m, m.sendText(text)

	case "tab":
		m.orch.ToggleRole()
		m.state = m.orch.Snapshot()
		return m, nil

	case "ctrl+r":
		if m.state.Recording {
			return m, m.stopRecording()
		}
		return m, m.startRecording()

	case "ctrl+u":
		return m, m.retryAudio()

	case "ctrl+e":
		return m, m.endSession()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m consultModel) updateSummary(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.phase != phaseSummary {
		return m, nil
	}
	switch msg.String() {
	case "r":
		if m.summaryErr != nil {
			m.phase = phaseSummarizing
			m.summaryErr = nil
			return m, m.generateSummary()
		}
	case "q", "esc", "enter":
		return m, tea.Quit
	}
	return m, nil
}

// Commands run in their own goroutines so Update never waits on the network.

func (m consultModel) sendText(text string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.orch.SendTextMessage(m.ctx, text)
		return sendResultMsg{text: text, err: err}
	}
}

func (m consultModel) startRecording() tea.Cmd {
	return func() tea.Msg {
		return recordResultMsg{err: m.orch.StartRecording(m.ctx)}
	}
}

func (m consultModel) stopRecording() tea.Cmd {
	return func() tea.Msg {
		_, err := m.orch.StopRecording(m.ctx)
		return recordResultMsg{err: err}
	}
}

func (m consultModel) retryAudio() tea.Cmd {
	return func() tea.Msg {
		_, err := m.orch.RetryAudioUpload(m.ctx)
		return recordResultMsg{err: err}
	}
}

func (m consultModel) endSession() tea.Cmd {
	return func() tea.Msg {
		id, err := m.orch.EndSession(m.ctx)
		return endResultMsg{id: id, err: err}
	}
}

func (m consultModel) generateSummary() tea.Cmd {
	id := m.conversationID
	return func() tea.Msg {
		s, err := m.summaries.Generate(m.ctx, id)
		return summaryResultMsg{summary: s, err: err}
	}
}

// View renders the consultation.
func (m consultModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m consultModel) renderContent() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch m.phase {
	case phaseSummarizing:
		fmt.Fprintf(&b, "\n%s %s\n", m.spinner.View(), m.theme.statusStyle().Render("Generating summary..."))
		return b.String()
	case phaseSummary:
		b.WriteString(m.renderSummary())
		return b.String()
	}

	b.WriteString(m.renderMessages())
	b.WriteString("\n")

	if m.state.Outstanding {
		fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), m.theme.statusStyle().Render("Translating..."))
	}
	if m.state.Recording {
		b.WriteString(m.theme.errorStyle().Render("● Recording") + m.theme.hintStyle().Render("  ctrl+r to stop and send") + "\n")
	}
	if m.status != "" {
		b.WriteString(m.theme.errorStyle().Render("✗ "+m.status) + "\n")
	}

	prompt := m.theme.roleStyle(m.state.Role).Render(m.state.Role.Label() + " ›")
	b.WriteString(prompt + " " + m.input.View() + "\n")
	b.WriteString(m.theme.hintStyle().Render("enter send · tab switch role · ctrl+r record · ctrl+e end · ctrl+c quit") + "\n")
	return b.String()
}

func (m consultModel) renderHeader() string {
	title := "New consultation"
	if m.state.HasConversation {
		title = "Consultation #" + models.ShortID(m.state.ConversationID, shortIDLen)
	}
	return m.theme.headerStyle().Render(title + "  " + m.theme.hintStyle().Render(m.languages))
}

func (m consultModel) renderMessages() string {
	msgs := m.state.Messages
	if len(msgs) == 0 {
		return m.theme.hintStyle().Render("No messages yet. The conversation starts with the first message.") + "\n"
	}
	if len(msgs) > maxVisibleMessages {
		msgs = msgs[len(msgs)-maxVisibleMessages:]
	}

	width := 0
	if m.width > 0 {
		width = min(m.width-4, 80)
	}
	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(renderBubble(m.theme, msg, width))
		b.WriteString("\n")
	}
	return b.String()
}

func (m consultModel) renderSummary() string {
	if m.summaryErr != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Summary failed: %s\n", m.summaryErr)) +
			m.theme.hintStyle().Render("r retry · q quit") + "\n"
	}
	var b strings.Builder
	b.WriteString(m.theme.completedStyle().Render("✓ Session ended") + "\n\n")
	if m.summary != nil {
		b.WriteString(m.summary.Text)
		b.WriteString("\n\n")
	}
	b.WriteString(m.theme.hintStyle().Render("q quit") + "\n")
	return b.String()
}

// runConsultTUI runs the interactive consultation until the user quits.
func runConsultTUI(ctx context.Context, deps session.Dependencies, summaries *summary.Service) error {
	changed := make(chan struct{}, 1)
	deps.OnChange = func(session.State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	orch := session.New(deps)
	defer orch.Close()

	languages := fmt.Sprintf("Doctor: %s · Patient: %s", deps.DoctorLanguage, deps.PatientLanguage)
	p := tea.NewProgram(newConsultModel(ctx, orch, summaries, languages), tea.WithContext(ctx))

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-changed:
				p.Send(stateChangedMsg{})
			case <-done:
				return
			}
		}
	}()

	finalModel, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("consultation UI error: %w", err)
	}

	if m, ok := finalModel.(consultModel); ok && m.phase == phaseSummary && m.summaryErr != nil {
		return fmt.Errorf("summary for %s (retry with 'medconsult summary %s'): %w",
			m.conversationID, m.conversationID, m.summaryErr)
	}
	return nil
}
