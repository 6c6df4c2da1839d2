package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"storyweave/internal/domain"
	"storyweave/internal/usecase"
)

// GenerationController is the coordinator surface the screen drives.
type GenerationController interface {
	StartGeneration(ctx context.Context, params domain.GenerationParams)
	CancelGeneration()
	IsGenerating() bool
}

type screen int

const (
	screenProgress screen = iota
	screenStory
)

// ModelDeps are dependencies injected into the generation screen.
type ModelDeps struct {
	Controller GenerationController
	Service    domain.StoryService
	Library    domain.StoryStore
	Store      *usecase.SessionStore
	States     <-chan domain.SessionState
	Logger     *slog.Logger
	ResetDelay time.Duration
	Params     domain.GenerationParams
}

// Model is the root Bubble Tea model for a generation run.
type Model struct {
	deps ModelDeps

	spinner  spinner.Model
	viewport viewport.Model

	state      domain.SessionState
	screen     screen
	story      *domain.Story
	loadErr    error
	loading    bool
	mdRenderer *glamour.TermRenderer

	resetGen int
	width    int
	height   int
	quitting bool
}

// NewModel creates the generation screen model.
func NewModel(deps ModelDeps) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorInfo)

	return Model{
		deps:    deps,
		spinner: s,
		state:   domain.NewSessionState(),
	}
}

// Init starts the spinner, the state watcher, and the generation job.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		waitForState(m.deps.States),
	}
	if m.deps.Params != (domain.GenerationParams{}) {
		params := m.deps.Params
		cmds = append(cmds, func() tea.Msg {
			m.deps.Controller.StartGeneration(context.Background(), params)
			return nil
		})
	}
	return tea.Batch(cmds...)
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 4
		if m.viewport.Height < 3 {
			m.viewport.Height = 3
		}
		m.mdRenderer = nil // re-render at the new width
		if m.story != nil {
			m.viewport.SetContent(m.renderStory())
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateMsg:
		return m.handleState(domain.SessionState(msg))

	case stateClosedMsg:
		return m, nil

	case navigateMsg:
		id := strings.TrimPrefix(string(msg), "/story/")
		if id == "" || id == string(msg) {
			return m, nil
		}
		m.loading = true
		return m, loadStoryCmd(m.deps.Service, m.deps.Library, id)

	case storyLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.loadErr = msg.Err
			return m, nil
		}
		m.story = msg.Story
		m.loadErr = nil
		m.screen = screenStory
		m.viewport.SetContent(m.renderStory())
		m.viewport.GotoTop()
		return m, nil

	case resetTickMsg:
		// Only reset if no newer run has started in the meantime.
		if msg.Gen == m.resetGen && m.state.Phase.Terminal() && !m.state.IsStreaming {
			m.deps.Store.Reset()
		}
		return m, nil

	case quitMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.screen == screenStory {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if m.deps.Controller.IsGenerating() {
			m.deps.Controller.CancelGeneration()
		}
		m.quitting = true
		return m, tea.Quit

	case "esc":
		if m.screen == screenStory {
			m.screen = screenProgress
			return m, nil
		}
		if m.deps.Controller.IsGenerating() {
			m.deps.Controller.CancelGeneration()
		}
		return m, nil
	}

	if m.screen == screenStory {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleState(st domain.SessionState) (tea.Model, tea.Cmd) {
	prev := m.state
	m.state = st

	cmds := []tea.Cmd{waitForState(m.deps.States)}

	// A fresh run invalidates any scheduled reset.
	if st.IsStreaming && !prev.IsStreaming {
		m.resetGen++
	}

	// Let terminal phases linger, then fall back to idle.
	if st.Phase.Terminal() && !prev.Phase.Terminal() && m.deps.ResetDelay > 0 {
		m.resetGen++
		cmds = append(cmds, resetTickCmd(m.deps.ResetDelay, m.resetGen))
	}

	return m, tea.Batch(cmds...)
}

// View renders the current screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "  Initializing..."
	}
	if m.screen == screenStory && m.story != nil {
		return m.storyView()
	}
	return m.progressView()
}

func (m Model) progressView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("storyweave"))
	b.WriteString("\n\n")

	switch m.state.Phase {
	case domain.PhaseIdle:
		b.WriteString(mutedStyle.Render("Ready."))

	case domain.PhaseConnecting:
		b.WriteString(m.spinner.View() + " " + phaseStyle.Render("Connecting..."))
		if m.state.Message != "" {
			b.WriteString("\n" + mutedStyle.Render(m.state.Message))
		}

	case domain.PhaseThinking:
		label := "Writing"
		if m.state.Turn > 0 {
			label = fmt.Sprintf("Writing (turn %d)", m.state.Turn)
		}
		b.WriteString(m.spinner.View() + " " + phaseStyle.Render(label))
		if m.state.ThinkingContent != "" {
			b.WriteString("\n\n" + mutedStyle.Render(truncate(m.state.ThinkingContent, 500)))
		}

	case domain.PhaseToolExecuting:
		b.WriteString(m.spinner.View() + " " + toolStyle.Render("Running "+m.state.CurrentTool))
		if m.state.Message != "" {
			b.WriteString("\n" + mutedStyle.Render(m.state.Message))
		}

	case domain.PhaseRevealing:
		b.WriteString(m.spinner.View() + " " + phaseStyle.Render("Preparing your story..."))
		if m.state.Result != nil && m.state.Result.Title != "" {
			b.WriteString("\n\n" + titleStyle.Render(m.state.Result.Title))
		}

	case domain.PhaseComplete:
		b.WriteString(doneStyle.Render("✓ Story complete"))
		if m.state.Result != nil && m.state.Result.Title != "" {
			b.WriteString("\n\n" + titleStyle.Render(m.state.Result.Title))
		}

	case domain.PhaseError:
		b.WriteString(errStyle.Render("✗ Generation failed"))
		if m.state.Message != "" {
			b.WriteString("\n" + mutedStyle.Render(m.state.Message))
		}
	}

	if m.loading {
		b.WriteString("\n\n" + m.spinner.View() + " " + mutedStyle.Render("Loading story..."))
	}
	if m.loadErr != nil {
		b.WriteString("\n\n" + errStyle.Render("Could not load story: "+m.loadErr.Error()))
	}

	b.WriteString("\n\n" + hintStyle.Render("esc cancel · q quit"))
	return b.String()
}

func (m Model) storyView() string {
	header := titleStyle.Render(m.story.Title)
	footer := hintStyle.Render("↑/↓ scroll · esc back · q quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, "", m.viewport.View(), footer)
}

func (m *Model) renderStory() string {
	width := m.width
	if width <= 0 || width > 100 {
		width = 100
	}
	if m.mdRenderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return m.story.Content
		}
		m.mdRenderer = r
	}
	rendered, err := m.mdRenderer.Render(m.story.Content)
	if err != nil {
		return m.story.Content
	}
	return rendered
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[len(runes)-max:])
}
