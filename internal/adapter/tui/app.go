package tui

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"storyweave/internal/domain"
	"storyweave/internal/usecase"
)

// Navigator is the coordinator surface for routing generation results
// to the screen. The concrete coordinator satisfies both this and
// GenerationController.
type Navigator interface {
	RegisterNavigate(fn func(path string))
}

// AppDeps are the collaborators the generation screen is wired to.
type AppDeps struct {
	Controller GenerationController
	Navigator  Navigator
	Service    domain.StoryService
	Library    domain.StoryStore
	Store      *usecase.SessionStore
	Logger     *slog.Logger
	ResetDelay time.Duration
}

// App owns the Bubble Tea program for a generation run.
type App struct {
	deps    AppDeps
	program *tea.Program
}

// NewApp creates the TUI application.
func NewApp(deps AppDeps) *App {
	return &App{deps: deps}
}

// Run starts the program, kicks off the generation job described by
// params, and blocks until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context, params domain.GenerationParams) error {
	states, unsubscribe := a.deps.Store.Subscribe()
	defer unsubscribe()

	model := NewModel(ModelDeps{
		Controller: a.deps.Controller,
		Service:    a.deps.Service,
		Library:    a.deps.Library,
		Store:      a.deps.Store,
		States:     states,
		Logger:     a.deps.Logger,
		ResetDelay: a.deps.ResetDelay,
		Params:     params,
	})

	a.program = tea.NewProgram(model, tea.WithAltScreen())

	// Route coordinator navigation into the update loop. Results that
	// arrived before this registration are delivered immediately, which
	// can happen before the event loop starts, so send asynchronously.
	a.deps.Navigator.RegisterNavigate(func(path string) {
		go a.program.Send(navigateMsg(path))
	})

	go func() {
		<-ctx.Done()
		if a.program != nil {
			a.program.Send(quitMsg{})
		}
	}()

	_, err := a.program.Run()
	return err
}
