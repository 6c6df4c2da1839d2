package tui

import "storyweave/internal/domain"

// stateMsg carries a session state snapshot pushed by the store watcher.
type stateMsg domain.SessionState

// stateClosedMsg signals that the store subscription channel was closed.
type stateClosedMsg struct{}

// navigateMsg is a navigation request from the generation coordinator,
// e.g. "/story/st_42".
type navigateMsg string

// storyLoadedMsg delivers the result of fetching a finished story.
type storyLoadedMsg struct {
	Story *domain.Story
	Err   error
}

// resetTickMsg fires after the terminal-phase linger delay. Gen guards
// against a stale tick resetting a newer generation run.
type resetTickMsg struct {
	Gen int
}

// quitMsg signals the program to exit.
type quitMsg struct{}
