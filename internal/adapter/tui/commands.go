package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"storyweave/internal/domain"
)

const storyFetchTimeout = 15 * time.Second

// waitForState blocks on the store subscription channel and forwards the
// next snapshot into the update loop. Re-issued after every stateMsg.
func waitForState(states <-chan domain.SessionState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-states
		if !ok {
			return stateClosedMsg{}
		}
		return stateMsg(st)
	}
}

// loadStoryCmd fetches the finished story from the backend, caches it in
// the local library, and falls back to the cache when the backend fails.
func loadStoryCmd(service domain.StoryService, library domain.StoryStore, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storyFetchTimeout)
		defer cancel()

		story, err := service.GetStory(ctx, id)
		if err == nil {
			if library != nil {
				_ = library.Put(ctx, story) // cache is best effort
			}
			return storyLoadedMsg{Story: story}
		}
		if library != nil {
			if cached, cacheErr := library.Get(ctx, id); cacheErr == nil {
				return storyLoadedMsg{Story: cached}
			}
		}
		return storyLoadedMsg{Err: err}
	}
}

// resetTickCmd fires a resetTickMsg after the terminal-phase linger delay.
func resetTickCmd(delay time.Duration, gen int) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return resetTickMsg{Gen: gen}
	})
}
