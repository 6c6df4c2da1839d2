package usecase

import (
	"testing"
	"time"

	"storyweave/internal/domain"
)

func TestSessionStoreInitialState(t *testing.T) {
	store := NewSessionStore()
	st := store.Snapshot()
	if st.Phase != domain.PhaseIdle || st.IsStreaming {
		t.Errorf("initial state = %+v", st)
	}
}

func TestSessionStoreSubscribeNotifies(t *testing.T) {
	store := NewSessionStore()
	ch, unsubscribe := store.Subscribe()
	defer unsubscribe()

	store.BeginStreaming()

	select {
	case st := <-ch:
		if st.Phase != domain.PhaseConnecting || !st.IsStreaming {
			t.Errorf("notified state = %+v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification after mutation")
	}
}

func TestSessionStoreUnsubscribeClosesChannel(t *testing.T) {
	store := NewSessionStore()
	ch, unsubscribe := store.Subscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}

	// Mutations after unsubscribe must not panic.
	store.BeginStreaming()
}

func TestSessionStoreLaggingSubscriberDoesNotBlock(t *testing.T) {
	store := NewSessionStore()
	_, unsubscribe := store.Subscribe() // never drained
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for range watchBuffer * 3 {
			store.BeginStreaming()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mutations blocked on a lagging subscriber")
	}
}

func TestSessionStoreUnsubscribeRacesMutations(t *testing.T) {
	store := NewSessionStore()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 500 {
			store.BeginStreaming()
			store.Reset()
		}
	}()

	// Subscribe and unsubscribe while the mutator is running. A send
	// landing on a channel that unsubscribe just closed would panic.
	for range 200 {
		_, unsubscribe := store.Subscribe()
		unsubscribe()
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("mutator never finished")
	}
}

func TestSessionStoreReset(t *testing.T) {
	store := NewSessionStore()
	store.BeginStreaming()
	store.Fail("backend exploded")

	store.Reset()
	st := store.Snapshot()
	if st.Phase != domain.PhaseIdle || st.Message != "" || st.IsStreaming {
		t.Errorf("after reset: %+v", st)
	}
}

func TestSessionStoreFailValidation(t *testing.T) {
	store := NewSessionStore()
	store.FailValidation("a story prompt or an image is required")

	st := store.Snapshot()
	if st.Phase != domain.PhaseError {
		t.Errorf("phase = %s, want error", st.Phase)
	}
	if st.IsStreaming {
		t.Error("validation failure must not enter a streaming phase")
	}
}
