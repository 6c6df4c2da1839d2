package domain

import "testing"

func TestPhaseTerminal(t *testing.T) {
	terminal := []Phase{PhaseComplete, PhaseError}
	for _, p := range terminal {
		if !p.Terminal() {
			t.Errorf("%s should be terminal", p)
		}
	}

	active := []Phase{PhaseIdle, PhaseConnecting, PhaseThinking, PhaseToolExecuting, PhaseRevealing}
	for _, p := range active {
		if p.Terminal() {
			t.Errorf("%s should not be terminal", p)
		}
	}
}

func TestNewSessionState(t *testing.T) {
	s := NewSessionState()
	if s.Phase != PhaseIdle {
		t.Errorf("initial phase = %s, want idle", s.Phase)
	}
	if s.IsStreaming {
		t.Error("initial state should not be streaming")
	}
	if s.Result != nil {
		t.Error("initial state should have no result")
	}
}

func TestGenerationParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  GenerationParams
		wantErr bool
	}{
		{"prompt only", GenerationParams{Prompt: "a dragon who bakes"}, false},
		{"image only", GenerationParams{ImagePath: "/tmp/drawing.png"}, false},
		{"both", GenerationParams{Prompt: "p", ImagePath: "i.png"}, false},
		{"empty", GenerationParams{}, true},
		{"whitespace prompt", GenerationParams{Prompt: "   "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
