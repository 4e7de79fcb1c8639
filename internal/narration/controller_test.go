package narration

import (
	"errors"
	"testing"
)

type fakeEngine struct {
	spoken   []Utterance
	pauses   int
	resumes  int
	cancels  int
	speakErr error
}

func (f *fakeEngine) Speak(u Utterance) error {
	if f.speakErr != nil {
		return f.speakErr
	}
	f.spoken = append(f.spoken, u)
	return nil
}
func (f *fakeEngine) Pause() error  { f.pauses++; return nil }
func (f *fakeEngine) Resume() error { f.resumes++; return nil }
func (f *fakeEngine) Cancel() error { f.cancels++; return nil }

func TestToggleCycle(t *testing.T) {
	eng := &fakeEngine{}
	c := NewController(eng)

	st, err := c.Toggle("once upon a time", "en", "en")
	if err != nil {
		t.Fatalf("Toggle from idle: %v", err)
	}
	if st != StateSpeaking {
		t.Fatalf("expected speaking, got %s", st)
	}

	st, err = c.Toggle("once upon a time", "en", "en")
	if err != nil || st != StatePaused {
		t.Fatalf("expected paused, got %s (err %v)", st, err)
	}

	st, err = c.Toggle("once upon a time", "en", "en")
	if err != nil || st != StateSpeaking {
		t.Fatalf("expected speaking after resume, got %s (err %v)", st, err)
	}

	if len(eng.spoken) != 1 {
		t.Errorf("pause/resume must not restart the utterance, got %d speaks", len(eng.spoken))
	}
	if eng.pauses != 1 || eng.resumes != 1 {
		t.Errorf("expected 1 pause and 1 resume, got %d/%d", eng.pauses, eng.resumes)
	}
}

func TestStopFromEveryState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Controller)
	}{
		{"idle", func(c *Controller) {}},
		{"speaking", func(c *Controller) { c.Toggle("text", "en", "en") }},
		{"paused", func(c *Controller) {
			c.Toggle("text", "en", "en")
			c.Toggle("text", "en", "en")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(&fakeEngine{})
			tt.setup(c)
			if err := c.Stop(); err != nil {
				t.Fatalf("Stop: %v", err)
			}
			if got := c.State(); got != StateIdle {
				t.Errorf("expected idle after stop, got %s", got)
			}
		})
	}
}

func TestStopWhileIdleSkipsEngine(t *testing.T) {
	eng := &fakeEngine{}
	c := NewController(eng)
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if eng.cancels != 0 {
		t.Errorf("idle stop must not touch the engine, got %d cancels", eng.cancels)
	}
}

func TestEmptyTextRejected(t *testing.T) {
	c := NewController(&fakeEngine{})
	if _, err := c.Toggle("   ", "en", "en"); !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
	if c.State() != StateIdle {
		t.Errorf("failed speak must leave the machine idle")
	}
}

func TestSpeakErrorKeepsIdle(t *testing.T) {
	eng := &fakeEngine{speakErr: errors.New("device gone")}
	c := NewController(eng)
	if _, err := c.Toggle("text", "en", "en"); err == nil {
		t.Fatal("expected engine error")
	}
	if c.State() != StateIdle {
		t.Errorf("expected idle after engine failure, got %s", c.State())
	}
}

func TestDeviceEventsLandOnIdle(t *testing.T) {
	for _, ev := range []string{EventEnded, EventError} {
		c := NewController(&fakeEngine{})
		c.Toggle("text", "en", "en")
		c.HandleEvent(ev)
		if got := c.State(); got != StateIdle {
			t.Errorf("event %q: expected idle, got %s", ev, got)
		}
	}
}

func TestVoiceRepickedPerUtterance(t *testing.T) {
	eng := &fakeEngine{}
	c := NewController(eng)
	c.SetVoices([]Voice{
		{ID: "v-en", Name: "English", Lang: "en-US"},
		{ID: "v-es", Name: "Spanish", Lang: "es-ES"},
	})

	c.Toggle("a story", "en", "en")
	c.Stop()
	c.Toggle("una historia", "es", "en")

	if len(eng.spoken) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(eng.spoken))
	}
	if eng.spoken[0].VoiceID != "v-en" {
		t.Errorf("source-language utterance picked %q, want v-en", eng.spoken[0].VoiceID)
	}
	if eng.spoken[1].VoiceID != "v-es" {
		t.Errorf("translated utterance picked %q, want v-es", eng.spoken[1].VoiceID)
	}
}

func TestLanguageMatchOverridesPreferredVoice(t *testing.T) {
	eng := &fakeEngine{}
	c := NewController(eng)
	c.SetVoices([]Voice{
		{ID: "v-en-a", Lang: "en-US"},
		{ID: "v-en-b", Lang: "en-GB"},
		{ID: "v-fr", Lang: "fr-FR"},
	})
	c.SetPreferredVoice("v-en-b")

	c.Toggle("a story", "en", "en")
	c.Stop()
	c.Toggle("une histoire", "fr", "en")

	if eng.spoken[0].VoiceID != "v-en-b" {
		t.Errorf("expected preferred voice for source language, got %q", eng.spoken[0].VoiceID)
	}
	if eng.spoken[1].VoiceID != "v-fr" {
		t.Errorf("expected language match to override preference, got %q", eng.spoken[1].VoiceID)
	}
}

func TestVoiceFallbacks(t *testing.T) {
	eng := &fakeEngine{}
	c := NewController(eng)
	c.SetVoices([]Voice{{ID: "v-en", Lang: "en-US"}})

	// No voice for the active language: fall back to source language.
	c.Toggle("texto", "es", "en")
	if eng.spoken[0].VoiceID != "v-en" {
		t.Errorf("expected source-language fallback, got %q", eng.spoken[0].VoiceID)
	}

	// Empty inventory: speak with the platform default.
	eng2 := &fakeEngine{}
	c2 := NewController(eng2)
	c2.Toggle("text", "en", "en")
	if eng2.spoken[0].VoiceID != "" {
		t.Errorf("expected empty voice id with no inventory, got %q", eng2.spoken[0].VoiceID)
	}
}

func TestSetRateClamped(t *testing.T) {
	eng := &fakeEngine{}
	c := NewController(eng)
	c.SetRate(9.0)
	c.Toggle("text", "en", "en")
	if got := eng.spoken[0].Rate; got != 2.0 {
		t.Errorf("expected rate clamped to 2.0, got %v", got)
	}
}
