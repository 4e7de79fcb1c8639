package narration

import (
	"errors"
	"strings"
	"sync"
)

// ErrNoText is returned when a speak request arrives with nothing to read.
var ErrNoText = errors.New("narration: no text to speak")

// Snapshot is the controller state exposed to session views.
type Snapshot struct {
	State          State   `json:"state"`
	PreferredVoice string  `json:"preferredVoice,omitempty"`
	Rate           float64 `json:"rate"`
}

// Controller owns the narration state machine. All methods are safe for
// concurrent use. The engine is called while the lock is held, so engine
// implementations must not call back into the controller.
type Controller struct {
	mu        sync.Mutex
	engine    Engine
	state     State
	voices    []Voice
	preferred string
	rate      float64
}

func NewController(engine Engine) *Controller {
	return &Controller{
		engine: engine,
		state:  StateIdle,
		rate:   1.0,
	}
}

// Toggle advances the machine the way a single play/pause control does:
// idle starts a new utterance, speaking pauses, paused resumes. The voice
// is re-picked on every start so a language switched between utterances
// takes effect without restarting playback state.
//
// lang is the active presentation language, sourceLang the language the
// text was authored in. They are equal when no translation is active.
func (c *Controller) Toggle(text, lang, sourceLang string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle:
		if strings.TrimSpace(text) == "" {
			return c.state, ErrNoText
		}
		u := Utterance{
			Text:    text,
			VoiceID: c.pickVoiceLocked(lang, sourceLang),
			Rate:    c.rate,
		}
		if err := c.engine.Speak(u); err != nil {
			return c.state, err
		}
		c.state = StateSpeaking
	case StateSpeaking:
		if err := c.engine.Pause(); err != nil {
			return c.state, err
		}
		c.state = StatePaused
	case StatePaused:
		if err := c.engine.Resume(); err != nil {
			return c.state, err
		}
		c.state = StateSpeaking
	}
	return c.state, nil
}

// Stop cancels any active utterance and returns to idle. Stopping while
// already idle is a no-op, not an error.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return nil
	}
	err := c.engine.Cancel()
	c.state = StateIdle
	return err
}

// ForceIdle resets the machine unconditionally, swallowing engine errors.
// Used when the surrounding content changes (new story, load, translation
// switch) and stale playback must not survive.
func (c *Controller) ForceIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		c.engine.Cancel()
	}
	c.state = StateIdle
}

// HandleEvent applies a playback report from the device. Natural end and
// device errors both land on idle; a started report for an utterance we
// already cancelled is ignored.
func (c *Controller) HandleEvent(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch event {
	case EventEnded, EventError:
		c.state = StateIdle
	case EventStarted:
		// Confirmation only. The transition already happened in Toggle.
	}
}

// SetVoices replaces the known voice inventory.
func (c *Controller) SetVoices(voices []Voice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voices = voices
}

// SetPreferredVoice records the user's explicit choice. It applies from
// the next utterance on.
func (c *Controller) SetPreferredVoice(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preferred = id
}

// SetRate clamps into the range the platform engines accept.
func (c *Controller) SetRate(rate float64) {
	if rate < 0.5 {
		rate = 0.5
	} else if rate > 2.0 {
		rate = 2.0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = rate
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{State: c.state, PreferredVoice: c.preferred, Rate: c.rate}
}

// pickVoiceLocked chooses the voice for the next utterance. The preferred
// voice wins by default, but when the presentation language differs from
// the source language a locale-matching voice overrides it, so translated
// text is not read with a source-language accent.
func (c *Controller) pickVoiceLocked(lang, sourceLang string) string {
	if lang != sourceLang {
		if id := c.firstMatchLocked(lang); id != "" {
			return id
		}
	}
	if c.preferred != "" {
		for _, v := range c.voices {
			if v.ID == c.preferred {
				return c.preferred
			}
		}
	}
	if id := c.firstMatchLocked(sourceLang); id != "" {
		return id
	}
	if len(c.voices) > 0 {
		return c.voices[0].ID
	}
	return ""
}

func (c *Controller) firstMatchLocked(lang string) string {
	if lang == "" {
		return ""
	}
	for _, v := range c.voices {
		if strings.HasPrefix(strings.ToLower(v.Lang), strings.ToLower(lang)) {
			return v.ID
		}
	}
	return ""
}
