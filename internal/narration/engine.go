// Package narration models text-to-speech playback as a three-state machine
// over an opaque playback device. The device (in production, the client's
// platform speech engine behind the WebSocket relay) only ever sees
// speak/pause/resume/cancel; all transition legality lives here.
package narration

// State of the single narration slot. Exactly one utterance may be active
// at a time.
type State string

const (
	StateIdle     State = "idle"
	StateSpeaking State = "speaking"
	StatePaused   State = "paused"
)

// Utterance is one narration request bound to a voice and rate.
type Utterance struct {
	Text    string
	VoiceID string
	Rate    float64
}

// Voice is one entry from the playback device's inventory. Inventories are
// reported asynchronously and may change after startup.
type Voice struct {
	ID   string
	Name string
	Lang string
}

// Engine is the playback device contract.
type Engine interface {
	Speak(u Utterance) error
	Pause() error
	Resume() error
	Cancel() error
}

// Event names reported back by the playback device.
const (
	EventStarted = "started"
	EventEnded   = "ended"
	EventError   = "error"
)
