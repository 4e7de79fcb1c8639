package websocket

import (
	"github.com/google/uuid"

	"storyloom-backend/internal/models"
	"storyloom-backend/internal/narration"
)

// NarrationRelay is the playback device for one session: it forwards
// speak/pause/resume/cancel to the client's platform speech engine over the
// session's WebSocket. Delivery is fire-and-forget; a session with no open
// socket simply hears nothing, and the controller's state is corrected by
// the narration events the client reports once it reconnects.
type NarrationRelay struct {
	hub       *Hub
	sessionID uuid.UUID
}

func NewNarrationRelay(hub *Hub, sessionID uuid.UUID) *NarrationRelay {
	return &NarrationRelay{hub: hub, sessionID: sessionID}
}

var _ narration.Engine = (*NarrationRelay)(nil)

func (r *NarrationRelay) Speak(u narration.Utterance) error {
	r.send(models.NarrationCommand{
		Action:  "speak",
		Text:    u.Text,
		VoiceID: u.VoiceID,
		Rate:    u.Rate,
	})
	return nil
}

func (r *NarrationRelay) Pause() error {
	r.send(models.NarrationCommand{Action: "pause"})
	return nil
}

func (r *NarrationRelay) Resume() error {
	r.send(models.NarrationCommand{Action: "resume"})
	return nil
}

func (r *NarrationRelay) Cancel() error {
	r.send(models.NarrationCommand{Action: "cancel"})
	return nil
}

func (r *NarrationRelay) send(cmd models.NarrationCommand) {
	r.hub.SendToSession(r.sessionID, models.WSMessage{Type: "narration", Payload: cmd})
}
