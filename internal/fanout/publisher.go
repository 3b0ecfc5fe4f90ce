package fanout

import "context"

// Publisher pushes an event to every client watching a room. Delivery is
// best effort with no acknowledgement or ordering guarantee.
type Publisher interface {
	Publish(ctx context.Context, room, event string, payload any) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

// SessionRoom is the room clients join to follow one live session.
func SessionRoom(sessionID string) string {
	return "session-" + sessionID
}

const EventEnrollmentUpdate = "enrollment-update"

// EnrollmentUpdate is the payload of EventEnrollmentUpdate.
type EnrollmentUpdate struct {
	SessionID       string `json:"sessionId"`
	EnrolledCount   int    `json:"enrolledCount"`
	MaxParticipants int    `json:"maxParticipants"`
	StudentName     string `json:"studentName"`
}
