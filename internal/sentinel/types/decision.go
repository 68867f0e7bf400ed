package types

import "time"

// Identity is a registry entry that may be authorised on one or more
// channels.
type Identity struct {
	IdentityID           string   `json:"identity_id"`
	DisplayName          string   `json:"display_name"`
	Email                string   `json:"email,omitempty"`
	AuthorizedPlates     []string `json:"authorized_plates,omitempty"`
	AuthorizedFaceLabels []string `json:"authorized_face_labels,omitempty"`
	Active               bool     `json:"active"`
}

// AccessDecision is a single entry of the access log.
//
// IdentityID and IdentityName are empty for unmatched detections.
// Confidence is nil for scanned codes.
type AccessDecision struct {
	ID            int64     `json:"id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Channel       Channel   `json:"channel"`
	DetectedValue string    `json:"detected_value"`
	IdentityID    string    `json:"identity_id,omitempty"`
	IdentityName  string    `json:"identity_name,omitempty"`
	Status        Status    `json:"status"`
	Confidence    *float64  `json:"confidence,omitempty"`
	FrameSeq      uint64    `json:"frame_seq,omitempty"`
	TraceID       string    `json:"trace_id,omitempty"`
}

func (d AccessDecision) Granted() bool { return d.Status == StatusGranted }

// Alert is a non-decision notification, currently only raised for faces
// that no classifier recognised.
type Alert struct {
	Timestamp time.Time `json:"timestamp"`
	Channel   Channel   `json:"channel"`
	Kind      string    `json:"kind"`
	Count     int       `json:"count"`
	FrameSeq  uint64    `json:"frame_seq"`
	TraceID   string    `json:"trace_id,omitempty"`
}

const AlertUnknownFace = "unknown_face"

// EventKind tags an Event published to live subscribers.
type EventKind string

const (
	EventDecision EventKind = "decision"
	EventAlert    EventKind = "alert"
)

// Event is what the live broadcast fan-out carries. Exactly one of
// Decision or Alert is set, matching Kind.
type Event struct {
	Kind     EventKind       `json:"kind"`
	Decision *AccessDecision `json:"decision,omitempty"`
	Alert    *Alert          `json:"alert,omitempty"`
}

func (e Event) Channel() Channel {
	switch {
	case e.Decision != nil:
		return e.Decision.Channel
	case e.Alert != nil:
		return e.Alert.Channel
	}
	return ""
}
