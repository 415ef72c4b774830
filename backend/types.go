package backend

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Response is a successful (2xx, valid JSON) backend reply, kept verbatim.
type Response struct {
	Status int
	Body   json.RawMessage
}

type SendRequest struct {
	TargetID string `json:"targetId"`
	Message  string `json:"message"`
	TeamID   string `json:"teamId"`
}

// ScheduleRequest carries Time as the caller sent it; the backend expects
// epoch seconds but the wire value is relayed untouched.
type ScheduleRequest struct {
	TargetID string          `json:"targetId"`
	Message  string          `json:"message"`
	Time     json.RawMessage `json:"time"`
	TeamID   string          `json:"teamId,omitempty"`
}

type DeleteRequest struct {
	ScheduledMessageID string `json:"scheduled_message_id"`
	ChannelID          string `json:"channelId"`
}

type MessagesQuery struct {
	ID     string
	Type   string
	TeamID string
}

// UpstreamError describes a failed backend call. Detail is for logs only.
type UpstreamError struct {
	Method string
	Path   string
	Status int
	Detail string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Detail)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Rejected reports whether err is the backend answering 4xx, as opposed to
// being unreachable or failing on its side.
func Rejected(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status >= 400 && ue.Status < 500
	}
	return false
}
