package viewmodel

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusCancelled Status = "cancelled"
)

func parseStatus(s string) Status {
	switch st := Status(s); st {
	case StatusPending, StatusSent, StatusCancelled:
		return st
	}
	return StatusPending
}

type ScheduledMessage struct {
	ID            string  `json:"id"`
	TargetID      string  `json:"targetId"`
	RecipientName string  `json:"recipientName"`
	RecipientKind Kind    `json:"recipientKind"`
	Body          string  `json:"body"`
	ScheduledAt   Instant `json:"scheduledAt"`
	Status        Status  `json:"status"`
}

type SentMessage struct {
	ID            string  `json:"id"`
	TargetID      string  `json:"targetId"`
	RecipientName string  `json:"recipientName"`
	RecipientKind Kind    `json:"recipientKind"`
	Body          string  `json:"body"`
	SentAt        Instant `json:"sentAt"`
}

// scheduledSource lists every upstream spelling of a scheduled message.
// Fallback order: scheduled_message_id > id, text > message,
// post_at > scheduledTime.
type scheduledSource struct {
	ScheduledMessageID text  `json:"scheduled_message_id"`
	ID                 text  `json:"id"`
	Text               text  `json:"text"`
	Message            text  `json:"message"`
	PostAt             epoch `json:"post_at"`
	ScheduledTime      text  `json:"scheduledTime"`
	Status             text  `json:"status"`
}

func (s scheduledSource) toView(r Recipient) ScheduledMessage {
	at := textInstant(string(s.ScheduledTime))
	if s.PostAt != 0 {
		at = unixInstant(int64(s.PostAt))
	}
	return ScheduledMessage{
		ID:            firstOf(s.ScheduledMessageID, s.ID),
		TargetID:      r.ID,
		RecipientName: r.Name,
		RecipientKind: r.Kind,
		Body:          firstOf(s.Text, s.Message),
		ScheduledAt:   at,
		Status:        parseStatus(string(s.Status)),
	}
}

// sentSource lists every upstream spelling of a sent message.
// Fallback order: ts > id, text > message, seconds(ts) > sentTime.
type sentSource struct {
	TS       text `json:"ts"`
	ID       text `json:"id"`
	Text     text `json:"text"`
	Message  text `json:"message"`
	SentTime text `json:"sentTime"`
}

func (s sentSource) toView(r Recipient) SentMessage {
	at := textInstant(string(s.SentTime))
	if secs, ok := splitSeconds(string(s.TS)); ok {
		at = unixInstant(secs)
	}
	return SentMessage{
		ID:            firstOf(s.TS, s.ID),
		TargetID:      r.ID,
		RecipientName: r.Name,
		RecipientKind: r.Kind,
		Body:          firstOf(s.Text, s.Message),
		SentAt:        at,
	}
}

// Messages normalises a /messages payload for recipient r. The scheduled
// list comes from "scheduled"; the sent list from "history", else "sent".
// Both results are non-nil.
func Messages(raw []byte, r Recipient) ([]ScheduledMessage, []SentMessage) {
	scheduled := []ScheduledMessage{}
	for _, item := range objects(raw, "scheduled") {
		if src, ok := sourceFields[scheduledSource](item); ok {
			scheduled = append(scheduled, src.toView(r))
		}
	}

	sent := []SentMessage{}
	for _, item := range objects(raw, "history", "sent") {
		if src, ok := sourceFields[sentSource](item); ok {
			sent = append(sent, src.toView(r))
		}
	}
	return scheduled, sent
}
