package api

import (
	"encoding/json"

	"SlackConnect/session"
	"SlackConnect/viewmodel"
)

type errorResponse struct {
	Error string `json:"error"`
	Retry string `json:"retry,omitempty"`
	State string `json:"state,omitempty"`
}

type directMessageRequest struct {
	TargetID string `json:"targetId"`
	Message  string `json:"message"`
	TeamID   string `json:"teamId"`
}

type scheduleRequest struct {
	TargetID string          `json:"targetId"`
	Message  string          `json:"message"`
	Time     json.RawMessage `json:"time"`
	TeamID   string          `json:"teamId"`
}

type deleteScheduleRequest struct {
	ScheduledMessageID string `json:"scheduled_message_id"`
	ChannelID          string `json:"channelId"`
}

type selectRecipientRequest struct {
	ID string `json:"id"`
}

// composeRequest sends now when ScheduledAt is empty. ScheduledAt is a
// datetime-local value interpreted in Timezone (UTC when empty).
type composeRequest struct {
	Message     string `json:"message"`
	ScheduledAt string `json:"scheduledAt"`
	Timezone    string `json:"timezone"`
}

type sessionView struct {
	State      session.State `json:"state"`
	TeamID     string        `json:"teamId,omitempty"`
	TeamName   string        `json:"teamName,omitempty"`
	LastError  string        `json:"lastError,omitempty"`
	InstallURL string        `json:"installUrl"`
}

func newSessionView(s *session.Session) sessionView {
	return sessionView{
		State:      s.State,
		TeamID:     s.TeamID,
		TeamName:   s.TeamName,
		LastError:  s.LastError,
		InstallURL: installPath,
	}
}

type dashboardView struct {
	Team       viewmodel.Team               `json:"team"`
	Recipients []viewmodel.Recipient        `json:"recipients"`
	Selected   *selectedView                `json:"selected"`
	Scheduled  []viewmodel.ScheduledMessage `json:"scheduled"`
	Sent       []viewmodel.SentMessage      `json:"sent"`
}

type selectedView struct {
	viewmodel.Recipient
	Label string `json:"label"`
}
