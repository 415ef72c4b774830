package api

import "time"

const (
	sessionCookieName = "slackconnect_session"
	installPath       = "/slack/install"
	homePath          = "/"

	maxRequestBody = 1 << 20

	registryTimeout = 5 * time.Second
)

// Fixed messages returned when the backend fails; upstream detail is logged only.
const (
	errFetchTeams       = "Failed to fetch teams"
	errFetchRecipients  = "Failed to fetch recipients"
	errFetchMessages    = "Failed to fetch messages"
	errSendMessage      = "Failed to send message"
	errScheduleMessage  = "Failed to schedule message"
	errDeleteScheduled  = "Failed to delete scheduled message"
	errOAuthExchange    = "Failed to connect Slack workspace"
	errValidateSession  = "Failed to validate session"
	errSaveSession      = "Failed to save session"
	errNotConnected     = "Slack workspace not connected"
	errUnknownRecipient = "Unknown recipient"
	errStaleSelection   = "Selection changed; response discarded"
	errComposeMissing   = "Please select a recipient and enter a message."
)
