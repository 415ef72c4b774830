package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SlackConnect/backend"
	"SlackConnect/session"
	"SlackConnect/viewmodel"
)

const (
	teamsBody      = `{"teams":[{"teamId":"T0","teamName":"Other"},{"teamId":"T1","teamName":"Acme"}]}`
	recipientsBody = `{"channels":[{"id":"C1","name":"general"}],"users":[{"id":"U1","name":"joe"}]}`
)

// slackBackend answers the dashboard endpoints; messages replies per
// recipient id.
func slackBackend(messages map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/teams":
			reply(http.StatusOK, teamsBody)(w, r)
		case "/recipient":
			reply(http.StatusOK, recipientsBody)(w, r)
		case "/messages":
			body, ok := messages[r.URL.Query().Get("id")]
			if !ok {
				body = `{}`
			}
			reply(http.StatusOK, body)(w, r)
		default:
			reply(http.StatusOK, `{"ok":true}`)(w, r)
		}
	}
}

func TestDashboardRequiresConnection(t *testing.T) {
	e := newEnv(t, slackBackend(nil))

	rec := e.do(http.MethodGet, "/api/dashboard", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/slack/install", decode[errorResponse](t, rec).Retry)
	assert.Empty(t, e.backendHits())
}

func TestDashboardLoad(t *testing.T) {
	e := newEnv(t, slackBackend(map[string]string{
		"C1": `{"scheduled":[{"scheduled_message_id":"Q1","id":"x","text":"standup","post_at":1690000000}],
		        "history":[{"ts":"1690000000.001200","message":"hello"}]}`,
	}))
	cookie := e.connect()

	rec := e.do(http.MethodGet, "/api/dashboard", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.JSONEq(t, `{
		"team": {"teamId":"T1","teamName":"Acme"},
		"recipients": [
			{"id":"C1","name":"general","kind":"channel"},
			{"id":"U1","name":"joe","kind":"user"}
		],
		"selected": {"id":"C1","name":"general","kind":"channel","label":"#general"},
		"scheduled": [{
			"id":"Q1","targetId":"C1","recipientName":"general","recipientKind":"channel",
			"body":"standup","scheduledAt":"2023-07-22T04:26:40.000Z","status":"pending"
		}],
		"sent": [{
			"id":"1690000000.001200","targetId":"C1","recipientName":"general","recipientKind":"channel",
			"body":"hello","sentAt":"2023-07-22T04:26:40.000Z"
		}]
	}`, rec.Body.String())

	msgs := e.hitsTo("/messages")
	require.Len(t, msgs, 1)
	assert.Equal(t, "id=C1&teamId=T1&type=channel", msgs[0].Query)
	assert.Equal(t, "teamId=T1", e.hitsTo("/recipient")[0].Query)

	// a second load is served from the cached dashboard
	rec = e.do(http.MethodGet, "/api/dashboard", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, e.hitsTo("/teams"), 1)

	rec = e.do(http.MethodGet, "/api/dashboard?refresh=1", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, e.hitsTo("/teams"), 2)
}

func TestDashboardDegradesOnUpstreamFailure(t *testing.T) {
	e := newEnv(t, reply(http.StatusInternalServerError, `{"error":"boom"}`))
	cookie := e.connect()

	rec := e.do(http.MethodGet, "/api/dashboard", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	view := decode[dashboardView](t, rec)
	assert.Equal(t, viewmodel.Team{TeamID: "T1", TeamName: "Acme"}, view.Team)
	assert.Empty(t, view.Recipients)
	assert.Nil(t, view.Selected)
	assert.Empty(t, view.Scheduled)
	assert.Empty(t, view.Sent)
}

func TestDashboardSelect(t *testing.T) {
	e := newEnv(t, slackBackend(map[string]string{
		"U1": `{"sent":[{"id":"S1","text":"dm"}]}`,
	}))
	cookie := e.connect()

	rec := e.do(http.MethodPost, "/api/dashboard/select", `{"id":"U1"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[dashboardView](t, rec)
	require.NotNil(t, view.Selected)
	assert.Equal(t, "@joe", view.Selected.Label)
	require.Len(t, view.Sent, 1)
	assert.Equal(t, viewmodel.KindUser, view.Sent[0].RecipientKind)

	msgs := e.hitsTo("/messages")
	assert.Equal(t, "id=U1&teamId=T1&type=user", msgs[len(msgs)-1].Query)

	rec = e.do(http.MethodPost, "/api/dashboard/select", `{"id":"nope"}`, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodPost, "/api/dashboard/select", `{}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardSelectDiscardsStaleResponse(t *testing.T) {
	var block atomic.Bool
	started := make(chan struct{})
	release := make(chan struct{})
	backendFn := slackBackend(map[string]string{
		"C1": `{"scheduled":[{"id":"old"}]}`,
		"U1": `{"scheduled":[{"id":"new"}]}`,
	})

	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/messages" && r.URL.Query().Get("id") == "C1" && block.Load() {
			close(started)
			<-release
		}
		backendFn(w, r)
	})
	cookie := e.connect()

	rec := e.do(http.MethodGet, "/api/dashboard", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	block.Store(true)

	var wg sync.WaitGroup
	var slow *httptest.ResponseRecorder
	wg.Add(1)
	go func() {
		defer wg.Done()
		slow = e.do(http.MethodPost, "/api/dashboard/select", `{"id":"C1"}`, cookie)
	}()
	<-started

	rec = e.do(http.MethodPost, "/api/dashboard/select", `{"id":"U1"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	close(release)
	wg.Wait()
	assert.Equal(t, http.StatusConflict, slow.Code)

	rec = e.do(http.MethodGet, "/api/dashboard", "", cookie)
	view := decode[dashboardView](t, rec)
	require.NotNil(t, view.Selected)
	assert.Equal(t, "U1", view.Selected.ID)
	require.Len(t, view.Scheduled, 1)
	assert.Equal(t, "new", view.Scheduled[0].ID)
}

func TestDashboardSend(t *testing.T) {
	t.Run("send now", func(t *testing.T) {
		e := newEnv(t, slackBackend(nil))
		cookie := e.connect()

		rec := e.do(http.MethodPost, "/api/dashboard/send", `{"message":"hi there"}`, cookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		sends := e.hitsTo("/send")
		require.Len(t, sends, 1)
		assert.JSONEq(t, `{"targetId":"C1","message":"hi there","teamId":"T1"}`, sends[0].Body)
		assert.Len(t, e.hitsTo("/messages"), 2, "messages are refetched after sending")
	})

	t.Run("schedule", func(t *testing.T) {
		e := newEnv(t, slackBackend(nil))
		cookie := e.connect()

		rec := e.do(http.MethodPost, "/api/dashboard/send", `{"message":"later","scheduledAt":"2023-07-22T09:56:40","timezone":"Asia/Kolkata"}`, cookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		scheduled := e.hitsTo("/schedule")
		require.Len(t, scheduled, 1)
		assert.JSONEq(t, `{"targetId":"C1","message":"later","time":1690000000,"teamId":"T1"}`, scheduled[0].Body)
	})

	t.Run("blank message", func(t *testing.T) {
		e := newEnv(t, slackBackend(nil))
		cookie := e.connect()

		rec := e.do(http.MethodPost, "/api/dashboard/send", `{"message":"   "}`, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errComposeMissing, decode[errorResponse](t, rec).Error)
		assert.Empty(t, e.backendHits())
	})

	t.Run("blank message without session", func(t *testing.T) {
		e := newEnv(t, slackBackend(nil))

		rec := e.do(http.MethodPost, "/api/dashboard/send", `{"message":""}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad schedule time", func(t *testing.T) {
		e := newEnv(t, slackBackend(nil))
		cookie := e.connect()

		rec := e.do(http.MethodPost, "/api/dashboard/send", `{"message":"x","scheduledAt":"soon"}`, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, e.hitsTo("/schedule"))
	})

	t.Run("upstream failure", func(t *testing.T) {
		e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/send" {
				reply(http.StatusBadGateway, `{"error":"channel_not_found"}`)(w, r)
				return
			}
			slackBackend(nil)(w, r)
		})
		cookie := e.connect()

		rec := e.do(http.MethodPost, "/api/dashboard/send", `{"message":"x"}`, cookie)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Failed to send message"}`, rec.Body.String())
	})
}

func TestDashboardCancelScheduled(t *testing.T) {
	e := newEnv(t, slackBackend(nil))
	cookie := e.connect()

	rec := e.do(http.MethodDelete, "/api/dashboard/scheduled/Q1", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	deletes := e.hitsTo("/delete")
	require.Len(t, deletes, 1)
	assert.Equal(t, http.MethodDelete, deletes[0].Method)
	assert.JSONEq(t, `{"scheduled_message_id":"Q1","channelId":"C1"}`, deletes[0].Body)
}

// gatedMessages holds the /messages call for C1 until release is closed.
type gatedMessages struct {
	Backend
	started chan struct{}
	release chan struct{}
}

func (g *gatedMessages) Messages(_ context.Context, q backend.MessagesQuery) (*backend.Response, error) {
	body := `{}`
	if q.ID == "C1" {
		close(g.started)
		<-g.release
		body = `{"scheduled":[{"id":"c1-msg"}]}`
	}
	return &backend.Response{Status: http.StatusOK, Body: []byte(body)}, nil
}

func TestRefreshDiscardedAfterReselect(t *testing.T) {
	b := &gatedMessages{started: make(chan struct{}), release: make(chan struct{})}
	d := &dashboard{recipients: []viewmodel.Recipient{
		{ID: "C1", Name: "general", Kind: viewmodel.KindChannel},
		{ID: "U1", Name: "joe", Kind: viewmodel.KindUser},
	}}

	ticket, ok := d.selectRecipient("C1")
	require.True(t, ok)
	errc := make(chan error, 1)
	go func() { errc <- d.refresh(context.Background(), b, ticket) }()
	<-b.started

	_, ok = d.selectRecipient("U1")
	require.True(t, ok)
	close(b.release)

	assert.ErrorIs(t, <-errc, session.ErrStale)
	view := d.view()
	require.NotNil(t, view.Selected)
	assert.Equal(t, "U1", view.Selected.ID)
	assert.Empty(t, view.Scheduled)
}

func TestRefreshWithStaleTicket(t *testing.T) {
	d := &dashboard{recipients: []viewmodel.Recipient{{ID: "C1", Name: "general"}}}
	stale, ok := d.selectRecipient("C1")
	require.True(t, ok)
	d.reserve()

	// no backend call is made for a ticket that is already stale
	assert.ErrorIs(t, d.refresh(context.Background(), nil, stale), session.ErrStale)
}

func TestExpiredSessionDropsDashboard(t *testing.T) {
	e := newEnv(t, slackBackend(nil))
	cookie := e.connect()

	rec := e.do(http.MethodGet, "/api/dashboard", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, e.srv.dashboards.len())

	id, err := e.sealer.Decrypt(cookie.Value)
	require.NoError(t, err)
	require.NoError(t, e.store.Delete(context.Background(), id))

	rec = e.do(http.MethodGet, "/api/dashboard", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, e.srv.dashboards.len())
}

func TestDashboardsSweepIdle(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ds := newDashboards(time.Hour)
	ds.now = func() time.Time { return now }

	ds.getOrCreate("idle")
	now = now.Add(30 * time.Minute)
	active := ds.getOrCreate("active")
	assert.Equal(t, 2, ds.len())

	now = now.Add(45 * time.Minute)
	assert.Same(t, active, ds.getOrCreate("active"))
	assert.Equal(t, 1, ds.len(), "the dashboard idle for 75m is swept")

	now = now.Add(10 * time.Second)
	ds.getOrCreate("fresh")
	assert.Equal(t, 2, ds.len())
}
