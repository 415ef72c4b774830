package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"SlackConnect/backend"
	"SlackConnect/session"
	"SlackConnect/utils"
	"SlackConnect/viewmodel"
)

// sweepEvery bounds how often idle dashboards are looked for.
const sweepEvery = time.Minute

// dashboards holds one dashboard per session id. Entries unused for longer
// than idle are dropped, so sessions that simply expire do not pin theirs.
type dashboards struct {
	mu        sync.Mutex
	bySession map[string]*dashboard
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func newDashboards(idle time.Duration) *dashboards {
	return &dashboards{bySession: make(map[string]*dashboard), idle: idle, now: time.Now}
}

func (d *dashboards) getOrCreate(id string) *dashboard {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.sweep(now)
	dash, ok := d.bySession[id]
	if !ok {
		dash = &dashboard{}
		d.bySession[id] = dash
	}
	dash.lastUsed = now
	return dash
}

func (d *dashboards) drop(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bySession, id)
}

func (d *dashboards) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bySession)
}

// sweep must be called with d.mu held.
func (d *dashboards) sweep(now time.Time) {
	if d.idle <= 0 || now.Sub(d.lastSweep) < sweepEvery {
		return
	}
	d.lastSweep = now
	for id, dash := range d.bySession {
		if now.Sub(dash.lastUsed) > d.idle {
			delete(d.bySession, id)
		}
	}
}

// dashboard is the server-side view state of one browser session. Every
// change of selection and every refetch takes a ticket from seq; a fetch
// may only publish while its ticket is the latest, so a slow response for
// an earlier selection never overwrites a newer one.
type dashboard struct {
	mu  sync.Mutex
	seq session.Sequence

	// guarded by dashboards.mu
	lastUsed time.Time

	loaded      bool
	team        viewmodel.Team
	recipients  []viewmodel.Recipient
	selected    viewmodel.Recipient
	hasSelected bool
	scheduled   []viewmodel.ScheduledMessage
	sent        []viewmodel.SentMessage
}

func (d *dashboard) isLoaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

func (d *dashboard) view() dashboardView {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := dashboardView{
		Team:       d.team,
		Recipients: append([]viewmodel.Recipient{}, d.recipients...),
		Scheduled:  append([]viewmodel.ScheduledMessage{}, d.scheduled...),
		Sent:       append([]viewmodel.SentMessage{}, d.sent...),
	}
	if d.hasSelected {
		v.Selected = &selectedView{Recipient: d.selected, Label: d.selected.Label()}
	}
	return v
}

func (d *dashboard) selection() (viewmodel.Recipient, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected, d.hasSelected
}

func (d *dashboard) teamID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.team.TeamID
}

// selectRecipient changes the selection and returns the ticket the
// matching refresh must hold. Any fetch still running for the previous
// selection becomes stale.
func (d *dashboard) selectRecipient(id string) (uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := viewmodel.FindRecipient(d.recipients, id)
	if !ok {
		return 0, false
	}
	d.selected, d.hasSelected = r, true
	return d.seq.Next(), true
}

// reserve takes a ticket for refetching the current selection.
func (d *dashboard) reserve() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq.Next()
}

// refresh refetches messages for the current selection under ticket. It
// returns session.ErrStale when a newer ticket was issued meanwhile.
func (d *dashboard) refresh(ctx context.Context, b Backend, ticket uint64) error {
	d.mu.Lock()
	if !d.seq.Latest(ticket) {
		d.mu.Unlock()
		return session.ErrStale
	}
	r, ok := d.selected, d.hasSelected
	teamID := d.team.TeamID
	d.mu.Unlock()

	scheduled, sent := []viewmodel.ScheduledMessage{}, []viewmodel.SentMessage{}
	if ok {
		resp, err := b.Messages(ctx, backend.MessagesQuery{ID: r.ID, Type: r.Kind.String(), TeamID: teamID})
		if err != nil {
			logUpstream(errFetchMessages, err, "team", teamID, "recipient", r.ID)
		} else {
			scheduled, sent = viewmodel.Messages(resp.Body, r)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.seq.Latest(ticket) {
		return session.ErrStale
	}
	d.scheduled, d.sent = scheduled, sent
	return nil
}

// loadDashboard fetches team and recipients, selects the first recipient and
// refreshes its messages. Upstream failures degrade to empty collections.
func (s *Server) loadDashboard(ctx context.Context, d *dashboard, sess *session.Session) error {
	team := s.activeTeam(ctx, sess)

	recipients := []viewmodel.Recipient{}
	resp, err := s.backend.Recipients(ctx, team.TeamID)
	if err != nil {
		logUpstream(errFetchRecipients, err, "team", team.TeamID)
	} else {
		recipients = viewmodel.Recipients(resp.Body)
	}

	d.mu.Lock()
	d.loaded = true
	d.team = team
	d.recipients = recipients
	d.selected, d.hasSelected = viewmodel.DefaultRecipient(recipients)
	ticket := d.seq.Next()
	d.mu.Unlock()

	return d.refresh(ctx, s.backend, ticket)
}

// activeTeam prefers the session's team among /teams, then the first team
// listed, then the identity stored in the session.
func (s *Server) activeTeam(ctx context.Context, sess *session.Session) viewmodel.Team {
	fallback := viewmodel.Team{TeamID: sess.TeamID, TeamName: sess.TeamName}

	resp, err := s.backend.Teams(ctx)
	if err != nil {
		logUpstream(errFetchTeams, err, "team", sess.TeamID)
		return fallback
	}

	teams := viewmodel.Teams(resp.Body)
	for _, t := range teams {
		if t.TeamID == sess.TeamID {
			return t
		}
	}
	if t, ok := viewmodel.ActiveTeam(teams); ok {
		return t
	}
	return fallback
}

// openDashboard returns the caller's dashboard, loading it on first use.
func (s *Server) openDashboard(w http.ResponseWriter, r *http.Request, reload bool) (*dashboard, bool) {
	sess, ok := s.connectedSession(w, r)
	if !ok {
		return nil, false
	}
	return s.dashboardFor(r.Context(), sess, reload), true
}

func (s *Server) dashboardFor(ctx context.Context, sess *session.Session, reload bool) *dashboard {
	d := s.dashboards.getOrCreate(sess.ID)
	if reload || !d.isLoaded() {
		if err := s.loadDashboard(ctx, d, sess); err != nil && !errors.Is(err, session.ErrStale) {
			log.Error("Failed to load dashboard", "team", sess.TeamID, "err", err)
		}
	}
	return d
}

func (s *Server) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := s.openDashboard(w, r, r.URL.Query().Get("refresh") != "")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.view())
}

func (s *Server) HandleSelectRecipient(w http.ResponseWriter, r *http.Request) {
	var req selectRecipientRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := missingFields(field{"id", req.ID != ""}); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	d, ok := s.openDashboard(w, r, false)
	if !ok {
		return
	}
	ticket, found := d.selectRecipient(req.ID)
	if !found {
		writeError(w, http.StatusNotFound, errUnknownRecipient)
		return
	}

	if err := d.refresh(r.Context(), s.backend, ticket); errors.Is(err, session.ErrStale) {
		writeError(w, http.StatusConflict, errStaleSelection)
		return
	}
	writeJSON(w, http.StatusOK, d.view())
}

// HandleDashboardSend sends or schedules a message to the selected
// recipient, then refreshes its messages.
func (s *Server) HandleDashboardSend(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, ok := s.connectedSession(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, errComposeMissing)
		return
	}

	d := s.dashboardFor(r.Context(), sess, false)
	target, selected := d.selection()
	if !selected {
		writeError(w, http.StatusBadRequest, errComposeMissing)
		return
	}
	teamID := d.teamID()

	if req.ScheduledAt != "" {
		ts, err := utils.ScheduleTimestamp(req.ScheduledAt, req.Timezone)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		_, err = s.backend.Schedule(r.Context(), backend.ScheduleRequest{
			TargetID: target.ID,
			Message:  req.Message,
			Time:     json.RawMessage(strconv.FormatInt(ts, 10)),
			TeamID:   teamID,
		})
		if err != nil {
			upstreamFailure(w, r, err, errScheduleMessage)
			return
		}
		log.Info("Message scheduled", "team", teamID, "target", target.ID, "post_at", ts)
	} else {
		_, err := s.backend.Send(r.Context(), backend.SendRequest{
			TargetID: target.ID,
			Message:  req.Message,
			TeamID:   teamID,
		})
		if err != nil {
			upstreamFailure(w, r, err, errSendMessage)
			return
		}
		log.Info("Message sent", "team", teamID, "target", target.ID)
	}

	_ = d.refresh(r.Context(), s.backend, d.reserve())
	writeJSON(w, http.StatusOK, d.view())
}

func (s *Server) HandleCancelScheduled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "scheduled_message_id is required")
		return
	}

	d, ok := s.openDashboard(w, r, false)
	if !ok {
		return
	}
	target, selected := d.selection()
	if !selected {
		writeError(w, http.StatusBadRequest, errComposeMissing)
		return
	}

	_, err := s.backend.DeleteScheduled(r.Context(), backend.DeleteRequest{
		ScheduledMessageID: id,
		ChannelID:          target.ID,
	})
	if err != nil {
		upstreamFailure(w, r, err, errDeleteScheduled)
		return
	}

	_ = d.refresh(r.Context(), s.backend, d.reserve())
	writeJSON(w, http.StatusOK, d.view())
}
