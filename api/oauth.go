package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"SlackConnect/backend"
	"SlackConnect/session"
	"SlackConnect/viewmodel"
)

// HandleSlackInstall sends the browser to the backend's install flow.
func (s *Server) HandleSlackInstall(w http.ResponseWriter, r *http.Request) {
	redirect := s.backend.InstallURL()
	log.Info("Redirecting to Slack install", "url", redirect)
	http.Redirect(w, r, redirect, http.StatusFound)
}

// HandleSlackOAuthCallback proxies the identity exchange without touching
// the session.
func (s *Server) HandleSlackOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	resp, err := s.backend.ExchangeCode(r.Context(), code)
	if err != nil {
		upstreamFailure(w, r, err, errOAuthExchange)
		return
	}
	relay(w, resp)
}

func (s *Server) HandleSlackValidate(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamId")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "teamId is required")
		return
	}

	resp, err := s.backend.Validate(r.Context(), teamID)
	if err != nil {
		upstreamFailure(w, r, err, errValidateSession)
		return
	}
	relay(w, resp)
}

// HandleSlackSuccess is where the install flow lands. It drives the session
// through Connecting and on to Connected, or back to Disconnected with a
// retry link.
func (s *Server) HandleSlackSuccess(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		log.Warn("Missing authorization code in install redirect")
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "Missing authorization code",
			Retry: installPath,
			State: string(session.Disconnected),
		})
		return
	}

	ctx := r.Context()
	sess, err := s.currentSession(r)
	if err != nil {
		log.Error("Failed to load session", "err", err)
		writeError(w, http.StatusInternalServerError, errSaveSession)
		return
	}

	sess.BeginConnect()
	if err := s.sessions.Save(ctx, sess); err != nil {
		log.Error("Failed to save connecting session", "session", sess.ID, "err", err)
		writeError(w, http.StatusInternalServerError, errSaveSession)
		return
	}

	team, err := s.exchange(r, code)
	if err != nil {
		log.Error("Slack identity exchange failed", "session", sess.ID, "err", err)
		_ = sess.Fail(errOAuthExchange)
		if err := s.sessions.Save(ctx, sess); err != nil {
			log.Error("Failed to save failed session", "session", sess.ID, "err", err)
		}
		s.setSessionCookie(w, sess)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: errOAuthExchange,
			Retry: installPath,
			State: string(sess.State),
		})
		return
	}

	if err := sess.Complete(team.TeamID, team.TeamName); err != nil {
		log.Error("Session transition failed", "session", sess.ID, "err", err)
		writeError(w, http.StatusInternalServerError, errSaveSession)
		return
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		log.Error("Failed to save connected session", "session", sess.ID, "err", err)
		writeError(w, http.StatusInternalServerError, errSaveSession)
		return
	}
	s.withRegistry("save", team.TeamID, func(ctx context.Context, reg Registry) error {
		return reg.SaveConnection(ctx, team.TeamID, team.TeamName)
	})
	s.dashboards.drop(sess.ID)
	s.setSessionCookie(w, sess)

	log.Info("Slack workspace connected", "team", team.TeamID, "name", team.TeamName)
	http.Redirect(w, r, homePath, http.StatusFound)
}

var errNoTeamID = errors.New("exchange response carried no team id")

func (s *Server) exchange(r *http.Request, code string) (viewmodel.Team, error) {
	resp, err := s.backend.ExchangeCode(r.Context(), code)
	if err != nil {
		var ue *backend.UpstreamError
		if errors.As(err, &ue) {
			log.Error("Upstream exchange error", "upstream_status", ue.Status, "upstream_body", ue.Detail)
		}
		return viewmodel.Team{}, err
	}

	team, ok := viewmodel.Identity(resp.Body)
	if !ok {
		return viewmodel.Team{}, errNoTeamID
	}
	return team, nil
}
