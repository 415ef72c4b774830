package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"SlackConnect/backend"
	"SlackConnect/db"
	"SlackConnect/session"
	"SlackConnect/viewmodel"
)

// currentSession resolves the cookie to a stored session. A missing,
// unreadable or expired cookie yields a fresh Disconnected session that is
// not yet persisted.
func (s *Server) currentSession(r *http.Request) (*session.Session, error) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return session.New(), nil
	}

	id, err := s.sealer.Decrypt(c.Value)
	if err != nil {
		log.Warn("Discarding unreadable session cookie", "err", err)
		return session.New(), nil
	}

	sess, err := s.sessions.Load(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		s.dashboards.drop(id)
		return session.New(), nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess *session.Session) {
	value, err := s.sealer.Encrypt(sess.ID)
	if err != nil {
		log.Error("Failed to seal session cookie", "err", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// forget clears every trace of sess: store, registry flag, cookie and the
// cached dashboard.
func (s *Server) forget(ctx context.Context, w http.ResponseWriter, sess *session.Session) {
	teamID := sess.TeamID
	sess.Disconnect()

	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		log.Error("Failed to delete session", "session", sess.ID, "err", err)
	}
	if teamID != "" {
		s.withRegistry("disconnect", teamID, func(ctx context.Context, reg Registry) error {
			return reg.MarkDisconnected(ctx, teamID)
		})
	}
	s.dashboards.drop(sess.ID)
	s.clearSessionCookie(w)
}

// HandleSession reports the connection state. A persisted Connected session
// is revalidated against the backend first.
func (s *Server) HandleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		log.Error("Failed to load session", "err", err)
		writeError(w, http.StatusInternalServerError, errValidateSession)
		return
	}

	if !sess.IsConnected() {
		writeJSON(w, http.StatusOK, newSessionView(sess))
		return
	}

	if s.registryDisconnected(r.Context(), sess.TeamID) {
		log.Info("Team disconnected in registry", "team", sess.TeamID)
		s.forget(r.Context(), w, sess)
		writeJSON(w, http.StatusOK, newSessionView(sess))
		return
	}

	valid, err := s.revalidate(r.Context(), sess.TeamID)
	if err != nil {
		upstreamFailure(w, r, err, errValidateSession)
		return
	}
	if !valid {
		log.Info("Persisted session no longer valid", "team", sess.TeamID)
		s.forget(r.Context(), w, sess)
		writeJSON(w, http.StatusOK, newSessionView(sess))
		return
	}

	teamID := sess.TeamID
	s.withRegistry("validated", teamID, func(ctx context.Context, reg Registry) error {
		return reg.MarkValidated(ctx, teamID, time.Now())
	})
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

// revalidate asks the backend whether teamID is still linked. A 4xx answer
// or an explicit rejection means invalid; transport failures and 5xx are
// returned as errors so the caller can keep the session and try later.
func (s *Server) revalidate(ctx context.Context, teamID string) (bool, error) {
	resp, err := s.backend.Validate(ctx, teamID)
	if backend.Rejected(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return viewmodel.Valid(resp.Body), nil
}

// registryDisconnected reports whether the registry holds teamID as no
// longer connected, e.g. after the revalidation job dropped it. Unknown
// teams and lookup failures defer to the backend.
func (s *Server) registryDisconnected(ctx context.Context, teamID string) bool {
	if s.registry == nil {
		return false
	}
	conn, err := s.registry.GetConnection(ctx, teamID)
	if errors.Is(err, db.ErrNotFound) {
		return false
	}
	if err != nil {
		log.Warn("Registry lookup failed", "team", teamID, "err", err)
		return false
	}
	return !conn.Connected
}

func (s *Server) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		log.Error("Failed to load session", "err", err)
		writeError(w, http.StatusInternalServerError, errSaveSession)
		return
	}

	if sess.TeamID != "" {
		log.Info("Logging out", "team", sess.TeamID)
	}
	s.forget(r.Context(), w, sess)
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

// connectedSession returns the caller's session or writes 401.
func (s *Server) connectedSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.currentSession(r)
	if err != nil {
		log.Error("Failed to load session", "err", err)
		writeError(w, http.StatusInternalServerError, errValidateSession)
		return nil, false
	}
	if !sess.IsConnected() {
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error: errNotConnected,
			Retry: installPath,
			State: string(sess.State),
		})
		return nil, false
	}
	return sess, true
}
