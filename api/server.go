package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"SlackConnect/backend"
	"SlackConnect/db"
	"SlackConnect/session"
	"SlackConnect/utils"
)

var log = utils.Log.New("pkg", "api")

// Backend is the subset of backend.Client the handlers call.
type Backend interface {
	Teams(ctx context.Context) (*backend.Response, error)
	Recipients(ctx context.Context, teamID string) (*backend.Response, error)
	Messages(ctx context.Context, q backend.MessagesQuery) (*backend.Response, error)
	Send(ctx context.Context, req backend.SendRequest) (*backend.Response, error)
	Schedule(ctx context.Context, req backend.ScheduleRequest) (*backend.Response, error)
	DeleteScheduled(ctx context.Context, req backend.DeleteRequest) (*backend.Response, error)
	ExchangeCode(ctx context.Context, code string) (*backend.Response, error)
	Validate(ctx context.Context, teamID string) (*backend.Response, error)
	InstallURL() string
}

// Registry records which teams are linked. db.Repository implements it.
type Registry interface {
	GetConnection(ctx context.Context, teamID string) (*db.TeamConnection, error)
	SaveConnection(ctx context.Context, teamID, teamName string) error
	MarkDisconnected(ctx context.Context, teamID string) error
	MarkValidated(ctx context.Context, teamID string, at time.Time) error
}

type Options struct {
	Backend  Backend
	Sessions session.Store
	// Registry is optional.
	Registry     Registry
	Sealer       *utils.Sealer
	SessionTTL   time.Duration
	SecureCookie bool
}

type Server struct {
	backend      Backend
	sessions     session.Store
	registry     Registry
	sealer       *utils.Sealer
	sessionTTL   time.Duration
	secureCookie bool
	dashboards   *dashboards
}

func NewServer(opts Options) *Server {
	return &Server{
		backend:      opts.Backend,
		sessions:     opts.Sessions,
		registry:     opts.Registry,
		sealer:       opts.Sealer,
		sessionTTL:   opts.SessionTTL,
		secureCookie: opts.SecureCookie,
		dashboards:   newDashboards(opts.SessionTTL),
	}
}

// Routes mounts every handler on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", HandleHealthCheck)

	r.Get(installPath, s.HandleSlackInstall)
	r.Get("/success", s.HandleSlackSuccess)

	r.Route("/api", func(r chi.Router) {
		r.Get("/teams", s.HandleTeams)
		r.Get("/recipient", s.HandleRecipients)
		r.Get("/messages", s.HandleMessages)
		r.Post("/direct-msg", s.HandleDirectMessage)
		r.Post("/schedule", s.HandleSchedule)
		r.Delete("/delete-schedule", s.HandleDeleteSchedule)

		r.Get("/slack/oauth/callback", s.HandleSlackOAuthCallback)
		r.Get("/slack/validate/{teamId}", s.HandleSlackValidate)

		r.Get("/session", s.HandleSession)
		r.Post("/logout", s.HandleLogout)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", s.HandleDashboard)
			r.Post("/select", s.HandleSelectRecipient)
			r.Post("/send", s.HandleDashboardSend)
			r.Delete("/scheduled/{id}", s.HandleCancelScheduled)
		})
	})
}

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("✅ SlackConnect is alive"))
}

// withRegistry runs fn against the registry, if any, detached from the
// request so a client disconnect does not lose the write.
func (s *Server) withRegistry(what, teamID string, fn func(ctx context.Context, reg Registry) error) {
	if s.registry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()
	if err := fn(ctx, s.registry); err != nil {
		log.Error("Registry update failed", "op", what, "team", teamID, "err", err)
	}
}
