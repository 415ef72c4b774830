package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"SlackConnect/backend"
	"SlackConnect/db"
	"SlackConnect/session"
	"SlackConnect/utils"
)

const testKey = "0123456789abcdef0123456789abcdef"

type hit struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type fakeRegistry struct {
	mu           sync.Mutex
	saved        map[string]string
	connected    map[string]bool
	disconnected []string
	validated    []string
}

func (f *fakeRegistry) GetConnection(_ context.Context, teamID string) (*db.TeamConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	connected, ok := f.connected[teamID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &db.TeamConnection{TeamID: teamID, TeamName: f.saved[teamID], Connected: connected}, nil
}

func (f *fakeRegistry) setConnected(teamID string, connected bool) {
	if f.connected == nil {
		f.connected = map[string]bool{}
	}
	f.connected[teamID] = connected
}

func (f *fakeRegistry) SaveConnection(_ context.Context, teamID, teamName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[teamID] = teamName
	f.setConnected(teamID, true)
	return nil
}

func (f *fakeRegistry) MarkDisconnected(_ context.Context, teamID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, teamID)
	f.setConnected(teamID, false)
	return nil
}

func (f *fakeRegistry) MarkValidated(_ context.Context, teamID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validated = append(f.validated, teamID)
	return nil
}

type env struct {
	t        *testing.T
	srv      *Server
	router   http.Handler
	store    *session.MemoryStore
	sealer   *utils.Sealer
	registry *fakeRegistry
	upstream *httptest.Server

	mu   sync.Mutex
	hits []hit
}

// newEnv wires a Server to an httptest backend served by handler.
func newEnv(t *testing.T, handler http.HandlerFunc) *env {
	t.Helper()
	utils.Discard()

	e := &env{t: t, store: session.NewMemoryStore(time.Hour), registry: &fakeRegistry{}}
	e.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		e.mu.Lock()
		e.hits = append(e.hits, hit{r.Method, r.URL.Path, r.URL.RawQuery, string(b)})
		e.mu.Unlock()
		r.Body = io.NopCloser(strings.NewReader(string(b)))
		handler(w, r)
	}))
	t.Cleanup(e.upstream.Close)

	sealer, err := utils.NewSealer(testKey)
	require.NoError(t, err)
	e.sealer = sealer

	srv := NewServer(Options{
		Backend:    backend.NewClient(e.upstream.URL, time.Second),
		Sessions:   e.store,
		Registry:   e.registry,
		Sealer:     sealer,
		SessionTTL: time.Hour,
	})
	r := chi.NewRouter()
	srv.Routes(r)
	e.srv = srv
	e.router = r
	return e
}

func (e *env) do(method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) backendHits() []hit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]hit(nil), e.hits...)
}

func (e *env) hitsTo(path string) []hit {
	var out []hit
	for _, h := range e.backendHits() {
		if h.Path == path {
			out = append(out, h)
		}
	}
	return out
}

// connect stores a Connected session for team T1 and returns its cookie.
func (e *env) connect() *http.Cookie {
	e.t.Helper()
	sess := session.New()
	sess.BeginConnect()
	require.NoError(e.t, sess.Complete("T1", "Acme"))
	require.NoError(e.t, e.store.Save(context.Background(), sess))

	value, err := e.sealer.Encrypt(sess.ID)
	require.NoError(e.t, err)
	return &http.Cookie{Name: sessionCookieName, Value: value}
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}
