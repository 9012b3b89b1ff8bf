package compasstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jkairys/bellbird/internal/session"
	"github.com/jkairys/bellbird/internal/utils"
)

const sessionCookieName = "ASP.NET_SessionId"

// Server is a fake Compass portal backed by httptest.
type Server struct {
	httpServer *httptest.Server

	username  string
	password  string
	userID    int
	configKey string
	events    []map[string]any
	user      map[string]any
	latency   time.Duration
	hideIDs   bool

	mu       sync.Mutex
	sessions map[string]bool
	requests atomic.Int64
}

// Option configures the fake upstream.
type Option func(*Server)

func WithCredentials(username, password string) Option {
	return func(s *Server) { s.username, s.password = username, password }
}

func WithUserID(id int) Option {
	return func(s *Server) { s.userID = id }
}

func WithConfigKey(key string) Option {
	return func(s *Server) { s.configKey = key }
}

func WithEvents(events []map[string]any) Option {
	return func(s *Server) { s.events = events }
}

func WithUser(user map[string]any) Option {
	return func(s *Server) { s.user = user }
}

// WithLatency delays every response, for driving timeout paths.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

// WithoutIdentifiers serves authenticated pages with the identifier
// script removed, simulating an upstream markup change.
func WithoutIdentifiers() Option {
	return func(s *Server) { s.hideIDs = true }
}

// New starts a fake Compass portal. Callers must Close it.
func New(opts ...Option) *Server {
	s := &Server{
		username:  "parent",
		password:  "hunter2",
		userID:    12345,
		configKey: "cfg-test-key",
		sessions:  map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.user == nil {
		s.user = map[string]any{
			"userId":        s.userID,
			"userFirstName": "Alex",
			"userLastName":  "Harper",
			"userFullName":  "Alex Harper",
		}
	}
	if s.events == nil {
		s.events = []map[string]any{
			{
				"id":                   "101",
				"longTitle":            "Year 3 Swimming Carnival",
				"longTitleWithoutTime": "Year 3 Swimming Carnival",
				"start":                "2026-02-10T09:00:00",
				"finish":               "2026-02-10T12:00:00",
				"allDay":               false,
				"subjectLongName":      "Sports",
				"locations":            []any{map[string]any{"name": "Aquatic Centre"}},
				"managers":             []any{map[string]any{"name": "PE Department"}},
				"rollMarked":           true,
				"description":          "Bring swimmers and a towel.",
			},
			{
				"id":                   "102",
				"longTitle":            "School Photos",
				"longTitleWithoutTime": "School Photos",
				"start":                "2026-02-12T00:00:00",
				"finish":               "2026-02-12T00:00:00",
				"allDay":               true,
				"subjectLongName":      "Event",
				"locations":            []any{map[string]any{"name": "School Hall"}},
				"managers":             []any{map[string]any{"name": "Front Office"}},
				"rollMarked":           false,
				"description":          "Full school uniform required.",
			},
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/login.aspx", s.handleLogin)
	mux.HandleFunc("/home.aspx", s.handleHome)
	mux.HandleFunc("/Services/Calendar.svc/GetCalendarEventsByUser", s.handleCalendar)
	mux.HandleFunc("/Services/User.svc/GetUserDetailsBlobByUserId", s.handleUser)

	s.httpServer = httptest.NewServer(s.observe(mux))
	return s
}

// URL returns the fake portal's base URL.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Close shuts the fake portal down.
func (s *Server) Close() {
	s.httpServer.Close()
}

// Requests reports how many requests reached the upstream.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// MintSession issues a valid session token directly, bypassing login.
func (s *Server) MintSession() session.Session {
	id := utils.RandomString(16)
	s.mu.Lock()
	s.sessions[id] = true
	s.mu.Unlock()
	return session.Session{Cookies: []session.Cookie{
		{Name: sessionCookieName, Value: id},
	}}
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		if s.latency > 0 {
			time.Sleep(s.latency)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.writeLoginPage(w)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	// The real portal rejects posts that do not echo its hidden
	// server-generated fields, so the fake does too.
	if r.PostFormValue("__VIEWSTATE") == "" {
		s.writeLoginPage(w)
		return
	}
	if r.PostFormValue("username") != s.username || r.PostFormValue("password") != s.password {
		// Failed logins re-render the form without issuing cookies.
		s.writeLoginPage(w)
		return
	}

	id := utils.RandomString(16)
	s.mu.Lock()
	s.sessions[id] = true
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: id, Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: "cpssid_" + s.configKey, Value: utils.RandomString(12), Path: "/"})
	http.Redirect(w, r, "/home.aspx", http.StatusFound)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(r) {
		s.writeLoginPage(w)
		return
	}
	if s.hideIDs {
		fmt.Fprint(w, `<html><body><h1>Dashboard</h1></body></html>`)
		return
	}
	fmt.Fprintf(w, `<html><head><script>
window.Compass = { organisationUserId: %d, schoolConfigKey: '%s' };
</script></head><body><h1>Dashboard</h1></body></html>`, s.userID, s.configKey)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	s.serveEnvelope(w, r, s.events)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	s.serveEnvelope(w, r, s.user)
}

func (s *Server) serveEnvelope(w http.ResponseWriter, r *http.Request, payload any) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authenticated(r) {
		http.Error(w, "session expired", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"d": payload})
}

func (s *Server) authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[cookie.Value]
}

func (s *Server) writeLoginPage(w http.ResponseWriter) {
	fmt.Fprint(w, `<html><body><form method="post" action="/login.aspx?sessionstate=disabled">
<input type="hidden" name="__VIEWSTATE" value="vs-fixture" />
<input type="hidden" name="__VIEWSTATEGENERATOR" value="gen-fixture" />
<input type="hidden" name="__EVENTVALIDATION" value="ev-fixture" />
<input type="text" name="username" value="" />
<input type="password" name="password" value="" />
</form></body></html>`)
}
