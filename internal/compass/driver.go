package compass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jkairys/bellbird/internal/session"
)

const (
	loginPath    = "/login.aspx?sessionstate=disabled"
	homePath     = "/home.aspx"
	calendarPath = "/Services/Calendar.svc/GetCalendarEventsByUser?sessionstate=readonly&ExcludeNonRelevantPd=true"
	userPath     = "/Services/User.svc/GetUserDetailsBlobByUserId"

	dateLayout     = "2006-01-02"
	eventPageLimit = 100
)

type driverState int

const (
	stateUnauthenticated driverState = iota
	stateReady
	stateFailed
	stateClosed
)

// Driver owns exactly one live authenticated session against the
// upstream, backed by exactly one Browser. It is not safe for
// concurrent use: in the relay deployment each request constructs its
// own driver and closes it before responding.
//
// Lifecycle: NewDriver -> Login or LoadFromToken -> queries -> Close.
// Close must run on every exit path or the automation resource leaks.
type Driver struct {
	browser Browser
	baseURL string
	state   driverState
	ids     Identifiers
}

// NewDriver allocates a browser from the factory and returns a driver
// in the unauthenticated state. Callers must Close it.
func NewDriver(ctx context.Context, factory BrowserFactory, baseURL string) (*Driver, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	browser, err := factory.NewBrowser(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	return &Driver{browser: browser, baseURL: baseURL}, nil
}

// Login submits the upstream login form and, on success, extracts the
// session-scoped identifiers from the page the upstream lands on.
// Authentication failures are terminal for this driver.
func (d *Driver) Login(ctx context.Context, creds Credentials) error {
	if d.state == stateClosed {
		return ErrDriverClosed
	}

	// Fetch the form first: the upstream is an ASP.NET app and rejects
	// posts that do not echo its server-generated hidden fields.
	loginURL := d.baseURL + loginPath
	page, err := d.browser.Navigate(ctx, loginURL)
	if err != nil {
		d.state = stateFailed
		return classify("login", err)
	}

	form := extractFormFields(page.Body)
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)
	form.Set("__EVENTTARGET", "button1")

	page, err = d.browser.SubmitForm(ctx, loginURL, form)
	if err != nil {
		d.state = stateFailed
		return classify("login", err)
	}
	if page.Status >= http.StatusBadRequest {
		d.state = stateFailed
		return &AuthError{Status: page.Status, Message: "upstream rejected login"}
	}
	if len(d.browser.Cookies()) == 0 {
		d.state = stateFailed
		return &AuthError{Status: page.Status, Message: "no session cookies issued"}
	}

	// The upstream may canonicalize the host while redirecting; keep
	// the base URL it actually landed on.
	if origin := originOf(page.URL); origin != "" {
		d.baseURL = origin
	}

	d.ids = extractIdentifiers(page.Body)
	if !d.ids.Complete() {
		// Identifiers are not always on the landing page; one more
		// navigation usually finds them.
		if home, err := d.browser.Navigate(ctx, d.baseURL+homePath); err == nil {
			d.ids = extractIdentifiers(home.Body)
		}
	}

	d.state = stateReady
	return nil
}

// LoadFromToken adopts an externally supplied session instead of
// logging in, then performs one lightweight navigation to confirm the
// session works and to re-extract the identifiers, which are not
// recoverable from cookies. A session whose identifiers cannot be
// found stays usable, but identifier-bound operations will fail with
// ErrIncompleteSession.
func (d *Driver) LoadFromToken(ctx context.Context, sess session.Session) error {
	if d.state == stateClosed {
		return ErrDriverClosed
	}
	if sess.Empty() {
		return session.ErrNoSession
	}
	if err := d.browser.SetCookies(sess.Cookies); err != nil {
		return err
	}

	page, err := d.browser.Navigate(ctx, d.baseURL+homePath)
	if err != nil {
		d.state = stateFailed
		return classify("load session", err)
	}

	d.ids = extractIdentifiers(page.Body)
	d.state = stateReady
	return nil
}

// GetUserDetails fetches the profile of the session owner.
func (d *Driver) GetUserDetails(ctx context.Context) (RawUser, error) {
	if err := d.requireIdentifiers(); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"targetUserId": d.ids.UserID,
		"v":            "2",
	}
	body, err := d.browser.PostJSON(ctx, d.baseURL+userPath, payload)
	if err != nil {
		return nil, classify("get user details", err)
	}

	var user RawUser
	if err := decodeEnvelope(body, &user); err != nil {
		return nil, fmt.Errorf("get user details: %w", err)
	}
	return user, nil
}

// GetCalendarEvents fetches events between two calendar dates,
// inclusive. A zero end date means the same day as start. The driver
// returns exactly what one upstream query returns: no paging, no
// deduplication, no retries.
func (d *Driver) GetCalendarEvents(ctx context.Context, start, end time.Time) ([]RawEvent, error) {
	if err := d.requireIdentifiers(); err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = start
	}

	payload := map[string]any{
		"userId":     d.ids.UserID,
		"homePage":   true,
		"activityId": nil,
		"locationId": nil,
		"staffIds":   nil,
		"startDate":  start.Format(dateLayout),
		"endDate":    end.Format(dateLayout),
		"page":       1,
		"start":      0,
		"limit":      eventPageLimit,
	}
	body, err := d.browser.PostJSON(ctx, d.baseURL+calendarPath, payload)
	if err != nil {
		return nil, classify("get calendar events", err)
	}

	var events []RawEvent
	if err := decodeEnvelope(body, &events); err != nil {
		return nil, fmt.Errorf("get calendar events: %w", err)
	}
	return events, nil
}

// Session snapshots the live session for transport. Callers must take
// this before Close if they want to reuse the session.
func (d *Driver) Session() session.Session {
	return session.Session{
		Cookies:   d.browser.Cookies(),
		UserID:    d.ids.UserID,
		ConfigKey: d.ids.ConfigKey,
	}
}

// BaseURL returns the upstream base URL as observed after redirects.
func (d *Driver) BaseURL() string {
	return d.baseURL
}

// Close releases the automation resource. It is idempotent and must be
// invoked on every exit path, including error and cancellation paths.
func (d *Driver) Close() error {
	if d.state == stateClosed {
		return nil
	}
	d.state = stateClosed
	return d.browser.Close()
}

func (d *Driver) requireIdentifiers() error {
	switch d.state {
	case stateClosed:
		return ErrDriverClosed
	case stateReady:
	default:
		return ErrNotAuthenticated
	}
	if !d.ids.Complete() {
		return ErrIncompleteSession
	}
	return nil
}

// decodeEnvelope unwraps the upstream's `{"d": ...}` service envelope,
// tolerating bare payloads from instances that omit it.
func decodeEnvelope(body []byte, out any) error {
	var wrapped struct {
		D json.RawMessage `json:"d"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.D != nil {
		body = wrapped.D
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid upstream response: %w", err)
	}
	return nil
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
