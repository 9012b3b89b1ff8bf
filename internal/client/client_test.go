package client_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jkairys/bellbird/internal/client"
	"github.com/jkairys/bellbird/internal/compass"
	"github.com/jkairys/bellbird/internal/parser"
	"github.com/jkairys/bellbird/internal/relay/handler"
	"github.com/jkairys/bellbird/pkg/compasstest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveModeDefaultsToReal(t *testing.T) {
	t.Setenv("BELLBIRD_CLIENT_MODE", "")
	assert.Equal(t, client.ModeReal, client.ResolveMode(""))
}

func TestResolveModeFromEnvironment(t *testing.T) {
	t.Setenv("BELLBIRD_CLIENT_MODE", "mock")
	assert.Equal(t, client.ModeMock, client.ResolveMode(""))
}

func TestResolveModeExplicitBeatsEnvironment(t *testing.T) {
	t.Setenv("BELLBIRD_CLIENT_MODE", "mock")
	assert.Equal(t, client.ModeReal, client.ResolveMode(client.ModeReal))
}

func TestResolveModeUnknownValueFallsBackToReal(t *testing.T) {
	t.Setenv("BELLBIRD_CLIENT_MODE", "banana")
	assert.Equal(t, client.ModeReal, client.ResolveMode(""))
}

func TestNewRealModeRequiresRelayURL(t *testing.T) {
	_, err := client.New("https://x.edu", "user", "pass", client.Options{Mode: client.ModeReal})
	require.Error(t, err)
}

func TestMockLoginAlwaysSucceeds(t *testing.T) {
	c, err := client.New("https://x.edu", "user", "pass", client.Options{Mode: client.ModeMock})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.NoError(t, c.Login(context.Background()))
}

func TestMockRequiresLoginFirst(t *testing.T) {
	c, err := client.New("https://x.edu", "user", "pass", client.Options{Mode: client.ModeMock})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, getErr := c.GetCalendarEvents(context.Background(), time.Now(), time.Time{})
	assert.ErrorIs(t, getErr, compass.ErrNotAuthenticated)
}

func TestMockEventsAreReproducible(t *testing.T) {
	c, err := client.New("https://x.edu", "user", "pass", client.Options{Mode: client.ModeMock})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	require.NoError(t, c.Login(context.Background()))

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Single-day query returns a non-empty fixed set, identically on
	// every call.
	first, err := c.GetCalendarEvents(context.Background(), day, day)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := c.GetCalendarEvents(context.Background(), day, day)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMockEventsKeepTheQueriedCalendarDay(t *testing.T) {
	c, err := client.New("https://x.edu", "user", "pass", client.Options{Mode: client.ModeMock})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	require.NoError(t, c.Login(context.Background()))

	// Midnight in a non-UTC zone is still the queried calendar day.
	zone := time.FixedZone("AEST", 10*60*60)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, zone)

	events, err := c.GetCalendarEvents(context.Background(), day, day)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	for _, ev := range events {
		start, perr := time.Parse(time.RFC3339, ev["start"].(string))
		require.NoError(t, perr)
		assert.Equal(t, day.Day(), start.In(zone).Day())
		assert.Equal(t, day.Month(), start.In(zone).Month())
	}
}

func TestMockEventsRespectDateRange(t *testing.T) {
	c, err := client.New("https://x.edu", "user", "pass", client.Options{Mode: client.ModeMock})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	require.NoError(t, c.Login(context.Background()))

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	week, err := c.GetCalendarEvents(context.Background(), day, day.AddDate(0, 0, 7))
	require.NoError(t, err)
	fortnight, err := c.GetCalendarEvents(context.Background(), day, day.AddDate(0, 0, 14))
	require.NoError(t, err)

	assert.Greater(t, len(fortnight), len(week))
}

func TestMockPayloadsParseAsRealOnes(t *testing.T) {
	// The mock's whole point is that downstream consumers cannot tell
	// it apart from real data, so it must survive the same parser.
	c, err := client.New("https://x.edu", "user", "pass", client.Options{Mode: client.ModeMock})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	require.NoError(t, c.Login(context.Background()))

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	raw, err := c.GetCalendarEvents(context.Background(), day, day.AddDate(0, 0, 14))
	require.NoError(t, err)

	events, err := parser.Parse[compass.CalendarEvent](raw)
	require.NoError(t, err)
	assert.Len(t, events, len(raw))

	rawUser, err := c.GetUserDetails(context.Background())
	require.NoError(t, err)
	users, err := parser.Parse[compass.UserProfile]([]map[string]any{rawUser})
	require.NoError(t, err)
	assert.Equal(t, 12345, users[0].ID)
}

func TestRealClientAgainstRelay(t *testing.T) {
	upstream := compasstest.New(compasstest.WithUserID(67890))
	defer upstream.Close()

	gin.SetMode(gin.TestMode)
	factory := compass.NewHTTPFactory(5 * time.Second)
	router := gin.New()
	handler.New(factory, 10*time.Second).RegisterRoutes(router)
	relay := httptest.NewServer(router)
	defer relay.Close()

	c, err := client.New(upstream.URL(), "parent", "hunter2", client.Options{
		Mode:     client.ModeReal,
		RelayURL: relay.URL,
	})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Login(context.Background()))

	raw, err := c.GetCalendarEvents(context.Background(),
		time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, raw, 2)

	user, err := c.GetUserDetails(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 67890, user["userId"])

	// The relay holds nothing between requests.
	assert.EqualValues(t, 0, factory.Live())
}

func TestRealClientQueriesRequireLogin(t *testing.T) {
	c, err := client.New("https://x.edu", "user", "pass", client.Options{
		Mode:     client.ModeReal,
		RelayURL: "http://127.0.0.1:9",
	})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, getErr := c.GetUserDetails(context.Background())
	assert.ErrorIs(t, getErr, compass.ErrNotAuthenticated)
}

func TestRealClientSurfacesAuthError(t *testing.T) {
	upstream := compasstest.New()
	defer upstream.Close()

	gin.SetMode(gin.TestMode)
	factory := compass.NewHTTPFactory(5 * time.Second)
	router := gin.New()
	handler.New(factory, 10*time.Second).RegisterRoutes(router)
	relay := httptest.NewServer(router)
	defer relay.Close()

	c, err := client.New(upstream.URL(), "parent", "wrong-password", client.Options{
		Mode:     client.ModeReal,
		RelayURL: relay.URL,
	})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	loginErr := c.Login(context.Background())
	var authErr *compass.AuthError
	assert.ErrorAs(t, loginErr, &authErr)
}
