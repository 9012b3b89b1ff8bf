package compass_test

import (
	"context"
	"testing"
	"time"

	"github.com/jkairys/bellbird/internal/compass"
	"github.com/jkairys/bellbird/internal/session"
	"github.com/jkairys/bellbird/pkg/compasstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDriver(t *testing.T, upstream *compasstest.Server) (*compass.Driver, *compass.HTTPFactory) {
	t.Helper()
	factory := compass.NewHTTPFactory(5 * time.Second)
	driver, err := compass.NewDriver(context.Background(), factory, upstream.URL())
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	return driver, factory
}

func TestLoginSuccess(t *testing.T) {
	upstream := compasstest.New(
		compasstest.WithCredentials("parent", "hunter2"),
		compasstest.WithUserID(67890),
		compasstest.WithConfigKey("cfg-xyz"),
	)
	defer upstream.Close()

	driver, _ := newTestDriver(t, upstream)
	err := driver.Login(context.Background(), compass.Credentials{Username: "parent", Password: "hunter2"})
	require.NoError(t, err)

	sess := driver.Session()
	assert.False(t, sess.Empty())
	assert.Equal(t, 67890, sess.UserID)
	assert.Equal(t, "cfg-xyz", sess.ConfigKey)
	assert.Equal(t, upstream.URL(), driver.BaseURL())
}

func TestLoginBadCredentials(t *testing.T) {
	upstream := compasstest.New(compasstest.WithCredentials("parent", "hunter2"))
	defer upstream.Close()

	driver, _ := newTestDriver(t, upstream)
	err := driver.Login(context.Background(), compass.Credentials{Username: "parent", Password: "wrong"})

	var authErr *compass.AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestLoginTimeout(t *testing.T) {
	upstream := compasstest.New(compasstest.WithLatency(300 * time.Millisecond))
	defer upstream.Close()

	factory := compass.NewHTTPFactory(50 * time.Millisecond)
	driver, err := compass.NewDriver(context.Background(), factory, upstream.URL())
	require.NoError(t, err)
	defer func() { _ = driver.Close() }()

	err = driver.Login(context.Background(), compass.Credentials{Username: "parent", Password: "hunter2"})

	var timeoutErr *compass.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)

	var authErr *compass.AuthError
	assert.NotErrorAs(t, err, &authErr)
}

func TestLoadFromTokenAndQuery(t *testing.T) {
	upstream := compasstest.New()
	defer upstream.Close()

	driver, _ := newTestDriver(t, upstream)
	require.NoError(t, driver.LoadFromToken(context.Background(), upstream.MintSession()))

	events, err := driver.GetCalendarEvents(context.Background(),
		time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, events, 2)

	user, err := driver.GetUserDetails(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 12345, user["userId"])
}

func TestLoadFromTokenEmptySession(t *testing.T) {
	upstream := compasstest.New()
	defer upstream.Close()

	driver, _ := newTestDriver(t, upstream)
	err := driver.LoadFromToken(context.Background(), session.Session{})
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLoadFromTokenMissingIdentifiers(t *testing.T) {
	// A stale token navigates fine but lands on the login page, so no
	// identifiers can be extracted. The driver stays usable; only the
	// identifier-bound operations refuse to run.
	upstream := compasstest.New()
	defer upstream.Close()

	stale := session.Session{Cookies: []session.Cookie{
		{Name: "ASP.NET_SessionId", Value: "stale-session"},
	}}

	driver, _ := newTestDriver(t, upstream)
	require.NoError(t, driver.LoadFromToken(context.Background(), stale))

	_, err := driver.GetCalendarEvents(context.Background(), time.Now(), time.Time{})
	assert.ErrorIs(t, err, compass.ErrIncompleteSession)

	_, err = driver.GetUserDetails(context.Background())
	assert.ErrorIs(t, err, compass.ErrIncompleteSession)
}

func TestQueryBeforeAuthentication(t *testing.T) {
	upstream := compasstest.New()
	defer upstream.Close()

	driver, _ := newTestDriver(t, upstream)
	_, err := driver.GetCalendarEvents(context.Background(), time.Now(), time.Time{})
	assert.ErrorIs(t, err, compass.ErrNotAuthenticated)
}

func TestCloseIdempotentAndReleasesResource(t *testing.T) {
	upstream := compasstest.New()
	defer upstream.Close()

	driver, factory := newTestDriver(t, upstream)
	assert.EqualValues(t, 1, factory.Live())

	require.NoError(t, driver.Close())
	require.NoError(t, driver.Close())
	assert.EqualValues(t, 0, factory.Live())
}

func TestOperationsAfterClose(t *testing.T) {
	upstream := compasstest.New()
	defer upstream.Close()

	driver, _ := newTestDriver(t, upstream)
	require.NoError(t, driver.Close())

	assert.ErrorIs(t, driver.Login(context.Background(), compass.Credentials{}), compass.ErrDriverClosed)
	assert.ErrorIs(t, driver.LoadFromToken(context.Background(), session.Session{Cookies: []session.Cookie{{Name: "a", Value: "b"}}}), compass.ErrDriverClosed)

	_, err := driver.GetCalendarEvents(context.Background(), time.Now(), time.Time{})
	assert.ErrorIs(t, err, compass.ErrDriverClosed)
}

func TestMissingBaseURL(t *testing.T) {
	factory := compass.NewHTTPFactory(time.Second)
	_, err := compass.NewDriver(context.Background(), factory, "  ")
	assert.ErrorIs(t, err, compass.ErrMissingBaseURL)
	assert.EqualValues(t, 0, factory.Live())
}
