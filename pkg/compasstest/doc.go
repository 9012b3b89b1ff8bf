// Package compasstest provides a fake Compass upstream for testing.
// It implements the subset of the portal the session driver touches,
// allowing tests to run without credentials or network access.
//
// # Supported Surface
//
//   - GET/POST /login.aspx: the ASP.NET login form; a successful post
//     issues session cookies and redirects to the home page
//   - GET /home.aspx: requires a valid session cookie and embeds the
//     session-scoped identifiers in page-global JavaScript state
//   - POST /Services/Calendar.svc/GetCalendarEventsByUser
//   - POST /Services/User.svc/GetUserDetailsBlobByUserId
//
// Service responses use the upstream's `{"d": ...}` envelope.
//
// # Basic Usage
//
//	server := compasstest.New(
//	    compasstest.WithCredentials("parent", "hunter2"),
//	    compasstest.WithUserID(12345),
//	)
//	defer server.Close()
//
//	factory := compass.NewHTTPFactory(5 * time.Second)
//	driver, err := compass.NewDriver(ctx, factory, server.URL())
//
// # Test Helpers
//
//   - MintSession issues a valid session token without a login round
//     trip, for exercising token-based entry directly
//   - Requests counts upstream hits, for asserting that defective
//     relay requests never reach the upstream
//   - WithLatency delays every response, for driving timeout paths
package compasstest
