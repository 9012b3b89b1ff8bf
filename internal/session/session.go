package session

// Cookie is one named cookie issued by the upstream during login.
type Cookie struct {
	Name  string
	Value string
}

// Session represents one authenticated upstream session.
// Cookies are the transportable part; UserID and ConfigKey are
// session-scoped identifiers that only exist after they have been
// extracted from rendered page state. They are never recoverable
// from the cookies alone.
type Session struct {
	Cookies   []Cookie
	UserID    int
	ConfigKey string
}

// Empty reports whether the session carries no cookies.
// A session with zero cookies is never valid: absence of any
// cookie means "not authenticated".
func (s Session) Empty() bool {
	return len(s.Cookies) == 0
}
