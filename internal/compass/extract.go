package compass

import (
	"net/url"
	"regexp"
	"strconv"
)

// Identifier extraction is deliberately its own step, separate from any
// cookie handling. The identifiers live in page-global JavaScript state
// and upstream markup changes are the dominant source of breakage, so
// the patterns below are the only place that needs to track them.

var (
	userIDPattern    = regexp.MustCompile(`organisationUserId["']?\s*[:=]\s*(\d+)`)
	configKeyPattern = regexp.MustCompile(`schoolConfigKey["']?\s*[:=]\s*["']([^"']+)["']`)

	inputPattern     = regexp.MustCompile(`(?is)<input\b[^>]*>`)
	inputNamePattern = regexp.MustCompile(`(?i)name\s*=\s*["']([^"']+)["']`)
	inputValPattern  = regexp.MustCompile(`(?i)value\s*=\s*["']([^"']*)["']`)
)

// Identifiers are the session-scoped values embedded in rendered page
// state after login: the organisation user id and the school
// configuration cache key.
type Identifiers struct {
	UserID    int
	ConfigKey string
}

// Complete reports whether the identifiers needed by downstream
// operations are present. The config key is informational; the user id
// is what the calendar and user services key on.
func (i Identifiers) Complete() bool {
	return i.UserID > 0
}

// extractIdentifiers scans rendered page content for the session-scoped
// identifiers. Missing values stay zero; the caller decides whether
// that is fatal for the operation at hand.
func extractIdentifiers(html string) Identifiers {
	var ids Identifiers
	if m := userIDPattern.FindStringSubmatch(html); m != nil {
		ids.UserID, _ = strconv.Atoi(m[1])
	}
	if m := configKeyPattern.FindStringSubmatch(html); m != nil {
		ids.ConfigKey = m[1]
	}
	return ids
}

// extractFormFields pulls named inputs from an upstream login page so
// server-generated hidden fields (__VIEWSTATE and friends) can be
// posted back alongside the credentials.
func extractFormFields(html string) url.Values {
	fields := url.Values{}
	for _, input := range inputPattern.FindAllString(html, -1) {
		name := inputNamePattern.FindStringSubmatch(input)
		if name == nil {
			continue
		}
		value := ""
		if m := inputValPattern.FindStringSubmatch(input); m != nil {
			value = m[1]
		}
		fields.Set(name[1], value)
	}
	return fields
}
