// Package client provides the capability interface consumers use to
// talk to the upstream, with two interchangeable implementations: a
// real one backed by the stateless relay service and a synthetic one
// that never touches the network. Everything downstream depends on the
// Client interface only; mode detection lives here and nowhere else.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jkairys/bellbird/internal/compass"
	"github.com/jkairys/bellbird/internal/config"
)

// Mode selects which Client implementation New returns.
type Mode string

const (
	ModeReal Mode = "real"
	ModeMock Mode = "mock"
)

// Client is the contract shared by the relay-backed client and the
// mock. Login establishes (or pretends to establish) a session; the
// query methods return raw upstream payloads for the parser.
type Client interface {
	Login(ctx context.Context) error
	GetUserDetails(ctx context.Context) (compass.RawUser, error)
	GetCalendarEvents(ctx context.Context, start, end time.Time) ([]compass.RawEvent, error)
	Close() error
}

// Options tune client construction. The zero value is a real client
// resolved from environment configuration.
type Options struct {
	// Mode overrides environment configuration when non-empty.
	Mode Mode

	// RelayURL is the address of the relay service. Required in real
	// mode, ignored in mock mode.
	RelayURL string
}

// New builds a Client for the given upstream and credentials. Mode
// resolution order: explicit option, then BELLBIRD_CLIENT_MODE, then
// real.
func New(baseURL, username, password string, opts Options) (Client, error) {
	switch ResolveMode(opts.Mode) {
	case ModeMock:
		return newMockClient(baseURL), nil
	default:
		return newRelayClient(opts.RelayURL, baseURL, compass.Credentials{
			Username: username,
			Password: password,
		})
	}
}

// ResolveMode applies the factory's resolution order. Unrecognized
// configured values fall back to real rather than guessing.
func ResolveMode(explicit Mode) Mode {
	if explicit != "" {
		return normalizeMode(string(explicit))
	}
	return normalizeMode(config.Load().ClientMode)
}

func normalizeMode(raw string) Mode {
	if strings.EqualFold(strings.TrimSpace(raw), string(ModeMock)) {
		return ModeMock
	}
	return ModeReal
}

func requireRelayURL(relayURL string) error {
	if strings.TrimSpace(relayURL) == "" {
		return fmt.Errorf("relay url is required in real mode")
	}
	return nil
}
