package ipprovider

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// Provider is a single external "what is my IP" lookup service.
type Provider interface {
	GetCurrentIP(ctx context.Context) (string, error)
	GetProviderName() string
}

// ErrNoIPAvailable is returned when every configured provider failed or
// returned something that is not a valid IPv4 address.
var ErrNoIPAvailable = errors.New("no provider returned a valid IPv4 address")

// ParseIPv4 validates s as a dotted-quad IPv4 address and returns its
// canonical form. IPv6 addresses, 4-in-6 forms and strings with
// surrounding whitespace are rejected.
func ParseIPv4(s string) (string, error) {
	if s != strings.TrimSpace(s) {
		return "", fmt.Errorf("address %q has surrounding whitespace", s)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", s, err)
	}
	if !addr.Is4() {
		return "", fmt.Errorf("address %q is not IPv4", s)
	}
	return addr.String(), nil
}
