package tracking

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUntrackable is returned for URLs that carry no trackable activity.
var ErrUntrackable = errors.New("tracking: url is not trackable")

// NormalizeDomain extracts the attribution key from a tab URL: the
// lowercased hostname without a leading "www.". Only http and https URLs
// are trackable.
func NormalizeDomain(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUntrackable, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", fmt.Errorf("%w: scheme %q", ErrUntrackable, u.Scheme)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", fmt.Errorf("%w: empty host", ErrUntrackable)
	}

	if trimmed := strings.TrimPrefix(host, "www."); trimmed != "" {
		host = trimmed
	}
	return host, nil
}
