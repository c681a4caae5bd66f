package tracking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// FaviconResolver derives a favicon URL for a domain.
type FaviconResolver interface {
	Resolve(ctx context.Context, domain string) (string, error)
}

// ServiceFavicons builds favicon URLs from an icon-service template such as
// "https://www.google.com/s2/favicons?domain=%s&sz=64".
type ServiceFavicons struct {
	template string
	cache    *lru.Cache[string, string]
}

// NewServiceFavicons creates a resolver for template, memoizing up to
// cacheSize domains.
func NewServiceFavicons(template string, cacheSize int) (*ServiceFavicons, error) {
	if strings.Count(template, "%s") != 1 {
		return nil, fmt.Errorf("favicon template must contain exactly one %%s: %q", template)
	}
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create favicon cache: %w", err)
	}
	return &ServiceFavicons{template: template, cache: cache}, nil
}

// Resolve returns the favicon URL for domain.
func (f *ServiceFavicons) Resolve(ctx context.Context, domain string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if domain == "" {
		return "", errors.New("favicon: empty domain")
	}
	if cached, ok := f.cache.Get(domain); ok {
		return cached, nil
	}

	raw := fmt.Sprintf(f.template, url.QueryEscape(domain))
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("favicon url for %s: %w", domain, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("favicon url for %s is not absolute: %s", domain, raw)
	}

	f.cache.Add(domain, raw)
	return raw, nil
}
