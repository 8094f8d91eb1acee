package fetcher

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadledger/internal/model"
	"github.com/sells-group/leadledger/internal/resilience"
)

// Getter downloads a single document.
type Getter interface {
	Fetch(ctx context.Context, rawURL string) (*Document, error)
}

// Sources resolves named sheet sources (one per specialist plus the master
// feed) to parsed rows.
type Sources struct {
	urls     map[string]string
	getter   Getter
	timeout  time.Duration
	breakers *resilience.Breakers
}

// SourceOption configures Sources.
type SourceOption func(*Sources)

// WithBreakers guards each named source with its own circuit breaker, so a
// sheet that keeps failing is skipped until its reset timeout passes.
func WithBreakers(b *resilience.Breakers) SourceOption {
	return func(s *Sources) { s.breakers = b }
}

// NewSources creates a Sources. A zero timeout leaves the getter's own
// timeout in charge.
func NewSources(urls map[string]string, getter Getter, timeout time.Duration, opts ...SourceOption) *Sources {
	copied := make(map[string]string, len(urls))
	for k, v := range urls {
		if strings.TrimSpace(v) != "" {
			copied[k] = v
		}
	}
	s := &Sources{urls: copied, getter: getter, timeout: timeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the configured URL for name. Lookup is case-insensitive since
// viper lowercases map keys loaded from config files.
func (s *Sources) URL(name string) (string, bool) {
	if u, ok := s.urls[name]; ok {
		return u, true
	}
	for k, u := range s.urls {
		if strings.EqualFold(k, name) {
			return u, true
		}
	}
	return "", false
}

// Rows downloads the named source and parses it into header-keyed rows.
// Every failure is a *model.SourceError.
func (s *Sources) Rows(ctx context.Context, name string) ([]map[string]string, error) {
	rawURL, ok := s.URL(name)
	if !ok {
		return nil, &model.SourceError{Source: name, Err: errors.New("no url configured")}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	doc, err := s.fetch(ctx, strings.ToLower(name), rawURL)
	if err != nil {
		zap.L().Warn("sheet source unavailable",
			zap.String("source", name),
			zap.String("url", rawURL),
			zap.Error(err),
		)
		srcErr := &model.SourceError{Source: name, URL: rawURL, Err: err}
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			srcErr.StatusCode = statusErr.StatusCode
			srcErr.Err = nil
		}
		return nil, srcErr
	}

	if isXLSX(doc.URL, doc.ContentType) {
		_, rows, err := ParseXLSX(doc.Body, XLSXOptions{})
		if err != nil {
			return nil, &model.SourceError{Source: name, URL: rawURL, Err: err}
		}
		return rows, nil
	}
	return ParseCSV(string(doc.Body)), nil
}

func (s *Sources) fetch(ctx context.Context, name, rawURL string) (*Document, error) {
	if s.breakers == nil {
		return s.getter.Fetch(ctx, rawURL)
	}
	return resilience.ExecuteVal(ctx, s.breakers.Get(name), func(ctx context.Context) (*Document, error) {
		return s.getter.Fetch(ctx, rawURL)
	})
}
