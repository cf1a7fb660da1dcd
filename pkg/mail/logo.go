package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// LogoCID is the content id under which the fetched logo is embedded, and
// the name the templates reference it by.
const LogoCID = "logo.png"

const logoFetchTimeout = 10 * time.Second

// LogoFetcher downloads the company logo once per run so every message in
// a batch can embed the same bytes.
type LogoFetcher struct {
	client *resty.Client
	log    *zap.SugaredLogger

	cached []byte
	tried  bool
}

// NewLogoFetcher returns a fetcher with a bounded request timeout.
func NewLogoFetcher(log *zap.SugaredLogger) *LogoFetcher {
	return &LogoFetcher{
		client: resty.New().SetTimeout(logoFetchTimeout),
		log:    log,
	}
}

// Fetch downloads the logo at url, caching the result for the rest of the
// run. A failed download is remembered as "no logo" so a batch doesn't
// retry the fetch per recipient.
func (f *LogoFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, nil
	}
	if f.tried {
		return f.cached, nil
	}
	f.tried = true

	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download logo: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to download logo: status %s", resp.Status())
	}
	f.cached = resp.Body()
	f.log.Debugw("Logo downloaded", "url", url, "bytes", len(f.cached))
	return f.cached, nil
}
