package scrape

import (
	"time"

	"github.com/okian/survivor/pkg/logger"
)

// Option configures a Scraper.
type Option func(*Scraper)

// WithUserAgent overrides the browser-like default user agent.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithDelay waits between consecutive weekly result pages.
func WithDelay(d time.Duration) Option {
	return func(s *Scraper) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithLogger sets the scraper logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) {
		if l != nil {
			s.logger = l
		}
	}
}
