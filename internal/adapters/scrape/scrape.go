// Package scrape fetches standings and weekly results from a
// Pro-Football-Reference style site.
package scrape

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gocolly/colly"

	"github.com/okian/survivor/internal/domain/model"
	"github.com/okian/survivor/pkg/logger"
	"github.com/okian/survivor/pkg/metrics"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/115.0.0.0 Safari/537.36"
	defaultTimeout = 30 * time.Second
	defaultDelay   = 3 * time.Second
)

// Scraper fetches pages with colly and parses them with goquery.
type Scraper struct {
	userAgent string
	timeout   time.Duration
	delay     time.Duration
	logger    logger.Logger
}

// New returns a scraper with browser-like defaults.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		userAgent: defaultUserAgent,
		timeout:   defaultTimeout,
		delay:     defaultDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("scrape")
	}
	return s
}

// collector builds a synchronous collector that hands every page to fn.
func (s *Scraper) collector(ctx context.Context, fn func(*colly.HTMLElement)) (*colly.Collector, *error) {
	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(s.timeout)

	var fetchErr error
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Cache-Control", "no-cache")
		s.logger.Debug(ctx, "visiting", logger.String("url", r.URL.String()))
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("%w: %s: status %d: %v", ErrFetch, r.Request.URL, r.StatusCode, err)
	})
	c.OnHTML("html", fn)
	return c, &fetchErr
}

// Standings fetches and parses the season standings page.
func (s *Scraper) Standings(ctx context.Context, url string) ([]Standing, error) {
	var rows []Standing
	c, fetchErr := s.collector(ctx, func(e *colly.HTMLElement) {
		rows = append(rows, ParseStandings(e.DOM)...)
	})
	if err := s.visit(ctx, c, url, fetchErr); err != nil {
		metrics.RecordScrapeRequest("standings", "error")
		return nil, err
	}
	if len(rows) == 0 {
		metrics.RecordScrapeRequest("standings", "empty")
		return nil, fmt.Errorf("%w from URL: %s", ErrNoRows, url)
	}
	metrics.RecordScrapeRequest("standings", "ok")
	s.logger.Info(ctx, "standings scraped", logger.String("url", url), logger.Int("teams", len(rows)))
	return rows, nil
}

// Results fetches weeks from..to of game results. Each week's page is
// prefix + week + ".htm". Pages are fetched sequentially with the
// configured delay between them.
func (s *Scraper) Results(ctx context.Context, prefix string, from, to int) ([]model.GameResult, error) {
	var all []model.GameResult
	for week := from; week <= to; week++ {
		if week > from && s.delay > 0 {
			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(s.delay):
			}
		}
		games, err := s.Week(ctx, prefix+strconv.Itoa(week)+".htm", week)
		if err != nil {
			return all, fmt.Errorf("week %d: %w", week, err)
		}
		all = append(all, games...)
	}
	return all, nil
}

// Week fetches and parses one week's results page.
func (s *Scraper) Week(ctx context.Context, url string, week int) ([]model.GameResult, error) {
	var games []model.GameResult
	c, fetchErr := s.collector(ctx, func(e *colly.HTMLElement) {
		games = append(games, ParseGames(week, e.DOM)...)
	})
	if err := s.visit(ctx, c, url, fetchErr); err != nil {
		metrics.RecordScrapeRequest("results", "error")
		return nil, err
	}
	metrics.RecordScrapeRequest("results", "ok")
	s.logger.Info(ctx, "results scraped", logger.Int("week", week), logger.Int("games", len(games)))
	return games, nil
}

func (s *Scraper) visit(ctx context.Context, c *colly.Collector, url string, fetchErr *error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.Visit(url)
	c.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if *fetchErr != nil {
		return *fetchErr
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}
	return nil
}
