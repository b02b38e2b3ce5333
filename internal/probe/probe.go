// Package probe checks catalogue site reachability with a lightweight GET
// before a browser session is spent on it.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Probe performs a plain HTTP fetch of the catalogue landing page. It only
// answers "is the site up"; the rendered content still needs a browser.
type Probe struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Probe.
func New(cfg Config, logger *zap.Logger) *Probe {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []colly.CollectorOption{colly.Async(false)}
	if cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.UserAgent))
	}
	c := colly.NewCollector(opts...)
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(cfg.Timeout)

	return &Probe{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}
}

// Check fetches the URL and returns an error when the site does not answer
// with a usable status code.
func (p *Probe) Check(ctx context.Context, url string) error {
	collector := p.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(p.cfg.Timeout)

	var (
		status   int
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("probe canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("probe visit failed: %w", err)
		}
	}
	if fetchErr != nil {
		return fmt.Errorf("probe fetch failed (status %d): %w", status, fetchErr)
	}
	if status >= 400 {
		return fmt.Errorf("probe got status %d", status)
	}
	p.logger.Debug("probe ok", zap.String("url", url), zap.Int("status", status))
	return nil
}
