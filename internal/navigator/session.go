// Package navigator drives a headless browser through a postcode's
// catalogue: postcode entry, autocomplete selection, category navigation and
// pagination. Per-page field extraction is delegated to the extractor.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
	"github.com/jmcallister/catalogue-scraper/internal/extractor"
	"github.com/jmcallister/catalogue-scraper/internal/metrics"
)

// Config controls session behavior and the wait/settle budgets of each step.
type Config struct {
	Headless            bool
	UserAgent           string
	NavTimeout          time.Duration
	PostcodeWait        time.Duration
	SuggestionWait      time.Duration
	NextControlWait     time.Duration
	CategorySettle      time.Duration
	ScrollSettle        time.Duration
	RenderSettle        time.Duration
	MaxPagesPerCategory int
	SnapshotPrefix      string
}

func (c Config) withDefaults() Config {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 45 * time.Second
	}
	if c.PostcodeWait <= 0 {
		c.PostcodeWait = 10 * time.Second
	}
	if c.SuggestionWait <= 0 {
		c.SuggestionWait = 5 * time.Second
	}
	if c.NextControlWait <= 0 {
		c.NextControlWait = 3 * time.Second
	}
	if c.CategorySettle <= 0 {
		c.CategorySettle = time.Second
	}
	if c.ScrollSettle <= 0 {
		c.ScrollSettle = 500 * time.Millisecond
	}
	if c.RenderSettle <= 0 {
		c.RenderSettle = 750 * time.Millisecond
	}
	if c.MaxPagesPerCategory <= 0 {
		c.MaxPagesPerCategory = 50
	}
	if c.SnapshotPrefix == "" {
		c.SnapshotPrefix = "snapshots"
	}
	return c
}

// Session owns one browser for the duration of one postcode job. It is not
// safe for concurrent use: navigation, extraction and pagination share the
// single browser tab and are strictly sequential.
type Session struct {
	cfg       Config
	sel       Selectors
	postcode  string
	extract   *extractor.Extractor
	snapshots catalogue.BlobStore
	hasher    catalogue.Hasher
	logger    *zap.Logger

	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// NewSession launches a fresh headless browser for the given postcode job.
// The caller must Close the session on every exit path.
func NewSession(
	ctx context.Context,
	postcode string,
	cfg Config,
	sel Selectors,
	extract *extractor.Extractor,
	snapshots catalogue.BlobStore,
	hasher catalogue.Hasher,
	logger *zap.Logger,
) (*Session, error) {
	cfg = cfg.withDefaults()
	if sel == (Selectors{}) {
		sel = DefaultSelectors()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:           cfg,
		sel:           sel,
		postcode:      postcode,
		extract:       extract,
		snapshots:     snapshots,
		hasher:        hasher,
		logger:        logger.With(zap.String("postcode", postcode)),
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}

	if err := chromedp.Run(browserCtx, s.networkSetupAction()); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser warmup: %w", err)
	}
	return s, nil
}

// Close tears down the browser and allocator contexts.
func (s *Session) Close() {
	s.browserCancel()
	s.allocCancel()
}

func (s *Session) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// run executes actions against the session tab under the given budget,
// honoring cancellation of the caller's context.
func (s *Session) run(ctx context.Context, budget time.Duration, actions ...chromedp.Action) error {
	taskCtx, cancel := context.WithTimeout(s.browserCtx, budget)
	defer cancel()

	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return err
	}
	return nil
}

// LandFirstPage navigates to the catalogue entry page. Failure here is fatal
// for the current postcode job and is propagated, not retried.
func (s *Session) LandFirstPage(ctx context.Context, url string) error {
	if err := s.run(ctx, s.cfg.NavTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("land first page: %w", err)
	}
	return nil
}

// EnterPostcode waits for the postcode input to become visible and submits
// the value. On failure a diagnostic snapshot is captured and the error is
// returned; the caller abandons this postcode's job.
func (s *Session) EnterPostcode(ctx context.Context, postcode string) error {
	if err := s.run(ctx, s.cfg.PostcodeWait,
		chromedp.WaitVisible(s.sel.PostcodeInput, chromedp.ByQuery),
		chromedp.Click(s.sel.PostcodeInput, chromedp.ByQuery),
		chromedp.SendKeys(s.sel.PostcodeInput, postcode, chromedp.ByQuery),
	); err != nil {
		s.captureSnapshot("enter-postcode")
		return fmt.Errorf("enter postcode: %w", err)
	}
	return nil
}

// SelectFirstPostcodeOption activates the first autocomplete suggestion.
func (s *Session) SelectFirstPostcodeOption(ctx context.Context) error {
	if err := s.run(ctx, s.cfg.SuggestionWait,
		chromedp.WaitVisible(s.sel.PostcodeSuggestion, chromedp.ByQuery),
		chromedp.Click(s.sel.PostcodeSuggestion, chromedp.ByQuery),
	); err != nil {
		s.captureSnapshot("select-postcode-option")
		return fmt.Errorf("select postcode option: %w", err)
	}
	return nil
}

// OpenCatalogue clicks through to the postcode's catalogue view.
func (s *Session) OpenCatalogue(ctx context.Context) error {
	if err := s.run(ctx, s.cfg.SuggestionWait,
		chromedp.WaitVisible(s.sel.ReadCatalogue, chromedp.ByQuery),
		chromedp.Click(s.sel.ReadCatalogue, chromedp.ByQuery),
	); err != nil {
		s.captureSnapshot("open-catalogue")
		return fmt.Errorf("open catalogue: %w", err)
	}
	return nil
}

// CategoryList reveals the category menu and returns the link labels in
// site order. The menu only exposes its links after a hover, so a synthetic
// mouseover is dispatched first. Any failure yields an empty list: no
// categories to process is a valid, if degenerate, outcome.
func (s *Session) CategoryList(ctx context.Context) []string {
	if err := s.revealCategoryMenu(ctx); err != nil {
		s.logger.Warn("category menu reveal failed", zap.Error(err))
		return nil
	}
	var names []string
	if err := s.run(ctx, s.cfg.SuggestionWait,
		chromedp.WaitReady(s.sel.CategoryLinks, chromedp.ByQuery),
		chromedp.Evaluate(s.collectCategoriesJS(), &names),
	); err != nil {
		s.logger.Warn("category list read failed", zap.Error(err))
		return nil
	}
	return names
}

// OpenCategory re-reveals the menu and clicks the link whose label exactly
// equals name. Returns false when the link cannot be found or clicked; the
// caller must not assume the category is open.
func (s *Session) OpenCategory(ctx context.Context, name string) bool {
	if err := s.revealCategoryMenu(ctx); err != nil {
		s.logger.Warn("category menu reveal failed",
			zap.String("category", name), zap.Error(err))
		return false
	}
	var clicked bool
	if err := s.run(ctx, s.cfg.SuggestionWait,
		chromedp.WaitVisible(s.sel.CategoryLinks, chromedp.ByQuery),
		chromedp.Evaluate(s.clickCategoryJS(name), &clicked),
	); err != nil {
		s.logger.Warn("category open failed",
			zap.String("category", name), zap.Error(err))
		return false
	}
	if !clicked {
		s.logger.Warn("category link not found", zap.String("category", name))
		return false
	}
	// Fixed settle: the category page swaps content in place with no
	// reliable readiness signal. Known flake risk under slow rendering.
	if err := s.run(ctx, s.cfg.NavTimeout, chromedp.Sleep(s.cfg.CategorySettle)); err != nil {
		s.logger.Warn("category settle interrupted",
			zap.String("category", name), zap.Error(err))
		return false
	}
	return true
}

// AdvanceToNextPage looks for the next-page control. Absence of the control
// within the wait budget is the normal pagination-termination signal and
// returns (false, nil). A control that is present but cannot be clicked is a
// real error.
func (s *Session) AdvanceToNextPage(ctx context.Context) (bool, error) {
	err := s.run(ctx, s.cfg.NextControlWait,
		chromedp.WaitVisible(s.sel.NextPage, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("advance to next page: %w", ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return false, nil
		}
		return false, fmt.Errorf("locate next page control: %w", err)
	}

	if err := s.run(ctx, s.cfg.NavTimeout,
		chromedp.ScrollIntoView(s.sel.NextPage, chromedp.ByQuery),
		chromedp.Sleep(s.cfg.ScrollSettle),
		chromedp.Click(s.sel.NextPage, chromedp.ByQuery),
		chromedp.Sleep(s.cfg.RenderSettle),
	); err != nil {
		return false, fmt.Errorf("click next page: %w", err)
	}
	return true, nil
}

// PageHTML snapshots the rendered DOM of the current page.
func (s *Session) PageHTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.cfg.NavTimeout,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

// ExtractCategory walks every page of the currently open category,
// extracting records and paginating until the next control disappears or the
// page ceiling is hit. Partial results survive mid-pagination failures.
func (s *Session) ExtractCategory(ctx context.Context, name string) catalogue.CategoryResult {
	logger := s.logger.With(zap.String("category", name))
	return extractPages(ctx, s, s.extract.Extract, s.cfg.MaxPagesPerCategory, logger)
}

func (s *Session) revealCategoryMenu(ctx context.Context) error {
	var revealed bool
	if err := s.run(ctx, s.cfg.SuggestionWait,
		chromedp.WaitVisible(s.sel.CategoryMenu, chromedp.ByQuery),
		chromedp.Evaluate(s.revealMenuJS(), &revealed),
	); err != nil {
		return fmt.Errorf("reveal category menu: %w", err)
	}
	if !revealed {
		return fmt.Errorf("category menu %q not present", s.sel.CategoryMenu)
	}
	return nil
}

func (s *Session) revealMenuJS() string {
	return fmt.Sprintf(
		`(() => {
			const menu = document.querySelector(%q);
			if (!menu) { return false; }
			menu.dispatchEvent(new MouseEvent('mouseover', {bubbles: true}));
			return true;
		})()`, s.sel.CategoryMenu)
}

func (s *Session) collectCategoriesJS() string {
	return fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q))
			.map((a) => a.textContent.trim())
			.filter((t) => t.length > 0)`, s.sel.CategoryLinks)
}

func (s *Session) clickCategoryJS(name string) string {
	return fmt.Sprintf(
		`(() => {
			const links = document.querySelectorAll(%q);
			for (const link of links) {
				if (link.textContent.trim() === %q) {
					link.click();
					return true;
				}
			}
			return false;
		})()`, s.sel.CategoryLinks, name)
}

// captureSnapshot persists a screenshot and the serialized DOM for
// post-mortem when a navigation step fails. Best effort: snapshot failures
// are logged, never propagated.
func (s *Session) captureSnapshot(step string) {
	if s.snapshots == nil {
		return
	}
	snapCtx, cancel := context.WithTimeout(s.browserCtx, 5*time.Second)
	defer cancel()

	var (
		screenshot []byte
		html       string
	)
	if err := chromedp.Run(snapCtx,
		chromedp.CaptureScreenshot(&screenshot),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		s.logger.Warn("diagnostic capture failed",
			zap.String("step", step), zap.Error(err))
		return
	}

	digest := step
	if s.hasher != nil {
		if sum, err := s.hasher.Hash([]byte(html)); err == nil {
			digest = sum[:12]
		}
	}
	base := fmt.Sprintf("%s/%s/%s-%s", s.cfg.SnapshotPrefix, s.postcode, step, digest)

	storeCtx, storeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer storeCancel()

	if uri, err := s.snapshots.PutObject(storeCtx, base+".png", "image/png", screenshot); err != nil {
		s.logger.Warn("store screenshot failed", zap.String("step", step), zap.Error(err))
	} else {
		s.logger.Info("diagnostic screenshot stored",
			zap.String("step", step), zap.String("uri", uri))
	}
	if uri, err := s.snapshots.PutObject(storeCtx, base+".html", "text/html; charset=utf-8", []byte(html)); err != nil {
		s.logger.Warn("store page source failed", zap.String("step", step), zap.Error(err))
	} else {
		s.logger.Info("diagnostic page source stored",
			zap.String("step", step), zap.String("uri", uri))
	}
	metrics.SnapshotCaptured(step)
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
