package navigator

import (
	"context"

	"go.uber.org/zap"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
)

// pageSource is the slice of Session the pagination loop needs. Kept narrow
// so the loop can be exercised without a browser.
type pageSource interface {
	PageHTML(ctx context.Context) (string, error)
	AdvanceToNextPage(ctx context.Context) (bool, error)
}

// extractPages accumulates records page by page until pagination terminates,
// an error occurs, or the page ceiling is reached. Records extracted before
// a failure are always returned: a broken page 4 must not discard pages 1-3.
//
// The ceiling is a hardening measure: pagination termination is otherwise
// solely the absence of the next control, and a control that is wrongly
// reported present forever would loop indefinitely.
func extractPages(
	ctx context.Context,
	src pageSource,
	extract func(html string) []catalogue.ProductRecord,
	maxPages int,
	logger *zap.Logger,
) catalogue.CategoryResult {
	var result catalogue.CategoryResult
	for page := 0; ; page++ {
		if maxPages > 0 && page >= maxPages {
			logger.Warn("page ceiling reached, stopping pagination",
				zap.Int("max_pages", maxPages))
			break
		}

		html, err := src.PageHTML(ctx)
		if err != nil {
			logger.Warn("page read failed, keeping partial results",
				zap.Int("page", page),
				zap.Int("records", len(result.Records)),
				zap.Error(err))
			break
		}
		result.Records = append(result.Records, extract(html)...)

		more, err := src.AdvanceToNextPage(ctx)
		if err != nil {
			logger.Warn("pagination failed, keeping partial results",
				zap.Int("page", page),
				zap.Int("records", len(result.Records)),
				zap.Error(err))
			break
		}
		if !more {
			break
		}
		result.PagesAdvanced++
	}
	return result
}
