package navigator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
)

// fakePages serves canned HTML per page and can fail partway through.
type fakePages struct {
	pages     []string
	page      int
	readErrAt int
	advErrAt  int
	neverEnds bool
	advances  int
}

func (f *fakePages) PageHTML(context.Context) (string, error) {
	if f.readErrAt > 0 && f.page+1 == f.readErrAt {
		return "", errors.New("tab crashed")
	}
	if f.page < len(f.pages) {
		return f.pages[f.page], nil
	}
	return "<html></html>", nil
}

func (f *fakePages) AdvanceToNextPage(context.Context) (bool, error) {
	if f.advErrAt > 0 && f.page+1 == f.advErrAt {
		return false, errors.New("next control click failed")
	}
	if f.neverEnds || f.page < len(f.pages)-1 {
		f.page++
		f.advances++
		return true, nil
	}
	return false, nil
}

func countingExtract(perPage int) func(string) []catalogue.ProductRecord {
	return func(html string) []catalogue.ProductRecord {
		if strings.TrimSpace(html) == "" {
			return nil
		}
		records := make([]catalogue.ProductRecord, perPage)
		for i := range records {
			records[i] = catalogue.ProductRecord{ProductID: fmt.Sprintf("p-%d", i)}
		}
		return records
	}
}

func TestExtractPagesWalksAllPages(t *testing.T) {
	t.Parallel()

	src := &fakePages{pages: []string{"page1", "page2", "page3"}}
	result := extractPages(context.Background(), src, countingExtract(4), 50, zap.NewNop())

	require.Len(t, result.Records, 12)
	require.Equal(t, 2, result.PagesAdvanced)
}

func TestExtractPagesKeepsPartialResultsOnPaginationFailure(t *testing.T) {
	t.Parallel()

	// Pages 1-3 extract fine, advancing from page 3 to 4 blows up. The 15
	// records already extracted must survive.
	src := &fakePages{pages: []string{"p1", "p2", "p3", "p4"}, advErrAt: 3}
	result := extractPages(context.Background(), src, countingExtract(5), 50, zap.NewNop())

	require.Len(t, result.Records, 15)
	require.Equal(t, 2, result.PagesAdvanced)
}

func TestExtractPagesKeepsPartialResultsOnReadFailure(t *testing.T) {
	t.Parallel()

	src := &fakePages{pages: []string{"p1", "p2", "p3", "p4"}, readErrAt: 4}
	result := extractPages(context.Background(), src, countingExtract(5), 50, zap.NewNop())

	require.Len(t, result.Records, 15)
	require.Equal(t, 3, result.PagesAdvanced)
}

func TestExtractPagesHonorsPageCeiling(t *testing.T) {
	t.Parallel()

	src := &fakePages{pages: []string{"endless"}, neverEnds: true}
	result := extractPages(context.Background(), src, countingExtract(1), 10, zap.NewNop())

	require.Len(t, result.Records, 10)
	require.Equal(t, 10, src.advances)
}

func TestExtractPagesSinglePage(t *testing.T) {
	t.Parallel()

	src := &fakePages{pages: []string{"only"}}
	result := extractPages(context.Background(), src, countingExtract(3), 50, zap.NewNop())

	require.Len(t, result.Records, 3)
	require.Zero(t, result.PagesAdvanced)
}
