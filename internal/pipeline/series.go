package pipeline

import (
	"context"
	"fmt"

	"pixivdl/internal/artwork"
	"pixivdl/internal/logging"
	"pixivdl/internal/services"
)

const stageSeries = "series"

// SeriesSummary counts the outcomes of one series walk.
type SeriesSummary struct {
	Pages    int
	Works    int
	Outcomes map[artwork.Outcome]int
}

// ProcessSeries processes every work of a manga series, starting at
// startPage. A positive endPage stops the walk after that page. Each work
// is processed with the series as parent and followed by Wait.
func (p *Processor) ProcessSeries(ctx context.Context, seriesID string, startPage, endPage int) (SeriesSummary, error) {
	ctx = services.WithStage(ctx, stageSeries)
	logger := logging.WithContext(ctx, p.logger).With(logging.String("series_id", seriesID))
	summary := SeriesSummary{Outcomes: make(map[artwork.Outcome]int)}

	if startPage < 1 {
		startPage = 1
	}
	logger.Info("processing manga series",
		logging.Int("start_page", startPage),
		logging.Int("end_page", endPage),
	)

	for page := startPage; ; page++ {
		series, err := p.provider.FetchSeries(ctx, seriesID, page)
		if err != nil {
			if services.IsInterrupted(err) || ctx.Err() != nil {
				return summary, services.Interrupted(stageSeries, err)
			}
			p.caps.Errors.Record(ErrorEntry{Type: "Series", ID: seriesID, Err: err})
			logging.ErrorWithContext(logger, "series page fetch failed", "series_fetch_failed",
				logging.Int("page", page),
				logging.Error(err),
			)
			return summary, fmt.Errorf("fetch series %s page %d: %w", seriesID, page, err)
		}
		summary.Pages++

		for _, entry := range series.Entries {
			req := NewRequest(entry.WorkID)
			req.Parent = series.Artist
			req.SeriesOrder = entry.Order
			req.SeriesParent = series
			outcome, err := p.Process(ctx, req)
			summary.Works++
			summary.Outcomes[outcome]++
			if err != nil {
				return summary, err
			}
			if err := p.Wait(ctx, outcome); err != nil {
				return summary, err
			}
		}

		switch {
		case series.IsLastPage:
			logger.Info("last series page reached", logging.Int("page", page))
			return summary, nil
		case endPage > 0 && page+1 > endPage:
			logger.Info("end page reached", logging.Int("page", endPage))
			return summary, nil
		case len(series.Entries) == 0:
			logger.Info("no more works in series", logging.Int("page", page))
			return summary, nil
		}
	}
}
