package pipeline_test

import (
	"context"
	"testing"
	"time"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
	"pixivdl/internal/testsupport"
)

func seriesFixture() map[int]*artwork.Series {
	artist := &artwork.Artist{ID: 9, Token: "artist9", Name: "Artist"}
	return map[int]*artwork.Series{
		1: {
			ID: "77", Title: "Series", Artist: artist, CurrentPage: 1,
			Entries: []artwork.SeriesEntry{{WorkID: "1001", Order: 1}, {WorkID: "1002", Order: 2}},
		},
		2: {
			ID: "77", Title: "Series", Artist: artist, CurrentPage: 2, IsLastPage: true,
			Entries: []artwork.SeriesEntry{{WorkID: "1003", Order: 3}},
		},
	}
}

func seriesWorks() []*artwork.Work {
	return []*artwork.Work{
		sampleWork("1001", artwork.ModeManga, pageURLs("1001", 1)...),
		sampleWork("1002", artwork.ModeManga, pageURLs("1002", 1)...),
		sampleWork("1003", artwork.ModeManga, pageURLs("1003", 1)...),
	}
}

func TestProcessSeriesWalksUntilLastPage(t *testing.T) {
	h := newHarness(t, seriesWorks(), testsupport.With(func(c *config.Config) {
		c.Network.DownloadDelaySeconds = 1
	}))
	h.provider.series = seriesFixture()
	var waits []time.Duration
	h.processor.SetSleep(func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	})

	summary, err := h.processor.ProcessSeries(context.Background(), "77", 1, 0)
	if err != nil {
		t.Fatalf("ProcessSeries: %v", err)
	}
	if summary.Pages != 2 || summary.Works != 3 || summary.Outcomes[artwork.OutcomeOK] != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(waits) != 3 {
		t.Fatalf("expected a wait after every work, got %d", len(waits))
	}
	for i, req := range h.provider.fetches {
		if req.SeriesParent == nil || req.SeriesParent.ID != "77" {
			t.Fatalf("fetch %d missing series parent", i)
		}
		if req.SeriesOrder != i+1 {
			t.Fatalf("fetch %d order = %d", i, req.SeriesOrder)
		}
		if req.Parent == nil || req.Parent.ID != 9 {
			t.Fatalf("fetch %d missing parent artist", i)
		}
	}
}

func TestProcessSeriesStopsAtEndPage(t *testing.T) {
	h := newHarness(t, seriesWorks())
	h.provider.series = seriesFixture()

	summary, err := h.processor.ProcessSeries(context.Background(), "77", 1, 1)
	if err != nil {
		t.Fatalf("ProcessSeries: %v", err)
	}
	if summary.Pages != 1 || summary.Works != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestProcessSeriesStopsOnEmptyPage(t *testing.T) {
	h := newHarness(t, nil)
	h.provider.series = map[int]*artwork.Series{1: {ID: "77"}}

	summary, err := h.processor.ProcessSeries(context.Background(), "77", 1, 0)
	if err != nil {
		t.Fatalf("ProcessSeries: %v", err)
	}
	if summary.Pages != 1 || summary.Works != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
