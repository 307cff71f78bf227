package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
	"pixivdl/internal/download"
	"pixivdl/internal/logging"
	"pixivdl/internal/pipeline"
	"pixivdl/internal/provider"
	"pixivdl/internal/services"
	"pixivdl/internal/sidecar"
	"pixivdl/internal/store"
	"pixivdl/internal/testsupport"
)

type fakeProvider struct {
	works   map[string]*artwork.Work
	errs    map[string]error
	series  map[int]*artwork.Series
	fetches []provider.FetchRequest
	panics  bool
}

func (f *fakeProvider) Fetch(_ context.Context, req provider.FetchRequest) (*artwork.Work, error) {
	f.fetches = append(f.fetches, req)
	if f.panics {
		panic("provider exploded")
	}
	if err, ok := f.errs[req.WorkID]; ok {
		return nil, err
	}
	w, ok := f.works[req.WorkID]
	if !ok {
		return nil, &provider.FetchError{Kind: provider.KindUnknownWork, Code: provider.CodeUnknownWork, Message: "work not found"}
	}
	clone := *w
	clone.Tags = slices.Clone(w.Tags)
	if req.SeriesParent != nil {
		clone.SeriesOrder = req.SeriesOrder
	}
	return &clone, nil
}

func (f *fakeProvider) FetchSeries(_ context.Context, _ string, page int) (*artwork.Series, error) {
	s, ok := f.series[page]
	if !ok {
		return &artwork.Series{CurrentPage: page, IsLastPage: true}, nil
	}
	return s, nil
}

// diskFetcher writes a small file for every request.
type diskFetcher struct {
	requests []download.FetchRequest
}

func (f *diskFetcher) Fetch(ctx context.Context, req download.FetchRequest) (artwork.Outcome, string, error) {
	if err := ctx.Err(); err != nil {
		return artwork.OutcomeKeyboardInterrupt, "", err
	}
	f.requests = append(f.requests, req)
	if err := os.MkdirAll(filepath.Dir(req.Filename), 0o755); err != nil {
		return artwork.OutcomeNotOK, "", err
	}
	if err := os.WriteFile(req.Filename, []byte("image"), 0o644); err != nil {
		return artwork.OutcomeNotOK, "", err
	}
	return artwork.OutcomeOK, req.Filename, nil
}

type fakeEncoder struct {
	bundles []string
	err     error
}

func (e *fakeEncoder) Encode(_ context.Context, _ *artwork.Work, bundlePath string) error {
	e.bundles = append(e.bundles, bundlePath)
	return e.err
}

func sampleWork(id string, mode artwork.Mode, urls ...string) *artwork.Work {
	return &artwork.Work{
		ID:            id,
		Title:         "Title " + id,
		Mode:          mode,
		Artist:        &artwork.Artist{ID: 9, Token: "artist9", Name: "Artist"},
		PageCount:     len(urls),
		BookmarkCount: 10,
		ImageURLs:     urls,
		Created:       time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC),
		Tags: []artwork.Tag{
			{Name: "original", Romaji: "orijinaru", Translations: map[string]string{"en": "original"}},
			{Name: "girl"},
		},
	}
}

func pageURLs(id string, pages int) []string {
	urls := make([]string, 0, pages)
	for i := range pages {
		urls = append(urls, fmt.Sprintf("https://i.pximg.net/img-original/img/2024/03/09/12/00/00/%s_p%d.png", id, i))
	}
	return urls
}

type harness struct {
	cfg       *config.Config
	store     *store.Store
	provider  *fakeProvider
	fetcher   *diskFetcher
	encoder   *fakeEncoder
	errors    *pipeline.ErrorLog
	processor *pipeline.Processor
}

func newHarness(t *testing.T, works []*artwork.Work, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	h := &harness{
		cfg:      cfg,
		store:    testsupport.MustOpenStore(t, cfg),
		provider: &fakeProvider{works: map[string]*artwork.Work{}, errs: map[string]error{}},
		fetcher:  &diskFetcher{},
		encoder:  &fakeEncoder{},
		errors:   pipeline.NewErrorLog(),
	}
	for _, w := range works {
		h.provider.works[w.ID] = w
	}
	h.processor = pipeline.NewProcessor(cfg, pipeline.Deps{
		Provider: h.provider,
		Fetcher:  h.fetcher,
		Encoder:  h.encoder,
		Store:    h.store,
	}, pipeline.Capabilities{
		Series: sidecar.NewSeriesSet(),
		Errors: h.errors,
	}, logging.NewNop())
	return h
}

func TestProcessMangaCreatesPageDirectoryAndRecords(t *testing.T) {
	h := newHarness(t, []*artwork.Work{sampleWork("100", artwork.ModeManga, pageURLs("100", 3)...)},
		testsupport.With(func(c *config.Config) { c.Download.CreateMangaDir = true }))
	ctx := context.Background()

	outcome, err := h.processor.Process(ctx, pipeline.NewRequest("100"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome != artwork.OutcomeOK {
		t.Fatalf("expected ok, got %s", outcome)
	}
	if len(h.fetcher.requests) != 3 {
		t.Fatalf("expected 3 downloads, got %d", len(h.fetcher.requests))
	}
	for i, req := range h.fetcher.requests {
		if filepath.Base(filepath.Dir(req.Filename)) != "100" {
			t.Fatalf("page %d not under a 100 directory: %s", i, req.Filename)
		}
		if !strings.HasPrefix(filepath.Base(req.Filename), fmt.Sprintf("_p%d", i)) {
			t.Fatalf("page marker missing from %s", req.Filename)
		}
	}

	rec, err := h.store.Image(ctx, "100")
	if err != nil || rec == nil {
		t.Fatalf("Image: %v %v", rec, err)
	}
	if rec.SaveName != h.fetcher.requests[2].Filename {
		t.Fatalf("save name = %q, want last page %q", rec.SaveName, h.fetcher.requests[2].Filename)
	}
	if len(rec.Pages) != 3 || rec.Pages[1].SaveName != h.fetcher.requests[1].Filename {
		t.Fatalf("unexpected pages %+v", rec.Pages)
	}
	if !slices.Equal(rec.Tags, []string{"girl", "original"}) {
		t.Fatalf("unexpected tags %v", rec.Tags)
	}
	translations, err := h.store.TagTranslations(ctx, "original")
	if err != nil {
		t.Fatalf("TagTranslations: %v", err)
	}
	if translations["romaji"] != "orijinaru" || translations["en"] != "original" {
		t.Fatalf("unexpected translations %v", translations)
	}
	name, token, ok, err := h.store.Member(ctx, 9)
	if err != nil || !ok || name != "Artist" || token != "artist9" {
		t.Fatalf("member = %q %q %v %v", name, token, ok, err)
	}
}

func TestProcessPassesUnsetSeriesOrderThrough(t *testing.T) {
	h := newHarness(t, []*artwork.Work{sampleWork("150", artwork.ModeIllustration, pageURLs("150", 1)...)})

	if _, err := h.processor.Process(context.Background(), pipeline.NewRequest("150")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(h.provider.fetches) != 1 {
		t.Fatalf("expected one fetch, got %d", len(h.provider.fetches))
	}
	if got := h.provider.fetches[0].SeriesOrder; got != -1 {
		t.Fatalf("series order = %d, want -1", got)
	}
}

func TestProcessBookmarkThresholdSkipsWithoutWrites(t *testing.T) {
	h := newHarness(t, []*artwork.Work{sampleWork("200", artwork.ModeIllustration, pageURLs("200", 1)...)})
	ctx := context.Background()

	req := pipeline.NewRequest("200")
	req.MinBookmarks = 50
	outcome, err := h.processor.Process(ctx, req)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome != artwork.OutcomeSkipBlacklist {
		t.Fatalf("expected skip_blacklist, got %s", outcome)
	}
	if len(h.fetcher.requests) != 0 {
		t.Fatalf("expected no downloads, got %d", len(h.fetcher.requests))
	}
	if files := testsupport.ListFiles(t, h.cfg.Paths.RootDirectory); len(files) != 0 {
		t.Fatalf("expected no files, got %v", files)
	}
	rec, err := h.store.Image(ctx, "200")
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected no database record, got %+v", rec)
	}
}

func TestProcessRecordedWorkShortCircuits(t *testing.T) {
	h := newHarness(t, []*artwork.Work{sampleWork("300", artwork.ModeIllustration, pageURLs("300", 1)...)})
	ctx := context.Background()

	if outcome, err := h.processor.Process(ctx, pipeline.NewRequest("300")); err != nil || outcome != artwork.OutcomeOK {
		t.Fatalf("first Process: %s %v", outcome, err)
	}
	outcome, err := h.processor.Process(ctx, pipeline.NewRequest("300"))
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if outcome != artwork.OutcomeSkipDuplicateNoWait {
		t.Fatalf("expected skip_duplicate_no_wait, got %s", outcome)
	}
	if len(h.provider.fetches) != 1 {
		t.Fatalf("expected one metadata fetch, got %d", len(h.provider.fetches))
	}

	req := pipeline.NewRequest("300")
	req.Reencoding = true
	if outcome, err := h.processor.Process(ctx, req); err != nil || outcome != artwork.OutcomeOK {
		t.Fatalf("reencoding Process: %s %v", outcome, err)
	}
	if len(h.provider.fetches) != 2 {
		t.Fatalf("reencoding should bypass the database check, fetches = %d", len(h.provider.fetches))
	}
}

func TestProcessMissingRecordedFileReportsCheckDownload(t *testing.T) {
	h := newHarness(t, []*artwork.Work{sampleWork("400", artwork.ModeIllustration, pageURLs("400", 1)...)},
		testsupport.With(func(c *config.Config) { c.Download.AlwaysCheckFileSize = true }))
	ctx := context.Background()

	if err := h.store.InsertImage(ctx, 9, "400", artwork.ModeIllustration, ""); err != nil {
		t.Fatalf("InsertImage: %v", err)
	}
	missing := filepath.Join(h.cfg.Paths.RootDirectory, "gone.png")
	if err := h.store.UpdateImage(ctx, "400", "Title", missing, artwork.ModeIllustration); err != nil {
		t.Fatalf("UpdateImage: %v", err)
	}

	req := pipeline.NewRequest("400")
	req.MinBookmarks = 1000
	outcome, err := h.processor.Process(ctx, req)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome != artwork.OutcomeCheckDownload {
		t.Fatalf("expected check_download, got %s", outcome)
	}

	outcome, err = h.processor.Process(ctx, pipeline.NewRequest("400"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome != artwork.OutcomeOK {
		t.Fatalf("a completed download should win over check_download, got %s", outcome)
	}
}

func TestProcessFetchErrorDumpsPage(t *testing.T) {
	h := newHarness(t, nil)
	h.provider.errs["500"] = &provider.FetchError{
		Kind:    provider.KindServerError,
		Code:    provider.CodeServerError,
		Message: "bad gateway",
		Page:    []byte("<html>oops</html>"),
	}

	outcome, err := h.processor.Process(context.Background(), pipeline.NewRequest("500"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome != artwork.OutcomeNotOK {
		t.Fatalf("expected not_ok, got %s", outcome)
	}
	if h.errors.LastCode() != provider.CodeServerError {
		t.Fatalf("last code = %d", h.errors.LastCode())
	}
	entries := h.errors.Entries()
	if len(entries) != 1 || entries[0].ID != "500" || entries[0].Type != "Image" {
		t.Fatalf("unexpected error entries %+v", entries)
	}
	dump := filepath.Join(h.cfg.Paths.LogDir, "Error medium page for image 500.html")
	if got := string(testsupport.ReadFile(t, dump)); got != "<html>oops</html>" {
		t.Fatalf("dump = %q", got)
	}
}

func TestProcessUnknownWorkIsNotOK(t *testing.T) {
	h := newHarness(t, nil)
	outcome, err := h.processor.Process(context.Background(), pipeline.NewRequest("404"))
	if err != nil || outcome != artwork.OutcomeNotOK {
		t.Fatalf("Process = %s %v", outcome, err)
	}
	if h.errors.LastCode() != provider.CodeUnknownWork {
		t.Fatalf("last code = %d", h.errors.LastCode())
	}
}

func TestProcessUgoiraEncodesBundle(t *testing.T) {
	zipURL := "https://i.pximg.net/img-zip-ugoira/img/2024/03/09/12/00/00/600_ugoira1920x1080.zip"
	work := sampleWork("600", artwork.ModeUgoira, zipURL)
	work.Ugoira = &artwork.UgoiraMeta{Frames: []artwork.UgoiraFrame{{File: "000000.jpg", Delay: 100}}}
	h := newHarness(t, []*artwork.Work{work},
		testsupport.With(func(c *config.Config) { c.Ugoira.CreateGIF = true }))

	outcome, err := h.processor.Process(context.Background(), pipeline.NewRequest("600"))
	if err != nil || outcome != artwork.OutcomeOK {
		t.Fatalf("Process = %s %v", outcome, err)
	}
	if len(h.encoder.bundles) != 1 || h.encoder.bundles[0] != h.fetcher.requests[0].Filename {
		t.Fatalf("unexpected encoded bundles %v", h.encoder.bundles)
	}
}

func TestProcessUgoiraEncodeFailureIsNotOK(t *testing.T) {
	zipURL := "https://i.pximg.net/img-zip-ugoira/img/2024/03/09/12/00/00/700_ugoira1920x1080.zip"
	work := sampleWork("700", artwork.ModeUgoira, zipURL)
	h := newHarness(t, []*artwork.Work{work},
		testsupport.With(func(c *config.Config) { c.Ugoira.CreateWebM = true }))
	h.encoder.err = errors.New("ffmpeg exploded")
	ctx := context.Background()

	outcome, err := h.processor.Process(ctx, pipeline.NewRequest("700"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome != artwork.OutcomeNotOK {
		t.Fatalf("expected not_ok, got %s", outcome)
	}
	if rec, _ := h.store.Image(ctx, "700"); rec != nil {
		t.Fatalf("failed encode must not be recorded, got %+v", rec)
	}
}

func TestProcessInterruptIsNeverSwallowed(t *testing.T) {
	h := newHarness(t, []*artwork.Work{sampleWork("800", artwork.ModeIllustration, pageURLs("800", 2)...)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := h.processor.Process(ctx, pipeline.NewRequest("800"))
	if outcome != artwork.OutcomeKeyboardInterrupt {
		t.Fatalf("expected keyboard_interrupt, got %s", outcome)
	}
	if !errors.Is(err, context.Canceled) || !services.IsInterrupted(err) {
		t.Fatalf("expected interrupt error, got %v", err)
	}
}

func TestProcessRecoversFromPanics(t *testing.T) {
	h := newHarness(t, nil)
	h.provider.panics = true

	outcome, err := h.processor.Process(context.Background(), pipeline.NewRequest("900"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if outcome != artwork.OutcomeNotOK {
		t.Fatalf("expected not_ok, got %s", outcome)
	}
	if h.errors.LastCode() != services.UnknownErrorCode {
		t.Fatalf("last code = %d", h.errors.LastCode())
	}
}

func TestProcessSkipDownloadStopsBeforeFetching(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := &diskFetcher{}
	prov := &fakeProvider{works: map[string]*artwork.Work{
		"110": sampleWork("110", artwork.ModeIllustration, pageURLs("110", 1)...),
	}}
	st := testsupport.MustOpenStore(t, cfg)
	proc := pipeline.NewProcessor(cfg, pipeline.Deps{Provider: prov, Fetcher: fetcher, Store: st},
		pipeline.Capabilities{SkipDownload: true}, logging.NewNop())

	outcome, err := proc.Process(context.Background(), pipeline.NewRequest("110"))
	if err != nil || outcome != artwork.OutcomeOK {
		t.Fatalf("Process = %s %v", outcome, err)
	}
	if len(fetcher.requests) != 0 {
		t.Fatalf("expected no downloads, got %d", len(fetcher.requests))
	}
	if rec, _ := st.Image(context.Background(), "110"); rec != nil {
		t.Fatalf("skipped download must not be recorded")
	}
}

func TestProcessSuppressesTagsAndSetsTitle(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.With(func(c *config.Config) { c.Filters.UseSuppressTags = true }))
	st := testsupport.MustOpenStore(t, cfg)
	prov := &fakeProvider{works: map[string]*artwork.Work{
		"120": sampleWork("120", artwork.ModeIllustration, pageURLs("120", 1)...),
	}}
	var titles []string
	proc := pipeline.NewProcessor(cfg, pipeline.Deps{Provider: prov, Fetcher: &diskFetcher{}, Store: st},
		pipeline.Capabilities{
			SuppressTags: []string{"girl"},
			SetTitle:     func(s string) { titles = append(titles, s) },
		}, logging.NewNop())

	if outcome, err := proc.Process(context.Background(), pipeline.NewRequest("120")); err != nil || outcome != artwork.OutcomeOK {
		t.Fatalf("Process = %s %v", outcome, err)
	}
	rec, err := st.Image(context.Background(), "120")
	if err != nil || rec == nil {
		t.Fatalf("Image: %v", err)
	}
	if !slices.Equal(rec.Tags, []string{"original"}) {
		t.Fatalf("suppressed tag stored: %v", rec.Tags)
	}
	if len(titles) != 1 || titles[0] != "MemberId: 9 ImageId: 120" {
		t.Fatalf("unexpected titles %v", titles)
	}
}
