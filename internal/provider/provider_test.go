package provider_test

import (
	"context"
	"errors"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pixivdl/internal/artwork"
	"pixivdl/internal/logging"
	"pixivdl/internal/provider"
	"pixivdl/internal/services"
	"pixivdl/internal/testsupport"
)

const illustJSON = `{"error":false,"message":"","body":{
	"illustId":"100","illustTitle":"Pages","illustComment":"hello","illustType":1,
	"createDate":"2024-02-03T04:05:06+09:00","userId":"9","userName":"Artist","userAccount":"artist",
	"pageCount":2,"bookmarkCount":77,"aiType":1,
	"tags":{"tags":[{"tag":"オリジナル","romaji":"orijinaru","translation":{"en":"original"}}]},
	"urls":{"original":"https://i.pximg.net/img-original/img/100_p0.png","regular":"https://i.pximg.net/img-master/img/100_p0_master1200.jpg"},
	"seriesNavData":{"seriesType":"manga","seriesId":"55","title":"Saga","order":3,"prev":null,"next":{"id":"101","title":"Next","order":4}},
	"titleCaptionTranslation":{"workTitle":"Pages EN"}}}`

const pagesJSON = `{"error":false,"message":"","body":[
	{"urls":{"original":"https://i.pximg.net/img-original/img/100_p0.png","regular":"https://i.pximg.net/r/100_p0.jpg"}},
	{"urls":{"original":"https://i.pximg.net/img-original/img/100_p1.png","regular":"https://i.pximg.net/r/100_p1.jpg"}}]}`

const ugoiraIllustJSON = `{"error":false,"message":"","body":{"illustId":"200","illustTitle":"Anim","illustType":2,"userId":"9","pageCount":1,"urls":{}}}`

const ugoiraMetaJSON = `{"error":false,"message":"","body":{"src":"https://i.pximg.net/img-zip-ugoira/200_ugoira600x600.zip",
	"originalSrc":"https://i.pximg.net/img-zip-ugoira/200_ugoira1920x1080.zip","mime_type":"image/jpeg",
	"frames":[{"file":"000000.jpg","delay":80},{"file":"000001.jpg","delay":80}]}}`

func newClient(t *testing.T, routes map[string]func(http.ResponseWriter, *http.Request)) *provider.Client {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	cfg := testsupport.NewConfig(t)
	return provider.NewClient(cfg, logging.NewNop(), provider.WithBaseURL(srv.URL))
}

func respond(status int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestFetchMangaWork(t *testing.T) {
	client := newClient(t, map[string]func(http.ResponseWriter, *http.Request){
		"/ajax/illust/100":       respond(http.StatusOK, illustJSON),
		"/ajax/illust/100/pages": respond(http.StatusOK, pagesJSON),
	})
	work, err := client.Fetch(context.Background(), provider.FetchRequest{WorkID: "100"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if work.Mode != artwork.ModeManga || work.PageCount != 2 || len(work.ImageURLs) != 2 || len(work.ResizedURLs) != 2 {
		t.Fatalf("unexpected pages: %+v", work)
	}
	if work.Artist == nil || work.Artist.ID != 9 || work.Artist.Token != "artist" {
		t.Fatalf("unexpected artist %+v", work.Artist)
	}
	if work.TranslatedTitle != "Pages EN" || work.BookmarkCount != 77 || work.AIType != artwork.AINotAI {
		t.Fatalf("unexpected fields %+v", work)
	}
	if !work.HasKnownDate() || work.Created.UTC().Hour() != 19 {
		t.Fatalf("unexpected date %v", work.Created)
	}
	if len(work.Tags) != 1 || work.Tags[0].Translated("en") != "original" || work.Tags[0].Romaji != "orijinaru" {
		t.Fatalf("unexpected tags %+v", work.Tags)
	}
	if work.Series == nil || work.Series.SeriesID != "55" || work.Series.Next == nil || work.Series.Next.ID != "101" {
		t.Fatalf("unexpected series %+v", work.Series)
	}
	if len(work.Raw) == 0 {
		t.Fatal("expected raw payload")
	}
}

func TestFetchUgoiraWork(t *testing.T) {
	client := newClient(t, map[string]func(http.ResponseWriter, *http.Request){
		"/ajax/illust/200":             respond(http.StatusOK, ugoiraIllustJSON),
		"/ajax/illust/200/ugoira_meta": respond(http.StatusOK, ugoiraMetaJSON),
	})
	work, err := client.Fetch(context.Background(), provider.FetchRequest{WorkID: "200", BookmarkCount: 5})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if work.Mode != artwork.ModeUgoira || work.Ugoira == nil || len(work.Ugoira.Frames) != 2 {
		t.Fatalf("unexpected ugoira work %+v", work)
	}
	if !strings.HasSuffix(work.ImageURLs[0], "1920x1080.zip") || !strings.HasSuffix(work.ResizedURLs[0], "600x600.zip") {
		t.Fatalf("unexpected urls %v %v", work.ImageURLs, work.ResizedURLs)
	}
	if work.BookmarkCount != 5 {
		t.Fatalf("expected request bookmark count, got %d", work.BookmarkCount)
	}
	if work.HasKnownDate() {
		t.Fatal("missing createDate must map to the unknown date")
	}
}

func TestFetchParentBecomesArtist(t *testing.T) {
	client := newClient(t, map[string]func(http.ResponseWriter, *http.Request){
		"/ajax/illust/100":       respond(http.StatusOK, illustJSON),
		"/ajax/illust/100/pages": respond(http.StatusOK, pagesJSON),
	})
	parent := &artwork.Artist{ID: 1234, Name: "Collector", Token: "collector"}
	work, err := client.Fetch(context.Background(), provider.FetchRequest{WorkID: "100", Parent: parent, FromBookmark: true})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if work.Artist.ID != 1234 || work.OriginalArtist == nil || work.OriginalArtist.ID != 9 {
		t.Fatalf("unexpected artists %+v / %+v", work.Artist, work.OriginalArtist)
	}
	if id, _ := work.MemberID(); id != 9 {
		t.Fatalf("member id must come from the original artist, got %d", id)
	}
}

func TestFetchErrors(t *testing.T) {
	client := newClient(t, map[string]func(http.ResponseWriter, *http.Request){
		"/ajax/illust/404": respond(http.StatusNotFound, `{"error":true,"message":"deleted","body":[]}`),
		"/ajax/illust/500": respond(http.StatusBadGateway, `<html>bad gateway</html>`),
		"/ajax/illust/bad": respond(http.StatusOK, `not json`),
	})
	cases := map[string]struct {
		kind string
		code int
	}{
		"404": {provider.KindUnknownWork, provider.CodeUnknownWork},
		"500": {provider.KindServerError, provider.CodeServerError},
		"bad": {provider.KindOther, provider.CodeOtherWork},
	}
	for id, want := range cases {
		_, err := client.Fetch(context.Background(), provider.FetchRequest{WorkID: id})
		fe, ok := provider.AsFetchError(err)
		if !ok {
			t.Fatalf("%s: expected FetchError, got %v", id, err)
		}
		if fe.Kind != want.kind || services.ErrorCode(err) != want.code || len(fe.Page) == 0 {
			t.Fatalf("%s: unexpected error %+v", id, fe)
		}
		if errors.Is(err, services.ErrNotFound) != (want.kind == provider.KindUnknownWork) {
			t.Fatalf("%s: ErrNotFound match mismatch for %v", id, err)
		}
		if errors.Is(err, services.ErrTransient) != (want.kind == provider.KindServerError) {
			t.Fatalf("%s: ErrTransient match mismatch for %v", id, err)
		}
	}
}

func TestFetchCancelled(t *testing.T) {
	client := newClient(t, map[string]func(http.ResponseWriter, *http.Request){
		"/ajax/illust/1": respond(http.StatusOK, illustJSON),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Fetch(ctx, provider.FetchRequest{WorkID: "1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestFetchUnlistedWork(t *testing.T) {
	body := `{"illustId":"300","illustTitle":"Hidden","illustType":0,"userId":"9","pageCount":1,
		"urls":{"original":"https://i.pximg.net/img-original/img/300_p0.jpg","regular":"https://i.pximg.net/r/300_p0.jpg"}}`
	preload := `{"timestamp":"x","illust":{"abcDEF":` + body + `}}`
	page := `<html><head><meta name="preload-data" id="meta-preload-data" content="` + html.EscapeString(preload) + `"></head></html>`
	client := newClient(t, map[string]func(http.ResponseWriter, *http.Request){
		"/artworks/unlisted/abcDEF": respond(http.StatusOK, page),
	})
	work, err := client.Fetch(context.Background(), provider.FetchRequest{WorkID: "abcDEF", Unlisted: true})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if work.ID != "abcDEF" || !work.Unlisted || work.Title != "Hidden" || len(work.ImageURLs) != 1 {
		t.Fatalf("unexpected unlisted work %+v", work)
	}
	if work.Referer() != "https://www.pixiv.net/artworks/unlisted/abcDEF" {
		t.Fatalf("unexpected referer %s", work.Referer())
	}
}

func TestFetchSeries(t *testing.T) {
	payload := `{"error":false,"message":"","body":{
		"illustSeries":[{"id":"55","userId":"9","title":"Saga","description":"d","total":3}],
		"users":[{"userId":"9","name":"Artist","account":"artist","imageBig":"https://i.pximg.net/a.png"}],
		"page":{"series":[{"workId":"100","order":1},{"workId":"101","order":2},{"workId":"102","order":3}]}}}`
	var gotQuery string
	client := newClient(t, map[string]func(http.ResponseWriter, *http.Request){
		"/ajax/series/55": func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			respond(http.StatusOK, payload)(w, r)
		},
	})
	series, err := client.FetchSeries(context.Background(), "55", 1)
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
	if gotQuery != "p=1" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if series.Title != "Saga" || series.Total != 3 || len(series.Entries) != 3 || !series.IsLastPage {
		t.Fatalf("unexpected series %+v", series)
	}
	if series.Artist == nil || series.Artist.Token != "artist" {
		t.Fatalf("unexpected series artist %+v", series.Artist)
	}
}
