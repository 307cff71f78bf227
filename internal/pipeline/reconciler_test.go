package pipeline_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"pixivdl/internal/artwork"
	"pixivdl/internal/download"
	"pixivdl/internal/logging"
	"pixivdl/internal/pipeline"
	"pixivdl/internal/testsupport"
)

// recordingStore fails the operations named in fail and records every call.
type recordingStore struct {
	calls []string
	fail  map[string]bool
}

func (s *recordingStore) op(name string) error {
	s.calls = append(s.calls, name)
	if s.fail[name] {
		return errors.New(name + " failed")
	}
	return nil
}

func (s *recordingStore) ImageSaveName(context.Context, string) (string, bool, error) {
	return "", false, nil
}
func (s *recordingStore) FileExists(string) bool { return false }
func (s *recordingStore) InsertImage(context.Context, int64, string, artwork.Mode, string) error {
	return s.op("insert_image")
}
func (s *recordingStore) UpdateImage(context.Context, string, string, string, artwork.Mode) error {
	return s.op("update_image")
}
func (s *recordingStore) InsertMangaImages(context.Context, []artwork.MangaFile) error {
	return s.op("insert_manga_images")
}
func (s *recordingStore) InsertTag(context.Context, string) error { return s.op("insert_tag") }
func (s *recordingStore) InsertImageToTag(context.Context, string, string) error {
	return s.op("link_tag")
}
func (s *recordingStore) InsertTagTranslation(context.Context, string, string, string) error {
	return s.op("insert_tag_translation")
}
func (s *recordingStore) InsertNewMember(context.Context, int64, string) error {
	return s.op("insert_member")
}
func (s *recordingStore) UpdateMemberName(context.Context, int64, string, string) error {
	return s.op("update_member")
}

func TestReconcileContinuesAfterWriteFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := &recordingStore{fail: map[string]bool{"insert_image": true, "insert_tag": true}}
	rec := pipeline.NewReconciler(cfg, st, logging.NewNop())

	work := sampleWork("100", artwork.ModeManga)
	work.Tags = work.Tags[:1]
	result := download.Result{
		Outcome:      artwork.OutcomeSkipLocalLarger,
		LastFilename: "/lib/100_p1.png",
		Files: []artwork.MangaFile{
			{WorkID: "100", Page: 0, Filename: "/lib/100_p0.png"},
			{WorkID: "100", Page: 1, Filename: "/lib/100_p1.png"},
		},
	}

	if got := rec.Reconcile(context.Background(), work, result); got != artwork.OutcomeOK {
		t.Fatalf("expected ok, got %s", got)
	}
	want := []string{
		"insert_image", "update_image", "insert_manga_images",
		"insert_tag", "link_tag", "insert_tag_translation", "insert_tag_translation",
		"insert_member", "update_member",
	}
	if !slices.Equal(st.calls, want) {
		t.Fatalf("calls = %v\nwant    %v", st.calls, want)
	}
}

func TestReconcileIgnoresIncompleteOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := &recordingStore{}
	rec := pipeline.NewReconciler(cfg, st, logging.NewNop())

	for _, outcome := range []artwork.Outcome{
		artwork.OutcomeNotOK,
		artwork.OutcomeCheckDownload,
		artwork.OutcomeSkipBlacklist,
		artwork.OutcomeSkipDuplicateNoWait,
	} {
		got := rec.Reconcile(context.Background(), sampleWork("1", artwork.ModeIllustration), download.Result{Outcome: outcome})
		if got != outcome {
			t.Fatalf("Reconcile(%s) = %s", outcome, got)
		}
	}
	if len(st.calls) != 0 {
		t.Fatalf("expected no writes, got %v", st.calls)
	}
}

func TestReconcileSkipsMemberWithoutToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := &recordingStore{}
	rec := pipeline.NewReconciler(cfg, st, logging.NewNop())

	work := sampleWork("5", artwork.ModeIllustration)
	work.Tags = nil
	work.Artist.Token = ""
	rec.Reconcile(context.Background(), work, download.Result{Outcome: artwork.OutcomeOK})
	if !slices.Equal(st.calls, []string{"insert_image", "update_image"}) {
		t.Fatalf("calls = %v", st.calls)
	}
}
