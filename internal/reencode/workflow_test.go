package reencode_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
	"pixivdl/internal/logging"
	"pixivdl/internal/pipeline"
	"pixivdl/internal/reencode"
	"pixivdl/internal/services"
	"pixivdl/internal/staging"
	"pixivdl/internal/testsupport"
)

// fileEncoder writes the given content to every enabled output next to the bundle.
type fileEncoder struct {
	outputs []string
	content string
	err     error
	calls   []string
}

func (e *fileEncoder) Encode(_ context.Context, _ *artwork.Work, bundle string) error {
	e.calls = append(e.calls, bundle)
	if e.err != nil {
		return e.err
	}
	base := strings.TrimSuffix(bundle, filepath.Ext(bundle))
	for _, ext := range e.outputs {
		if err := os.WriteFile(base+ext, []byte(e.content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type fakeProcessor struct {
	requests []pipeline.Request
	outcome  artwork.Outcome
	err      error
	// write is called before returning, to simulate regenerated files.
	write func()
}

func (p *fakeProcessor) Process(_ context.Context, req pipeline.Request) (artwork.Outcome, error) {
	p.requests = append(p.requests, req)
	if p.write != nil {
		p.write()
	}
	return p.outcome, p.err
}

func setup(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{
		testsupport.With(func(c *config.Config) { c.Ugoira.CreateGIF = true }),
	}, opts...)...)
	dir := filepath.Join(cfg.Paths.RootDirectory, "Artist (9)")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return cfg, dir
}

func assertContent(t *testing.T, path, want string) {
	t.Helper()
	if got := string(testsupport.ReadFile(t, path)); got != want {
		t.Fatalf("%s = %q, want %q", filepath.Base(path), got, want)
	}
}

func assertStagingEmpty(t *testing.T, cfg *config.Config) {
	t.Helper()
	dirs, err := staging.ListDirectories(cfg.Paths.StagingDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 0 {
		t.Fatalf("staging not cleaned up: %+v", dirs)
	}
}

func TestRunLocalReencodeReplacesOutputs(t *testing.T) {
	cfg, dir := setup(t)
	bundle := filepath.Join(dir, "600_ugoira1920x1080.ugoira")
	testsupport.WriteContent(t, bundle, []byte("bundle"))
	testsupport.WriteContent(t, filepath.Join(dir, "600_ugoira1920x1080.gif"), []byte("old"))

	enc := &fileEncoder{outputs: []string{".gif"}, content: "new"}
	proc := &fakeProcessor{outcome: artwork.OutcomeOK}
	wf := reencode.NewWorkflow(cfg, proc, enc, logging.NewNop())

	summary, err := wf.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Bundles != 1 || summary.Local != 1 || summary.Online != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(proc.requests) != 0 {
		t.Fatalf("online processing should not run")
	}
	assertContent(t, filepath.Join(dir, "600_ugoira1920x1080.gif"), "new")
	assertContent(t, bundle, "bundle")
	assertStagingEmpty(t, cfg)
}

func TestRunLocalFailureFallsBackOnline(t *testing.T) {
	cfg, dir := setup(t)
	bundle := filepath.Join(dir, "610_ugoira1920x1080.ugoira")
	testsupport.WriteContent(t, bundle, []byte("corrupt"))

	enc := &fileEncoder{err: errors.New("bad manifest")}
	proc := &fakeProcessor{outcome: artwork.OutcomeOK}
	proc.write = func() {
		if _, err := os.Stat(bundle); err == nil {
			t.Errorf("corrupted bundle should be removed before the online attempt")
		}
	}
	wf := reencode.NewWorkflow(cfg, proc, enc, logging.NewNop())

	summary, err := wf.Run(context.Background(), cfg.Paths.RootDirectory)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Online != 1 || summary.Local != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(proc.requests) != 1 {
		t.Fatalf("expected one online request, got %d", len(proc.requests))
	}
	req := proc.requests[0]
	if req.WorkID != "610" || req.UseBlacklist || !req.Reencoding {
		t.Fatalf("unexpected request %+v", req)
	}
	assertStagingEmpty(t, cfg)
}

func TestRunCustomDirOnlineFallbackWritesInPlace(t *testing.T) {
	cfg, _ := setup(t)
	custom := t.TempDir()
	zip := filepath.Join(custom, "750_ugoira600x600.zip")
	gif := filepath.Join(custom, "750_ugoira600x600.gif")
	testsupport.WriteContent(t, zip, []byte("zip"))
	testsupport.WriteContent(t, gif, []byte("old"))

	proc := &fakeProcessor{outcome: artwork.OutcomeOK}
	proc.write = func() {
		req := proc.requests[len(proc.requests)-1]
		dir := req.UserDir
		if dir == "" {
			dir = cfg.Paths.RootDirectory
		}
		testsupport.WriteContent(t, filepath.Join(dir, "750_ugoira600x600.gif"), []byte("new"))
	}
	wf := reencode.NewWorkflow(cfg, proc, &fileEncoder{}, logging.NewNop())

	summary, err := wf.Run(context.Background(), custom)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Online != 1 || len(proc.requests) != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if got := proc.requests[0].UserDir; got != custom {
		t.Fatalf("online request UserDir = %q, want %q", got, custom)
	}
	assertContent(t, gif, "new")
	assertContent(t, zip, "zip")
	if files := testsupport.ListFiles(t, cfg.Paths.RootDirectory); len(files) != 0 {
		t.Fatalf("nothing should be written under root_directory, got %v", files)
	}
	assertStagingEmpty(t, cfg)
}

func TestRunDefaultRootLeavesUserDirUnset(t *testing.T) {
	cfg, dir := setup(t)
	testsupport.WriteContent(t, filepath.Join(dir, "760_ugoira600x600.zip"), []byte("zip"))

	proc := &fakeProcessor{outcome: artwork.OutcomeOK}
	wf := reencode.NewWorkflow(cfg, proc, &fileEncoder{}, logging.NewNop())
	if _, err := wf.Run(context.Background(), cfg.Paths.RootDirectory); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(proc.requests) != 1 || proc.requests[0].UserDir != "" {
		t.Fatalf("unexpected requests %+v", proc.requests)
	}
}

func TestRunRestoresStagedFilesOnNotOK(t *testing.T) {
	cfg, dir := setup(t)
	zip := filepath.Join(dir, "700_ugoira600x600.zip")
	gif := filepath.Join(dir, "700_ugoira600x600.gif")
	testsupport.WriteContent(t, zip, []byte("zip"))
	testsupport.WriteContent(t, gif, []byte("old"))

	proc := &fakeProcessor{outcome: artwork.OutcomeNotOK}
	proc.write = func() {
		if _, err := os.Stat(gif); err == nil {
			t.Errorf("gif should be staged away during processing")
		}
		testsupport.WriteContent(t, gif, []byte("corrupt"))
		testsupport.WriteContent(t, zip, []byte("redownloaded"))
	}
	wf := reencode.NewWorkflow(cfg, proc, &fileEncoder{}, logging.NewNop())

	summary, err := wf.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Restored == 0 {
		t.Fatalf("expected restored files, got %+v", summary)
	}
	assertContent(t, gif, "old")
	assertContent(t, zip, "zip")
	assertStagingEmpty(t, cfg)
}

func TestRunKeepsOrphanedOutputsAsBackups(t *testing.T) {
	cfg, dir := setup(t, testsupport.With(func(c *config.Config) { c.Download.BackupOldFile = true }))
	testsupport.WriteContent(t, filepath.Join(dir, "710_ugoira600x600.zip"), []byte("zip"))
	testsupport.WriteContent(t, filepath.Join(dir, "710_ugoira600x600.gif"), []byte("old"))

	proc := &fakeProcessor{outcome: artwork.OutcomeOK}
	wf := reencode.NewWorkflow(cfg, proc, &fileEncoder{}, logging.NewNop())
	wf.SetNow(func() time.Time { return time.Unix(1700000000, 0) })

	summary, err := wf.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Backups != 1 {
		t.Fatalf("expected one backup, got %+v", summary)
	}
	assertContent(t, filepath.Join(dir, "710_ugoira600x600.1700000000.gif"), "old")
	if _, err := os.Stat(filepath.Join(dir, "710_ugoira600x600.gif")); !os.IsNotExist(err) {
		t.Fatalf("original name should stay free for the new encode, stat err = %v", err)
	}
	assertStagingEmpty(t, cfg)
}

func TestRunDropsOrphansWithoutBackupOldFile(t *testing.T) {
	cfg, dir := setup(t)
	testsupport.WriteContent(t, filepath.Join(dir, "720_ugoira600x600.zip"), []byte("zip"))
	testsupport.WriteContent(t, filepath.Join(dir, "720_ugoira600x600.gif"), []byte("old"))

	wf := reencode.NewWorkflow(cfg, &fakeProcessor{outcome: artwork.OutcomeOK}, &fileEncoder{}, logging.NewNop())
	if _, err := wf.Run(context.Background(), ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	files := testsupport.ListFiles(t, dir)
	if len(files) != 1 || files[0] != "720_ugoira600x600.zip" {
		t.Fatalf("unexpected files %v", files)
	}
	assertStagingEmpty(t, cfg)
}

func TestRunHandlesEachWorkOnce(t *testing.T) {
	cfg, dir := setup(t)
	testsupport.WriteContent(t, filepath.Join(dir, "800_ugoira600x600.ugoira"), []byte("bundle"))
	testsupport.WriteContent(t, filepath.Join(dir, "800_ugoira600x600.zip"), []byte("zip"))

	enc := &fileEncoder{outputs: []string{".gif"}, content: "new"}
	proc := &fakeProcessor{outcome: artwork.OutcomeOK}
	wf := reencode.NewWorkflow(cfg, proc, enc, logging.NewNop())

	summary, err := wf.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Bundles != 1 || len(enc.calls) != 1 || len(proc.requests) != 0 {
		t.Fatalf("unexpected summary %+v, encodes %d, online %d", summary, len(enc.calls), len(proc.requests))
	}
	if !strings.HasSuffix(enc.calls[0], ".ugoira") {
		t.Fatalf("ugoira bundles must be handled before zips, got %s", enc.calls[0])
	}
}

func TestRunInterruptRestoresAndPropagates(t *testing.T) {
	cfg, dir := setup(t)
	gif := filepath.Join(dir, "900_ugoira600x600.gif")
	testsupport.WriteContent(t, filepath.Join(dir, "900_ugoira600x600.zip"), []byte("zip"))
	testsupport.WriteContent(t, gif, []byte("old"))
	testsupport.WriteContent(t, filepath.Join(dir, "901_ugoira600x600.zip"), []byte("zip"))

	proc := &fakeProcessor{
		outcome: artwork.OutcomeKeyboardInterrupt,
		err:     services.Interrupted("download", context.Canceled),
	}
	wf := reencode.NewWorkflow(cfg, proc, &fileEncoder{}, logging.NewNop())

	_, err := wf.Run(context.Background(), "")
	if !services.IsInterrupted(err) {
		t.Fatalf("expected interrupt, got %v", err)
	}
	if len(proc.requests) != 1 {
		t.Fatalf("run should stop after the interrupted work, got %d requests", len(proc.requests))
	}
	assertContent(t, gif, "old")
	assertStagingEmpty(t, cfg)
}

func TestRunWithoutBundles(t *testing.T) {
	cfg, _ := setup(t)
	summary, err := reencode.NewWorkflow(cfg, &fakeProcessor{}, &fileEncoder{}, logging.NewNop()).Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Bundles != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
