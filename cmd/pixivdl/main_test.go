package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"pixivdl/internal/config"
	"pixivdl/internal/provider"
	"pixivdl/internal/testsupport"
)

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	server     *httptest.Server
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	env := &cliTestEnv{cfg: cfg}

	mux := http.NewServeMux()
	env.server = httptest.NewServer(mux)
	t.Cleanup(env.server.Close)

	mux.HandleFunc("/ajax/illust/500", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":false,"message":"","body":{
			"illustId":"500","illustTitle":"Single","illustType":0,"userId":"9","userName":"Artist","userAccount":"artist",
			"pageCount":1,"bookmarkCount":12,"createDate":"2024-02-03T04:05:06+09:00",
			"tags":{"tags":[{"tag":"風景","romaji":"fuukei","translation":{"en":"scenery"}}]},
			"urls":{"original":"` + env.server.URL + `/img/500_p0.png","regular":"` + env.server.URL + `/img/500_p0_master1200.jpg"}}}`))
	})
	mux.HandleFunc("/ajax/illust/404", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":true,"message":"deleted","body":[]}`))
	})
	mux.HandleFunc("/img/500_p0.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
	})

	env.configPath = filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, env.configPath, cfg)
	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, args, env.configPath, provider.WithBaseURL(env.server.URL))
}

func runCLI(t *testing.T, args []string, configPath string, opts ...provider.Option) (string, error) {
	t.Helper()
	cmd := newRootCommand(opts...)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n%s", needle, haystack)
	}
}

func TestImageCommandDownloadsAndRecords(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "image", "500")
	if err != nil {
		t.Fatalf("image: %v\n%s", err, out)
	}
	requireContains(t, out, "ok")

	matches, err := filepath.Glob(filepath.Join(env.cfg.Paths.RootDirectory, "*", "500_p0*.png"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one downloaded file, got %v (err %v)", matches, err)
	}
	if got := testsupport.ReadFile(t, matches[0]); !bytes.Equal(got, pngHeader) {
		t.Fatalf("unexpected payload %q", got)
	}

	out, err = env.run(t, "db", "show", "500")
	if err != nil {
		t.Fatalf("db show: %v", err)
	}
	requireContains(t, out, "Single")
	requireContains(t, out, "風景")
	requireContains(t, out, "en=scenery")

	// Second run short-circuits on the database record.
	out, err = env.run(t, "image", "500")
	if err != nil {
		t.Fatalf("second image run: %v", err)
	}
	requireContains(t, out, "skip_duplicate_no_wait")
}

func TestImageCommandReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "image", "404")
	if err == nil || !strings.Contains(err.Error(), "1 work(s) failed") {
		t.Fatalf("expected failure summary, got %v", err)
	}
	requireContains(t, out, "not_ok")
	requireContains(t, out, "2001")

	dumps, _ := filepath.Glob(filepath.Join(env.cfg.Paths.LogDir, "*404*.html"))
	if len(dumps) != 1 {
		t.Fatalf("expected an error page dump, got %v", dumps)
	}
}

func TestImageCommandRefusesConcurrentRun(t *testing.T) {
	env := setupCLITestEnv(t)

	lock := flock.New(env.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("take lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	_, err = env.run(t, "image", "500")
	if err == nil || !strings.Contains(err.Error(), "another pixivdl run") {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestDBShowUnknownWork(t *testing.T) {
	env := setupCLITestEnv(t)
	_, err := env.run(t, "db", "show", "12345")
	if err == nil || !strings.Contains(err.Error(), "not in the database") {
		t.Fatalf("expected missing-work error, got %v", err)
	}
}

func TestSeriesCommandValidatesPages(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "series", "55", "--start", "0"); err == nil {
		t.Fatal("expected error for --start 0")
	}
	if _, err := env.run(t, "series", "55", "--start", "3", "--end", "2"); err == nil {
		t.Fatal("expected error for --end before --start")
	}
}

func TestReencodeRequiresEnabledOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	_, err := env.run(t, "reencode")
	if err == nil || !strings.Contains(err.Error(), "no ugoira output is enabled") {
		t.Fatalf("expected disabled-output error, got %v", err)
	}
}

func TestStatusOffline(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "status", "--offline")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Preflight ==")
	requireContains(t, out, "Download directory")
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "Works:")
}
