package ugoira

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
	"pixivdl/internal/fileutil"
	"pixivdl/internal/logging"
	"pixivdl/internal/services"
)

const stageEncode = "ugoira"

// EncodeError reports a bundle that could not be turned into an output.
type EncodeError struct {
	Bundle string
	Codec  string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Codec == "" {
		return fmt.Sprintf("ugoira %s: %v", filepath.Base(e.Bundle), e.Err)
	}
	return fmt.Sprintf("ugoira %s -> %s: %v", filepath.Base(e.Bundle), e.Codec, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Encoder turns bundles into the codecs enabled in the configuration.
type Encoder struct {
	cfg    *config.Config
	logger *slog.Logger
	run    CommandRunner
}

// EncoderOption customises an Encoder.
type EncoderOption func(*Encoder)

// WithCommandRunner replaces the ffmpeg runner.
func WithCommandRunner(run CommandRunner) EncoderOption {
	return func(e *Encoder) {
		if run != nil {
			e.run = run
		}
	}
}

// NewEncoder constructs an encoder.
func NewEncoder(cfg *config.Config, logger *slog.Logger, opts ...EncoderOption) *Encoder {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Encoder{cfg: cfg, logger: logging.NewComponentLogger(logger, "ugoira"), run: defaultCommandRunner}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode converts the bundle at bundlePath. Outputs sit next to the bundle
// and share its base name. work supplies the frame manifest for ".zip"
// bundles; it may be nil for ".ugoira" bundles, which carry their own.
//
// A ".zip" source is first wrapped into a ".ugoira" bundle, which is then
// removed when delete_ugoira is set and create_ugoira is not. The zip is
// removed after success when delete_zip_file is set.
func (e *Encoder) Encode(ctx context.Context, work *artwork.Work, bundlePath string) error {
	if work != nil {
		ctx = services.WithWorkID(ctx, work.ID)
	}
	ctx = services.WithStage(ctx, stageEncode)
	logger := logging.WithContext(ctx, e.logger)
	ug := e.cfg.Ugoira

	ext := strings.ToLower(filepath.Ext(bundlePath))
	base := strings.TrimSuffix(bundlePath, filepath.Ext(bundlePath))
	bundle := bundlePath

	switch ext {
	case ExtZip:
		if work == nil || work.Ugoira == nil {
			return &EncodeError{Bundle: bundlePath, Err: ErrNoManifest}
		}
		bundle = base + ExtUgoira
		if _, err := os.Stat(bundle); err != nil || e.cfg.Download.Overwrite {
			if err := WriteBundle(bundlePath, bundle, work.Ugoira); err != nil {
				return &EncodeError{Bundle: bundlePath, Codec: "ugoira", Err: err}
			}
			logger.Debug("ugoira bundle written", logging.String("path", bundle))
		}
	case ExtUgoira:
	default:
		return &EncodeError{Bundle: bundlePath, Err: fmt.Errorf("unsupported bundle extension %q", ext)}
	}

	meta, err := ReadManifest(bundle)
	if err != nil {
		return &EncodeError{Bundle: bundle, Err: err}
	}

	codecs := ug.Codecs()
	if len(codecs) > 0 {
		if err := e.encodeCodecs(ctx, logger, bundle, base, meta, codecs); err != nil {
			return err
		}
	}

	if ext == ExtZip && ug.DeleteZipFile {
		if err := os.Remove(bundlePath); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove zip after conversion", logging.String("path", bundlePath), logging.Error(err))
		}
	}
	if ug.DeleteUgoira && !ug.CreateUgoira {
		if err := os.Remove(bundle); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove ugoira bundle", logging.String("path", bundle), logging.Error(err))
		}
	}
	return nil
}

func (e *Encoder) encodeCodecs(ctx context.Context, logger *slog.Logger, bundle, base string, meta *artwork.UgoiraMeta, codecs []string) error {
	if dir := e.cfg.Paths.StagingDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &EncodeError{Bundle: bundle, Err: err}
		}
	}
	workDir, err := os.MkdirTemp(e.cfg.Paths.StagingDir, "ugoira-frames-")
	if err != nil {
		return &EncodeError{Bundle: bundle, Err: fmt.Errorf("create frame dir: %w", err)}
	}
	defer os.RemoveAll(workDir)

	if err := extractFrames(bundle, workDir); err != nil {
		return &EncodeError{Bundle: bundle, Err: err}
	}
	list := filepath.Join(workDir, "frames.ffconcat")
	if err := fileutil.WriteFileAtomic(list, concatList(meta)); err != nil {
		return &EncodeError{Bundle: bundle, Err: err}
	}

	for _, codec := range codecs {
		out := base + OutputExtension(codec)
		if _, err := os.Stat(out); err == nil && !e.cfg.Download.Overwrite {
			logger.Debug("output exists, skipping", logging.String("codec", codec), logging.String("path", out))
			continue
		}
		tmp := filepath.Join(workDir, "out"+OutputExtension(codec))
		args := append([]string{"-y", "-hide_banner", "-loglevel", "error", "-f", "concat", "-safe", "0", "-i", list}, e.codecArgs(codec)...)
		args = append(args, tmp)
		if err := e.run(ctx, e.cfg.FFmpegBinary(), args...); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return services.Interrupted(stageEncode, ctxErr)
			}
			return &EncodeError{Bundle: bundle, Codec: codec, Err: services.Wrap(services.ErrExternalTool, stageEncode, "ffmpeg", codec, err)}
		}
		if err := fileutil.MoveFile(tmp, out); err != nil {
			return &EncodeError{Bundle: bundle, Codec: codec, Err: err}
		}
		size := int64(0)
		if info, err := os.Stat(out); err == nil {
			size = info.Size()
		}
		logger.Info("ugoira encoded",
			logging.String("codec", codec),
			logging.String("path", out),
			logging.String("size", humanize.IBytes(uint64(size))),
			logging.Int("frames", len(meta.Frames)),
		)
	}
	return nil
}

func (e *Encoder) codecArgs(codec string) []string {
	switch codec {
	case "gif":
		return []string{"-filter_complex", "[0:v]split[a][b];[a]palettegen=stats_mode=diff[p];[b][p]paletteuse=dither=bayer:bayer_scale=5:diff_mode=rectangle", "-loop", "0", "-f", "gif"}
	case "apng":
		return []string{"-c:v", "apng", "-plays", "0", "-f", "apng"}
	case "avif":
		return []string{"-c:v", "libaom-av1", "-cpu-used", "6", "-crf", "30", "-pix_fmt", "yuv420p", "-f", "avif"}
	case "webm":
		return []string{"-c:v", e.cfg.Ugoira.WebMCodec, "-b:v", "0", "-crf", "20", "-pix_fmt", "yuv420p", "-f", "webm"}
	case "webp":
		return []string{"-c:v", "libwebp", "-quality", strconv.Itoa(e.cfg.Ugoira.WebPQuality), "-loop", "0", "-f", "webp"}
	case "mkv":
		return []string{"-c:v", "copy", "-f", "matroska"}
	}
	return nil
}

// concatList renders an ffconcat script carrying the per-frame delays. The
// last frame is listed twice so its duration is honoured.
func concatList(meta *artwork.UgoiraMeta) []byte {
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	for _, frame := range meta.Frames {
		fmt.Fprintf(&b, "file '%s'\nduration %.3f\n", escapeConcat(frame.File), float64(frame.Delay)/1000)
	}
	if n := len(meta.Frames); n > 0 {
		fmt.Fprintf(&b, "file '%s'\n", escapeConcat(meta.Frames[n-1].File))
	}
	return []byte(b.String())
}

func escapeConcat(name string) string {
	return strings.ReplaceAll(filepath.Base(name), "'", `'\''`)
}

// IsEncodeError reports whether err carries an *EncodeError.
func IsEncodeError(err error) bool {
	var ee *EncodeError
	return errors.As(err, &ee)
}
