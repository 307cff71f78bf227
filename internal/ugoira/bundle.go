package ugoira

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/encoding/json"

	"pixivdl/internal/artwork"
)

// ManifestName is the manifest entry stored inside ".ugoira" bundles.
const ManifestName = "animation.json"

// Bundle extensions.
const (
	ExtZip    = ".zip"
	ExtUgoira = ".ugoira"
)

// ErrNoManifest is returned when a bundle carries no frame manifest.
var ErrNoManifest = errors.New("bundle has no animation.json")

// ReadManifest returns the frame manifest stored in a ".ugoira" bundle.
func ReadManifest(path string) (*artwork.UgoiraMeta, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != ManifestName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		var meta artwork.UgoiraMeta
		if err := json.NewDecoder(rc).Decode(&meta); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
		if len(meta.Frames) == 0 {
			return nil, fmt.Errorf("manifest lists no frames")
		}
		return &meta, nil
	}
	return nil, ErrNoManifest
}

// WriteBundle copies the frames of zipPath into a ".ugoira" bundle at dst
// with meta stored as the manifest. The bundle is written to a temp file
// first so a failure never leaves a partial bundle behind.
func WriteBundle(zipPath, dst string, meta *artwork.UgoiraMeta) error {
	if meta == nil || len(meta.Frames) == 0 {
		return ErrNoManifest
	}
	src, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open frames: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	out := zip.NewWriter(tmp)
	for _, f := range src.File {
		if f.Name == ManifestName {
			continue
		}
		if err := out.Copy(f); err != nil {
			return fmt.Errorf("copy frame %s: %w", f.Name, err)
		}
	}
	manifest, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	w, err := out.Create(ManifestName)
	if err != nil {
		return err
	}
	if _, err := w.Write(manifest); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}

// extractFrames unpacks the frame images of a bundle into dir.
func extractFrames(bundle, dir string) error {
	r, err := zip.OpenReader(bundle)
	if err != nil {
		return fmt.Errorf("open bundle: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == ManifestName || f.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(f.Name)
		if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("invalid frame name %q", f.Name)
		}
		if err := extractOne(f, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func extractOne(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}

// OutputExtension returns the file extension for a codec name.
func OutputExtension(codec string) string {
	if codec == "apng" {
		return ".png"
	}
	return "." + codec
}

// IsBundle reports whether path has a bundle extension.
func IsBundle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ExtZip || ext == ExtUgoira
}
