package reencode

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"pixivdl/internal/staging"
	"pixivdl/internal/ugoira"
)

// Bundle is one discovered animated bundle.
type Bundle struct {
	Path string
	Dir  string
	// Name is the file name without extension.
	Name   string
	Ext    string
	WorkID string
}

// Scan walks root and returns every ".ugoira" bundle followed by every
// ".zip" bundle, each group in path order. Only files whose base name
// contains "ugoira" qualify; the work id is the text before the first "_".
// Staging directories are not descended into.
func Scan(root string) ([]Bundle, error) {
	groups := map[string][]Bundle{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), staging.Prefix) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext != ugoira.ExtUgoira && ext != ugoira.ExtZip {
			return nil
		}
		name := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		if !strings.Contains(name, "ugoira") {
			return nil
		}
		id, _, _ := strings.Cut(name, "_")
		groups[ext] = append(groups[ext], Bundle{
			Path:   path,
			Dir:    filepath.Dir(path),
			Name:   name,
			Ext:    ext,
			WorkID: id,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []Bundle
	for _, ext := range []string{ugoira.ExtUgoira, ugoira.ExtZip} {
		group := groups[ext]
		sort.Slice(group, func(i, j int) bool { return group[i].Path < group[j].Path })
		out = append(out, group...)
	}
	return out, nil
}
