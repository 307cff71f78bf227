package filename

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// maxComponentBytes keeps each path element under common filesystem limits.
const maxComponentBytes = 240

var (
	invalidChars   = regexp.MustCompile(`[:*?"<>|]`)
	mangaPageRe    = regexp.MustCompile(`(\d+(_big)?_p\d+)`)
	pageSuffixRe   = regexp.MustCompile(`_p?\d+$`)
	repeatedSpaces = regexp.MustCompile(`\s{2,}`)
)

// Sanitize cleans a rendered name and places it under targetDir. The result is absolute.
func Sanitize(name, targetDir string) string {
	name = norm.NFC.String(name)
	if targetDir != "" {
		if rel, ok := strings.CutPrefix(name, targetDir); ok && filepath.IsAbs(name) {
			name = rel
		}
	}

	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' })
	clean := make([]string, 0, len(parts)+1)
	if targetDir != "" {
		clean = append(clean, targetDir)
	}
	for i, part := range parts {
		part = sanitizeComponent(part, i == len(parts)-1)
		if part == "" || part == "." || part == ".." {
			continue
		}
		clean = append(clean, part)
	}

	joined := filepath.Join(clean...)
	if abs, err := filepath.Abs(joined); err == nil {
		return abs
	}
	return joined
}

func sanitizeComponent(part string, last bool) string {
	part = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, part)
	part = invalidChars.ReplaceAllString(part, "_")
	part = repeatedSpaces.ReplaceAllString(part, " ")
	part = strings.TrimSpace(part)
	part = strings.TrimRight(part, ". ")
	if len(part) <= maxComponentBytes {
		return part
	}
	ext := ""
	if last {
		if i := strings.LastIndexByte(part, '.'); i > 0 && len(part)-i <= 10 {
			ext = part[i:]
			part = part[:i]
		}
	}
	return truncateUTF8(part, maxComponentBytes-len(ext)) + ext
}

func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return strings.TrimSpace(s[:limit])
}

// RewriteMangaDir turns the first page marker like "100_p0" into a
// "100/_p0" directory split so each work's pages share a directory.
func RewriteMangaDir(path string) string {
	loc := mangaPageRe.FindStringIndex(path)
	if loc == nil {
		return path
	}
	match := path[loc[0]:loc[1]]
	head, tail, _ := strings.Cut(match, "_p")
	return path[:loc[0]] + head + string(os.PathSeparator) + "_p" + tail + path[loc[1]:]
}

// StripPageSuffix removes a trailing page marker such as "_p3" or "_12".
func StripPageSuffix(name string) string {
	return pageSuffixRe.ReplaceAllString(name, "")
}
