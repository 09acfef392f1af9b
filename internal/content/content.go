// Package content renders the member-only markdown pages.
package content

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed default/*.md
var defaultFS embed.FS

// HomePage is the page served at the site root.
const HomePage = "index"

var (
	ErrNotFound    = errors.New("page not found")
	ErrInvalidName = errors.New("invalid page name")
)

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Library serves <name>.md files from a filesystem root.
type Library struct {
	fsys fs.FS
	md   goldmark.Markdown
}

// New uses fsys, or the embedded pages when fsys is nil.
func New(fsys fs.FS) *Library {
	if fsys == nil {
		sub, err := fs.Sub(defaultFS, "default")
		if err != nil {
			panic(err)
		}
		fsys = sub
	}
	return &Library{
		fsys: fsys,
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Render converts a page to HTML. Raw HTML inside the markdown is dropped.
func (l *Library) Render(name string) (template.HTML, error) {
	if !nameRe.MatchString(name) {
		return "", ErrInvalidName
	}
	src, err := fs.ReadFile(l.fsys, name+".md")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	var buf bytes.Buffer
	if err := l.md.Convert(src, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Pages lists page names other than the home page, sorted.
func (l *Library) Pages() ([]string, error) {
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".md")
		if name == HomePage || !nameRe.MatchString(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Title returns the text of the first level-one heading, or the name itself.
func (l *Library) Title(name string) string {
	src, err := fs.ReadFile(l.fsys, name+".md")
	if err != nil {
		return name
	}
	for _, line := range strings.Split(string(src), "\n") {
		if t, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(t)
		}
	}
	return name
}
