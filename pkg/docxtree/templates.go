package docxtree

import (
	"archive/zip"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"
)

//go:embed templates/*.xml templates/*.rels
var templateFS embed.FS

// TemplateProvider supplies the initial XML skeleton of newly created parts
// by name, e.g. "header.xml" or "numbering.xml".
type TemplateProvider interface {
	Template(name string) ([]byte, error)
}

type embeddedTemplates struct{}

// EmbeddedTemplates returns the provider backed by the skeletons compiled
// into the package.
func EmbeddedTemplates() TemplateProvider {
	return embeddedTemplates{}
}

func (embeddedTemplates) Template(name string) ([]byte, error) {
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("no template named %q: %w", name, ErrNotFound)
	}
	return data, nil
}

// DirTemplates reads skeletons from a directory and falls back to the
// embedded ones for names the directory does not have. Reads are cached.
type DirTemplates struct {
	dir      string
	cache    *cache.Cache
	fallback TemplateProvider
}

// NewDirTemplates creates a directory-backed provider. ttl 0 caches entries
// until the process exits.
func NewDirTemplates(dir string, ttl time.Duration) *DirTemplates {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 2 * ttl
	}
	return &DirTemplates{
		dir:      dir,
		cache:    cache.New(expiration, cleanup),
		fallback: EmbeddedTemplates(),
	}
}

func (d *DirTemplates) Template(name string) ([]byte, error) {
	if cached, found := d.cache.Get(name); found {
		return bytes.Clone(cached.([]byte)), nil
	}

	data, err := os.ReadFile(filepath.Join(d.dir, filepath.Base(name)))
	if errors.Is(err, fs.ErrNotExist) {
		data, err = d.fallback.Template(name)
	}
	if err != nil {
		return nil, err
	}

	d.cache.Set(name, data, cache.DefaultExpiration)
	return bytes.Clone(data), nil
}

// Flush drops every cached skeleton.
func (d *DirTemplates) Flush() {
	d.cache.Flush()
}

// templatesFromConfig picks the provider a Config asks for.
func templatesFromConfig(config *Config) TemplateProvider {
	if config != nil && config.TemplateDir != "" {
		return NewDirTemplates(config.TemplateDir, config.TemplateCacheTTL)
	}
	return EmbeddedTemplates()
}

// blankPackage assembles a minimal package from the skeletons of tp.
func blankPackage(tp TemplateProvider) ([]byte, error) {
	entries := []struct{ name, template string }{
		{contentTypesPath, "content_types.xml"},
		{"_rels/.rels", "package.rels"},
		{"word/document.xml", "document.xml"},
		{"word/_rels/document.xml.rels", "document.xml.rels"},
		{"word/styles.xml", "styles.xml"},
		{"word/settings.xml", "settings.xml"},
	}

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, e := range entries {
		data, err := tp.Template(e.template)
		if err != nil {
			return nil, fmt.Errorf("failed to load template %s: %w", e.template, err)
		}
		fw, err := w.Create(e.name)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
