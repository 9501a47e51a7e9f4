// Package i18n holds the user-facing message catalog.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed locales/*.json
var locales embed.FS

const DefaultLang = "en"

type Catalog struct {
	translations map[string]map[string]string
}

// Load reads every <lang>.json under dir in fsys.
func Load(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	c := &Catalog{translations: make(map[string]map[string]string)}
	for _, e := range entries {
		lang, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || e.IsDir() {
			continue
		}
		data, err := fs.ReadFile(fsys, dir+"/"+e.Name())
		if err != nil {
			return nil, err
		}
		var t map[string]string
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		c.translations[lang] = t
	}
	if _, ok := c.translations[DefaultLang]; !ok {
		return nil, fmt.Errorf("missing %s catalog", DefaultLang)
	}
	return c, nil
}

// Embedded returns the catalog compiled into the binary.
func Embedded() (*Catalog, error) {
	return Load(locales, "locales")
}

func (c *Catalog) T(lang, key string) string {
	if t, ok := c.translations[lang]; ok {
		if val, ok := t[key]; ok {
			return val
		}
	}
	// Fallback to English
	if lang != DefaultLang {
		return c.T(DefaultLang, key)
	}
	return key
}

// Tf translates key and formats it with args.
func (c *Catalog) Tf(lang, key string, args ...any) string {
	return fmt.Sprintf(c.T(lang, key), args...)
}

func (c *Catalog) DetectLanguage(r *http.Request) string {
	accept := r.Header.Get("Accept-Language")
	if accept != "" {
		// Example: fr-CH, fr;q=0.9, en;q=0.8, de;q=0.7, *;q=0.5
		parts := strings.Split(accept, ",")
		for _, part := range parts {
			lang := strings.TrimSpace(strings.Split(part, ";")[0])
			if len(lang) >= 2 {
				lang = strings.ToLower(lang[:2]) // e.g., "en-US" -> "en"
				if _, ok := c.translations[lang]; ok {
					return lang
				}
			}
		}
	}

	return DefaultLang
}
