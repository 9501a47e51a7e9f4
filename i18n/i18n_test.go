package i18n

import (
	"net/http/httptest"
	"testing"
	"testing/fstest"
)

func TestEmbeddedCatalogsHaveSameKeys(t *testing.T) {
	c, err := Embedded()
	if err != nil {
		t.Fatalf("Embedded: %v", err)
	}
	for key := range c.translations[DefaultLang] {
		for lang, t2 := range c.translations {
			if _, ok := t2[key]; !ok {
				t.Errorf("%s catalog is missing %q", lang, key)
			}
		}
	}
}

func TestTranslateFallback(t *testing.T) {
	c, err := Load(fstest.MapFS{
		"l/en.json": {Data: []byte(`{"Hello": "Hello", "Only": "English only"}`)},
		"l/fr.json": {Data: []byte(`{"Hello": "Bonjour"}`)},
	}, "l")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := c.T("fr", "Hello"); got != "Bonjour" {
		t.Errorf("expected Bonjour, got %q", got)
	}
	if got := c.T("fr", "Only"); got != "English only" {
		t.Errorf("expected English fallback, got %q", got)
	}
	if got := c.T("de", "Missing"); got != "Missing" {
		t.Errorf("expected key echo, got %q", got)
	}
	if got := c.Tf("en", "Hello"); got != "Hello" {
		t.Errorf("Tf without args: %q", got)
	}
}

func TestLoadRequiresDefaultLanguage(t *testing.T) {
	_, err := Load(fstest.MapFS{"l/fr.json": {Data: []byte(`{}`)}}, "l")
	if err == nil {
		t.Error("expected error without an en catalog")
	}
}

func TestDetectLanguage(t *testing.T) {
	c, _ := Embedded()
	tests := map[string]string{
		"":                          "en",
		"fr-CH, fr;q=0.9, en;q=0.8": "fr",
		"de-DE, en;q=0.5":           "en",
		"FR":                        "fr",
	}
	for header, want := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Accept-Language", header)
		if got := c.DetectLanguage(r); got != want {
			t.Errorf("Accept-Language %q: expected %s, got %s", header, want, got)
		}
	}
}
