package i18n

import (
	"strings"
	"testing"
)

func TestEmbeddedCatalogCoversEveryLanguage(t *testing.T) {
	catalog, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	langs := catalog.Languages()
	if len(langs) != 3 {
		t.Fatalf("expected 3 languages, got %d", len(langs))
	}
	for key, entry := range catalog.texts {
		for _, lang := range langs {
			if strings.TrimSpace(entry[lang.Code]) == "" {
				t.Fatalf("key %q has no %s text", key, lang.Code)
			}
		}
	}
}

func TestTextPlaceholdersAndFallback(t *testing.T) {
	catalog, err := Parse([]byte(`
languages:
  - code: ru
    name: Русский
  - code: en
    name: English
texts:
  greeting:
    ru: "Привет, {name}"
    en: "Hello, {name}"
  only_ru:
    ru: "только русский"
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := catalog.Text("en", "greeting", "name", "Aru"); got != "Hello, Aru" {
		t.Fatalf("unexpected text %q", got)
	}
	if got := catalog.Text("en", "only_ru"); got != "только русский" {
		t.Fatalf("expected default language fallback, got %q", got)
	}
	if got := catalog.Text("en", "missing_key"); got != "missing_key" {
		t.Fatalf("expected key fallback, got %q", got)
	}
	if catalog.Supported("kk") {
		t.Fatalf("kk is not declared in this catalog")
	}
}
