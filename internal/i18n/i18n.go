package i18n

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used for unknown actors and for keys missing in the
// requested language.
const DefaultLanguage = "ru"

//go:embed locales.yaml
var embedded []byte

type Language struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type Catalog struct {
	languages []Language
	texts     map[string]map[string]string
}

type document struct {
	Languages []Language                   `yaml:"languages"`
	Texts     map[string]map[string]string `yaml:"texts"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(embedded)
}

func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse locales: %w", err)
	}
	if len(doc.Languages) == 0 {
		return nil, fmt.Errorf("parse locales: no languages defined")
	}
	return &Catalog{languages: doc.Languages, texts: doc.Texts}, nil
}

func (c *Catalog) Languages() []Language {
	out := make([]Language, len(c.languages))
	copy(out, c.languages)
	return out
}

func (c *Catalog) Supported(code string) bool {
	for _, lang := range c.languages {
		if lang.Code == code {
			return true
		}
	}
	return false
}

// Text returns the string for key in lang, falling back to the default
// language and then to the key itself. args are name/value pairs that
// replace {name} placeholders.
func (c *Catalog) Text(lang, key string, args ...string) string {
	text := c.lookup(lang, key)
	if len(args) < 2 {
		return text
	}
	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{"+args[i]+"}", args[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func (c *Catalog) lookup(lang, key string) string {
	entry, ok := c.texts[key]
	if !ok {
		return key
	}
	if text, ok := entry[lang]; ok {
		return text
	}
	if text, ok := entry[DefaultLanguage]; ok {
		return text
	}
	return key
}
