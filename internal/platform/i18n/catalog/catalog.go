// Package catalog loads localized command messages and exposes them as
// x/text message printers.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	textcatalog "golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the canonical source locale for catalogs.
const BaseLocale = "en-US"

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// LocaleCatalog stores all messages for one locale, grouped by namespace.
type LocaleCatalog struct {
	Locale     string
	Namespaces map[string]map[string]string
	Messages   map[string]string
}

// Bundle contains every locale catalog and the x/text catalog built from them.
type Bundle struct {
	locales map[string]*LocaleCatalog
	tags    []language.Tag
	builder *textcatalog.Builder
	matcher language.Matcher
}

//go:embed locales/*/*.yaml
var embeddedCatalogFS embed.FS

// LoadEmbedded loads catalog files embedded in this package.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedCatalogFS)
}

// LoadFromFS loads catalog files laid out as locales/<locale>/<namespace>.yaml.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	bundle := &Bundle{locales: map[string]*LocaleCatalog{}}
	for _, filePath := range paths {
		data, err := fs.ReadFile(catalogFS, filePath)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", filePath, err)
		}
		var parsed catalogFile
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", filePath, err)
		}
		if err := bundle.addFile(filePath, parsed); err != nil {
			return nil, err
		}
	}

	if !bundle.HasLocale(BaseLocale) {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	if err := bundle.build(); err != nil {
		return nil, err
	}
	return bundle, nil
}

func (b *Bundle) addFile(filePath string, file catalogFile) error {
	localeFromPath := path.Base(path.Dir(filePath))
	namespaceFromPath := strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))

	locale := strings.TrimSpace(file.Locale)
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", filePath)
	}
	if locale != localeFromPath {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", filePath, locale, localeFromPath)
	}
	namespace := strings.TrimSpace(file.Namespace)
	if namespace != namespaceFromPath {
		return fmt.Errorf("catalog %s: namespace %q must match filename namespace %q", filePath, namespace, namespaceFromPath)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages map is required", filePath)
	}

	localeCatalog, ok := b.locales[locale]
	if !ok {
		localeCatalog = &LocaleCatalog{
			Locale:     locale,
			Namespaces: map[string]map[string]string{},
			Messages:   map[string]string{},
		}
		b.locales[locale] = localeCatalog
	}
	if _, exists := localeCatalog.Namespaces[namespace]; exists {
		return fmt.Errorf("catalog %s: namespace %q already defined for locale %q", filePath, namespace, locale)
	}

	namespaceMessages := make(map[string]string, len(file.Messages))
	for key, value := range file.Messages {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", filePath)
		}
		if _, exists := localeCatalog.Messages[trimmedKey]; exists {
			return fmt.Errorf("catalog %s: duplicate key %q in locale %q", filePath, trimmedKey, locale)
		}
		localeCatalog.Messages[trimmedKey] = value
		namespaceMessages[trimmedKey] = value
	}
	localeCatalog.Namespaces[namespace] = namespaceMessages
	return nil
}

// build registers every message in a private x/text catalog. The base locale
// is the fallback and comes first in the matcher.
func (b *Bundle) build() error {
	base := language.MustParse(BaseLocale)
	b.builder = textcatalog.NewBuilder(textcatalog.Fallback(base))
	b.tags = []language.Tag{base}

	for _, locale := range b.Locales() {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		if locale != BaseLocale {
			b.tags = append(b.tags, tag)
		}
		messages := b.locales[locale].Messages
		keys := make([]string, 0, len(messages))
		for key := range messages {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := b.builder.SetString(tag, key, messages[key]); err != nil {
				return fmt.Errorf("register %s %q: %w", locale, key, err)
			}
		}
	}
	b.matcher = language.NewMatcher(b.tags)
	return nil
}

// HasLocale reports whether the locale exists in this bundle.
func (b *Bundle) HasLocale(locale string) bool {
	if b == nil {
		return false
	}
	_, ok := b.locales[strings.TrimSpace(locale)]
	return ok
}

// Locales returns all available locale identifiers.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Message returns one message value with base-locale fallback.
func (b *Bundle) Message(locale string, key string) (string, bool) {
	if b == nil {
		return "", false
	}
	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return "", false
	}
	for _, candidate := range []string{strings.TrimSpace(locale), BaseLocale} {
		if catalog, ok := b.locales[candidate]; ok {
			if value, exists := catalog.Messages[trimmedKey]; exists {
				return value, true
			}
		}
	}
	return "", false
}

// NamespaceMessages returns a copy of one namespace for a locale.
func (b *Bundle) NamespaceMessages(locale string, namespace string) map[string]string {
	if b == nil {
		return map[string]string{}
	}
	catalog, ok := b.locales[strings.TrimSpace(locale)]
	if !ok {
		return map[string]string{}
	}
	messages := catalog.Namespaces[strings.TrimSpace(namespace)]
	out := make(map[string]string, len(messages))
	for key, value := range messages {
		out[key] = value
	}
	return out
}

// Match resolves a requested locale such as "de" or "pt_BR" to the closest
// supported tag. An empty request selects the base locale.
func (b *Bundle) Match(requested string) (language.Tag, error) {
	requested = strings.TrimSpace(strings.ReplaceAll(requested, "_", "-"))
	if requested == "" {
		return language.MustParse(BaseLocale), nil
	}
	tag, err := language.Parse(requested)
	if err != nil {
		return language.Und, fmt.Errorf("parse locale %q: %w", requested, err)
	}
	_, index, _ := b.matcher.Match(tag)
	return b.tags[index], nil
}

// Printer returns a printer for tag backed by this bundle's messages. Numbers
// are formatted for tag.
func (b *Bundle) Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(b.builder))
}
