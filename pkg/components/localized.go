package components

import (
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/agentstation/metapool/pkg/constants"
)

// NormalizeLocale strips encoding and modifier suffixes from a POSIX locale,
// so "de_DE.UTF-8@euro" becomes "de_DE". An empty locale becomes "C".
func NormalizeLocale(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	locale = strings.TrimSpace(locale)
	if locale == "" || locale == "POSIX" {
		return constants.DefaultLocale
	}
	return locale
}

// BaseLanguage returns the bare language of a locale ("de_DE" -> "de"), or
// the empty string when the locale has no language part.
func BaseLanguage(locale string) string {
	locale = NormalizeLocale(locale)
	if locale == constants.DefaultLocale {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		if i := strings.IndexAny(locale, "_-"); i > 0 {
			return locale[:i]
		}
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}

// Localized maps locales to translated strings.
type Localized map[string]string

// Lookup returns the value for locale. With fallback enabled it tries the
// base language and then the "C" default.
func (l Localized) Lookup(locale string, fallback bool) string {
	if len(l) == 0 {
		return ""
	}
	locale = NormalizeLocale(locale)
	if v, ok := l[locale]; ok {
		return v
	}
	if !fallback {
		return ""
	}
	if base := BaseLanguage(locale); base != "" && base != locale {
		if v, ok := l[base]; ok {
			return v
		}
	}
	return l[constants.DefaultLocale]
}

// Locales returns the sorted locales with a value.
func (l Localized) Locales() []string {
	out := make([]string, 0, len(l))
	for k := range l {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy of l.
func (l Localized) Clone() Localized {
	if l == nil {
		return nil
	}
	out := make(Localized, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// LocalizedList maps locales to lists of strings, as used by keywords.
type LocalizedList map[string][]string

// Lookup returns the list for locale with the same fallback rules as Localized.
func (l LocalizedList) Lookup(locale string, fallback bool) []string {
	if len(l) == 0 {
		return nil
	}
	locale = NormalizeLocale(locale)
	if v, ok := l[locale]; ok {
		return v
	}
	if !fallback {
		return nil
	}
	if base := BaseLanguage(locale); base != "" && base != locale {
		if v, ok := l[base]; ok {
			return v
		}
	}
	return l[constants.DefaultLocale]
}

// Clone returns a deep copy of l.
func (l LocalizedList) Clone() LocalizedList {
	if l == nil {
		return nil
	}
	out := make(LocalizedList, len(l))
	for k, v := range l {
		out[k] = append([]string(nil), v...)
	}
	return out
}
