package sources

import (
	"bufio"
	"bytes"
	"math"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/errors"
)

const desktopGroup = "Desktop Entry"

// toolkitCategories are desktop-entry categories that say nothing about
// what an application does.
var toolkitCategories = map[string]bool{
	"GTK": true, "Qt": true, "GNOME": true, "KDE": true, "GUI": true, "Application": true,
}

// desktopEntry holds the key/value pairs of the [Desktop Entry] group in
// file order.
type desktopEntry struct {
	keys   []string
	values map[string]string
}

func (e *desktopEntry) get(key string) string {
	return e.values[key]
}

func readDesktopEntry(data []byte) (*desktopEntry, error) {
	entry := &desktopEntry{values: make(map[string]string)}
	found := false
	group := ""

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			group = line[1 : len(line)-1]
			if group == desktopGroup {
				found = true
			}
			continue
		}
		if group != desktopGroup {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, dup := entry.values[key]; !dup {
			entry.keys = append(entry.keys, key)
		}
		entry.values[key] = unescapeDesktopValue(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("no [Desktop Entry] group")
	}
	return entry, nil
}

func unescapeDesktopValue(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	r := strings.NewReplacer(`\s`, " ", `\n`, "\n", `\t`, "\t", `\r`, "\r", `\\`, `\`)
	return r.Replace(v)
}

// splitKeyLocale splits "Name[de_DE]" into "Name" and "de_DE". Keys without
// a locale belong to "C". ok is false for malformed keys.
func splitKeyLocale(key string) (base, locale string, ok bool) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, "C", true
	}
	if !strings.HasSuffix(key, "]") || open == len(key)-2 {
		return "", "", false
	}
	return key[:open], components.NormalizeLocale(key[open+1 : len(key)-1]), true
}

// desktopComponentID derives the component id from the file name. Files
// named after a reverse domain ("org.example.App.desktop") lose their
// suffix, every other name is kept as is.
func desktopComponentID(basename string) string {
	parts := strings.SplitN(basename, ".", 3)
	if len(parts) != 3 || !strings.HasSuffix(basename, ".desktop") {
		return basename
	}
	if suffix, icann := publicsuffix.PublicSuffix(parts[0]); !icann || suffix != parts[0] {
		return basename
	}
	return strings.TrimSuffix(basename, ".desktop")
}

// parseDesktopEntry synthesizes a component from desktop-entry data.
// It returns nil when the file does not describe a visible application
// that should be considered at all. NoDisplay, Hidden and OnlyShowIn
// entries are returned marked as ignored, so their data can still be folded
// into metainfo.
func parseDesktopEntry(data []byte, basename string) (*components.Component, error) {
	entry, err := readDesktopEntry(data)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(entry.get("Type"), "application") {
		return nil, nil
	}
	if strings.EqualFold(entry.get("X-AppStream-Ignore"), "true") {
		return nil, nil
	}

	c := components.New(components.KindDesktopApp, desktopComponentID(basename))
	c.OriginKind = components.OriginKindDesktopEntry
	c.Ignored = strings.EqualFold(entry.get("NoDisplay"), "true") ||
		strings.EqualFold(entry.get("Hidden"), "true")
	if _, ok := entry.values["OnlyShowIn"]; ok {
		c.Ignored = true
	}

	for _, key := range entry.keys {
		base, locale, ok := splitKeyLocale(key)
		if !ok {
			continue
		}
		value := entry.values[key]
		if value == "" {
			continue
		}
		switch base {
		case "Name":
			c.SetName(value, locale)
		case "Comment":
			c.SetSummary(value, locale)
		case "Keywords":
			c.SetKeywords(splitList(value), locale)
		case "Categories":
			for _, cat := range splitList(value) {
				if toolkitCategories[cat] || strings.HasPrefix(cat, "X-") || strings.HasPrefix(cat, "x-") {
					continue
				}
				c.AddCategory(cat)
			}
		case "MimeType":
			if mts := splitList(value); len(mts) > 0 {
				c.AddProvided(components.ProvidedKindMediatype, mts...)
			}
		case "Icon":
			c.Icons = append(c.Icons, desktopIcon(value))
		}
	}

	c.AddLaunchable(components.LaunchableKindDesktopID, basename)
	c.Priority = math.MinInt
	return c, nil
}

func desktopIcon(value string) components.Icon {
	if strings.HasPrefix(value, "/") {
		return components.Icon{Kind: components.IconKindLocal, Filename: value}
	}
	for _, ext := range []string{".png", ".xpm", ".svg", ".svgz"} {
		value = strings.TrimSuffix(value, ext)
	}
	return components.Icon{Kind: components.IconKindStock, Name: value}
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ";") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
