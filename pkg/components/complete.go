package components

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/agentstation/metapool/pkg/constants"
)

var (
	iconExtensions = []string{"png", "svg", "svgz", "gif", "ico", "xcf"}
	iconSizeDirs   = []string{"", "64x64", "128x128"}
)

// Complete fills in data found on the system: cached icon names are
// resolved to files below iconDirs and, when screenshotService is set, a
// component without screenshots receives screenshots from that service.
func (c *Component) Complete(fs afero.Fs, screenshotService string, iconDirs []string) {
	c.refineIcons(fs, iconDirs)

	if screenshotService == "" || len(c.Screenshots) > 0 || len(c.PackageNames) == 0 {
		return
	}
	base := strings.TrimRight(screenshotService, "/")
	pkg := c.PackageNames[0]
	c.Screenshots = append(c.Screenshots, Screenshot{
		Kind: ScreenshotKindDefault,
		Images: []Image{
			{
				Kind:   ImageKindSource,
				URL:    base + "/screenshot/" + pkg,
				Width:  constants.ScreenshotSourceWidth,
				Height: constants.ScreenshotSourceHeight,
			},
			{
				Kind:   ImageKindThumbnail,
				URL:    base + "/thumbnail/" + pkg,
				Width:  constants.ThumbnailWidth,
				Height: constants.ThumbnailHeight,
			},
		},
	})
}

func (c *Component) refineIcons(fs afero.Fs, iconDirs []string) {
	if len(c.Icons) == 0 {
		return
	}
	refined := make([]Icon, 0, len(c.Icons))
	for _, icon := range c.Icons {
		if icon.Kind != IconKindCached && icon.Kind != IconKindLocal {
			refined = append(refined, icon)
			continue
		}
		name := icon.Filename
		if name == "" {
			name = icon.Name
		}
		if strings.HasPrefix(name, "/") {
			if icon.Width == 0 && icon.Height == 0 {
				icon.Width, icon.Height = 64, 64
			}
			icon.Filename = name
			refined = append(refined, icon)
			continue
		}
		if fs == nil || icon.Kind != IconKindCached {
			refined = append(refined, icon)
			continue
		}
		found := c.findCachedIcons(fs, icon, name, iconDirs)
		if len(found) == 0 {
			refined = append(refined, icon)
			continue
		}
		refined = append(refined, found...)
	}
	c.Icons = refined
}

func (c *Component) findCachedIcons(fs afero.Fs, icon Icon, name string, iconDirs []string) []Icon {
	// Known sizes live in exactly one directory.
	if icon.Width > 0 {
		size := fmt.Sprintf("%dx%d", icon.Width, icon.Height)
		for _, dir := range iconDirs {
			if fname, ok := probeIcon(fs, path.Join(dir, c.Origin, size), name); ok {
				icon.Filename = fname
				return []Icon{icon}
			}
		}
		return nil
	}

	var found []Icon
	seen := make(map[string]bool)
	for _, dir := range iconDirs {
		for _, size := range iconSizeDirs {
			fname, ok := probeIcon(fs, path.Join(dir, c.Origin, size), name)
			if !ok || seen[fname] {
				continue
			}
			seen[fname] = true
			resolved := icon
			resolved.Filename = fname
			resolved.Width, resolved.Height = 64, 64
			if size == "128x128" {
				resolved.Width, resolved.Height = 128, 128
			}
			found = append(found, resolved)
		}
	}
	return found
}

func probeIcon(fs afero.Fs, dir, name string) (string, bool) {
	candidate := path.Join(dir, name)
	if ok, _ := afero.Exists(fs, candidate); ok {
		return candidate, true
	}
	for _, ext := range iconExtensions {
		withExt := candidate + "." + ext
		if ok, _ := afero.Exists(fs, withExt); ok {
			return withExt, true
		}
	}
	return "", false
}
