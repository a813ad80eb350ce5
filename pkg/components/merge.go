package components

import "slices"

// Merge folds src into c according to src's merge kind.
func (c *Component) Merge(src *Component) {
	c.MergeWithMode(src, src.MergeKind)
}

// MergeWithMode folds src into c using mode. Append unions categories and
// desktop lists, appends suggestions and fills icons, launchables and
// provided items c lacks. Replace overwrites the name map, package names
// and bundles when src sets them. Other modes are no-ops.
func (c *Component) MergeWithMode(src *Component, mode MergeKind) {
	if src == nil {
		return
	}
	switch mode {
	case MergeKindAppend:
		for _, cat := range src.Categories {
			c.AddCategory(cat)
		}
		for _, desktop := range src.CompulsoryForDesktops {
			if !slices.Contains(c.CompulsoryForDesktops, desktop) {
				c.CompulsoryForDesktops = append(c.CompulsoryForDesktops, desktop)
			}
		}
		for _, s := range src.Suggested {
			c.Suggested = append(c.Suggested, Suggested{Kind: s.Kind, IDs: slices.Clone(s.IDs)})
		}
		if len(c.Icons) == 0 {
			c.Icons = slices.Clone(src.Icons)
		}
		for _, l := range src.Launchables {
			c.AddLaunchable(l.Kind, l.Entries...)
		}
		for _, p := range src.Provided {
			c.AddProvided(p.Kind, p.Items...)
		}
		if len(c.Keywords) == 0 {
			c.Keywords = src.Keywords.Clone()
		}
	case MergeKindReplace:
		if len(src.Names) > 0 {
			c.Names = src.Names.Clone()
		}
		if len(src.PackageNames) > 0 {
			c.PackageNames = slices.Clone(src.PackageNames)
		}
		if len(src.Bundles) > 0 {
			c.Bundles = slices.Clone(src.Bundles)
		}
	default:
		return
	}
	c.InvalidateTokenCache()
}
