package output

import (
	"io"

	"github.com/agentstation/metapool/internal/cmd/table"
	"github.com/agentstation/metapool/pkg/components"
)

// FormatComponents writes a component list in format. Tables show one row
// per component, ids one data id per line, structured formats the full
// components.
func FormatComponents(w io.Writer, format Format, cpts []*components.Component) error {
	var data any
	switch format {
	case FormatTable, FormatWide, "":
		data = table.ComponentsToTableData(cpts, format == FormatWide)
	case FormatIDs:
		ids := make([]string, 0, len(cpts))
		for _, c := range cpts {
			ids = append(ids, c.DataID())
		}
		data = ids
	default:
		if cpts == nil {
			cpts = []*components.Component{}
		}
		data = cpts
	}
	return NewFormatter(format).Format(w, data)
}

// FormatComponent writes one component in format. Tables show a
// property/value listing.
func FormatComponent(w io.Writer, format Format, c *components.Component) error {
	var data any = c
	switch format {
	case FormatTable, FormatWide, "":
		data = table.ComponentDetails(c)
	case FormatIDs:
		data = []string{c.DataID()}
	}
	return NewFormatter(format).Format(w, data)
}
