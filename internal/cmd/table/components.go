// Package table converts components into rows for CLI table output.
package table

import (
	"strconv"
	"strings"

	"github.com/agentstation/metapool/pkg/components"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// maxSummary is the widest summary shown in narrow tables.
const maxSummary = 60

// ComponentsToTableData converts components to table format. Wide tables
// add origin, packages and the data id.
func ComponentsToTableData(cpts []*components.Component, wide bool) Data {
	headers := []string{"ID", "Type", "Name", "Summary"}
	if wide {
		headers = append(headers, "Origin", "Packages", "Data ID")
	}

	rows := make([][]string, 0, len(cpts))
	for _, c := range cpts {
		summary := c.Summary()
		if !wide {
			summary = truncate(summary, maxSummary)
		}
		row := []string{c.ID, c.Kind.String(), orDash(c.Name()), orDash(summary)}
		if wide {
			row = append(row, orDash(c.Origin), orDash(strings.Join(c.PackageNames, ", ")), c.DataID())
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows}
}

// ComponentDetails renders one component as property/value rows.
func ComponentDetails(c *components.Component) Data {
	rows := [][]string{
		{"ID", c.ID},
		{"Data ID", c.DataID()},
		{"Type", c.Kind.String()},
		{"Name", orDash(c.Name())},
		{"Summary", orDash(c.Summary())},
		{"Origin", orDash(c.Origin)},
		{"Scope", orDash(string(c.Scope))},
		{"Priority", strconv.Itoa(c.Priority)},
	}
	add := func(name string, values []string) {
		if len(values) > 0 {
			rows = append(rows, []string{name, strings.Join(values, ", ")})
		}
	}
	add("Packages", c.PackageNames)
	for _, b := range c.Bundles {
		rows = append(rows, []string{"Bundle", string(b.Kind) + ": " + b.ID})
	}
	add("Categories", c.Categories)
	add("Extends", c.Extends)
	add("Addons", c.Addons)
	for _, p := range c.Provided {
		add("Provides "+string(p.Kind), p.Items)
	}
	for _, l := range c.Launchables {
		add("Launchable "+string(l.Kind), l.Entries)
	}
	for _, i := range c.Icons {
		name := i.Name
		if i.Filename != "" {
			name = i.Filename
		}
		if i.URL != "" {
			name = i.URL
		}
		rows = append(rows, []string{"Icon", string(i.Kind) + ": " + name})
	}
	if c.ProjectLicense != "" {
		rows = append(rows, []string{"License", c.ProjectLicense})
	}
	return Data{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
