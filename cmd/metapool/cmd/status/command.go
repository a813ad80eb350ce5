// Package status provides the status command.
package status

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/metapool/internal/appcontext"
	"github.com/agentstation/metapool/internal/cmd/output"
	"github.com/agentstation/metapool/internal/cmd/table"
	"github.com/agentstation/metapool/pkg/pool"
)

// Status summarizes the state of the component pool.
type Status struct {
	Locale        string         `json:"locale" yaml:"locale"`
	Architecture  string         `json:"architecture" yaml:"architecture"`
	Flags         string         `json:"flags" yaml:"flags"`
	CacheFlags    string         `json:"cache_flags" yaml:"cache_flags"`
	CachePath     string         `json:"cache_path,omitempty" yaml:"cache_path,omitempty"`
	CacheTime     *time.Time     `json:"cache_time,omitempty" yaml:"cache_time,omitempty"`
	Components    int            `json:"components" yaml:"components"`
	Locations     pool.Locations `json:"locations" yaml:"locations"`
	MonitoredDirs []string       `json:"monitored_dirs,omitempty" yaml:"monitored_dirs,omitempty"`
}

// NewCommand creates the status command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: "management",
		Short:   "Show pool and cache status",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			st := Collect(client.Pool())
			format := output.DetectFormat(app.OutputFormat())
			var data any = st
			if format == output.FormatTable || format == output.FormatWide {
				data = st.tableData()
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), data)
		},
	}
}

// Collect gathers the status of p.
func Collect(p *pool.Pool) Status {
	st := Status{
		Locale:        p.Locale(),
		Architecture:  p.Architecture(),
		Flags:         p.Flags().String(),
		CacheFlags:    p.CacheFlags().String(),
		CachePath:     p.CachePath(),
		Components:    p.Len(),
		Locations:     p.MetadataLocations(),
		MonitoredDirs: p.MonitoredDirs(),
	}
	if t, ok := p.CacheAge(); ok {
		st.CacheTime = &t
	}
	return st
}

func (s Status) tableData() table.Data {
	cacheTime := "-"
	if s.CacheTime != nil {
		cacheTime = s.CacheTime.Format(time.RFC3339)
	}
	rows := [][]string{
		{"Locale", s.Locale},
		{"Architecture", s.Architecture},
		{"Flags", s.Flags},
		{"Cache flags", s.CacheFlags},
		{"Cache path", orDash(s.CachePath)},
		{"Cache time", cacheTime},
		{"Components", strconv.Itoa(s.Components)},
		{"XML dirs", orDash(strings.Join(s.Locations.XML, ", "))},
		{"YAML dirs", orDash(strings.Join(s.Locations.YAML, ", "))},
		{"Icon dirs", orDash(strings.Join(s.Locations.Icons, ", "))},
	}
	return table.Data{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []table.Align{table.AlignLeft, table.AlignLeft},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
