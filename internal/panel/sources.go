package panel

import (
	"dexnetwork/internal/config"
	"dexnetwork/internal/domain"
	"dexnetwork/internal/layout"
	"dexnetwork/internal/stores/csvfs"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"
)

type column struct {
	file  string // column in the per-day file
	panel string // column in panel_main
}

// measure one per-day per-token metric directory
type measure struct {
	metric string
	key    string
	cols   []column
}

var measures = []measure{
	{layout.MetricVolumeShare, "token", []column{{"volume_share", "volume_share"}}},
	{layout.MetricVolumeInShare, "token", []column{{"volume_in_share", "volume_in_share"}}},
	{layout.MetricVolumeOutShare, "token", []column{{"volume_out_share", "volume_out_share"}}},
	{layout.MetricVolumeTotal, "token", []column{{"volume_total", "volume_total"}}},
	{layout.MetricTVL, "token", []column{{"total_tvl", "total_tvl"}}},
	{layout.MetricTVLShare, "token", []column{{"tvl_share", "tvl_share"}}},
	{layout.MetricInflowCentrality, "token", []column{{"eigenvector_centrality", "inflow_centrality"}}},
	{layout.MetricOutflowCentrality, "token", []column{{"eigenvector_centrality", "outflow_centrality"}}},
	{layout.MetricBetweenness, "node", []column{
		{"betweenness_centrality_count", "betweenness_count"},
		{"betweenness_centrality_volume", "betweenness_volume"},
	}},
	{layout.MetricClustering, "token", []column{{"clustering", "clustering_coefficient"}}},
	{layout.MetricVolInFullLen, "token", []column{
		{"vol_in_full_len", "vol_in_full_len"}, {"vol_in_full_len_share", "vol_in_full_len_share"},
	}},
	{layout.MetricVolOutFullLen, "token", []column{
		{"vol_out_full_len", "vol_out_full_len"}, {"vol_out_full_len_share", "vol_out_full_len_share"},
	}},
	{layout.MetricVolInterFullLen, "token", []column{
		{"vol_inter_full_len", "vol_inter_full_len"}, {"vol_inter_full_len_share", "vol_inter_full_len_share"},
	}},
}

// shareColumns are filled with 0 when missing and clipped to >= 0
var shareColumns = []string{
	"volume_share", "volume_in_share", "volume_out_share", "tvl_share",
	"betweenness_count", "betweenness_volume",
	"vol_in_full_len_share", "vol_out_full_len_share", "vol_inter_full_len_share",
}

var herfColumns = []column{
	{"herfindahl_volume", "herfindahl_volume"},
	{"herfindahl_inflow_centrality", "herfindahl_inflow_centrality"},
	{"herfindahl_outflow_centrality", "herfindahl_outflow_centrality"},
	{"herfindahl_betweenness_count", "herfindahl_betweenness_count"},
	{"herfindahl_betweenness_volume", "herfindahl_betweenness_volume"},
	{"herfindahl_tvl", "herfindahl_tvl"},
	{"avg_clustering", "avg_clustering"},
	{"nodes", "nodes"},
	{"edges", "edges"},
}

func inRange(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

// readMeasure every day file of m inside [from, to] into f; returns the dates seen
func readMeasure(f *Frame, l *layout.Layout, v domain.Version, m measure, from, to time.Time) (map[time.Time]struct{}, error) {
	files, err := layout.Glob(l.MetricGlob(v, m.metric))
	if err != nil {
		return nil, err
	}

	for _, c := range m.cols {
		f.AddColumn(c.panel)
	}

	seen := make(map[time.Time]struct{})
	for _, df := range files {
		if !inRange(df.Date, from, to) {
			continue
		}
		tbl, err := csvfs.ReadTable(df.Path, m.key)
		if err != nil {
			return nil, err
		}
		seen[df.Date] = struct{}{}

		for _, row := range tbl.Rows {
			tok := tbl.Get(row, m.key)
			if tok == "" {
				continue
			}
			k := Key{Token: tok, Date: df.Date}
			f.Touch(k)
			for _, c := range m.cols {
				if tbl.Has(c.file) {
					f.Set(k, c.panel, csvfs.ParseOptional(tbl.Get(row, c.file)))
				}
			}
		}
	}

	return seen, nil
}

// readHerfindahl date-keyed Herfindahl rows inside [from, to]
func readHerfindahl(f *Frame, l *layout.Layout, v domain.Version, from, to time.Time) (int, error) {
	files, err := layout.Glob(l.MetricGlob(v, layout.MetricHerfindahl))
	if err != nil {
		return 0, err
	}

	for _, c := range herfColumns {
		f.AddColumn(c.panel)
	}

	var n int
	for _, df := range files {
		if !inRange(df.Date, from, to) {
			continue
		}
		tbl, err := csvfs.ReadTable(df.Path, "herfindahl_volume")
		if err != nil {
			return n, err
		}
		for _, row := range tbl.Rows {
			k := Key{Date: df.Date}
			for _, c := range herfColumns {
				if tbl.Has(c.file) {
					f.Set(k, c.panel, csvfs.ParseOptional(tbl.Get(row, c.file)))
				}
			}
		}
		n++
	}

	return n, nil
}

var dateLayouts = []string{time.DateOnly, domain.DayLayout, time.DateTime, time.RFC3339}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, lay := range dateLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			t = t.UTC()
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// External one collaborator table, already filtered to the sample period
type External struct {
	Name    string
	Keyed   string // token_date|date
	Columns []string
	Frame   *Frame
}

// readExternal ErrExternalAbsent when the file doesn't exist.
// Every column except Token/Date is a value column; empty or non-numeric cells stay empty
func readExternal(l *layout.Layout, src config.ExternalSource, from, to time.Time) (*External, error) {
	path := l.External(src.Path)

	tbl, err := csvfs.ReadTable(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s (%s): %w", src.Name, path, domain.ErrExternalAbsent)
		}
		return nil, err
	}

	dateCol, ok := tbl.Pick("Date", "date")
	if !ok {
		return nil, &domain.SchemaError{Path: path, Column: "Date"}
	}
	tokenCol := ""
	if src.Keyed == "token_date" {
		if tokenCol, ok = tbl.Pick("Token", "token", "symbol"); !ok {
			return nil, &domain.SchemaError{Path: path, Column: "Token"}
		}
	}

	ext := &External{Name: src.Name, Keyed: src.Keyed, Frame: NewFrame()}
	for _, h := range tbl.Header {
		if h == dateCol || h == tokenCol {
			continue
		}
		ext.Columns = append(ext.Columns, h)
		ext.Frame.AddColumn(h)
	}

	for _, row := range tbl.Rows {
		d, err := parseDate(tbl.Get(row, dateCol))
		if err != nil || !inRange(d, from, to) {
			continue
		}
		k := Key{Date: d}
		if tokenCol != "" {
			if k.Token = tbl.Get(row, tokenCol); k.Token == "" {
				continue
			}
		}
		ext.Frame.Touch(k)
		for _, c := range ext.Columns {
			if v := csvfs.ParseOptional(tbl.Get(row, c)); !math.IsNaN(v) {
				ext.Frame.Set(k, c, v)
			}
		}
	}

	return ext, nil
}
