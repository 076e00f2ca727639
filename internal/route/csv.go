package route

import (
	"dexnetwork/internal/domain"
	"dexnetwork/internal/stores/csvfs"
	"fmt"
	"strconv"
)

var Header = []string{
	"id", "route", "ultimate_source", "ultimate_target", "intermediary", "pair", "pair_str",
	"volume_usd", "chain_length", "label", "new_list",
}

func Row(r *domain.Route) []string {
	if r.Label == domain.LabelError {
		return []string{
			r.ID, domain.RouteErrorSentinel, "", "", "", "", "",
			csvfs.FormatFloat(r.VolumeUSD), "0", r.Label.Wire(), domain.Flat().String(),
		}
	}

	return []string{
		r.ID,
		domain.Flat(r.Tokens...).String(),
		r.UltimateSource,
		r.UltimateTarget,
		domain.Flat(r.Intermediary...).String(),
		domain.Flat(r.Pair()...).String(),
		r.PairStr(),
		csvfs.FormatFloat(r.VolumeUSD),
		strconv.Itoa(r.ChainLength),
		r.Label.Wire(),
		r.NewList.String(),
	}
}

func Write(path string, routes []domain.Route) error {
	rows := make([][]string, 0, len(routes))
	for i := range routes {
		rows = append(rows, Row(&routes[i]))
	}
	return csvfs.WriteAtomic(path, Header, rows)
}

// Read a route file back; v is stamped on every row
func Read(path string, v domain.Version) ([]domain.Route, error) {
	tbl, err := csvfs.ReadTable(path, "id", "route", "ultimate_source", "ultimate_target", "intermediary", "volume_usd", "label")
	if err != nil {
		return nil, err
	}

	out := make([]domain.Route, 0, len(tbl.Rows))
	for i, row := range tbl.Rows {
		r, err := parseRow(tbl, row, v)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func parseRow(tbl *csvfs.Table, row []string, v domain.Version) (domain.Route, error) {
	r := domain.Route{
		ID:        tbl.Get(row, "id"),
		Version:   v,
		VolumeUSD: tbl.Float(row, "volume_usd"),
		NewList:   domain.Flat(),
	}

	label, err := domain.ParseLabel(tbl.Get(row, "label"))
	if err != nil {
		return r, err
	}
	rawRoute := tbl.Get(row, "route")
	if label == domain.LabelError || rawRoute == domain.RouteErrorSentinel {
		r.Label = domain.LabelError
		return r, nil
	}
	r.Label = label

	tokens, err := domain.ParseTokenList(rawRoute)
	if err != nil {
		return r, err
	}
	inter, err := domain.ParseTokenList(tbl.Get(row, "intermediary"))
	if err != nil {
		return r, err
	}
	if tokens.IsNested() || inter.IsNested() {
		return r, fmt.Errorf("nested route %q", rawRoute)
	}

	r.Tokens = tokens.Tokens()
	r.Intermediary = inter.Tokens()
	if r.Intermediary == nil {
		r.Intermediary = []string{}
	}
	r.UltimateSource = tbl.Get(row, "ultimate_source")
	r.UltimateTarget = tbl.Get(row, "ultimate_target")
	r.ChainLength = len(r.Tokens)
	if s := tbl.Get(row, "chain_length"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			r.ChainLength = n
		}
	}

	if s := tbl.Get(row, "new_list"); s != "" {
		nl, err := domain.ParseTokenList(s)
		if err != nil {
			return r, err
		}
		r.NewList = nl
	}

	return r, nil
}
