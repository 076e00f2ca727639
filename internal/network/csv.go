package network

import (
	"dexnetwork/internal/domain"
	"dexnetwork/internal/stores/csvfs"
)

func WriteFlows(path string, flows []domain.FlowEdge) error {
	rows := make([][]string, 0, len(flows))
	for _, f := range flows {
		rows = append(rows, []string{f.Source, f.Target, csvfs.FormatFloat(f.Volume)})
	}
	return csvfs.WriteAtomic(path, []string{"Source", "Target", "Volume"}, rows)
}

func ReadFlows(path string) ([]domain.FlowEdge, error) {
	tbl, err := csvfs.ReadTable(path, "Source", "Target", "Volume")
	if err != nil {
		return nil, err
	}
	out := make([]domain.FlowEdge, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		out = append(out, domain.FlowEdge{
			Source: tbl.Get(row, "Source"),
			Target: tbl.Get(row, "Target"),
			Volume: tbl.Float(row, "Volume"),
		})
	}
	sortFlows(out)
	return out, nil
}

func WritePairs(path string, pairs []domain.PairVolume) error {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{p.Token0, p.Token1, csvfs.FormatFloat(p.Volume)})
	}
	return csvfs.WriteAtomic(path, []string{"token0", "token1", "Volume"}, rows)
}

// WriteValues one row per token with the raw value under col
func WriteValues(path, col string, vals []domain.TokenValue) error {
	rows := make([][]string, 0, len(vals))
	for _, v := range vals {
		rows = append(rows, []string{v.Token, csvfs.FormatFloat(v.Value)})
	}
	return csvfs.WriteAtomic(path, []string{"token", col}, rows)
}

// WriteShares one row per token with the day share under col
func WriteShares(path, col string, vals []domain.TokenValue) error {
	rows := make([][]string, 0, len(vals))
	for _, v := range vals {
		rows = append(rows, []string{v.Token, csvfs.FormatFloat(v.Share)})
	}
	return csvfs.WriteAtomic(path, []string{"token", col}, rows)
}

// WriteValueShares value and share side by side: token, col, col_share
func WriteValueShares(path, col string, vals []domain.TokenValue) error {
	rows := make([][]string, 0, len(vals))
	for _, v := range vals {
		rows = append(rows, []string{v.Token, csvfs.FormatFloat(v.Value), csvfs.FormatFloat(v.Share)})
	}
	return csvfs.WriteAtomic(path, []string{"token", col, col + "_share"}, rows)
}
