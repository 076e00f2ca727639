package centrality

import (
	"dexnetwork/internal/domain"
	"dexnetwork/internal/stores/csvfs"
	"strconv"
	"time"
)

var (
	CentralityHeader = []string{
		"token", "total_tvl", "stable", "eigenvector_centrality", "betweenness_centrality",
		"degree", "in_degree", "out_degree", "weighted_degree", "weighted_in_degree", "weighted_out_degree",
	}
	BetweennessHeader = []string{"node", "betweenness_centrality_count", "betweenness_centrality_volume"}
	HerfindahlHeader  = []string{
		"date", "version", "herfindahl_volume", "herfindahl_inflow_centrality", "herfindahl_outflow_centrality",
		"herfindahl_betweenness_count", "herfindahl_betweenness_volume", "herfindahl_tvl",
		"avg_clustering", "nodes", "edges",
	}
)

func WriteCentrality(path string, rows []domain.CentralityRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		stable := "0"
		if r.Stable {
			stable = "1"
		}
		out = append(out, []string{
			r.Token,
			csvfs.FormatFloat(r.TotalTVL),
			stable,
			csvfs.FormatFloat(r.Eigenvector),
			csvfs.FormatFloat(r.Betweenness),
			strconv.Itoa(r.Degree),
			strconv.Itoa(r.InDegree),
			strconv.Itoa(r.OutDegree),
			csvfs.FormatFloat(r.WeightedDegree),
			csvfs.FormatFloat(r.WeightedInDegree),
			csvfs.FormatFloat(r.WeightedOutDegree),
		})
	}
	return csvfs.WriteAtomic(path, CentralityHeader, out)
}

func WriteBetweenness(path string, rows []domain.BetweennessRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Node, csvfs.FormatFloat(r.Count), csvfs.FormatFloat(r.Volume)})
	}
	return csvfs.WriteAtomic(path, BetweennessHeader, out)
}

func WriteClustering(path string, rows []domain.TokenValue) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Token, csvfs.FormatFloat(r.Value)})
	}
	return csvfs.WriteAtomic(path, []string{"token", "clustering"}, out)
}

func WriteHerfindahl(path string, a domain.DailyAggregate) error {
	return csvfs.WriteAtomic(path, HerfindahlHeader, [][]string{{
		a.Date.Format(domain.DayLayout),
		string(a.Version),
		csvfs.FormatFloat(a.HerfVolume),
		csvfs.FormatFloat(a.HerfInflow),
		csvfs.FormatFloat(a.HerfOutflow),
		csvfs.FormatFloat(a.HerfBetweennessCount),
		csvfs.FormatFloat(a.HerfBetweennessVolume),
		csvfs.FormatFloat(a.HerfTVL),
		csvfs.FormatFloat(a.AvgClustering),
		strconv.Itoa(a.Nodes),
		strconv.Itoa(a.Edges),
	}})
}

// ReadHerfindahl the single row of a day file
func ReadHerfindahl(path string) (domain.DailyAggregate, error) {
	var a domain.DailyAggregate
	tbl, err := csvfs.ReadTable(path, HerfindahlHeader...)
	if err != nil {
		return a, err
	}
	if len(tbl.Rows) == 0 {
		return a, &domain.SchemaError{Path: path, Column: "date"}
	}
	row := tbl.Rows[0]

	a.Date, _ = time.Parse(domain.DayLayout, tbl.Get(row, "date"))
	a.Version = domain.Version(tbl.Get(row, "version"))
	a.HerfVolume = tbl.Float(row, "herfindahl_volume")
	a.HerfInflow = tbl.Float(row, "herfindahl_inflow_centrality")
	a.HerfOutflow = tbl.Float(row, "herfindahl_outflow_centrality")
	a.HerfBetweennessCount = tbl.Float(row, "herfindahl_betweenness_count")
	a.HerfBetweennessVolume = tbl.Float(row, "herfindahl_betweenness_volume")
	a.HerfTVL = tbl.Float(row, "herfindahl_tvl")
	a.AvgClustering = tbl.Float(row, "avg_clustering")
	a.Nodes, _ = strconv.Atoi(tbl.Get(row, "nodes"))
	a.Edges, _ = strconv.Atoi(tbl.Get(row, "edges"))

	return a, nil
}

func ReadBetweenness(path string) ([]domain.BetweennessRow, error) {
	tbl, err := csvfs.ReadTable(path, BetweennessHeader...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BetweennessRow, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		out = append(out, domain.BetweennessRow{
			Node:   tbl.Get(row, "node"),
			Count:  tbl.Float(row, "betweenness_centrality_count"),
			Volume: tbl.Float(row, "betweenness_centrality_volume"),
		})
	}
	return out, nil
}
