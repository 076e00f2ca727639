package normalize

import (
	"dexnetwork/internal/domain"
	"dexnetwork/internal/stores/csvfs"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

var NormalizedHeader = []string{
	"tx_id", "pool", "timestamp", "token0_symbol", "token1_symbol", "Source", "Target",
	"Pool_Out_Volume", "Pool_In_Volume", "amount_usd", "version", "Distance",
}

func WriteNormalized(path string, swaps []domain.SubSwap) error {
	rows := make([][]string, 0, len(swaps))
	for i := range swaps {
		s := &swaps[i]
		rows = append(rows, []string{
			s.TxID,
			s.Pool,
			strconv.FormatInt(s.Timestamp, 10),
			s.Token0,
			s.Token1,
			s.Source,
			s.Target,
			s.PoolOutVolume.String(),
			s.PoolInVolume.String(),
			csvfs.FormatFloat(s.AmountUSD),
			string(s.Version),
			strconv.Itoa(s.Distance),
		})
	}
	return csvfs.WriteAtomic(path, NormalizedHeader, rows)
}

func ReadNormalized(path string) ([]domain.SubSwap, error) {
	tbl, err := csvfs.ReadTable(path, NormalizedHeader...)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SubSwap, 0, len(tbl.Rows))
	for i, row := range tbl.Rows {
		v, err := domain.ParseVersion(tbl.Get(row, "version"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		in, err := decimal.NewFromString(tbl.Get(row, "Pool_In_Volume"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		outVol, err := decimal.NewFromString(tbl.Get(row, "Pool_Out_Volume"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		ts, _ := strconv.ParseInt(tbl.Get(row, "timestamp"), 10, 64)
		dist, _ := strconv.Atoi(tbl.Get(row, "Distance"))

		out = append(out, domain.SubSwap{
			TxID:          tbl.Get(row, "tx_id"),
			Pool:          tbl.Get(row, "pool"),
			Timestamp:     ts,
			Token0:        tbl.Get(row, "token0_symbol"),
			Token1:        tbl.Get(row, "token1_symbol"),
			Source:        tbl.Get(row, "Source"),
			Target:        tbl.Get(row, "Target"),
			PoolInVolume:  in,
			PoolOutVolume: outVol,
			AmountUSD:     tbl.Float(row, "amount_usd"),
			Version:       v,
			Distance:      dist,
		})
	}

	return out, nil
}
