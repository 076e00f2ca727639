package panel

import (
	"context"
	"dexnetwork/internal/config"
	"dexnetwork/internal/domain"
	"dexnetwork/internal/layout"
	"errors"
	"fmt"
	"math"
	"time"

	"gitlab.com/nevasik7/alerting/logger"
)

const (
	MainName = "panel_main"
	HerfName = "herf_panel"
)

type interval struct {
	start, end time.Time
}

// Assembler serial reducer over the per-day outputs of one version
type Assembler struct {
	log    logger.Logger
	layout *layout.Layout
	cfg    config.PanelConfig
	stable map[string]struct{}
	boom   []interval
}

func NewAssembler(log logger.Logger, l *layout.Layout, cfg config.PanelConfig, stablecoins []string) (*Assembler, error) {
	// sane defaults
	if cfg.RollingWindow <= 0 {
		cfg.RollingWindow = 30
	}

	a := &Assembler{
		log:    log,
		layout: l,
		cfg:    cfg,
		stable: make(map[string]struct{}, len(stablecoins)),
	}
	for _, s := range stablecoins {
		a.stable[s] = struct{}{}
	}

	for i, iv := range cfg.BoomBust {
		start, err := time.Parse(time.DateOnly, iv.Start)
		if err != nil {
			return nil, &domain.ConfigError{Field: fmt.Sprintf("panel.boom_bust[%d].start", i), Err: err}
		}
		end, err := time.Parse(time.DateOnly, iv.End)
		if err != nil {
			return nil, &domain.ConfigError{Field: fmt.Sprintf("panel.boom_bust[%d].end", i), Err: err}
		}
		a.boom = append(a.boom, interval{start: start, end: end})
	}

	return a, nil
}

type Summary struct {
	Version        domain.Version
	Rows           int
	Tokens         int
	Days           int
	DaysMissing    int
	ExternalAbsent []string
	MainPath       string
	HerfPath       string
}

// Run build both panels of v over [from, to] and write them
func (a *Assembler) Run(ctx context.Context, v domain.Version, from, to time.Time) (*Summary, error) {
	main, herf, sum, err := a.Build(ctx, v, from, to)
	if err != nil {
		return nil, err
	}

	sum.MainPath = a.layout.Panel(MainName, v)
	sum.HerfPath = a.layout.Panel(HerfName, v)

	if err = main.Write(sum.MainPath, true); err != nil {
		return nil, err
	}
	if err = herf.Write(sum.HerfPath, false); err != nil {
		return nil, err
	}

	a.log.Infof("Panel %s written: rows=%d tokens=%d days=%d days_missing=%d external_absent=%v",
		v, sum.Rows, sum.Tokens, sum.Days, sum.DaysMissing, sum.ExternalAbsent)

	return sum, nil
}

func (a *Assembler) Build(ctx context.Context, v domain.Version, from, to time.Time) (*Frame, *Frame, *Summary, error) {
	days := domain.DaysBetween(from, to)
	if len(days) == 0 {
		return nil, nil, nil, &domain.ConfigError{Field: "sample", Err: errors.New("empty sample period")}
	}
	from, to = days[0], days[len(days)-1]

	sum := &Summary{Version: v, Days: len(days)}
	main := NewFrame()
	herf := NewFrame()

	for _, m := range measures {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
		if _, err := readMeasure(main, a.layout, v, m, from, to); err != nil {
			return nil, nil, nil, fmt.Errorf("panel %s %s: %w", v, m.metric, err)
		}
	}

	n, err := readHerfindahl(herf, a.layout, v, from, to)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("panel %s herfindahl: %w", v, err)
	}
	sum.DaysMissing = len(days) - n
	if sum.DaysMissing > 0 {
		a.log.Warnf("Panel %s: %d of %d days have no per-day outputs", v, sum.DaysMissing, len(days))
	}

	a.dexVolume(main, herf)

	if err = a.mergeExternals(main, herf, from, to, sum); err != nil {
		return nil, nil, nil, err
	}

	a.flags(main, herf)
	fillShares(main)
	a.tokenDerived(main, herf, days)
	a.dateDerived(herf, days)

	sum.Rows = main.Len()
	sum.Tokens = len(main.Tokens())

	return main, herf, sum, nil
}

// dexVolume traded volume of the day: every flow counts once in volume_in and once in volume_out
func (a *Assembler) dexVolume(main, herf *Frame) {
	total := make(map[time.Time]float64)
	for _, k := range main.Keys() {
		if v := main.Get(k, "volume_total"); !math.IsNaN(v) {
			total[k.Date] += v
		}
	}
	herf.AddColumn("dex_volume")
	for d, v := range total {
		herf.Set(Key{Date: d}, "dex_volume", v/2)
	}
}

// mergeExternals outer merge: token-date tables may add rows, date tables are broadcast to every token of the day
func (a *Assembler) mergeExternals(main, herf *Frame, from, to time.Time, sum *Summary) error {
	var byDate []*External

	for _, src := range a.cfg.External {
		ext, err := readExternal(a.layout, src, from, to)
		if err != nil {
			if errors.Is(err, domain.ErrExternalAbsent) {
				a.log.Warnf("Panel external %s absent, columns left empty: %v", src.Name, err)
				sum.ExternalAbsent = append(sum.ExternalAbsent, src.Name)
				continue
			}
			return fmt.Errorf("panel external %s: %w", src.Name, err)
		}

		if ext.Keyed == "date" {
			byDate = append(byDate, ext)
			continue
		}

		names := columnNames(main, ext)
		for _, c := range ext.Columns {
			main.AddColumn(names[c])
		}
		for _, k := range ext.Frame.Keys() {
			main.Touch(k)
			for _, c := range ext.Columns {
				if v := ext.Frame.Get(k, c); !math.IsNaN(v) {
					main.Set(k, names[c], v)
				}
			}
		}
	}

	for _, ext := range byDate {
		names := columnNames(main, ext)
		for _, c := range ext.Columns {
			main.AddColumn(names[c])
			herf.AddColumn(names[c])
		}
		for _, k := range main.Keys() {
			for _, c := range ext.Columns {
				if v := ext.Frame.Get(Key{Date: k.Date}, c); !math.IsNaN(v) {
					main.Set(k, names[c], v)
				}
			}
		}
		for _, k := range ext.Frame.Keys() {
			herf.Touch(k)
			for _, c := range ext.Columns {
				if v := ext.Frame.Get(k, c); !math.IsNaN(v) {
					herf.Set(k, names[c], v)
				}
			}
		}
	}

	return nil
}

// columnNames an external column that collides with an existing one is prefixed by the source name
func columnNames(main *Frame, ext *External) map[string]string {
	out := make(map[string]string, len(ext.Columns))
	for _, c := range ext.Columns {
		if main.HasColumn(c) {
			out[c] = ext.Name + "_" + c
			continue
		}
		out[c] = c
	}
	return out
}

func (a *Assembler) isBoom(d time.Time) bool {
	for _, iv := range a.boom {
		if inRange(d, iv.start, iv.end) {
			return true
		}
	}
	return false
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (a *Assembler) flags(main, herf *Frame) {
	main.AddColumn("stable")
	main.AddColumn("boom_bust")
	for _, k := range main.Keys() {
		_, stable := a.stable[k.Token]
		main.Set(k, "stable", boolValue(stable))
		main.Set(k, "boom_bust", boolValue(a.isBoom(k.Date)))
	}

	herf.AddColumn("boom_bust")
	for _, k := range herf.Keys() {
		herf.Set(k, "boom_bust", boolValue(a.isBoom(k.Date)))
	}
}

func fillShares(main *Frame) {
	for _, c := range shareColumns {
		main.AddColumn(c)
	}
	for _, k := range main.Keys() {
		for _, c := range shareColumns {
			if v := main.Get(k, c); math.IsNaN(v) || v < 0 {
				main.Set(k, c, 0)
			}
		}
	}
}

// tokenDerived log returns, rolling volatility and rolling correlations with gas, market and the reference token
func (a *Assembler) tokenDerived(main, herf *Frame, days []time.Time) {
	price := a.cfg.PriceColumn
	if !main.HasColumn(price) {
		return
	}
	w := a.cfg.RollingWindow

	var gasR, marketR, refR Series
	if herf.HasColumn(a.cfg.GasColumn) {
		gasR = LogReturns(seriesOf(herf, "", a.cfg.GasColumn, days))
	}
	if herf.HasColumn(a.cfg.MarketColumn) {
		marketR = LogReturns(seriesOf(herf, "", a.cfg.MarketColumn, days))
	}
	if a.cfg.ReferenceToken != "" {
		refR = LogReturns(seriesOf(main, a.cfg.ReferenceToken, price, days))
	}

	colVol := fmt.Sprintf("volatility_%dd", w)
	colGas := fmt.Sprintf("corr_gas_%dd", w)
	colMarket := fmt.Sprintf("corr_market_%dd", w)
	colRef := fmt.Sprintf("corr_ref_%dd", w)

	main.AddColumn("log_return")
	main.AddColumn(colVol)
	if gasR != nil {
		main.AddColumn(colGas)
	}
	if marketR != nil {
		main.AddColumn(colMarket)
	}
	if refR != nil {
		main.AddColumn(colRef)
	}

	for _, tok := range main.Tokens() {
		r := LogReturns(seriesOf(main, tok, price, days))
		vol := RollingStd(r, w)

		var cg, cm, cr Series
		if gasR != nil {
			cg = RollingCorr(r, gasR, w)
		}
		if marketR != nil {
			cm = RollingCorr(r, marketR, w)
		}
		if refR != nil {
			cr = RollingCorr(r, refR, w)
		}

		for i, d := range days {
			k := Key{Token: tok, Date: d}
			if !main.Has(k) {
				continue
			}
			main.Set(k, "log_return", r[i])
			main.Set(k, colVol, vol[i])
			if cg != nil {
				main.Set(k, colGas, cg[i])
			}
			if cm != nil {
				main.Set(k, colMarket, cm[i])
			}
			if cr != nil {
				main.Set(k, colRef, cr[i])
			}
		}
	}
}

// dateDerived market and gas returns with their rolling volatility
func (a *Assembler) dateDerived(herf *Frame, days []time.Time) {
	w := a.cfg.RollingWindow

	for _, src := range []struct{ col, name string }{
		{a.cfg.MarketColumn, "market"},
		{a.cfg.GasColumn, "gas"},
	} {
		if !herf.HasColumn(src.col) {
			continue
		}
		r := LogReturns(seriesOf(herf, "", src.col, days))
		vol := RollingStd(r, w)

		colR := src.name + "_return"
		colVol := fmt.Sprintf("%s_volatility_%dd", src.name, w)
		herf.AddColumn(colR)
		herf.AddColumn(colVol)
		for i, d := range days {
			k := Key{Date: d}
			if !herf.Has(k) {
				continue
			}
			herf.Set(k, colR, r[i])
			herf.Set(k, colVol, vol[i])
		}
	}
}
