//go:build ignore

// Run: go run ./build-tools/gendata.go -root ./data -from 2022-01-01 -days 31 -tx 400 -seed 7

package main

import (
	"dexnetwork/internal/domain"
	"dexnetwork/internal/layout"
	"flag"
	"fmt"
	"log"
	"math"
	mrand "math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var tokens = []string{"WETH", "USDC", "USDT", "DAI", "WBTC", "UNI", "LINK", "AAVE", "MKR", "CRV"}

type pool struct {
	addr   string
	token0 string
	token1 string
}

type hop struct {
	pool    pool
	sell0   bool // user delivers token0
	in, out float64
}

func main() {
	root := flag.String("root", "./data", "data root to write into")
	fromStr := flag.String("from", "2022-01-01", "first day YYYY-MM-DD")
	days := flag.Int("days", 31, "number of days")
	txPerDay := flag.Int("tx", 400, "transactions per day and version")
	seed := flag.Int64("seed", 7, "random seed")
	flag.Parse()

	from, err := time.Parse(time.DateOnly, *fromStr)
	if err != nil {
		log.Fatalf("bad -from: %v", err)
	}

	rnd := mrand.New(mrand.NewSource(*seed))
	l := layout.New(*root)
	price := initialPrices()

	pools := map[domain.Version][]pool{
		domain.V2: makePools(rnd, "2"),
		domain.V3: makePools(rnd, "3"),
	}

	months := map[string]bool{}
	for i := 0; i < *days; i++ {
		day := from.AddDate(0, 0, i)

		for _, v := range []domain.Version{domain.V2, domain.V3} {
			if m := string(v) + day.Format(domain.MonthLayout); !months[m] {
				months[m] = true
				writePoolList(l.PoolList(v, day), pools[v])
			}
			writeSwaps(l.RawSwaps(v, day), v, day, rnd, pools[v], price, *txPerDay)
			writeTVL(l.TVL(v, day), rnd, pools[v])
		}

		writePrices(l, day, price)
		for tok := range price {
			if tok != "USDC" && tok != "USDT" && tok != "DAI" {
				price[tok] *= math.Exp(rnd.NormFloat64() * 0.04)
			}
		}
	}

	log.Printf("wrote %d days of v2/v3 raw data under %s", *days, *root)
}

func initialPrices() map[string]float64 {
	return map[string]float64{
		"WETH": 3000, "USDC": 1, "USDT": 1, "DAI": 1, "WBTC": 40000,
		"UNI": 15, "LINK": 20, "AAVE": 200, "MKR": 2000, "CRV": 3,
	}
}

func makePools(rnd *mrand.Rand, tag string) []pool {
	var out []pool
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			// hub pairs always, the rest sparsely
			if i > 1 && rnd.Float64() > 0.35 {
				continue
			}
			out = append(out, pool{
				addr:   fmt.Sprintf("0x%s%039x", tag, len(out)+1),
				token0: tokens[i],
				token1: tokens[j],
			})
		}
	}
	return out
}

func create(path string) *os.File {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Fatalf("mkdir %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("create %s: %v", path, err)
	}
	return f
}

func writePoolList(path string, pools []pool) {
	f := create(path)
	defer f.Close()
	fmt.Fprintln(f, "pool,token0_symbol,token1_symbol")
	for _, p := range pools {
		fmt.Fprintf(f, "%s,%s,%s\n", p.addr, p.token0, p.token1)
	}
}

func writeTVL(path string, rnd *mrand.Rand, pools []pool) {
	f := create(path)
	defer f.Close()
	fmt.Fprintln(f, "pool,tvl_usd")
	for _, p := range pools {
		fmt.Fprintf(f, "%s,%.2f\n", p.addr, 1e5+rnd.ExpFloat64()*5e6)
	}
}

// route walk from a random token over up to three pools, sometimes back to the start
func route(rnd *mrand.Rand, pools []pool, price map[string]float64) []hop {
	byToken := make(map[string][]pool)
	for _, p := range pools {
		byToken[p.token0] = append(byToken[p.token0], p)
		byToken[p.token1] = append(byToken[p.token1], p)
	}

	cur := tokens[rnd.Intn(len(tokens))]
	amount := (50 + rnd.ExpFloat64()*5000) / price[cur]
	n := 1 + rnd.Intn(3)

	var hops []hop
	for i := 0; i < n; i++ {
		cands := byToken[cur]
		if len(cands) == 0 {
			break
		}
		p := cands[rnd.Intn(len(cands))]
		sell0 := p.token0 == cur
		next := p.token1
		if !sell0 {
			next = p.token0
		}
		out := amount * price[cur] / price[next] * 0.997
		hops = append(hops, hop{pool: p, sell0: sell0, in: amount, out: out})
		cur, amount = next, out
	}
	return hops
}

func writeSwaps(path string, v domain.Version, day time.Time, rnd *mrand.Rand, pools []pool, price map[string]float64, n int) {
	f := create(path)
	defer f.Close()

	if v == domain.V2 {
		fmt.Fprintln(f, "transaction,timestamp,pair,token0_symbol,token1_symbol,amount0In,amount0Out,amount1In,amount1Out,amountUSD")
	} else {
		fmt.Fprintln(f, "transaction,timestamp,pool,token0_symbol,token1_symbol,amount0,amount1,amountUSD")
	}

	for i := 0; i < n; i++ {
		hops := route(rnd, pools, price)
		tx := fmt.Sprintf("0x%s%s%06d", v, day.Format(domain.DayLayout), i)
		ts := day.Unix() + int64(rnd.Intn(86400))

		for _, h := range hops {
			sym := h.pool.token0
			if !h.sell0 {
				sym = h.pool.token1
			}
			usd := h.in * price[sym]
			p := h.pool

			if v == domain.V2 {
				a0in, a0out, a1in, a1out := h.in, 0.0, 0.0, h.out
				if !h.sell0 {
					a0in, a0out, a1in, a1out = 0, h.out, h.in, 0
				}
				fmt.Fprintf(f, "%s,%d,%s,%s,%s,%s,%s,%s,%s,%.6f\n", tx, ts, p.addr, p.token0, p.token1,
					num(a0in), num(a0out), num(a1in), num(a1out), usd)
				continue
			}

			a0, a1 := h.in, -h.out
			if !h.sell0 {
				a0, a1 = -h.out, h.in
			}
			fmt.Fprintf(f, "%s,%d,%s,%s,%s,%s,%s,%.6f\n", tx, ts, p.addr, p.token0, p.token1, num(a0), num(a1), usd)
		}
	}
}

func writePrices(l *layout.Layout, day time.Time, price map[string]float64) {
	path := l.External("prices.csv")
	_, statErr := os.Stat(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Fatalf("mkdir %s: %v", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	if statErr != nil {
		fmt.Fprintln(f, "Token,Date,price")
	}
	var b strings.Builder
	for _, tok := range tokens {
		fmt.Fprintf(&b, "%s,%s,%s\n", tok, day.Format(time.DateOnly), num(price[tok]))
	}
	_, _ = f.WriteString(b.String())
}

func num(f float64) string {
	return fmt.Sprintf("%.12g", f)
}
