package panel

import (
	"dexnetwork/internal/stores/csvfs"
	"math"
	"sort"
	"time"
)

// Key of a panel row; Token is empty in date-keyed frames
type Key struct {
	Token string
	Date  time.Time
}

// Frame sparse table of float columns, outer-merged by column name
type Frame struct {
	cols   []string
	colSet map[string]struct{}
	rows   map[Key]map[string]float64
}

func NewFrame() *Frame {
	return &Frame{
		colSet: make(map[string]struct{}),
		rows:   make(map[Key]map[string]float64),
	}
}

func (f *Frame) AddColumn(col string) {
	if _, ok := f.colSet[col]; ok {
		return
	}
	f.colSet[col] = struct{}{}
	f.cols = append(f.cols, col)
}

func (f *Frame) HasColumn(col string) bool {
	_, ok := f.colSet[col]
	return ok
}

func (f *Frame) Columns() []string { return f.cols }

func (f *Frame) Len() int { return len(f.rows) }

// Touch make sure a row exists
func (f *Frame) Touch(k Key) map[string]float64 {
	row, ok := f.rows[k]
	if !ok {
		row = make(map[string]float64)
		f.rows[k] = row
	}
	return row
}

func (f *Frame) Set(k Key, col string, v float64) {
	f.AddColumn(col)
	f.Touch(k)[col] = v
}

// Get NaN when the cell is empty
func (f *Frame) Get(k Key, col string) float64 {
	row, ok := f.rows[k]
	if !ok {
		return math.NaN()
	}
	v, ok := row[col]
	if !ok {
		return math.NaN()
	}
	return v
}

// Keys sorted by token then date
func (f *Frame) Keys() []Key {
	keys := make([]Key, 0, len(f.rows))
	for k := range f.rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Token != keys[j].Token {
			return keys[i].Token < keys[j].Token
		}
		return keys[i].Date.Before(keys[j].Date)
	})
	return keys
}

func (f *Frame) Tokens() []string {
	set := make(map[string]struct{})
	for k := range f.rows {
		set[k.Token] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Write header keyCols then every column; dates as YYYY-MM-DD, empty cells for NaN
func (f *Frame) Write(path string, withToken bool) error {
	header := []string{"Date"}
	if withToken {
		header = []string{"Token", "Date"}
	}
	header = append(header, f.cols...)

	keys := f.Keys()
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		row := make([]string, 0, len(header))
		if withToken {
			row = append(row, k.Token)
		}
		row = append(row, k.Date.Format(time.DateOnly))
		for _, c := range f.cols {
			row = append(row, csvfs.FormatFloat(f.Get(k, c)))
		}
		rows = append(rows, row)
	}

	return csvfs.WriteAtomic(path, header, rows)
}

func (f *Frame) Has(k Key) bool {
	_, ok := f.rows[k]
	return ok
}
