package csvfs

import (
	"dexnetwork/internal/domain"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Table is a whole CSV file addressed by header name
type Table struct {
	Path   string
	Header []string
	Rows   [][]string

	index map[string]int
}

// ReadTable loads path and checks that every required column exists.
// A missing file is reported as os.ErrNotExist, a missing column as *domain.SchemaError
func ReadTable(path string, required ...string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = false

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &domain.SchemaError{Path: path, Column: firstOr(required, "<header>")}
		}
		return nil, fmt.Errorf("failed read header of %s, error=%w", path, err)
	}

	t := &Table{Path: path, Header: header, index: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.Header[i] = h
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}

	for _, col := range required {
		if !t.Has(col) {
			return nil, &domain.SchemaError{Path: path, Column: col}
		}
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed read row of %s, error=%w", path, err)
		}
		t.Rows = append(t.Rows, rec)
	}

	return t, nil
}

func firstOr(s []string, def string) string {
	if len(s) > 0 {
		return s[0]
	}
	return def
}

func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Get value of col in row; "" when the column or the cell is absent
func (t *Table) Get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// First existing column among aliases
func (t *Table) Pick(aliases ...string) (string, bool) {
	for _, a := range aliases {
		if t.Has(a) {
			return a, true
		}
	}
	return "", false
}

// Float parse col; empty, unparseable, NaN and Inf give 0
func (t *Table) Float(row []string, col string) float64 {
	return ParseFloat(t.Get(row, col))
}

// WriteAtomic write header+rows to a temp file in the target dir and rename it in place,
// so a partially written file never exists under path
func WriteAtomic(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed create dir %s, error=%w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed create temp file in %s, error=%w", dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	w := csv.NewWriter(tmp)
	if err = w.Write(header); err != nil {
		cleanup()
		return fmt.Errorf("failed write header %s, error=%w", path, err)
	}
	if err = w.WriteAll(rows); err != nil {
		cleanup()
		return fmt.Errorf("failed write rows %s, error=%w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed sync %s, error=%w", path, err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed close %s, error=%w", path, err)
	}

	if err = os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed rename %s, error=%w", path, err)
	}

	return nil
}

// FormatFloat shortest representation that round-trips; NaN -> ""
func FormatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	if math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func ParseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseOptional keeps the difference between an empty cell (NaN) and zero
func ParseOptional(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}
