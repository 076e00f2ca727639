package domain

import "fmt"

// Route shape of a transaction
type Label uint8

const (
	LabelSimple Label = iota
	LabelLoop
	LabelSpoon
	LabelError
)

// Value written into the `label` column; simple routes keep the legacy "0"
func (l Label) Wire() string {
	switch l {
	case LabelSimple:
		return "0"
	case LabelLoop:
		return "loop"
	case LabelSpoon:
		return "spoon"
	default:
		return "error"
	}
}

func (l Label) String() string {
	if l == LabelSimple {
		return "simple"
	}
	return l.Wire()
}

func ParseLabel(s string) (Label, error) {
	switch s {
	case "0", "simple":
		return LabelSimple, nil
	case "loop":
		return LabelLoop, nil
	case "spoon":
		return LabelSpoon, nil
	case "error":
		return LabelError, nil
	}
	return LabelError, fmt.Errorf("unknown label %q", s)
}
