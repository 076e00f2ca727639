package dedupe

import "context"

// Ledger remembers which (version, date) units finished, keyed by domain.MakeUnitID
type Ledger interface {
	Done(ctx context.Context, id string) (bool, error)
	MarkDone(ctx context.Context, id string) error
}
