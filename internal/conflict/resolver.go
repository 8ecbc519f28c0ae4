// Package conflict decides which version of a record becomes canonical when
// the local and remote copies disagree.
package conflict

import (
	"errors"
	"fmt"

	"github.com/iudanet/gophsync/internal/models"
)

// ErrMissingCustomResolver is returned when StrategyCustom is configured without a function.
var ErrMissingCustomResolver = fmt.Errorf("%w: custom conflict strategy requires a resolver function", models.ErrConfiguration)

// ErrUnknownStrategy is returned for strategies outside the known set.
var ErrUnknownStrategy = errors.New("unknown conflict strategy")

// Strategy selects how conflicts are resolved.
type Strategy int

const (
	// StrategyLastUpdateWins keeps the side with the strictly later UpdatedAt.
	// Ties and missing timestamps resolve to the remote copy.
	StrategyLastUpdateWins Strategy = iota
	// StrategyServerWins always keeps the remote copy.
	StrategyServerWins
	// StrategyClientWins always keeps the local copy.
	StrategyClientWins
	// StrategyCustom delegates to a caller supplied Func.
	StrategyCustom
)

func (s Strategy) String() string {
	switch s {
	case StrategyLastUpdateWins:
		return "last_update_wins"
	case StrategyServerWins:
		return "server_wins"
	case StrategyClientWins:
		return "client_wins"
	case StrategyCustom:
		return "custom"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy converts a configuration string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "last_update_wins":
		return StrategyLastUpdateWins, nil
	case "server_wins":
		return StrategyServerWins, nil
	case "client_wins":
		return StrategyClientWins, nil
	case "custom":
		return StrategyCustom, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Conflict is a pair of disagreeing versions of the same record.
type Conflict struct {
	Local  *models.Record
	Remote *models.Record
}

// Func resolves a conflict for StrategyCustom. It must return one of the two
// records (or a merged record with the same id and type).
type Func func(c Conflict) *models.Record

// Resolver turns conflicts into winners. It has no side effects: callers
// persist the result.
type Resolver struct {
	custom   Func
	strategy Strategy
}

// New creates a resolver. StrategyCustom with a nil fn fails immediately.
func New(strategy Strategy, fn Func) (*Resolver, error) {
	switch strategy {
	case StrategyLastUpdateWins, StrategyServerWins, StrategyClientWins:
	case StrategyCustom:
		if fn == nil {
			return nil, ErrMissingCustomResolver
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(strategy))
	}

	return &Resolver{strategy: strategy, custom: fn}, nil
}

// Strategy returns the configured strategy.
func (r *Resolver) Strategy() Strategy {
	return r.strategy
}

// Resolve returns the record that should become canonical.
func (r *Resolver) Resolve(c Conflict) *models.Record {
	switch r.strategy {
	case StrategyServerWins:
		return c.Remote
	case StrategyClientWins:
		return c.Local
	case StrategyCustom:
		return r.custom(c)
	default:
		if LocalIsNewer(c.Local, c.Remote) {
			return c.Local
		}
		return c.Remote
	}
}

// LocalIsNewer reports whether local has a strictly later UpdatedAt than remote.
// A zero timestamp on either side is not comparable and yields false.
func LocalIsNewer(local, remote *models.Record) bool {
	if local == nil || remote == nil {
		return remote == nil && local != nil
	}
	if local.UpdatedAt.IsZero() || remote.UpdatedAt.IsZero() {
		return false
	}
	return local.UpdatedAt.After(remote.UpdatedAt)
}
