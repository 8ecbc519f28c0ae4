package sync

import (
	"errors"
	"fmt"
	"time"
)

// ResultKind is the outcome class of a sync unit.
type ResultKind int

const (
	ResultNoChanges ResultKind = iota
	ResultSuccess
	ResultPartial
	ResultFailed
	ResultConnectionUnavailable
)

func (k ResultKind) String() string {
	switch k {
	case ResultNoChanges:
		return "no_changes"
	case ResultSuccess:
		return "success"
	case ResultPartial:
		return "partial"
	case ResultFailed:
		return "failed"
	case ResultConnectionUnavailable:
		return "connection_unavailable"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// Result is the outcome of one sync unit.
type Result struct {
	Errors    []error
	Duration  time.Duration
	Kind      ResultKind
	Processed int // записи, подтвержденные сервером (push) или примененные локально (pull)
	Failed    int
	Pulled    int // записи, полученные при двунаправленной синхронизации
	Skipped   int // элементы pull, которые не удалось десериализовать
}

// Err joins the result errors, nil if there are none.
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}

// IsSuccess reports Success or NoChanges.
func (r *Result) IsSuccess() bool {
	return r.Kind == ResultSuccess || r.Kind == ResultNoChanges
}

func noChanges() *Result {
	return &Result{Kind: ResultNoChanges}
}

func connectionUnavailable() *Result {
	return &Result{Kind: ResultConnectionUnavailable, Errors: []error{ErrConnectionUnavailable}}
}

func failed(err error) *Result {
	return &Result{Kind: ResultFailed, Failed: 1, Errors: []error{err}}
}

func succeeded(processed int) *Result {
	return &Result{Kind: ResultSuccess, Processed: processed}
}

// errored reports a failure that is not tied to a record, so counters stay zero.
func errored(err error) *Result {
	return &Result{Kind: ResultFailed, Errors: []error{err}}
}

// combine merges results of independent units into one.
// Any Partial or Failed unit demotes the overall result.
func combine(results ...*Result) *Result {
	out := &Result{}
	var anySuccess, anyFailure, allUnavailable = false, false, len(results) > 0

	for _, r := range results {
		if r == nil {
			continue
		}
		out.Processed += r.Processed
		out.Failed += r.Failed
		out.Pulled += r.Pulled
		out.Skipped += r.Skipped
		out.Errors = append(out.Errors, r.Errors...)

		if r.Kind != ResultConnectionUnavailable {
			allUnavailable = false
		}
		switch r.Kind {
		case ResultSuccess:
			anySuccess = true
		case ResultPartial:
			anySuccess, anyFailure = true, true
		case ResultFailed:
			anyFailure = true
		}
	}

	switch {
	case allUnavailable:
		out.Kind = ResultConnectionUnavailable
	case anyFailure && anySuccess:
		out.Kind = ResultPartial
	case anyFailure:
		out.Kind = ResultFailed
	case anySuccess:
		out.Kind = ResultSuccess
	default:
		out.Kind = ResultNoChanges
	}
	return out
}
