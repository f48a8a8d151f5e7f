package tariffsync

import (
	"errors"
	"fmt"
	"time"

	"github.com/Spok95/wb-tariffs/internal/wb"
)

// Этапы цикла.
const (
	StageLock    = "lock"
	StageFetch   = "fetch"
	StagePersist = "persist"
	StageMirror  = "mirror"
)

// StageError описывает сбой одного этапа. После persist и mirror цикл продолжается.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	switch e.Stage {
	case StagePersist:
		return fmt.Sprintf("persistence error: %v", e.Err)
	case StageMirror:
		return fmt.Sprintf("mirror error: %v", e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Результаты цикла для метрик и уведомлений.
const (
	ResultOK          = "ok"
	ResultPartial     = "partial"
	ResultFetchFailed = "fetch_failed"
	ResultEmpty       = "empty"
	ResultSkipped     = "skipped"
)

// Report: итог одного цикла.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	Source    wb.Source
	Fetched   int
	Rejected  int
	Persisted int
	Appended  int64 // строк, которые подтвердила таблица
	Range     string

	Skipped bool
	Errors  []*StageError
}

func (r *Report) fail(stage string, err error) {
	r.Errors = append(r.Errors, &StageError{Stage: stage, Err: err})
}

// StageErr возвращает ошибку этапа или nil.
func (r Report) StageErr(stage string) error {
	for _, e := range r.Errors {
		if e.Stage == stage {
			return e
		}
	}
	return nil
}

// Err склеивает ошибки всех этапов.
func (r Report) Err() error {
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

func (r Report) Result() string {
	switch {
	case r.Skipped:
		return ResultSkipped
	case r.StageErr(StageFetch) != nil:
		return ResultFetchFailed
	case r.Fetched == 0:
		return ResultEmpty
	case len(r.Errors) > 0:
		return ResultPartial
	}
	return ResultOK
}
