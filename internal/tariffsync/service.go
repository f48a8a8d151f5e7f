// Package tariffsync запускает цикл синхронизации тарифов по расписанию.
package tariffsync

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/wb-tariffs/internal/domain/tariffs"
	"github.com/Spok95/wb-tariffs/internal/infra/metrics"
	"github.com/Spok95/wb-tariffs/internal/sheets"
	"github.com/Spok95/wb-tariffs/internal/wb"
)

type Fetcher interface {
	Fetch(ctx context.Context) (*wb.Result, error)
}

type Store interface {
	CreateMany(ctx context.Context, items []tariffs.Tariff) ([]tariffs.Record, error)
}

type Mirror interface {
	SaveToGoogleSheet(ctx context.Context, items []tariffs.Tariff, spreadsheetID string) (*sheets.AppendSummary, error)
}

// Notifier получает итог каждого состоявшегося цикла.
type Notifier interface {
	NotifySync(ctx context.Context, rep Report)
}

type Locker interface {
	TryLock(ctx context.Context) (unlock func(), ok bool, err error)
}

type Deps struct {
	Fetcher       Fetcher
	Store         Store
	Mirror        Mirror
	Notifier      Notifier // может быть nil
	Locker        Locker
	SpreadsheetID string
	Log           *slog.Logger
}

type Service struct {
	fetch         Fetcher
	store         Store
	mirror        Mirror
	notify        Notifier
	lock          Locker
	spreadsheetID string
	log           *slog.Logger
	now           func() time.Time
}

func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		fetch:         d.Fetcher,
		store:         d.Store,
		mirror:        d.Mirror,
		notify:        d.Notifier,
		lock:          d.Locker,
		spreadsheetID: d.SpreadsheetID,
		log:           log,
		now:           time.Now,
	}
}

// Run выполняет один цикл: получить тарифы, сохранить в БД, дописать в таблицу.
// Пустой или неудачный fetch останавливает цикл. Ошибка БД не мешает записи в таблицу.
func (s *Service) Run(ctx context.Context) Report {
	rep := Report{RunID: uuid.NewString(), StartedAt: s.now()}
	log := s.log.With("run_id", rep.RunID)

	if s.lock != nil {
		unlock, ok, err := s.lock.TryLock(ctx)
		if err != nil {
			log.Error("sync: run lock failed", "err", err)
			rep.Skipped = true
			rep.fail(StageLock, err)
			s.finish(ctx, log, &rep)
			return rep
		}
		if !ok {
			log.Warn("sync: previous run still in progress, skipping")
			rep.Skipped = true
			s.finish(ctx, log, &rep)
			return rep
		}
		defer unlock()
	}

	log.Info("sync: started")

	res, err := s.fetch.Fetch(ctx)
	if err != nil {
		log.Error("sync: fetch failed", "err", err)
		rep.fail(StageFetch, err)
		s.finish(ctx, log, &rep)
		return rep
	}
	rep.Source = res.Source
	rep.Fetched = len(res.Tariffs)
	rep.Rejected = res.Rejected
	metrics.FetchSource.WithLabelValues(string(res.Source)).Inc()
	metrics.TariffsFetched.Set(float64(rep.Fetched))

	if rep.Fetched == 0 {
		log.Warn("sync: no tariffs fetched, nothing to save", "source", res.Source)
		s.finish(ctx, log, &rep)
		return rep
	}

	saved, err := s.store.CreateMany(ctx, res.Tariffs)
	if err != nil {
		log.Error("sync: save to database failed", "err", err)
		rep.fail(StagePersist, err)
	} else {
		rep.Persisted = len(saved)
		log.Info("sync: saved to database", "rows", rep.Persisted)
	}

	// в таблицу уходит тот же список, что и в БД
	sum, err := s.mirror.SaveToGoogleSheet(ctx, res.Tariffs, s.spreadsheetID)
	if err != nil {
		log.Error("sync: append to spreadsheet failed", "err", err)
		rep.fail(StageMirror, err)
	} else {
		rep.Appended = sum.Rows
		rep.Range = sum.Range
		log.Info("sync: appended to spreadsheet", "range", sum.Range, "rows", sum.Rows)
	}

	s.finish(ctx, log, &rep)
	return rep
}

func (s *Service) finish(ctx context.Context, log *slog.Logger, rep *Report) {
	rep.Duration = s.now().Sub(rep.StartedAt)

	metrics.SyncRuns.WithLabelValues(rep.Result()).Inc()
	for _, e := range rep.Errors {
		metrics.StageFailures.WithLabelValues(e.Stage).Inc()
	}
	if rep.Skipped {
		return
	}
	metrics.SyncDuration.Observe(rep.Duration.Seconds())

	log.Info("sync: finished",
		"result", rep.Result(),
		"source", rep.Source,
		"fetched", rep.Fetched,
		"rejected", rep.Rejected,
		"persisted", rep.Persisted,
		"appended", rep.Appended,
		"duration", rep.Duration,
	)

	if s.notify != nil {
		s.notify.NotifySync(ctx, *rep)
	}
}
