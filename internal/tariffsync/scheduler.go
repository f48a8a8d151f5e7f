package tariffsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// раз в сутки, в полночь
const DefaultSchedule = "0 0 * * *"

type Runner interface {
	Run(ctx context.Context) Report
}

// Scheduler запускает Runner по cron-выражению и по требованию.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	log    *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler проверяет выражение сразу, чтобы ошибка всплыла при старте процесса.
func NewScheduler(runner Runner, spec string, loc *time.Location, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log: log}
	s := &Scheduler{
		runner: runner,
		log:    log,
		ctx:    context.Background(),
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("sync schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start делает первый прогон сразу, не дожидаясь расписания.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.RunNow()

	next := s.cron.Entries()[0].Next
	s.log.Info("sync scheduler started", "next_run", next)
}

// RunNow запускает цикл в фоне. Пересечение с идущим циклом отсекает замок сервиса.
// После Stop ничего не делает.
func (s *Scheduler) RunNow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		s.log.Warn("sync requested after scheduler stop, ignored")
		return
	}
	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runner.Run(ctx)
	}()
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	s.runner.Run(ctx)
}

// Stop снимает расписание и ждёт текущие циклы.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	done := s.cron.Stop()
	<-done.Done()
	s.wg.Wait()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

// cronLogger пишет события cron в slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
