// Package scheduler запускает независимые фоновые циклы движка.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/progress-engine/internal/lib/metrics"
	"github.com/magabrotheeeer/progress-engine/internal/lib/sl"
)

// Loop один фоновый цикл. После успешной итерации ждёт Period, после ошибки Backoff.
type Loop struct {
	Name    string
	Period  time.Duration
	Backoff time.Duration
	Job     func(ctx context.Context) error
}

type Scheduler struct {
	loops []Loop
	log   *slog.Logger
}

// New создает новый экземпляр Scheduler.
func New(log *slog.Logger, loops ...Loop) *Scheduler {
	return &Scheduler{
		loops: loops,
		log:   log,
	}
}

// Run запускает все циклы и блокируется до отмены ctx и выхода каждого из них.
// Первая итерация выполняется сразу.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, l := range s.loops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runLoop(ctx, l)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, l Loop) {
	log := s.log.With(sl.Loop(l.Name))
	log.Info("loop started", slog.Duration("period", l.Period), slog.Duration("backoff", l.Backoff))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("loop stopped")
			return
		case <-timer.C:
		}

		wait := l.Period
		if err := s.iterate(ctx, l); err != nil {
			if ctx.Err() != nil {
				log.Info("loop stopped")
				return
			}
			metrics.LoopIterations.WithLabelValues(l.Name, "error").Inc()
			log.Error("loop iteration failed", sl.Err(err), slog.Duration("retry_in", l.Backoff))
			wait = l.Backoff
		} else {
			metrics.LoopIterations.WithLabelValues(l.Name, "ok").Inc()
		}
		timer.Reset(wait)
	}
}

// iterate выполняет одну итерацию, паника превращается в ошибку.
func (s *Scheduler) iterate(ctx context.Context, l Loop) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.Job(ctx)
}
