package testbench

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/i5heu/dataqueue/internal/queue"
)

// Config is only about concurrency: how many producers, how many consumers.
type Config struct {
	NumProducers int `yaml:"producers" json:"producers"`
	NumConsumers int `yaml:"consumers" json:"consumers"`
}

// TimedResult is what RunTimedTest measured in its window.
type TimedResult struct {
	Produced int64
	Consumed int64
	// Rejected counts Enqueue calls that returned false because the queue was full.
	Rejected int64
	Elapsed  time.Duration
}

// RunTimedTest spawns producers and consumers that run for the specified
// duration, measuring how many messages are actually enqueued/dequeued
// in that window. A producer whose Enqueue is refused yields and retries the
// same message. Once the context expires, producers stop and consumers
// drain any remaining messages in the queue.
func RunTimedTest[T any, Q queue.Interface[T]](
	q Q,
	cfg Config,
	testDuration time.Duration,
	valueGenerator func(int) T,
	logger *zap.Logger,
) TimedResult {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Create a context that will cancel after testDuration.
	ctx, cancel := context.WithTimeout(context.Background(), testDuration)
	defer cancel()

	var totalProduced, totalConsumed, totalRejected int64

	start := time.Now()

	var msgIndex int64
	var prodWg, consWg sync.WaitGroup
	prodWg.Add(cfg.NumProducers)
	consWg.Add(cfg.NumConsumers)

	// productionDone will be set to 1 when test duration expires.
	var productionDone int32

	go func() {
		<-ctx.Done()
		atomic.StoreInt32(&productionDone, 1)
	}()

	for i := 0; i < cfg.NumProducers; i++ {
		go func() {
			defer prodWg.Done()
			for atomic.LoadInt32(&productionDone) == 0 {
				idx := atomic.AddInt64(&msgIndex, 1) - 1
				msg := valueGenerator(int(idx))
				for !q.Enqueue(msg) {
					atomic.AddInt64(&totalRejected, 1)
					if atomic.LoadInt32(&productionDone) == 1 {
						return
					}
					runtime.Gosched()
				}
				atomic.AddInt64(&totalProduced, 1)
			}
		}()
	}

	for i := 0; i < cfg.NumConsumers; i++ {
		go func() {
			defer consWg.Done()
			for {
				if atomic.LoadInt32(&productionDone) == 1 {
					// Wait for the last in-flight enqueues, then drain.
					prodWg.Wait()
					for {
						if _, ok := q.Dequeue(); !ok {
							return
						}
						atomic.AddInt64(&totalConsumed, 1)
					}
				}
				if _, ok := q.Dequeue(); ok {
					atomic.AddInt64(&totalConsumed, 1)
				} else {
					runtime.Gosched()
				}
			}
		}()
	}

	<-ctx.Done()
	prodWg.Wait()
	consWg.Wait()

	res := TimedResult{
		Produced: atomic.LoadInt64(&totalProduced),
		Consumed: atomic.LoadInt64(&totalConsumed),
		Rejected: atomic.LoadInt64(&totalRejected),
		Elapsed:  time.Since(start),
	}
	logger.Debug("timed run finished",
		zap.Int("producers", cfg.NumProducers),
		zap.Int("consumers", cfg.NumConsumers),
		zap.Int64("produced", res.Produced),
		zap.Int64("consumed", res.Consumed),
		zap.Int64("rejected", res.Rejected),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res
}

// IntegrityReport summarizes one RunIntegrityTest.
type IntegrityReport struct {
	Accepted        int
	Rejected        int
	Dequeued        int
	Duplicates      []int
	Missing         []int
	MaxObservedSize int
}

// OK reports whether every accepted element came out exactly once.
func (r IntegrityReport) OK() bool {
	return len(r.Duplicates) == 0 && len(r.Missing) == 0 && r.Accepted == r.Dequeued
}

// RunIntegrityTest has every producer offer perProducer distinct ids to q.
// Offers refused because the queue is full are dropped and counted, not
// retried. Consumers dequeue until production has finished and the queue is
// drained. Every observed Size() is recorded so callers can check it never
// exceeded the capacity.
func RunIntegrityTest[Q queue.Interface[int]](q Q, cfg Config, perProducer int) IntegrityReport {
	total := cfg.NumProducers * perProducer
	accepted := make([]atomic.Bool, total)
	seen := make([]atomic.Int32, total)

	var rejected, dequeued, maxSize atomic.Int64
	observe := func() {
		s := int64(q.Size())
		for {
			cur := maxSize.Load()
			if s <= cur || maxSize.CompareAndSwap(cur, s) {
				return
			}
		}
	}

	var prodWg, consWg sync.WaitGroup
	var producing atomic.Bool
	producing.Store(true)

	prodWg.Add(cfg.NumProducers)
	for p := 0; p < cfg.NumProducers; p++ {
		go func(p int) {
			defer prodWg.Done()
			for j := 0; j < perProducer; j++ {
				id := p*perProducer + j
				if q.Enqueue(id) {
					accepted[id].Store(true)
				} else {
					rejected.Add(1)
					runtime.Gosched()
				}
				observe()
			}
		}(p)
	}

	consWg.Add(cfg.NumConsumers)
	for c := 0; c < cfg.NumConsumers; c++ {
		go func() {
			defer consWg.Done()
			record := func(id int) {
				seen[id].Add(1)
				dequeued.Add(1)
				observe()
			}
			for {
				if id, ok := q.Dequeue(); ok {
					record(id)
					continue
				}
				if !producing.Load() {
					// Production is over, so an empty dequeue now means
					// the queue is drained.
					for {
						id, ok := q.Dequeue()
						if !ok {
							return
						}
						record(id)
					}
				}
				runtime.Gosched()
			}
		}()
	}

	prodWg.Wait()
	producing.Store(false)
	consWg.Wait()

	rep := IntegrityReport{
		Rejected:        int(rejected.Load()),
		Dequeued:        int(dequeued.Load()),
		MaxObservedSize: int(maxSize.Load()),
	}
	for id := 0; id < total; id++ {
		n := seen[id].Load()
		if accepted[id].Load() {
			rep.Accepted++
			if n == 0 {
				rep.Missing = append(rep.Missing, id)
			}
		}
		if n > 1 {
			rep.Duplicates = append(rep.Duplicates, id)
		}
	}
	return rep
}
