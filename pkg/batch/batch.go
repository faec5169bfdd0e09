package batch

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/screa/promokey/internal/logger"
	"github.com/screa/promokey/pkg/promo"
	"github.com/screa/promokey/pkg/types"
)

// Config controls a batch run
type Config struct {
	Workers     int
	LogInterval time.Duration // 0 disables periodic progress logging
}

// Runner derives many promo codes in parallel. Each code is still
// stretched sequentially on a single goroutine.
type Runner struct {
	config    Config
	deriver   *promo.Deriver
	logger    *logger.Logger
	completed int64
	done      chan struct{}
	once      sync.Once
}

// NewRunner creates a new batch runner
func NewRunner(cfg Config, d *promo.Deriver, log *logger.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{
		config:  cfg,
		deriver: d,
		logger:  log,
		done:    make(chan struct{}),
	}
}

// Run derives every code and returns one result per input, in input order.
// Codes not reached before Stop or context cancellation carry the
// cancellation error.
func (r *Runner) Run(ctx context.Context, codes []string) []types.BatchResult {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	select {
	case <-r.done:
		cancel()
	default:
	}
	go func() {
		select {
		case <-r.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	results := make([]types.BatchResult, len(codes))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := r.config.Workers
	if workers > len(codes) {
		workers = len(codes)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go r.worker(ctx, codes, jobs, results, &wg)
	}

	start := time.Now()
	var logTicker *time.Ticker
	var logDone chan struct{}
	var logWg sync.WaitGroup
	if r.config.LogInterval > 0 {
		logTicker = time.NewTicker(r.config.LogInterval)
		logDone = make(chan struct{})
		logWg.Add(1)
		go func() {
			defer logWg.Done()
			r.periodicLogger(logTicker, logDone, len(codes), start)
		}()
	}

	next := 0
feed:
	for ; next < len(codes); next++ {
		select {
		case jobs <- next:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if logTicker != nil {
		logTicker.Stop()
		close(logDone)
		logWg.Wait()
	}

	// Codes never handed to a worker.
	for i := next; i < len(codes); i++ {
		results[i] = types.BatchResult{Index: i, Code: codes[i], Err: ctx.Err()}
	}
	return results
}

// worker derives codes until the job channel closes
func (r *Runner) worker(ctx context.Context, codes []string, jobs <-chan int, results []types.BatchResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for i := range jobs {
		start := time.Now()
		key, err := r.deriver.Derive(ctx, promo.NewPromoCode(codes[i]))
		results[i] = types.BatchResult{
			Index:    i,
			Code:     codes[i],
			Key:      key,
			Err:      err,
			Duration: time.Since(start),
		}
		if err == nil {
			atomic.AddInt64(&r.completed, 1)
		}
	}
}

// Stop cancels outstanding derivations
func (r *Runner) Stop() {
	r.once.Do(func() { close(r.done) })
}

// Completed returns how many codes have been derived so far
func (r *Runner) Completed() int64 {
	return atomic.LoadInt64(&r.completed)
}

// periodicLogger logs batch progress at regular intervals
func (r *Runner) periodicLogger(ticker *time.Ticker, done chan struct{}, total int, start time.Time) {
	for {
		select {
		case <-ticker.C:
			completed := r.Completed()
			elapsed := time.Since(start)

			rate := 0.0
			if elapsed.Seconds() > 0 {
				rate = float64(completed) / elapsed.Seconds()
			}
			r.logger.Printf("Batch: %d/%d codes derived, %.3f codes/sec", completed, total, rate)
		case <-done:
			return
		}
	}
}
