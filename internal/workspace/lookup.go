package workspace

import (
	"context"
	"strings"
	"sync"
	"time"

	"clinicflow/internal/domain/entity"
)

// LookupJob produces one autocomplete result
type LookupJob func(ctx context.Context) (*entity.PhoneLookup, error)

// Debouncer runs at most one lookup at a time. Every Submit or Do stops the
// pending timer and cancels the job in flight, so only the newest input can
// produce a result.
type Debouncer struct {
	parent    context.Context
	delay     time.Duration
	minDigits int
	lookup    func(ctx context.Context, prefix string) (*entity.PhoneLookup, error)
	results   chan *entity.PhoneLookup

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	stopped bool
}

func NewDebouncer(
	parent context.Context,
	delay time.Duration,
	minDigits int,
	lookup func(ctx context.Context, prefix string) (*entity.PhoneLookup, error),
) *Debouncer {
	return &Debouncer{
		parent:    parent,
		delay:     delay,
		minDigits: minDigits,
		lookup:    lookup,
		results:   make(chan *entity.PhoneLookup, 1),
	}
}

// Results delivers the newest completed lookup. Unread results are replaced.
func (d *Debouncer) Results() <-chan *entity.PhoneLookup {
	return d.results
}

// Submit schedules a lookup for prefix. Prefixes too short to query run
// without the delay so the form clears right away.
func (d *Debouncer) Submit(prefix string) {
	prefix = strings.TrimSpace(prefix)
	delay := d.delay
	if len(prefix) < d.minDigits {
		delay = 0
	}
	d.schedule(delay, func(ctx context.Context) (*entity.PhoneLookup, error) {
		return d.lookup(ctx, prefix)
	})
}

// Do runs job immediately, superseding any pending lookup
func (d *Debouncer) Do(job LookupJob) {
	d.schedule(0, job)
}

func (d *Debouncer) schedule(delay time.Duration, job LookupJob) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.supersede()
	gen := d.gen
	d.timer = time.AfterFunc(delay, func() {
		d.run(gen, job)
	})
}

// supersede must be called with mu held
func (d *Debouncer) supersede() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *Debouncer) run(gen uint64, job LookupJob) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(d.parent)
	d.cancel = cancel
	d.mu.Unlock()

	result, err := job(ctx)
	cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil || d.stopped || gen != d.gen {
		return
	}
	offerLatest(d.results, result)
}

// Stop cancels everything pending. Further calls are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.supersede()
	d.stopped = true
}

// offerLatest puts v on a buffered channel, dropping an unread older value
func offerLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
