package telemetry

import (
	"sync"

	"github.com/phantomos/governor/internal/governor"
)

// recorderBuffer bounds the async write queue. Entries past the bound are
// dropped with a warning rather than blocking an evaluation.
const recorderBuffer = 256

// Recorder adapts Storage to the governor's audit mirror hook. Writes are
// asynchronous so database latency never reaches the decision path.
type Recorder struct {
	storage *Storage
	ch      chan governor.AuditEntry
	done    chan struct{}
	once    sync.Once
	dropped uint64
	mu      sync.Mutex
}

// NewRecorder starts the write loop over the given storage.
func NewRecorder(storage *Storage) *Recorder {
	r := &Recorder{
		storage: storage,
		ch:      make(chan governor.AuditEntry, recorderBuffer),
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

// Record implements governor.Recorder. It never blocks.
func (r *Recorder) Record(entry governor.AuditEntry) {
	select {
	case r.ch <- entry:
	default:
		r.mu.Lock()
		r.dropped++
		n := r.dropped
		r.mu.Unlock()
		if n == 1 || n%100 == 0 {
			log.Warn("audit mirror queue full, %d entries dropped", n)
		}
	}
}

func (r *Recorder) loop() {
	for entry := range r.ch {
		if err := r.storage.Insert(entry); err != nil {
			log.Warn("audit mirror write failed: %v", err)
		}
	}
	close(r.done)
}

// Close drains the queue and stops the write loop.
func (r *Recorder) Close() {
	r.once.Do(func() {
		close(r.ch)
		<-r.done
	})
}

// Dropped returns the number of entries lost to a full queue.
func (r *Recorder) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
