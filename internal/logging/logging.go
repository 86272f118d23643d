// Package logging provides component-tagged structured logging for the
// renderer, and an async record queue so the Sync Core's hot path
// (PushAudio/FillBuffer) never blocks on log I/O.
//
// Structured output is charmbracelet/log (the one example repo in the
// corpus carrying a real structured logging library); the teacher itself
// only reaches for stdlib log.Printf with a hardcoded format, which this
// package generalizes into a per-component logger the way the rest of the
// corpus tags log lines by subsystem.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

var (
	base     *log.Logger
	baseOnce sync.Once
)

func root() *log.Logger {
	baseOnce.Do(func() {
		base = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
		})
	})
	return base
}

// For returns a logger tagged with component, e.g. logging.For("core"),
// logging.For("orchestrator").
func For(component string) *log.Logger {
	return root().With("component", component)
}

// SetVerbose raises or lowers the root logger's level; call before the
// first For() in a process (cmd/direttarenderer does this right after
// flag parsing).
func SetVerbose(verbose bool) {
	if verbose {
		root().SetLevel(log.DebugLevel)
	} else {
		root().SetLevel(log.InfoLevel)
	}
}

// SetOutput redirects every subsequently created component logger; tests
// use this to capture output.
func SetOutput(w io.Writer) {
	baseOnce.Do(func() {})
	base = log.NewWithOptions(w, log.Options{ReportTimestamp: true, TimeFormat: time.RFC3339})
}

// record is one fixed-size hot-path log entry: a severity, a short
// message, and at most one key/value pair, which covers everything the
// Sync Core needs to report (prefill/warmup transitions, underrun counts)
// without a variadic allocation.
type record struct {
	level log.Level
	msg   string
	key   string
	value string
	when  time.Time
}

const recordSize = 256

// HotPathQueue is a lock-free single-producer/single-consumer queue of log
// records, so PushAudio/FillBuffer can report state transitions without
// blocking on charmbracelet/log's I/O. It is a fixed-length ring of
// records rather than pkg/ringbuf's byte ring, since a Go struct slot is
// the natural SPSC unit here; the producer/consumer cursor discipline it
// follows is the same one pkg/ringbuf documents (producer owns write
// index, consumer owns read index, one atomic each).
type HotPathQueue struct {
	buf  []record
	mask uint64

	writeIdx uint64
	readIdx  uint64

	logger *log.Logger
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewHotPathQueue builds a queue of the given capacity (rounded up to a
// power of two) draining into logger.
func NewHotPathQueue(capacityHint int, logger *log.Logger) *HotPathQueue {
	cap := nextPow2(capacityHint)
	return &HotPathQueue{
		buf:    make([]record, cap),
		mask:   uint64(cap - 1),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the background drain goroutine.
func (q *HotPathQueue) Start() {
	q.wg.Add(1)
	go q.drain()
}

// Stop signals the drain goroutine to flush and exit, and waits for it.
func (q *HotPathQueue) Stop() {
	close(q.done)
	q.wg.Wait()
}

// Info and Warn enqueue a hot-path record at the given level without
// requiring callers to import charmbracelet/log themselves.
func (q *HotPathQueue) Info(msg, key, value string) { q.Push(log.InfoLevel, msg, key, value) }
func (q *HotPathQueue) Warn(msg, key, value string) { q.Push(log.WarnLevel, msg, key, value) }

// Push enqueues one record from the hot path; if the queue is full (the
// drain goroutine has fallen behind), the record is dropped rather than
// blocking the caller.
func (q *HotPathQueue) Push(level log.Level, msg, key string, value string) {
	w := atomic.LoadUint64(&q.writeIdx)
	r := atomic.LoadUint64(&q.readIdx)
	if w-r >= uint64(len(q.buf)) {
		return
	}
	q.buf[w&q.mask] = record{level: level, msg: msg, key: key, value: value, when: time.Now()}
	atomic.StoreUint64(&q.writeIdx, w+1)
}

func (q *HotPathQueue) drain() {
	defer q.wg.Done()
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-q.done:
			q.flush()
			return
		case <-ticker.C:
			q.flush()
		}
	}
}

func (q *HotPathQueue) flush() {
	for {
		readIdx := atomic.LoadUint64(&q.readIdx)
		if readIdx == atomic.LoadUint64(&q.writeIdx) {
			return
		}
		r := q.buf[readIdx&q.mask]
		atomic.StoreUint64(&q.readIdx, readIdx+1)

		var kv []interface{}
		if r.key != "" {
			kv = []interface{}{r.key, r.value}
		}
		switch r.level {
		case log.DebugLevel:
			q.logger.Debug(r.msg, kv...)
		case log.WarnLevel:
			q.logger.Warn(r.msg, kv...)
		case log.ErrorLevel:
			q.logger.Error(r.msg, kv...)
		default:
			q.logger.Info(r.msg, kv...)
		}
	}
}

func nextPow2(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Fields formats a key/value pair as a single string for HotPathQueue.Push
// callers that need to report more than a scalar.
func Fields(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
