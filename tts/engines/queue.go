// Package engines provides the playback queue shared by speech engine
// implementations.
package engines

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/announcer/tts"
)

// ErrQueueClosed is returned when operations are attempted on a closed queue.
var ErrQueueClosed = errors.New("queue is closed")

// SpeakFunc renders one chunk and blocks until it has been played or ctx
// is cancelled.
type SpeakFunc func(ctx context.Context, chunk string) error

type item struct {
	chunk string
	id    string
}

// Queue plays chunks one at a time, in the order they were enqueued, and
// reports progress to a tts.UtteranceListener.
type Queue struct {
	speak  SpeakFunc
	logger *log.Logger

	mu       sync.Mutex
	items    []item
	busy     bool
	cancel   context.CancelFunc
	listener tts.UtteranceListener
	closed   bool

	wake chan struct{}
	done chan struct{}
}

// NewQueue starts a queue whose worker renders chunks with speak.
func NewQueue(speak SpeakFunc, logger *log.Logger) *Queue {
	if logger == nil {
		logger = tts.NewLogger("queue")
	}
	q := &Queue{
		speak:  speak,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue appends a chunk.
func (q *Queue) Enqueue(chunk, utteranceID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, item{chunk: chunk, id: utteranceID})

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Stop drops every queued chunk and cancels the one being played.
// Stopped chunks produce no callbacks.
func (q *Queue) Stop() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = nil
	if q.cancel != nil {
		q.cancel()
	}
	return nil
}

// IsSpeaking returns true while a chunk is playing or queued.
func (q *Queue) IsSpeaking() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy || len(q.items) > 0
}

// Len returns the number of queued chunks, excluding the one playing.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// SetListener registers the receiver of lifecycle callbacks.
func (q *Queue) SetListener(listener tts.UtteranceListener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listener = listener
}

// Close stops playback and terminates the worker.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.items = nil
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Unlock()

	close(q.wake)
	<-q.done
	return nil
}

func (q *Queue) run() {
	defer close(q.done)

	for range q.wake {
		for {
			it, ctx, listener, ok := q.next()
			if !ok {
				break
			}
			q.play(it, ctx, listener)
		}
	}
}

// next pops the head of the queue and marks the queue busy.
func (q *Queue) next() (item, context.Context, tts.UtteranceListener, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.items) == 0 {
		return item{}, nil, nil, false
	}

	it := q.items[0]
	q.items = q.items[1:]

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.busy = true
	return it, ctx, q.listener, true
}

func (q *Queue) play(it item, ctx context.Context, listener tts.UtteranceListener) {
	if listener != nil {
		listener.OnStart(it.id)
	}

	err := q.speak(ctx, it.chunk)
	stopped := ctx.Err() != nil

	q.mu.Lock()
	q.cancel()
	q.cancel = nil
	q.busy = false
	q.mu.Unlock()

	switch {
	case stopped:
		q.logger.Debug("Chunk stopped", "id", it.id)
	case err != nil:
		q.logger.Debug("Chunk failed", "id", it.id, "err", err)
		if listener != nil {
			listener.OnError(it.id, err)
		}
	default:
		if listener != nil {
			listener.OnDone(it.id)
		}
	}
}
