package stt

import (
	"sync"
)

// TaskState tracks a recognition task through its lifecycle. Terminal
// states are absorbing: once finalized, failed, or canceled, a task
// never emits again.
type TaskState int

const (
	TaskCreated TaskState = iota
	TaskStreaming
	TaskFinalized
	TaskFailed
	TaskCanceled
)

func (s TaskState) String() string {
	switch s {
	case TaskCreated:
		return "created"
	case TaskStreaming:
		return "streaming"
	case TaskFinalized:
		return "finalized"
	case TaskFailed:
		return "failed"
	case TaskCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state admits no further transitions.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskFinalized, TaskFailed, TaskCanceled:
		return true
	default:
		return false
	}
}

// Task is an active recognition subscription. Backends drive it through
// begin/partial/final/fail; consumers range over Events until it closes
// and may Cancel at any time.
//
// Emission never drops or blocks: accepted events go into an unbounded
// queue under the state mutex, and a dispatcher goroutine delivers them
// in order with no lock held. A slow consumer therefore delays
// delivery, never the backend, and Cancel and State stay responsive
// regardless of backlog.
type Task struct {
	mu      sync.Mutex
	cond    *sync.Cond
	state   TaskState
	queue   []Event
	done    bool
	events  chan Event
	release func()
}

// newTask wires a task to its backend. release is invoked once, on
// cancel, and must not block.
func newTask(release func()) *Task {
	t := &Task{
		state:   TaskCreated,
		events:  make(chan Event, 16),
		release: release,
	}
	t.cond = sync.NewCond(&t.mu)
	go t.dispatch()
	return t
}

// Events delivers partials, then at most one final or failure, then
// closes.
func (t *Task) Events() <-chan Event {
	return t.events
}

func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// dispatch drains the queue into the events channel, preserving order,
// and closes the channel once a terminal transition has flushed.
func (t *Task) dispatch() {
	for {
		t.mu.Lock()
		for len(t.queue) == 0 && !t.done {
			t.cond.Wait()
		}
		if len(t.queue) == 0 {
			t.mu.Unlock()
			close(t.events)
			return
		}
		ev := t.queue[0]
		t.queue = t.queue[1:]
		t.mu.Unlock()

		t.events <- ev
	}
}

// begin moves Created to Streaming. Emission before begin is dropped.
func (t *Task) begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TaskCreated {
		t.state = TaskStreaming
	}
}

func (t *Task) partial(text string, confidence float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TaskStreaming {
		return
	}
	t.queue = append(t.queue, Event{
		Kind:       KindPartial,
		Text:       text,
		Confidence: confidence,
	})
	t.cond.Signal()
}

func (t *Task) final(text string, confidence float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TaskStreaming {
		return
	}
	t.state = TaskFinalized
	t.queue = append(t.queue, Event{
		Kind:       KindFinal,
		Text:       text,
		Confidence: confidence,
	})
	t.done = true
	t.cond.Signal()
}

func (t *Task) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TaskStreaming {
		return
	}
	t.state = TaskFailed
	t.queue = append(t.queue, Event{Kind: KindFailure, Err: err})
	t.done = true
	t.cond.Signal()
}

// Cancel releases the task. Safe to call repeatedly and in any state;
// undelivered events are discarded and events arriving from the
// backend after cancel are dropped.
func (t *Task) Cancel() {
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return
	}
	t.state = TaskCanceled
	t.queue = nil
	t.done = true
	t.cond.Signal()
	release := t.release
	t.mu.Unlock()

	if release != nil {
		release()
	}
}
