package stt

import (
	"errors"
	"fmt"
	"sync"

	"hark/audio"
)

var (
	// ErrRequestFinished is returned by Append after Finish.
	ErrRequestFinished = errors.New("recognition request already finished")
	// ErrNotConfigured is returned by Append before Configure.
	ErrNotConfigured = errors.New("recognition request not configured")
	// ErrAudioGap means a buffer arrived out of capture order. The
	// stream is contiguous by contract, so callers treat this as fatal.
	ErrAudioGap = errors.New("audio buffer out of capture order")
)

// Request accumulates audio for a recognizer and carries the session's
// recognition settings. Buffers flow through an internal channel so the
// capture callback never waits on the recognizer; a consumer that falls
// far enough behind to fill the channel surfaces as an Append error
// rather than a silently dropped buffer.
type Request struct {
	locale string
	format audio.Format

	mu         sync.Mutex
	configured bool
	finished   bool
	onDevice   bool
	partials   bool
	nextSeq    uint64

	buffers chan audio.Buffer
}

func NewRequest(locale string, format audio.Format) *Request {
	return &Request{
		locale:  locale,
		format:  format,
		buffers: make(chan audio.Buffer, 100),
	}
}

// Configure sets the recognition mode. It must be called before the
// first Append.
func (r *Request) Configure(requiresOnDevice, reportsPartialResults bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configured = true
	r.onDevice = requiresOnDevice
	r.partials = reportsPartialResults
}

func (r *Request) Locale() string {
	return r.locale
}

func (r *Request) Format() audio.Format {
	return r.format
}

func (r *Request) OnDevice() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onDevice
}

func (r *Request) ReportsPartials() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.partials
}

// Append hands one captured buffer to the recognizer. Buffers must
// arrive in capture order with no gaps.
func (r *Request) Append(buf audio.Buffer) error {
	r.mu.Lock()
	if !r.configured {
		r.mu.Unlock()
		return ErrNotConfigured
	}
	if r.finished {
		r.mu.Unlock()
		return ErrRequestFinished
	}
	if buf.Seq != r.nextSeq {
		r.mu.Unlock()
		return fmt.Errorf("%w: got seq %d, want %d", ErrAudioGap, buf.Seq, r.nextSeq)
	}
	r.nextSeq++

	select {
	case r.buffers <- buf:
		r.mu.Unlock()
		return nil
	default:
		r.mu.Unlock()
		return fmt.Errorf("audio buffer backlog full at seq %d", buf.Seq)
	}
}

// Finish marks the end of the audio stream. Idempotent; Appends after
// Finish fail with ErrRequestFinished.
func (r *Request) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.finished = true
	close(r.buffers)
}

// Buffers is consumed by recognizer backends. The channel closes when
// the request is finished.
func (r *Request) Buffers() <-chan audio.Buffer {
	return r.buffers
}
