package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"hark/audio"
	"hark/auth"
	"hark/config"
	"hark/etc"
	"hark/store"
	"hark/stt"
)

// SourceFactory defers audio acquisition until authorization and
// validation have passed; a failed session must never touch the
// capture hardware.
type SourceFactory func(cfg config.Session) (audio.Source, error)

// Controller runs one recognition session end to end: authorization,
// recognizer start, buffer streaming, result delivery, and a single
// teardown on whichever terminal path arrives first. One controller
// serves one session.
type Controller struct {
	recognizer  stt.Recognizer
	gate        auth.Gate
	newSource   SourceFactory
	transcripts *store.Store
	logger      *log.Logger
	out         io.Writer

	outMu sync.Mutex
	once  sync.Once

	mu   sync.Mutex
	src  audio.Source
	req  *stt.Request
	task *stt.Task
}

// NewController wires a session together. transcripts may be nil when
// history saving is off.
func NewController(
	recognizer stt.Recognizer,
	gate auth.Gate,
	newSource SourceFactory,
	transcripts *store.Store,
	logger *log.Logger,
	out io.Writer,
) *Controller {
	return &Controller{
		recognizer:  recognizer,
		gate:        gate,
		newSource:   newSource,
		transcripts: transcripts,
		logger:      logger,
		out:         out,
	}
}

// Run executes the session and returns the process exit code. Zero
// means the session reached a terminal state through the event loop;
// non-zero means it could not meaningfully start (bad config,
// unsupported locale, unsatisfiable on-device demand, authorization,
// audio or recognizer startup) or audio delivery broke mid-session.
func (c *Controller) Run(ctx context.Context, cfg config.Session) int {
	if err := cfg.Validate(); err != nil {
		c.logger.Error("invalid configuration", "error", err.Error())
		return 1
	}

	if !stt.LocaleSupported(c.recognizer.Locales(), cfg.Language) {
		c.logger.Error("locale not supported", "language", cfg.Language)
		return 1
	}

	// On-device resolution happens before anything is acquired. A
	// demanded capability that is missing fails the session outright:
	// falling back to networked recognition would silently change the
	// privacy guarantee the caller asked for. The one automatic
	// override runs the other way: available on-device support is
	// used even when nobody asked.
	onDevice := cfg.OnDevice
	if c.recognizer.SupportsOnDevice(cfg.Language) {
		if !onDevice {
			c.logger.Debug("preferring on-device recognition", "language", cfg.Language)
		}
		onDevice = true
	} else if cfg.OnDevice {
		c.logger.Error(
			"on-device recognition required but not available",
			"language", cfg.Language,
		)
		return 1
	}

	state, err := c.gate.Request(ctx)
	if err != nil {
		c.logger.Error("authorization check failed", "error", err.Error())
		return 1
	}
	if state != auth.Authorized {
		c.logger.Error("audio capture not authorized", "state", state.String())
		return 1
	}

	sessionID := etc.NewFreshID()
	c.logger.Debug(
		"session starting",
		"session", sessionID,
		"language", cfg.Language,
		"on_device", onDevice,
	)

	src, err := c.newSource(cfg)
	if err != nil {
		c.logger.Error("failed to open audio source", "error", err.Error())
		return 1
	}
	c.mu.Lock()
	c.src = src
	c.mu.Unlock()
	defer c.Teardown()

	req := stt.NewRequest(cfg.Language, src.Format())
	req.Configure(onDevice, true)
	c.mu.Lock()
	c.req = req
	c.mu.Unlock()

	task, err := c.recognizer.Start(ctx, req)
	if err != nil {
		c.logger.Error("failed to start recognizer", "error", err.Error())
		return 1
	}
	c.mu.Lock()
	c.task = task
	c.mu.Unlock()

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			c.logger.Debug("session canceled", "session", sessionID)
			c.Teardown()
		case <-watchDone:
		}
	}()
	go func() {
		select {
		case <-src.Done():
			// File input exhausted: close the request so the
			// recognizer can finalize. The task keeps streaming
			// until it does.
			req.Finish()
		case <-watchDone:
		}
	}()

	// Capture starts only now that the task is subscribed; buffers
	// produced before a task exists would be lost.
	deliveryFailed := make(chan error, 1)
	err = src.Start(func(buf audio.Buffer) {
		if err := req.Append(buf); err != nil {
			if errors.Is(err, stt.ErrRequestFinished) {
				// Capture raced teardown; the buffer is simply
				// past the end of the session.
				return
			}
			select {
			case deliveryFailed <- err:
			default:
			}
			task.Cancel()
		}
	})
	if err != nil {
		c.logger.Error("failed to start audio capture", "error", err.Error())
		return 1
	}

	for ev := range task.Events() {
		switch ev.Kind {
		case stt.KindPartial:
			c.emit(ev.Text)
		case stt.KindFinal:
			c.emit(ev.Text)
			if c.transcripts != nil {
				if err := c.transcripts.Save(
					ctx,
					sessionID,
					cfg.Language,
					ev.Text,
					onDevice,
				); err != nil {
					c.logger.Warn("failed to save transcript", "error", err.Error())
				}
			}
		case stt.KindFailure:
			// Best-effort streaming: the partials already printed
			// stand, the stream just ends here.
			c.logger.Debug("recognition stream error", "error", ev.Err.Error())
		}
	}

	c.Teardown()

	select {
	case err := <-deliveryFailed:
		c.logger.Error("audio delivery failed", "error", err.Error())
		return 1
	default:
	}

	c.logger.Debug(
		"session finished",
		"session", sessionID,
		"state", task.State().String(),
	)
	return 0
}

// Teardown releases the audio source, the recognition request, and the
// recognition task, in that order. It runs at most once regardless of
// how many terminal paths race into it, and each step tolerates a
// resource that was never initialized.
func (c *Controller) Teardown() {
	c.once.Do(func() {
		c.mu.Lock()
		src, req, task := c.src, c.req, c.task
		c.mu.Unlock()

		if src != nil {
			src.Stop()
		}
		if req != nil {
			req.Finish()
		}
		if task != nil {
			task.Cancel()
		}
	})
}

// emit writes one transcript line. Writes are serialized so partials
// from different callback contexts never interleave mid-line.
func (c *Controller) emit(text string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintln(c.out, text)
}
