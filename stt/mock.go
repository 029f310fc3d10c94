package stt

import (
	"context"
	"sort"
	"sync"
)

// Mock is a scripted recognizer for tests and the mock CLI backend. It
// drains the request's audio and plays back its script once EmitAfter
// buffers (zero means immediately) have arrived.
type Mock struct {
	LocaleList   []string
	OnDeviceList []string
	Script       []Event
	EmitAfter    int

	mu       sync.Mutex
	received []uint64
}

// ReceivedSeqs reports the sequence numbers of every buffer the mock
// consumed, in arrival order.
func (m *Mock) ReceivedSeqs() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.received...)
}

// NewMock returns a mock that accepts en-US audio and produces a small
// fixed transcript, never on-device.
func NewMock() *Mock {
	return &Mock{
		LocaleList: []string{"en-US"},
		Script: []Event{
			{Kind: KindPartial, Text: "testing"},
			{Kind: KindFinal, Text: "testing one two three", Confidence: 1},
		},
	}
}

func (m *Mock) Locales() []string {
	locales := append([]string(nil), m.LocaleList...)
	sort.Strings(locales)
	return locales
}

func (m *Mock) SupportsOnDevice(locale string) bool {
	return LocaleSupported(m.OnDeviceList, locale)
}

func (m *Mock) Start(ctx context.Context, req *Request) (*Task, error) {
	runCtx, cancel := context.WithCancel(ctx)
	task := newTask(cancel)
	task.begin()

	go func() {
		seen := 0
		emitted := false

		emit := func() {
			for _, ev := range m.Script {
				switch ev.Kind {
				case KindPartial:
					task.partial(ev.Text, ev.Confidence)
				case KindFinal:
					task.final(ev.Text, ev.Confidence)
					return
				case KindFailure:
					task.fail(ev.Err)
					return
				}
			}
		}

		if m.EmitAfter == 0 {
			emitted = true
			emit()
		}

		for {
			select {
			case <-runCtx.Done():
				return
			case buf, ok := <-req.Buffers():
				if !ok {
					if !emitted {
						emit()
					}
					return
				}
				m.mu.Lock()
				m.received = append(m.received, buf.Seq)
				m.mu.Unlock()
				seen++
				if !emitted && seen >= m.EmitAfter {
					emitted = true
					emit()
				}
			}
		}
	}()

	return task, nil
}
