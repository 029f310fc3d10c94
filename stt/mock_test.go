package stt

import (
	"context"
	"errors"
	"testing"
	"time"

	"hark/audio"
)

func TestMockPlaysScriptAfterAudio(t *testing.T) {
	mock := &Mock{
		LocaleList: []string{"en-US"},
		Script: []Event{
			{Kind: KindPartial, Text: "one"},
			{Kind: KindFinal, Text: "one two"},
		},
		EmitAfter: 2,
	}

	req := NewRequest("en-US", audio.DefaultFormat)
	req.Configure(false, true)

	task, err := mock.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := req.Append(testBuffer(0)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := req.Append(testBuffer(1)); err != nil {
		t.Fatalf("append: %v", err)
	}

	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-task.Events():
			if !ok {
				if len(events) != 2 {
					t.Fatalf("got %d events, want 2", len(events))
				}
				if events[0].Text != "one" || events[1].Text != "one two" {
					t.Fatalf("events = %+v", events)
				}
				if task.State() != TaskFinalized {
					t.Fatalf("state = %v, want finalized", task.State())
				}
				req.Finish()
				return
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("mock never emitted")
		}
	}
}

func TestMockFailureScript(t *testing.T) {
	mock := &Mock{
		LocaleList: []string{"en-US"},
		Script: []Event{
			{Kind: KindPartial, Text: "almost"},
			{Kind: KindFailure, Err: errors.New("backend gone")},
		},
	}

	req := NewRequest("en-US", audio.DefaultFormat)
	req.Configure(false, true)

	task, err := mock.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	var events []Event
	for ev := range task.Events() {
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].Kind != KindFailure {
		t.Fatalf("terminal event = %+v, want failure", events[1])
	}
	if task.State() != TaskFailed {
		t.Fatalf("state = %v, want failed", task.State())
	}
	req.Finish()
}

func TestMockOnDeviceCatalog(t *testing.T) {
	mock := &Mock{
		LocaleList:   []string{"en-US", "de"},
		OnDeviceList: []string{"de"},
	}
	if mock.SupportsOnDevice("en-US") {
		t.Error("en-US reported on-device")
	}
	if !mock.SupportsOnDevice("de-AT") {
		t.Error("de-AT not reported on-device")
	}
}
