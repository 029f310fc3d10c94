package stt

// EventKind tags a recognition event.
type EventKind int

const (
	// KindPartial is an interim, possibly-revised transcript.
	KindPartial EventKind = iota
	// KindFinal is the last, stable transcript; it ends the stream.
	KindFinal
	// KindFailure reports a backend error; it also ends the stream.
	KindFailure
)

func (k EventKind) String() string {
	switch k {
	case KindPartial:
		return "partial"
	case KindFinal:
		return "final"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Event is one recognition result. Text is set for partial and final
// transcripts, Err for failures. Per task there is at most one final or
// failure event and nothing follows it.
type Event struct {
	Kind       EventKind
	Text       string
	Confidence float64
	Err        error
}
