package audio

// Format describes the PCM layout of captured audio. Samples are always
// signed 16-bit little-endian.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is what the microphone captures at: mono 16 kHz, the
// rate speech recognizers want.
var DefaultFormat = Format{SampleRate: 16000, Channels: 1}

// Buffer is one chunk of captured PCM. Seq starts at zero and increases
// by one per buffer; downstream consumers treat a gap as fatal. The
// producer hands the buffer off and never touches it again.
type Buffer struct {
	Format Format
	PCM    []byte
	Seq    uint64
}

// Source produces an ordered, gapless stream of buffers. Start installs
// the callback for the lifetime of the source and must only be called
// once a consumer for the buffers exists. Stop is idempotent and safe to
// call on a source that never started.
//
// Done is closed when the source has no more audio to give (file input
// reaching EOF); a live microphone's Done never closes.
type Source interface {
	Format() Format
	Start(onBuffer func(Buffer)) error
	Stop()
	Done() <-chan struct{}
}
