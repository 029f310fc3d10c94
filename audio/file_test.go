package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWav(t *testing.T, path string, samples []int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data:   samples,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}
}

func TestFileSourceDeliversOrderedBuffers(t *testing.T) {
	// 3.5 chunks worth of a counting waveform.
	samples := make([]int, 5600)
	for i := range samples {
		samples[i] = i % 1000
	}

	path := filepath.Join(t.TempDir(), "clip.wav")
	writeTestWav(t, path, samples)

	src, err := NewFile(path)
	if err != nil {
		t.Fatalf("open file source: %v", err)
	}
	defer src.Stop()

	if got := src.Format(); got.SampleRate != 16000 || got.Channels != 1 {
		t.Fatalf("format = %+v, want 16000/1", got)
	}

	var buffers []Buffer
	collected := make(chan Buffer, 64)
	if err := src.Start(func(b Buffer) { collected <- b }); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-src.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("file source never finished")
	}
	close(collected)
	for b := range collected {
		buffers = append(buffers, b)
	}

	if len(buffers) == 0 {
		t.Fatal("no buffers delivered")
	}

	var decoded []int
	for i, b := range buffers {
		if b.Seq != uint64(i) {
			t.Fatalf("buffer %d has seq %d", i, b.Seq)
		}
		if len(b.PCM)%2 != 0 {
			t.Fatalf("buffer %d has odd byte length %d", i, len(b.PCM))
		}
		for off := 0; off < len(b.PCM); off += 2 {
			decoded = append(
				decoded,
				int(int16(binary.LittleEndian.Uint16(b.PCM[off:]))),
			)
		}
	}

	if len(decoded) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(decoded), len(samples))
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, decoded[i], samples[i])
		}
	}
}

func TestFileSourceRejectsMissingFile(t *testing.T) {
	if _, err := NewFile(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestFileSourceStopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	writeTestWav(t, path, make([]int, 1600))

	src, err := NewFile(path)
	if err != nil {
		t.Fatalf("open file source: %v", err)
	}
	src.Stop()
	src.Stop()
}
