package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// File replays a 16-bit PCM WAV file as a buffer source, chunked into
// 100 ms buffers. Done closes once the last buffer has been handed off.
type File struct {
	path    string
	format  Format
	file    *os.File
	decoder *wav.Decoder

	mu      sync.Mutex
	started bool
	stopped bool

	quit chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func NewFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%s is not a valid wav file", path)
	}
	if decoder.BitDepth != 16 {
		f.Close()
		return nil, fmt.Errorf(
			"%s: unsupported bit depth %d (want 16)",
			path,
			decoder.BitDepth,
		)
	}

	return &File{
		path:    path,
		file:    f,
		decoder: decoder,
		format: Format{
			SampleRate: int(decoder.SampleRate),
			Channels:   int(decoder.NumChans),
		},
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}, nil
}

func (s *File) Format() Format {
	return s.format
}

func (s *File) Done() <-chan struct{} {
	return s.done
}

func (s *File) Start(onBuffer func(Buffer)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("file source already stopped")
	}
	if s.started {
		return fmt.Errorf("file source already started")
	}
	s.started = true

	chunkSamples := s.format.SampleRate * s.format.Channels / 10

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(s.done)

		var seq uint64
		intBuf := &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: s.format.Channels,
				SampleRate:  s.format.SampleRate,
			},
			Data: make([]int, chunkSamples),
		}

		for {
			select {
			case <-s.quit:
				return
			default:
			}

			n, err := s.decoder.PCMBuffer(intBuf)
			if n == 0 {
				return
			}
			if err != nil {
				return
			}

			pcm := make([]byte, n*2)
			for i := 0; i < n; i++ {
				binary.LittleEndian.PutUint16(
					pcm[i*2:],
					uint16(int16(intBuf.Data[i])),
				)
			}

			onBuffer(Buffer{Format: s.format, PCM: pcm, Seq: seq})
			seq++
		}
	}()

	return nil
}

func (s *File) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	close(s.quit)
	if started {
		s.wg.Wait()
	}
	s.file.Close()
}
