package stt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mattn/go-shellwords"

	"hark/audio"
)

// whisperLocales are the primary language subtags the local model
// family covers. Regional variants resolve to these via LocaleSupported.
var whisperLocales = []string{
	"ar", "cs", "da", "de", "el", "en", "es", "fi", "fr", "he", "hi",
	"hu", "id", "it", "ja", "ko", "ms", "nl", "no", "pl", "pt", "ro",
	"ru", "sv", "th", "tr", "uk", "vi", "zh",
}

// Exec runs a local whisper-style transcription command per utterance
// window. Audio never leaves the machine, so it satisfies an on-device
// demand for every locale its models cover.
type Exec struct {
	cmd          []string
	modelPath    string
	logger       *log.Logger
	partialEvery time.Duration
}

func NewExec(command, modelPath string, logger *log.Logger) (*Exec, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse stt command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("stt command is empty")
	}
	return &Exec{
		cmd:          args,
		modelPath:    modelPath,
		logger:       logger,
		partialEvery: 2 * time.Second,
	}, nil
}

func (e *Exec) Locales() []string {
	locales := append([]string(nil), whisperLocales...)
	sort.Strings(locales)
	return locales
}

func (e *Exec) SupportsOnDevice(locale string) bool {
	return LocaleSupported(whisperLocales, locale)
}

func (e *Exec) Start(ctx context.Context, req *Request) (*Task, error) {
	runCtx, cancel := context.WithCancel(ctx)
	task := newTask(cancel)
	task.begin()
	go e.run(runCtx, req, task)
	return task, nil
}

func (e *Exec) run(ctx context.Context, req *Request, task *Task) {
	var (
		pcm         []byte
		mu          sync.Mutex
		inflight    bool
		wg          sync.WaitGroup
		lastPartial = time.Now()
	)

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case buf, ok := <-req.Buffers():
			if !ok {
				// End of audio: one final pass over everything.
				wg.Wait()
				text, confidence, err := e.transcribe(ctx, pcm, req, true)
				if err != nil {
					task.fail(fmt.Errorf("final transcription: %w", err))
					return
				}
				task.final(text, confidence)
				return
			}

			pcm = append(pcm, buf.PCM...)

			if !req.ReportsPartials() {
				continue
			}
			if time.Since(lastPartial) < e.partialEvery {
				continue
			}

			mu.Lock()
			if inflight {
				mu.Unlock()
				continue
			}
			inflight = true
			mu.Unlock()

			lastPartial = time.Now()
			snapshot := append([]byte(nil), pcm...)

			wg.Add(1)
			go func() {
				defer wg.Done()
				text, confidence, err := e.transcribe(ctx, snapshot, req, false)
				if err != nil {
					e.logger.Debug("partial transcription failed", "error", err.Error())
				} else if text != "" {
					task.partial(text, confidence)
				}
				mu.Lock()
				inflight = false
				mu.Unlock()
			}()
		}
	}
}

type execResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (e *Exec) transcribe(
	ctx context.Context,
	pcm []byte,
	req *Request,
	final bool,
) (string, float64, error) {
	file, err := os.CreateTemp(os.TempDir(), "hark_stt_*.wav")
	if err != nil {
		return "", 0, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := writePCMToWav(file, pcm, req.Format()); err != nil {
		return "", 0, err
	}

	args := append([]string{}, e.cmd...)
	base := args[0]
	cmdArgs := args[1:]
	cmdArgs = append(cmdArgs, "--audio", file.Name())
	if e.modelPath != "" {
		cmdArgs = append(cmdArgs, "--model", e.modelPath)
	}
	cmdArgs = append(cmdArgs, "--language", primarySubtag(req.Locale()))
	if !final {
		cmdArgs = append(cmdArgs, "--partial")
	}

	command := exec.CommandContext(ctx, base, cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", 0, fmt.Errorf("stt command failed: %w: %s", err, stderr.String())
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return "", 0, fmt.Errorf("decode stt response: %w", err)
	}
	return resp.Text, resp.Confidence, nil
}

func writePCMToWav(file *os.File, pcm []byte, format audio.Format) error {
	if len(pcm)%2 != 0 {
		return fmt.Errorf("pcm payload not aligned")
	}
	buffer := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: format.Channels,
			SampleRate:  format.SampleRate,
		},
	}
	samples := make([]int, len(pcm)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buffer.Data = samples

	enc := wav.NewEncoder(file, format.SampleRate, 16, format.Channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
