package stt

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/listen"
)

// nova2Locales is the language catalog of the streaming model. The API
// has no catalog endpoint; this mirrors its published list.
var nova2Locales = []string{
	"bg", "ca", "cs", "da", "de", "de-CH", "el", "en", "en-AU", "en-GB",
	"en-IN", "en-NZ", "en-US", "es", "es-419", "et", "fi", "fr", "fr-CA",
	"hi", "hu", "id", "it", "ja", "ko", "lt", "lv", "ms", "nl", "no",
	"pl", "pt", "pt-BR", "ro", "ru", "sk", "sv", "th", "tr", "uk", "vi",
	"zh", "zh-CN", "zh-TW",
}

// Deepgram streams audio to the hosted recognition service over a
// WebSocket. Networked only; it never satisfies an on-device demand.
type Deepgram struct {
	token  string
	logger *log.Logger
}

var (
	_ Recognizer              = (*Deepgram)(nil)
	_ api.LiveMessageCallback = (*deepgramSession)(nil)
)

func NewDeepgram(token string, logger *log.Logger) (*Deepgram, error) {
	if token == "" {
		return nil, fmt.Errorf("deepgram api key is empty")
	}
	return &Deepgram{token: token, logger: logger}, nil
}

func (c *Deepgram) Locales() []string {
	locales := append([]string(nil), nova2Locales...)
	sort.Strings(locales)
	return locales
}

func (c *Deepgram) SupportsOnDevice(string) bool {
	return false
}

func (c *Deepgram) Start(ctx context.Context, req *Request) (*Task, error) {
	cOptions := &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}
	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          "nova-2",
		Language:       req.Locale(),
		Punctuate:      true,
		Encoding:       "linear16",
		Channels:       req.Format().Channels,
		SampleRate:     req.Format().SampleRate,
		SmartFormat:    true,
		InterimResults: req.ReportsPartials(),
		UtteranceEndMs: "1000",
		VadEvents:      true,
	}

	session := &deepgramSession{
		req:    req,
		logger: c.logger,
	}
	session.task = newTask(session.stop)

	client, err := listen.NewWebSocket(
		ctx,
		c.token,
		cOptions,
		tOptions,
		session,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"error creating live transcription connection: %w",
			err,
		)
	}

	session.client = client
	session.task.begin()

	go session.client.Connect()

	return session.task, nil
}

// deepgramSession receives the SDK's callbacks and bridges them onto
// the task. The audio pump starts once the socket opens, so buffers
// appended before then just wait in the request.
type deepgramSession struct {
	client *listen.LiveClient
	req    *Request
	task   *Task
	logger *log.Logger
}

func (s *deepgramSession) stop() {
	s.client.Stop()
}

func (s *deepgramSession) Open(ocr *api.OpenResponse) error {
	s.logger.Debug("open", "kind", "deepgram")
	go func() {
		for buf := range s.req.Buffers() {
			if err := s.client.WriteBinary(buf.PCM); err != nil {
				s.logger.Error("failed to write audio data", "error", err)
			}
		}
	}()
	return nil
}

func (s *deepgramSession) Message(mr *api.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}

	alternative := mr.Channel.Alternatives[0]
	transcript := strings.TrimSpace(alternative.Transcript)
	if len(transcript) == 0 {
		return nil
	}

	if mr.IsFinal {
		s.logger.Debug("hear", "txt", transcript, "final", true)
		s.task.final(transcript, alternative.Confidence)
	} else {
		s.logger.Debug("hear", "tmp", transcript)
		s.task.partial(transcript, alternative.Confidence)
	}

	return nil
}

func (s *deepgramSession) Metadata(md *api.MetadataResponse) error {
	s.logger.Debug("metadata", "metadata", md)
	return nil
}

func (s *deepgramSession) SpeechStarted(ssr *api.SpeechStartedResponse) error {
	s.logger.Debug("speech start", "timestamp", ssr.Timestamp)
	return nil
}

func (s *deepgramSession) UtteranceEnd(ur *api.UtteranceEndResponse) error {
	s.logger.Debug("utterance end", "timestamp", ur.LastWordEnd)
	return nil
}

func (s *deepgramSession) Close(ocr *api.CloseResponse) error {
	s.logger.Debug("closed", "reason", ocr.Type)
	s.task.fail(fmt.Errorf("recognition connection closed: %s", ocr.Type))
	return nil
}

func (s *deepgramSession) Error(er *api.ErrorResponse) error {
	s.logger.Debug(
		"recognition error",
		"type", er.Type,
		"description", er.Description,
	)
	s.task.fail(fmt.Errorf("%s: %s", er.Type, er.Description))
	return nil
}

func (s *deepgramSession) UnhandledEvent(byData []byte) error {
	s.logger.Debug("unhandled event", "data", string(byData))
	return nil
}
