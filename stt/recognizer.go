package stt

import (
	"context"
	"strings"
)

// Recognizer abstracts a speech-recognition backend. Start consumes the
// request's buffers and drives the returned task until a terminal
// event; the capability itself (model, network, process) is opaque to
// the session.
type Recognizer interface {
	// Locales lists the locales the backend can recognize.
	Locales() []string
	// SupportsOnDevice reports whether recognition for the locale runs
	// entirely on local hardware.
	SupportsOnDevice(locale string) bool
	// Start subscribes to the request and begins streaming.
	Start(ctx context.Context, req *Request) (*Task, error)
}

// LocaleSupported checks a locale against a catalog. An exact match
// wins; otherwise a catalog entry matching the primary language subtag
// ("en" for "en-US") counts, since backends with bare language models
// serve every region of that language.
func LocaleSupported(catalog []string, locale string) bool {
	if locale == "" {
		return false
	}
	lang := primarySubtag(locale)
	for _, entry := range catalog {
		if strings.EqualFold(entry, locale) {
			return true
		}
		if strings.EqualFold(entry, lang) {
			return true
		}
	}
	return false
}

func primarySubtag(locale string) string {
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		return locale[:i]
	}
	return locale
}
