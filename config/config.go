package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Session holds everything a single recognition session needs. It is
// assembled once at startup and never mutated afterwards.
type Session struct {
	// Language is the recognition locale, e.g. "en-US".
	Language string
	// Input is a path to a WAV file. Empty means live microphone.
	Input string
	// Format is the decode hint for file input. Only "wav" is understood.
	Format string
	// OnDevice demands on-device recognition. The session fails rather
	// than fall back to a networked recognizer when this is set.
	OnDevice bool
	// Save records finished transcripts in the local history store.
	Save bool
	// StorePath is the history database location.
	StorePath string
}

// FromViper builds a Session from the bound flags and environment.
func FromViper() Session {
	return Session{
		Language:  viper.GetString("language"),
		Input:     viper.GetString("input"),
		Format:    viper.GetString("format"),
		OnDevice:  viper.GetBool("on_device"),
		Save:      viper.GetBool("save"),
		StorePath: viper.GetString("db"),
	}
}

// FileMode reports whether audio comes from a file instead of the
// microphone.
func (s Session) FileMode() bool {
	return s.Input != ""
}

func (s Session) Validate() error {
	if s.Language == "" {
		return fmt.Errorf("language must not be empty")
	}
	if s.FileMode() {
		switch strings.ToLower(s.Format) {
		case "", "wav":
		default:
			return fmt.Errorf("unsupported input format %q (only wav)", s.Format)
		}
	} else if s.Format != "" {
		return fmt.Errorf("--format only applies to file input")
	}
	if s.Save && s.StorePath == "" {
		return fmt.Errorf("--save requires a database path")
	}
	return nil
}
