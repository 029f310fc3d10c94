package config

import "testing"

func TestValidateLiveDefaults(t *testing.T) {
	cfg := Session{Language: "en-US", StorePath: "hark.db"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid live config rejected: %v", err)
	}
	if cfg.FileMode() {
		t.Error("live config reported file mode")
	}
}

func TestValidateFileMode(t *testing.T) {
	cfg := Session{Language: "en-US", Input: "clip.wav", Format: "wav"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid file config rejected: %v", err)
	}
	if !cfg.FileMode() {
		t.Error("file config did not report file mode")
	}
}

func TestValidateRejectsEmptyLanguage(t *testing.T) {
	cfg := Session{}
	if err := cfg.Validate(); err == nil {
		t.Error("empty language accepted")
	}
}

func TestValidateRejectsUnknownFormat(t *testing.T) {
	cfg := Session{Language: "en-US", Input: "clip.mp3", Format: "mp3"}
	if err := cfg.Validate(); err == nil {
		t.Error("mp3 format accepted")
	}
}

func TestValidateRejectsFormatWithoutFile(t *testing.T) {
	cfg := Session{Language: "en-US", Format: "wav"}
	if err := cfg.Validate(); err == nil {
		t.Error("format without input path accepted")
	}
}

func TestValidateRejectsSaveWithoutPath(t *testing.T) {
	cfg := Session{Language: "en-US", Save: true}
	if err := cfg.Validate(); err == nil {
		t.Error("save without db path accepted")
	}
}
