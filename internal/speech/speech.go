// Package speech binds the dialog core to external speech services: a
// whisper-server for recognition and the Google Translate TTS endpoint for
// synthesis. The core only sees the two interfaces; both bindings fail fast
// and never let a transport error escape as anything but an error value.
package speech

import (
	"context"
	"errors"
	"strings"
)

// ErrUnspeakable marks text that must not reach the synthesizer: raw
// structured data or a fragment too short to be a real reply. Such input
// indicates an internal formatting bug, so the caller falls back to a
// text-only response instead of voicing garbage.
var ErrUnspeakable = errors.New("text is not suitable for speech synthesis")

// minSpeakableRunes is the minimum viable utterance length.
const minSpeakableRunes = 3

// Recognizer transcribes recorded audio to text.
type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Synthesizer renders text to an audio file and returns the file name
// relative to the served static directory.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// CheckSpeakable validates synthesis input. Text that looks like a JSON
// object leaked past the renderer, or is shorter than a viable utterance,
// is rejected.
func CheckSpeakable(text string) error {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < minSpeakableRunes {
		return ErrUnspeakable
	}
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return ErrUnspeakable
	}
	return nil
}
