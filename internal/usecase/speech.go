package usecase

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// ttsMaxChars is the longest text a single synthesis request accepts.
const ttsMaxChars = 4096

var errSpeechDisabled = errors.New("speech provider not configured")

// SynthesizeInput selects the text and voice to synthesize.
type SynthesizeInput struct {
	Text      string
	VoiceID   string
	SessionID string
}

// Transcribe converts candidate audio to text. When sessionID is given the
// session must exist.
func (s *InterviewService) Transcribe(ctx domain.Context, sessionID string, audio []byte, mimeType string) (string, error) {
	if s.Speech == nil {
		return "", domain.NewProviderError("speech", "transcribe", errSpeechDisabled)
	}
	if sessionID != "" {
		if _, err := s.Sessions.Get(ctx, sessionID); err != nil {
			return "", fmt.Errorf("op=interview.transcribe: %w", err)
		}
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio", domain.ErrTranscription)
	}
	text, err := s.Speech.SpeechToText(ctx, audio, mimeType)
	if err != nil {
		return "", fmt.Errorf("op=interview.transcribe: %w", err)
	}
	text = textx.SanitizeText(text)
	if text == "" {
		return "", fmt.Errorf("%w: no speech recognised", domain.ErrTranscription)
	}
	return text, nil
}

// Synthesize renders text as audio. The voice is the explicit one, else the
// session persona's, else the configured default. It returns the voice used.
func (s *InterviewService) Synthesize(ctx domain.Context, in SynthesizeInput) ([]byte, string, error) {
	if s.Speech == nil {
		return nil, "", domain.NewProviderError("speech", "synthesize", errSpeechDisabled)
	}
	text := textx.SanitizeText(in.Text)
	if text == "" {
		return nil, "", fmt.Errorf("%w: text is required", domain.ErrInvalidArgument)
	}
	if utf8.RuneCountInString(text) > ttsMaxChars {
		return nil, "", fmt.Errorf("%w: text exceeds %d characters", domain.ErrInvalidArgument, ttsMaxChars)
	}
	voice := strings.TrimSpace(in.VoiceID)
	if voice == "" && in.SessionID != "" {
		sess, err := s.Sessions.Get(ctx, in.SessionID)
		if err != nil {
			return nil, "", fmt.Errorf("op=interview.synthesize: %w", err)
		}
		voice = sess.Persona.VoiceID
	}
	if voice == "" {
		voice = s.Config.TTSDefaultVoice
	}
	audio, err := s.Speech.TextToSpeech(ctx, text, voice)
	if err != nil {
		return nil, "", fmt.Errorf("op=interview.synthesize: %w", err)
	}
	return audio, voice, nil
}
