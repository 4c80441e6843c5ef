// Package speech is the OpenAI-compatible speech boundary: Whisper
// transcription and text-to-speech.
package speech

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Name identifies this provider in logs and metrics.
const Name = "openai-speech"

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	STTModel   string
	TTSModel   string
	HTTPClient *http.Client
	NewBackoff func() backoff.BackOff
}

// Client implements domain.SpeechProvider.
type Client struct {
	opts Options
}

// New builds a client.
func New(opts Options) *Client {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.HTTPClient == nil {
		opts.HTTPClient = ai.NewHTTPClient(Name, 0)
	}
	if opts.NewBackoff == nil {
		opts.NewBackoff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
	}
	return &Client{opts: opts}
}

var extByMime = map[string]string{
	"audio/webm":  "webm",
	"audio/ogg":   "ogg",
	"audio/mpeg":  "mp3",
	"audio/mp4":   "m4a",
	"audio/x-m4a": "m4a",
	"audio/wav":   "wav",
	"audio/x-wav": "wav",
	"audio/flac":  "flac",
	"video/webm":  "webm",
}

// SpeechToText implements domain.SpeechProvider.
func (c *Client) SpeechToText(ctx domain.Context, audio []byte, mimeHint string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("op=speech.SpeechToText: %w: empty audio", domain.ErrTranscription)
	}
	ext, ok := extByMime[strings.ToLower(strings.TrimSpace(strings.SplitN(mimeHint, ";", 2)[0]))]
	if !ok {
		return "", fmt.Errorf("op=speech.SpeechToText: %w: unsupported audio type %q", domain.ErrTranscription, mimeHint)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "audio."+ext)
	if err != nil {
		return "", fmt.Errorf("op=speech.SpeechToText: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("op=speech.SpeechToText: %w", err)
	}
	_ = mw.WriteField("model", c.opts.STTModel)
	_ = mw.WriteField("response_format", "json")
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("op=speech.SpeechToText: %w", err)
	}
	payload := buf.Bytes()

	body, err := ai.Do(ctx, c.opts.HTTPClient, c.opts.NewBackoff(), Name, "audio.transcriptions", func(ctx domain.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/audio/transcriptions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		return r, nil
	})
	if err != nil {
		return "", domain.NewProviderError(Name, "audio.transcriptions", err)
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", domain.NewProviderError(Name, "audio.transcriptions", fmt.Errorf("decode response: %w", err))
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", fmt.Errorf("op=speech.SpeechToText: %w: no speech recognised", domain.ErrTranscription)
	}
	return text, nil
}

// TextToSpeech implements domain.SpeechProvider and returns MP3 audio.
func (c *Client) TextToSpeech(ctx domain.Context, text, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("op=speech.TextToSpeech: %w: empty text", domain.ErrInvalidArgument)
	}
	payload, err := json.Marshal(map[string]string{
		"model":           c.opts.TTSModel,
		"input":           text,
		"voice":           voiceID,
		"response_format": "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("op=speech.TextToSpeech: %w", err)
	}
	audio, err := ai.Do(ctx, c.opts.HTTPClient, c.opts.NewBackoff(), Name, "audio.speech", func(ctx domain.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/audio/speech", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
		r.Header.Set("Content-Type", "application/json")
		return r, nil
	})
	if err != nil {
		return nil, domain.NewProviderError(Name, "audio.speech", err)
	}
	if len(audio) == 0 {
		return nil, domain.NewProviderError(Name, "audio.speech", fmt.Errorf("empty audio"))
	}
	return audio, nil
}
