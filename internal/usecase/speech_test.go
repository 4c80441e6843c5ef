package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

type fakeSpeech struct {
	text      string
	lastVoice string
}

func (f *fakeSpeech) SpeechToText(_ domain.Context, _ []byte, _ string) (string, error) {
	return f.text, nil
}

func (f *fakeSpeech) TextToSpeech(_ domain.Context, text, voice string) ([]byte, error) {
	f.lastVoice = voice
	return []byte("mp3:" + text), nil
}

func TestTranscribe(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sp := &fakeSpeech{text: " I led the team. "}
	f.svc.Speech = sp
	ctx := context.Background()

	text, err := f.svc.Transcribe(ctx, "", []byte("audio"), "audio/webm")
	require.NoError(t, err)
	assert.Equal(t, "I led the team.", text)

	_, err = f.svc.Transcribe(ctx, "", nil, "audio/webm")
	assert.ErrorIs(t, err, domain.ErrTranscription)

	_, err = f.svc.Transcribe(ctx, "missing", []byte("audio"), "audio/webm")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	sp.text = "   "
	_, err = f.svc.Transcribe(ctx, "", []byte("audio"), "audio/webm")
	assert.ErrorIs(t, err, domain.ErrTranscription)
}

func TestSynthesize_VoiceSelection(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sp := &fakeSpeech{}
	f.svc.Speech = sp
	ctx := context.Background()
	created, err := f.svc.CreateSession(ctx, validInput())
	require.NoError(t, err)

	_, voice, err := f.svc.Synthesize(ctx, SynthesizeInput{Text: "Hello", VoiceID: "shimmer", SessionID: created.Session.ID})
	require.NoError(t, err)
	assert.Equal(t, "shimmer", voice)

	_, voice, err = f.svc.Synthesize(ctx, SynthesizeInput{Text: "Hello", SessionID: created.Session.ID})
	require.NoError(t, err)
	assert.Equal(t, created.Session.Persona.VoiceID, voice)

	audio, voice, err := f.svc.Synthesize(ctx, SynthesizeInput{Text: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "alloy", voice)
	assert.Equal(t, []byte("mp3:Hello"), audio)

	_, _, err = f.svc.Synthesize(ctx, SynthesizeInput{Text: strings.Repeat("x", ttsMaxChars+1)})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, _, err = f.svc.Synthesize(ctx, SynthesizeInput{Text: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSpeechDisabled(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := f.svc.Transcribe(context.Background(), "", []byte("a"), "audio/webm")
	assert.ErrorIs(t, err, domain.ErrProvider)
	_, _, err = f.svc.Synthesize(context.Background(), SynthesizeInput{Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrProvider)
}
