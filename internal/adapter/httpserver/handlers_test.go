package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/stub"
	httpserver "github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/memory"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

type fakeSpeech struct {
	text string
	mime string
}

func (f *fakeSpeech) SpeechToText(_ domain.Context, _ []byte, mime string) (string, error) {
	f.mime = mime
	return f.text, nil
}

func (f *fakeSpeech) TextToSpeech(_ domain.Context, text, voice string) ([]byte, error) {
	return []byte(voice + ":" + text), nil
}

func testConfig() config.Config {
	return config.Config{
		HistoryMaxTokens:         3000,
		HistoryMaxPairs:          10,
		FeedbackHistoryMaxTokens: 6000,
		ReplyMaxTokens:           400,
		FeedbackMaxTokens:        1500,
		MessageMaxChars:          1000,
		PromptQuestionLimit:      5,
		TTSDefaultVoice:          "alloy",
		MaxAudioMB:               1,
	}
}

func newTestServer(t *testing.T, sp domain.SpeechProvider) (http.Handler, *memory.Store) {
	t.Helper()
	cat, err := config.LoadCatalog("")
	require.NoError(t, err)
	store := memory.NewStore(
		domain.Question{ID: "te-1", InterviewStage: domain.InterviewTechnical, Category: "design", Text: "Design a rate limiter."},
		domain.Question{ID: "te-2", InterviewStage: domain.InterviewTechnical, Category: "debugging", Text: "Walk me through a hard bug."},
	)
	cfg := testConfig()
	svc := usecase.NewInterviewService(usecase.Deps{
		Sessions: store.Sessions, Messages: store.Messages, Questions: store.Questions, JobDescs: store.JobDescs,
		Model: stub.New(), Speech: sp, Catalog: cat, Config: cfg,
	})
	srv := httpserver.NewServer(cfg, svc, nil, func(context.Context) error { return errors.New("redis down") })
	r := chi.NewRouter()
	r.Use(httpserver.RequestID())
	r.Post("/v1/sessions", srv.CreateSessionHandler())
	r.Get("/v1/sessions/{id}", srv.GetSessionHandler())
	r.Post("/v1/sessions/{id}/message", srv.SendMessageHandler())
	r.Post("/v1/sessions/{id}/transcribe", srv.TranscribeHandler())
	r.Post("/v1/speech", srv.SpeechHandler())
	r.Get("/v1/questions", srv.ListQuestionsHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	return r, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error.Code
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/v1/sessions", `{"userId":"u1","position":"Backend Engineer","company":"Acme","interviewStage":"technical-interview"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Session.ID
}

func TestCreateSession_Validation(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t, nil)
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing user", `{"position":"Engineer","interviewStage":"team-interview"}`, "userid"},
		{"unknown stage", `{"userId":"u","position":"Engineer","interviewStage":"lunch"}`, "interviewstage"},
		{"missing position", `{"userId":"u","interviewStage":"team-interview"}`, "position"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/sessions", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"`+tc.field+`"`)
			assert.Equal(t, "INVALID_ARGUMENT", errorCode(t, rec))
		})
	}

	rec := do(t, h, http.MethodPost, "/v1/sessions", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSession_NotAcceptable(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{}`))
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
}

func TestCreateSession_UnknownJobDescription(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t, nil)
	rec := do(t, h, http.MethodPost, "/v1/sessions", `{"userId":"u","position":"Engineer","interviewStage":"team-interview","jobDescriptionId":"jd-x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestGetSession(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodGet, "/v1/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sess map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "active", sess["stage"])
	assert.Equal(t, "technical-interview", sess["interviewStage"])
	assert.Nil(t, sess["overallScore"])
	persona, ok := sess["persona"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Alex Morgan", persona["name"])
	assert.Equal(t, "low", persona["voiceConfidence"])

	rec = do(t, h, http.MethodGet, "/v1/sessions/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessage_EmptyMessage(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t, nil)
	id := createSession(t, h)
	rec := do(t, h, http.MethodPost, "/v1/sessions/"+id+"/message", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", errorCode(t, rec))
}

func TestListQuestions(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/v1/questions?stage=technical-interview&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Questions []struct {
			ID string `json:"id"`
		} `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Questions, 1)
	assert.Equal(t, "te-1", out.Questions[0].ID)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/questions?stage=technical-interview&limit=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/questions?stage=nope", "").Code)
}

func multipartAudio(t *testing.T, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", "answer.bin")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func wavBytes() []byte {
	b := []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00\x40\x1f\x00\x00\x80\x3e\x00\x00\x02\x00\x10\x00data\x00\x00\x00\x00")
	return append(b, make([]byte, 64)...)
}

func TestTranscribe(t *testing.T) {
	t.Parallel()
	sp := &fakeSpeech{text: "I built the billing service."}
	h, _ := newTestServer(t, sp)
	id := createSession(t, h)

	body, ct := multipartAudio(t, wavBytes())
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/transcribe", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"text":"I built the billing service."}`, rec.Body.String())
	assert.Equal(t, "audio/wav", sp.mime)
}

func TestTranscribe_Rejections(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t, &fakeSpeech{text: "x"})
	id := createSession(t, h)

	t.Run("not audio", func(t *testing.T) {
		body, ct := multipartAudio(t, []byte("just some text, not audio at all"))
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/transcribe", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "TRANSCRIPTION_FAILED", errorCode(t, rec))
	})
	t.Run("not multipart", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/v1/sessions/"+id+"/transcribe", `{"audio":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("too large", func(t *testing.T) {
		body, ct := multipartAudio(t, append(wavBytes(), make([]byte, 1<<20)...))
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/transcribe", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestSpeech(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t, &fakeSpeech{})

	rec := do(t, h, http.MethodPost, "/v1/speech", `{"text":"Welcome aboard.","voiceId":"nova"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nova", rec.Header().Get("X-Voice-Id"))
	assert.Equal(t, "nova:Welcome aboard.", rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/speech", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpeech_Disabled(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t, nil)
	rec := do(t, h, http.MethodPost, "/v1/speech", `{"text":"Hello"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "PROVIDER_ERROR", errorCode(t, rec))
}

func TestReadyz(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t, nil)
	rec := do(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis down")
	assert.NotContains(t, rec.Body.String(), `"db"`)
}
