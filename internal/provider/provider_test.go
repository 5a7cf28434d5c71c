package provider

import (
	"context"
	"encoding/base64"
	"encoding/json/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readalongapp/readalong-server/internal/align"
	"github.com/readalongapp/readalong-server/internal/errors"
	"github.com/readalongapp/readalong-server/internal/logger"
)

func TestRegistry(t *testing.T) {
	mock := NewMock()
	reg := NewRegistry("mock", mock)

	p, err := reg.Get("")
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name(), "empty name resolves the default")

	p, err = reg.Get("mock")
	require.NoError(t, err)
	assert.Same(t, Synthesizer(mock), p)

	_, err = reg.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestMock_DeterministicTiming(t *testing.T) {
	m := NewMock()

	speech, err := m.Synthesize(context.Background(), SpeechRequest{Text: "Hello World"})
	require.NoError(t, err)

	require.NotNil(t, speech.Timing)
	require.NotNil(t, speech.Timing.Characters)
	assert.Len(t, speech.Timing.Characters.Characters, 11)
	assert.Equal(t, int64(11*mockMsPerChar), speech.DurationMs)

	// Mock timing must round-trip through the aligner.
	res := align.Align("Hello World", *speech.Timing)
	require.Len(t, res.Words, 2)
	assert.Equal(t, 0, res.Words[0].CharOffset)
	assert.Equal(t, 6, res.Words[1].CharOffset)
}

func TestMock_Failure(t *testing.T) {
	m := NewMock()
	m.Fail = true

	_, err := m.Synthesize(context.Background(), SpeechRequest{Text: "x"})
	assert.Error(t, err)
	assert.Equal(t, 1, m.Calls())
}

func TestElevenLabs_Synthesize(t *testing.T) {
	audio := []byte("fake-mp3-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-1/with-timestamps", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))

		var req elevenLabsRequest
		require.NoError(t, json.UnmarshalRead(r.Body, &req))
		assert.Equal(t, "Hello World", req.Text)

		resp := map[string]any{
			"audio_base64": base64.StdEncoding.EncodeToString(audio),
			"alignment": map[string]any{
				"characters":                    []string{"H", "i"},
				"character_start_times_seconds": []float64{0, 0.1},
				"character_end_times_seconds":   []float64{0.1, 0.2},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.MarshalWrite(w, resp))
	}))
	defer srv.Close()

	e := NewElevenLabs(ElevenLabsConfig{
		APIKey:  "secret",
		Voice:   "voice-1",
		BaseURL: srv.URL,
	}, logger.Discard())

	speech, err := e.Synthesize(context.Background(), SpeechRequest{Text: "Hello World"})
	require.NoError(t, err)

	assert.Equal(t, audio, speech.Audio)
	assert.Equal(t, "audio/mpeg", speech.Format)
	assert.Equal(t, int64(200), speech.DurationMs)
	require.NotNil(t, speech.Timing)
	require.NotNil(t, speech.Timing.Characters)
	assert.Equal(t, []string{"H", "i"}, speech.Timing.Characters.Characters)
}

func TestElevenLabs_ErrorStatuses(t *testing.T) {
	tests := []struct {
		status   int
		sentinel *errors.Error
	}{
		{http.StatusUnauthorized, errors.ErrProviderFailure},
		{http.StatusUnprocessableEntity, errors.ErrValidation},
		{http.StatusTooManyRequests, errors.ErrProviderFailure},
		{http.StatusInternalServerError, errors.ErrProviderFailure},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		}))

		e := NewElevenLabs(ElevenLabsConfig{APIKey: "k", Voice: "v", BaseURL: srv.URL}, logger.Discard())
		_, err := e.Synthesize(context.Background(), SpeechRequest{Text: "x"})
		srv.Close()

		require.Error(t, err, "status %d", tt.status)
		assert.True(t, errors.Is(err, tt.sentinel), "status %d should map to %s", tt.status, tt.sentinel.Code)
	}
}

func TestOpenAI_SynthesizeWithTranscription(t *testing.T) {
	audio := []byte("openai-mp3")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/audio/speech":
			assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
			_, _ = w.Write(audio)
		case "/v1/audio/transcriptions":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "verbose_json", r.FormValue("response_format"))
			assert.Equal(t, "word", r.FormValue("timestamp_granularities[]"))

			resp := map[string]any{
				"duration": 1.5,
				"words": []map[string]any{
					{"word": "Hello", "start": 0.0, "end": 0.7},
					{"word": "World", "start": 0.7, "end": 1.5},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.MarshalWrite(w, resp))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "key", Voice: "alloy", Model: "tts-1", BaseURL: srv.URL}, logger.Discard())

	speech, err := o.Synthesize(context.Background(), SpeechRequest{Text: "Hello World"})
	require.NoError(t, err)

	assert.Equal(t, audio, speech.Audio)
	assert.Equal(t, int64(1500), speech.DurationMs)
	require.NotNil(t, speech.Timing)
	require.NotNil(t, speech.Timing.Transcription)
	assert.Len(t, speech.Timing.Transcription.Words, 2)
}

func TestOpenAI_TranscriptionFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/audio/speech":
			_, _ = w.Write([]byte("mp3"))
		case "/v1/audio/transcriptions":
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "key", Voice: "alloy", Model: "tts-1", BaseURL: srv.URL}, logger.Discard())

	speech, err := o.Synthesize(context.Background(), SpeechRequest{Text: "x"})
	require.NoError(t, err, "audio without timing is still usable")
	assert.Nil(t, speech.Timing)
	assert.NotEmpty(t, speech.Audio)
}

func TestOpenAI_SpeechFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "bad", Voice: "alloy", Model: "tts-1", BaseURL: srv.URL}, logger.Discard())

	_, err := o.Synthesize(context.Background(), SpeechRequest{Text: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProviderFailure))
}
