package provider

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/readalongapp/readalong-server/internal/align"
	"github.com/readalongapp/readalong-server/internal/errors"
	"github.com/readalongapp/readalong-server/internal/logger"
	"github.com/readalongapp/readalong-server/internal/ratelimit"
)

const (
	openAIName    = "openai"
	openAIBaseURL = "https://api.openai.com"

	openAIRPS     = 2.0
	openAIBurst   = 4
	openAITimeout = 120 * time.Second

	whisperModel = "whisper-1"
)

// OpenAIConfig configures the OpenAI client.
type OpenAIConfig struct {
	APIKey  string
	Voice   string // e.g. alloy
	Model   string // speech model, e.g. tts-1
	BaseURL string // overridden in tests
}

// OpenAI synthesizes speech through the audio/speech endpoint. That endpoint
// returns no timing, so the audio is run back through whisper transcription
// with word timestamps to recover word-level timing.
type OpenAI struct {
	cfg     OpenAIConfig
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	log     *logger.Logger
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(cfg OpenAIConfig, log *logger.Logger) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = openAIBaseURL
	}
	return &OpenAI{
		cfg:     cfg,
		http:    &http.Client{Timeout: openAITimeout},
		limiter: ratelimit.New(openAIRPS, openAIBurst),
		log:     log,
	}
}

// Name implements Synthesizer.
func (o *OpenAI) Name() string { return openAIName }

// Synthesize implements Synthesizer. Timing comes from a second round trip
// through whisper; if transcription fails the audio is still returned with
// Timing nil so playback degrades instead of breaking.
func (o *OpenAI) Synthesize(ctx context.Context, req SpeechRequest) (*Speech, error) {
	requestID := uuid.NewString()

	audio, err := o.speech(ctx, req, requestID)
	if err != nil {
		return nil, err
	}

	speech := &Speech{Audio: audio, Format: "audio/mpeg"}

	timing, err := o.transcribe(ctx, audio, requestID)
	if err != nil {
		o.log.WithError(err).Warn("openai transcription failed, falling back to paragraph sync",
			"request_id", requestID)
		return speech, nil
	}
	speech.Timing = &align.Input{Transcription: timing}
	speech.DurationMs = int64(timing.DurationSec * 1000)
	return speech, nil
}

type openAISpeechRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

func (o *OpenAI) speech(ctx context.Context, req SpeechRequest, requestID string) ([]byte, error) {
	if err := o.limiter.Wait(ctx, openAIName); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	voice := req.Voice
	if voice == "" {
		voice = o.cfg.Voice
	}

	payload, err := json.Marshal(openAISpeechRequest{
		Model: o.cfg.Model,
		Voice: voice,
		Input: req.Text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.cfg.BaseURL+"/v1/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	o.log.Debug("openai synthesize", "request_id", requestID, "voice", voice, "chars", len(req.Text))

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeProviderFailure, "openai request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkOpenAIStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

type openAITranscription struct {
	Duration float64 `json:"duration"`
	Words    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

func (o *OpenAI) transcribe(ctx context.Context, audio []byte, requestID string) (*align.Transcription, error) {
	if err := o.limiter.Wait(ctx, openAIName); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", "speech.mp3")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("write audio part: %w", err)
	}
	for field, value := range map[string]string{
		"model":                      whisperModel,
		"response_format":            "verbose_json",
		"timestamp_granularities[]": "word",
	} {
		if err := mw.WriteField(field, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.cfg.BaseURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	o.log.Debug("openai transcribe", "request_id", requestID, "bytes", len(audio))

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeProviderFailure, "openai request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkOpenAIStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var out openAITranscription
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Wrap(err, errors.CodeProviderFailure, "decode transcription response")
	}

	tr := &align.Transcription{DurationSec: out.Duration}
	for _, w := range out.Words {
		tr.Words = append(tr.Words, align.TranscribedWord{
			Word:     w.Word,
			StartSec: w.Start,
			EndSec:   w.End,
		})
	}
	return tr, nil
}

func checkOpenAIStatus(status int, body []byte) error {
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return errors.ProviderFailure("openai rejected the API key")
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errors.Validationf("openai rejected the request: %s", string(body))
	case http.StatusTooManyRequests:
		return errors.ProviderFailure("openai rate limit exceeded")
	default:
		return errors.ProviderFailuref("openai returned status %d", status)
	}
}
