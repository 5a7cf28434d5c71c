package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json/v2"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/readalongapp/readalong-server/internal/align"
	"github.com/readalongapp/readalong-server/internal/errors"
	"github.com/readalongapp/readalong-server/internal/logger"
	"github.com/readalongapp/readalong-server/internal/ratelimit"
)

const (
	elevenLabsName    = "elevenlabs"
	elevenLabsBaseURL = "https://api.elevenlabs.io"

	// The free tier allows 2 concurrent requests; stay well under it since
	// paragraphs are synthesized ahead of playback anyway.
	elevenLabsRPS   = 1.0
	elevenLabsBurst = 2

	elevenLabsTimeout = 60 * time.Second
)

// ElevenLabsConfig configures the ElevenLabs client.
type ElevenLabsConfig struct {
	APIKey  string
	Voice   string // default voice ID
	Model   string // model ID, e.g. eleven_multilingual_v2
	BaseURL string // overridden in tests
}

// ElevenLabs synthesizes speech through the with-timestamps endpoint, which
// returns character-level timing alongside the audio. That makes it the
// highest-fidelity source of word highlights.
type ElevenLabs struct {
	cfg     ElevenLabsConfig
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	log     *logger.Logger
}

// NewElevenLabs creates an ElevenLabs provider.
func NewElevenLabs(cfg ElevenLabsConfig, log *logger.Logger) *ElevenLabs {
	if cfg.BaseURL == "" {
		cfg.BaseURL = elevenLabsBaseURL
	}
	return &ElevenLabs{
		cfg:     cfg,
		http:    &http.Client{Timeout: elevenLabsTimeout},
		limiter: ratelimit.New(elevenLabsRPS, elevenLabsBurst),
		log:     log,
	}
}

// Name implements Synthesizer.
func (e *ElevenLabs) Name() string { return elevenLabsName }

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

type elevenLabsResponse struct {
	AudioBase64 string `json:"audio_base64"`
	Alignment   *struct {
		Characters    []string  `json:"characters"`
		StartTimesSec []float64 `json:"character_start_times_seconds"`
		EndTimesSec   []float64 `json:"character_end_times_seconds"`
	} `json:"alignment"`
}

// Synthesize implements Synthesizer.
func (e *ElevenLabs) Synthesize(ctx context.Context, req SpeechRequest) (*Speech, error) {
	if err := e.limiter.Wait(ctx, elevenLabsName); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	voice := req.Voice
	if voice == "" {
		voice = e.cfg.Voice
	}

	payload, err := json.Marshal(elevenLabsRequest{Text: req.Text, ModelID: e.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s/with-timestamps?output_format=mp3_44100_128", e.cfg.BaseURL, voice)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("xi-api-key", e.cfg.APIKey)

	requestID := uuid.NewString()
	e.log.Debug("elevenlabs synthesize",
		"request_id", requestID,
		"voice", voice,
		"chars", len(req.Text),
	)

	resp, err := e.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeProviderFailure, "elevenlabs request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, errors.ProviderFailure("elevenlabs rejected the API key")
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return nil, errors.Validationf("elevenlabs rejected the request: %s", string(body))
	case http.StatusTooManyRequests:
		return nil, errors.ProviderFailure("elevenlabs rate limit exceeded")
	default:
		return nil, errors.ProviderFailuref("elevenlabs returned status %d", resp.StatusCode)
	}

	var out elevenLabsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Wrap(err, errors.CodeProviderFailure, "decode elevenlabs response")
	}

	audio, err := base64.StdEncoding.DecodeString(out.AudioBase64)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeProviderFailure, "decode elevenlabs audio")
	}

	speech := &Speech{
		Audio:  audio,
		Format: "audio/mpeg",
	}
	if a := out.Alignment; a != nil && len(a.Characters) > 0 {
		speech.Timing = &align.Input{Characters: &align.CharAlignment{
			Characters:    a.Characters,
			StartTimesSec: a.StartTimesSec,
			EndTimesSec:   a.EndTimesSec,
		}}
		if n := len(a.EndTimesSec); n > 0 {
			speech.DurationMs = int64(a.EndTimesSec[n-1] * 1000)
		}
	}

	e.log.Debug("elevenlabs synthesized",
		"request_id", requestID,
		"bytes", len(audio),
		"duration_ms", speech.DurationMs,
	)
	return speech, nil
}
