package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/paper-app/backend/internal/retry"
)

// TTSRequest asks the engine to narrate text in a given voice.
type TTSRequest struct {
	Text       string
	VoiceModel string
}

// TTSResponse carries the raw audio bytes and the content type reported by
// the engine (usually audio/mpeg for an Edge-TTS-style stream).
type TTSResponse struct {
	Audio       []byte
	ContentType string
}

// TTSEngine is the singleton streaming TTS client held by the Provider Pool.
type TTSEngine interface {
	Synthesize(ctx context.Context, req TTSRequest) (TTSResponse, error)
}

type edgeTTSEngine struct {
	client *resty.Client
}

// NewEdgeTTSEngine builds a streaming TTS client against an Edge-TTS-style
// HTTP endpoint. No ecosystem client exists in the retrieval pack for this
// protocol, so this is a minimal hand-rolled HTTP call on resty that reads
// the whole audio response into memory (see DESIGN.md).
func NewEdgeTTSEngine(baseURL string, timeout time.Duration) TTSEngine {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &edgeTTSEngine{client: resty.New().SetBaseURL(baseURL).SetTimeout(timeout)}
}

func (e *edgeTTSEngine) Synthesize(ctx context.Context, req TTSRequest) (TTSResponse, error) {
	var out TTSResponse
	err := retry.Do(ctx, 3, time.Second, 30*time.Second, isRetryableHTTP, func(ctx context.Context) error {
		resp, err := e.client.R().
			SetContext(ctx).
			SetBody(map[string]string{"text": req.Text, "voice": req.VoiceModel}).
			Post("/v1/synthesize")
		if err != nil {
			return err
		}
		if resp.StatusCode() >= 500 {
			return fmt.Errorf("tts synthesize: server error %d", resp.StatusCode())
		}
		if resp.StatusCode() >= 400 {
			return retryableSkip{fmt.Errorf("tts synthesize: client error %d", resp.StatusCode())}
		}
		out.Audio = resp.Body()
		out.ContentType = resp.Header().Get("Content-Type")
		return nil
	})
	return out, err
}
