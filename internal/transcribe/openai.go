package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// implements Engine using the OpenAI Audio API
type OpenAIEngine struct {
	client  openai.Client
	model   string
	options EngineOptions
}

// segment from OpenAI Whisper verbose_json response
type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// verbose_json response structure from Whisper
type whisperVerboseResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

func NewOpenAIEngine(
	ctx context.Context,
	opts EngineOptions,
) (*OpenAIEngine, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(reqOpts...)

	model := opts.Model
	if model == "" || modelNames[strings.ToLower(model)] != "" {
		model = "whisper-1"
	}

	return &OpenAIEngine{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

// transcribes single audio file
func (e *OpenAIEngine) Transcribe(
	ctx context.Context,
	audioPath string,
) ([]RawSegment, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	params := openai.AudioTranscriptionNewParams{
		File:                   file,
		Model:                  openai.AudioModel(e.model),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	}

	if e.options.Language != "" {
		params.Language = openai.String(e.options.Language)
	}

	if e.options.Prompt != "" {
		params.Prompt = openai.String(e.options.Prompt)
	}

	resp, err := e.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError(fmt.Errorf("transcription failed: %w", err))
	}

	return parseVerboseJSONResponse(resp.RawJSON())
}

// isAuthStatus reports a rejected or unauthorized API key.
func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// classifyOpenAIError marks auth failures as ErrEngineLoad; they fail
// every chunk the same way.
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && isAuthStatus(apiErr.StatusCode) {
		return fmt.Errorf("%w: %w", ErrEngineLoad, err)
	}
	return err
}

func parseVerboseJSONResponse(rawJSON string) ([]RawSegment, error) {
	if rawJSON == "" {
		return nil, fmt.Errorf("empty response")
	}

	var verboseResp whisperVerboseResponse
	if err := json.Unmarshal([]byte(rawJSON), &verboseResp); err != nil {
		return nil, fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	if len(verboseResp.Segments) == 0 {
		text := strings.TrimSpace(verboseResp.Text)
		if text == "" {
			return nil, fmt.Errorf("no segments or text in response")
		}
		if verboseResp.Duration <= 0 {
			return nil, fmt.Errorf("unsegmented response without duration")
		}
		return []RawSegment{{
			T0:   0,
			T1:   secondsToCentis(verboseResp.Duration),
			Text: text,
		}}, nil
	}

	segments := make([]RawSegment, 0, len(verboseResp.Segments))
	for _, seg := range verboseResp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, RawSegment{
			T0:   secondsToCentis(seg.Start),
			T1:   secondsToCentis(seg.End),
			Text: text,
		})
	}

	return segments, nil
}

func (e *OpenAIEngine) Close() error {
	return nil
}
