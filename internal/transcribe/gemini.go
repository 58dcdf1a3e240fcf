package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"google.golang.org/genai"
)

// implements Engine using Google Gemini
type GeminiEngine struct {
	client  *genai.Client
	model   string
	options EngineOptions
}

// segment from Gemini's JSON response
type transcriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

var jsonBlockRegex = regexp.MustCompile("```(?:json)?\\s*")

// well-known wrapper keys, tried before any other key
var wrapperKeys = []string{"segments", "transcript", "transcription", "data"}

func NewGeminiEngine(ctx context.Context, opts EngineOptions) (*GeminiEngine, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" || modelNames[strings.ToLower(model)] != "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiEngine{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

// transcribes single audio file
func (e *GeminiEngine) Transcribe(ctx context.Context, audioPath string) ([]RawSegment, error) {
	uploadedFile, err := e.client.Files.UploadFromPath(ctx, audioPath, nil)
	if err != nil {
		return nil, classifyGeminiError(fmt.Errorf("failed to upload audio file: %w", err))
	}

	defer func() {
		_, _ = e.client.Files.Delete(context.WithoutCancel(ctx), uploadedFile.Name, nil)
	}()

	parts := []*genai.Part{
		genai.NewPartFromText(e.buildTranscriptionPrompt()),
		genai.NewPartFromURI(uploadedFile.URI, uploadedFile.MIMEType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := e.client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, classifyGeminiError(fmt.Errorf("transcription failed: %w", err))
	}

	return parseTranscriptionResponse(result)
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		return err
	}
	if isAuthStatus(apiErr.Code) ||
		apiErr.Status == "UNAUTHENTICATED" || apiErr.Status == "PERMISSION_DENIED" {
		return fmt.Errorf("%w: %w", ErrEngineLoad, err)
	}
	return err
}

// creates the prompt for transcription
func (e *GeminiEngine) buildTranscriptionPrompt() string {
	var sb strings.Builder

	sb.WriteString("Generate a detailed transcript of this audio. ")
	sb.WriteString("For each sentence or phrase, provide the start timestamp, end timestamp, and the exact text spoken. ")
	sb.WriteString("Format your response as a JSON array with objects containing 'start', 'end', and 'text' fields, ")
	sb.WriteString("where 'start' and 'end' are timestamps in seconds (as numbers). ")

	if e.options.Language != "" {
		sb.WriteString(fmt.Sprintf("The audio is in %s. ", e.options.Language))
	}

	if e.options.Prompt != "" {
		sb.WriteString(e.options.Prompt)
		sb.WriteString(" ")
	}

	sb.WriteString("Return ONLY the JSON array, no other text or markdown formatting.")

	return sb.String()
}

// parses Gemini's response into raw segments
func parseTranscriptionResponse(result *genai.GenerateContentResponse) ([]RawSegment, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var responseText string
	for _, candidate := range result.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					responseText += part.Text
				}
			}
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text in Gemini response")
	}

	responseText = cleanJSONResponse(responseText)

	transcriptSegments, err := extractTranscriptSegments(responseText)
	if err != nil {
		return nil, fmt.Errorf("%w (response: %s)", err, truncateString(responseText, 200))
	}

	segments := make([]RawSegment, len(transcriptSegments))
	for i, ts := range transcriptSegments {
		segments[i] = RawSegment{
			T0:   secondsToCentis(ts.Start),
			T1:   secondsToCentis(ts.End),
			Text: strings.TrimSpace(ts.Text),
		}
	}

	return segments, nil
}

// extractTranscriptSegments finds the first JSON value in s that holds a
// usable segment array, either bare or under a wrapper object. Models
// often surround the JSON with prose, so every '[' and '{' is a candidate.
func extractTranscriptSegments(s string) ([]transcriptSegment, error) {
	for i := 0; i < len(s); i++ {
		if s[i] != '[' && s[i] != '{' {
			continue
		}
		var v any
		if err := json.NewDecoder(strings.NewReader(s[i:])).Decode(&v); err != nil {
			continue
		}
		if segments, ok := findSegments(v); ok {
			return segments, nil
		}
	}
	return nil, fmt.Errorf("no transcript segments found in response")
}

func findSegments(v any) ([]transcriptSegment, bool) {
	switch x := v.(type) {
	case []any:
		return toSegments(x)
	case map[string]any:
		for _, key := range wrapperKeys {
			if val, ok := x[key]; ok {
				if segments, ok := findSegments(val); ok {
					return segments, true
				}
			}
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if segments, ok := findSegments(x[k]); ok {
				return segments, true
			}
		}
	}
	return nil, false
}

func toSegments(arr []any) ([]transcriptSegment, bool) {
	raw, err := json.Marshal(arr)
	if err != nil {
		return nil, false
	}
	var segments []transcriptSegment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil, false
	}
	if !validateSegments(segments) {
		return nil, false
	}
	return segments, true
}

// true when at least one segment carries timing or text
func validateSegments(segments []transcriptSegment) bool {
	for _, s := range segments {
		if s.Text != "" || s.Start != 0 || s.End != 0 {
			return true
		}
	}
	return false
}

// removes markdown formatting from the response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)

	// remove ```json and ``` markers
	s = jsonBlockRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")

	return strings.TrimSpace(s)
}

// truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func (e *GeminiEngine) Close() error {
	return nil
}
