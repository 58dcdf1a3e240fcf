package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const googleEndpoint = "https://translate.googleapis.com/translate_a/single"

// GoogleBackend uses the keyless Google Translate web endpoint.
type GoogleBackend struct {
	endpoint   string
	source     string
	httpClient *http.Client
}

func NewGoogleBackend(opts Options) *GoogleBackend {
	endpoint := googleEndpoint
	if opts.BaseURL != "" {
		endpoint = opts.BaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	source := "auto"
	if opts.InputLanguage != "" {
		if tag, err := language.Parse(opts.InputLanguage); err == nil {
			source = googleLangCode(tag)
		}
	}
	return &GoogleBackend{endpoint: endpoint, source: source, httpClient: client}
}

func (g *GoogleBackend) Translate(
	ctx context.Context,
	text string,
	target language.Tag,
) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", g.source)
	q.Set("tl", googleLangCode(target))
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("google translate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google translate error (status %d): %s",
			resp.StatusCode, truncateString(string(body), 200))
	}

	return parseGoogleResponse(body)
}

// parseGoogleResponse joins the translated sentence pieces found at
// [0][i][0] of the endpoint's nested array reply.
func parseGoogleResponse(body []byte) (string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty response from google translate")
	}

	var sentences [][]json.RawMessage
	if err := json.Unmarshal(raw[0], &sentences); err != nil {
		return "", fmt.Errorf("unexpected response shape: %w", err)
	}

	var sb strings.Builder
	for _, s := range sentences {
		if len(s) == 0 {
			continue
		}
		var piece string
		if err := json.Unmarshal(s[0], &piece); err != nil {
			continue
		}
		sb.WriteString(piece)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no text in google translate response")
	}
	return sb.String(), nil
}

// googleLangCode keeps the script or region only for Chinese, which the
// endpoint distinguishes as zh-CN and zh-TW.
func googleLangCode(tag language.Tag) string {
	base, _ := tag.Base()
	if base.String() != "zh" {
		return base.String()
	}
	script, _ := tag.Script()
	region, _ := tag.Region()
	switch {
	case script.String() == "Hant", region.String() == "TW", region.String() == "HK":
		return "zh-TW"
	default:
		return "zh-CN"
	}
}
