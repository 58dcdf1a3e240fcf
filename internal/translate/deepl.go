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

const (
	deeplFreeURL = "https://api-free.deepl.com/v2/translate"
	deeplProURL  = "https://api.deepl.com/v2/translate"
)

// DeepLBackend translates through the DeepL REST API.
type DeepLBackend struct {
	apiKey     string
	endpoint   string
	source     string
	httpClient *http.Client
}

// NewDeepLBackend picks the free endpoint for keys ending in ":fx".
func NewDeepLBackend(apiKey string, opts Options) *DeepLBackend {
	endpoint := deeplProURL
	if strings.HasSuffix(apiKey, ":fx") {
		endpoint = deeplFreeURL
	}
	if opts.BaseURL != "" {
		endpoint = opts.BaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}
	var source string
	if opts.InputLanguage != "" {
		if tag, err := language.Parse(opts.InputLanguage); err == nil {
			base, _ := tag.Base()
			source = strings.ToUpper(base.String())
		}
	}
	return &DeepLBackend{
		apiKey:     apiKey,
		endpoint:   endpoint,
		source:     source,
		httpClient: client,
	}
}

func (d *DeepLBackend) Translate(
	ctx context.Context,
	text string,
	target language.Tag,
) (string, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", deeplLangCode(target))
	if d.source != "" {
		form.Set("source_lang", d.source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("DeepL API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("DeepL API error (status %d): %s",
			resp.StatusCode, truncateString(string(body), 200))
	}

	var deeplResp struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &deeplResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(deeplResp.Translations) == 0 {
		return "", fmt.Errorf("no translations in DeepL response")
	}
	return deeplResp.Translations[0].Text, nil
}

// deeplLangCode maps a tag onto DeepL's target codes, which require a
// regional variant for English and Portuguese.
func deeplLangCode(tag language.Tag) string {
	base, _ := tag.Base()
	region, conf := tag.Region()
	switch base.String() {
	case "en":
		if conf == language.Exact && region.String() == "GB" {
			return "EN-GB"
		}
		return "EN-US"
	case "pt":
		if conf == language.Exact && region.String() == "PT" {
			return "PT-PT"
		}
		return "PT-BR"
	default:
		return strings.ToUpper(base.String())
	}
}
