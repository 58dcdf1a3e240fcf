package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported translation provider")
	ErrMissingCredential   = errors.New("missing translation credential")
)

// Backend translates a single text into the target language.
type Backend interface {
	Translate(ctx context.Context, text string, target language.Tag) (string, error)
}

// translation service provider
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderDeepL     Provider = "deepl"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

func ParseProvider(name string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(name))); p {
	case ProviderGoogle, ProviderDeepL, ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
}

// RequiresCredential is false only for the free Google endpoint.
func (p Provider) RequiresCredential() bool {
	return p != ProviderGoogle
}

// CredentialEnv names the environment variable holding the provider's key.
func (p Provider) CredentialEnv() string {
	switch p {
	case ProviderDeepL:
		return "DEEPL_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

func (p Provider) CheckCredential(apiKey string) error {
	if p.RequiresCredential() && strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("%w: provider %s needs an API key (or set %s)", ErrMissingCredential, p, p.CredentialEnv())
	}
	return nil
}

// ParseLanguage parses a BCP 47 target language such as "es" or "pt-BR".
func ParseLanguage(s string) (language.Tag, error) {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return language.Und, fmt.Errorf("invalid target language %q: %w", s, err)
	}
	if tag == language.Und {
		return language.Und, fmt.Errorf("invalid target language %q", s)
	}
	return tag, nil
}

// LanguageName is the English display name of tag, e.g. "Spanish".
func LanguageName(tag language.Tag) string {
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}

type Options struct {
	InputLanguage string
	Model         string
	Prompt        string
	BaseURL       string // endpoint override
	HTTPClient    *http.Client
}

// NewBackend creates the Backend for provider.
func NewBackend(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Backend, error) {
	p, err := ParseProvider(string(provider))
	if err != nil {
		return nil, err
	}
	if err := p.CheckCredential(apiKey); err != nil {
		return nil, err
	}

	switch p {
	case ProviderGoogle:
		return NewGoogleBackend(opts), nil
	case ProviderDeepL:
		return NewDeepLBackend(apiKey, opts), nil
	case ProviderOpenAI:
		return NewOpenAITranslator(ctx, apiKey, opts)
	case ProviderAnthropic:
		return NewAnthropicTranslator(ctx, apiKey, opts)
	case ProviderGemini:
		return NewGeminiTranslator(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
}

// BuildPrompt creates the single-text translation prompt for LLM providers
func BuildPrompt(opts Options, text string, target language.Tag) string {
	var sb strings.Builder

	if opts.InputLanguage != "" {
		sb.WriteString(fmt.Sprintf(
			"Translate the following %s subtitle line to %s.\n\n",
			opts.InputLanguage,
			LanguageName(target),
		))
	} else {
		sb.WriteString(fmt.Sprintf(
			"Translate the following subtitle line to %s.\n\n",
			LanguageName(target),
		))
	}

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. Translate ONLY the text, preserving the meaning.\n")
	sb.WriteString("2. Preserve line breaks in the same positions.\n")
	sb.WriteString("3. Return ONLY the translated text, without quotes, notes or markdown.\n\n")

	if opts.Prompt != "" {
		sb.WriteString(fmt.Sprintf("Additional instructions: %s\n\n", opts.Prompt))
	}

	sb.WriteString("Text:\n")
	sb.WriteString(text)

	return sb.String()
}

var codeFenceRegex = regexp.MustCompile("```[a-zA-Z]*\\s*")

// cleanResponse strips markdown fences and surrounding whitespace from an
// LLM reply.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = codeFenceRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// truncates a string to maxLen bytes
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
