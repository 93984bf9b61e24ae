package abuse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voltlot/voltlot-backend/pkg/config"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

const (
	TurnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
	HCaptchaVerifyURL  = "https://hcaptcha.com/siteverify"

	// FallbackTokenField is accepted for every provider.
	FallbackTokenField = "captcha_token"
)

const (
	msgTokenMissing   = "Captcha validation failed. Please try again."
	msgSecretMissing  = "Captcha configuration error. Please try again later."
	msgProviderBad    = "Captcha provider misconfigured."
	msgVerifyFailed   = "Captcha verification failed. Please retry."
	maxVerifyBodySize = 64 << 10
)

var providerFields = map[string]string{
	config.CaptchaProviderTurnstile: "cf-turnstile-response",
	config.CaptchaProviderHCaptcha:  "h-captcha-response",
}

var providerEndpoints = map[string]string{
	config.CaptchaProviderTurnstile: TurnstileVerifyURL,
	config.CaptchaProviderHCaptcha:  HCaptchaVerifyURL,
}

// detailKeys are the provider response fields kept on a successful verdict.
var detailKeys = []string{"action", "score", "hostname", "challenge_ts"}

// Verdict is the outcome of a challenge verification.
type Verdict struct {
	OK      bool
	Message string
	Details map[string]any
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// CaptchaVerifier checks bot-challenge tokens against the configured provider.
type CaptchaVerifier struct {
	provider  string
	secret    string
	verifyURL string
	client    HTTPDoer
	logg      *logger.Logger
}

// NewCaptchaVerifier builds a verifier from config. client may be nil, in
// which case an http.Client with the configured timeout is used.
func NewCaptchaVerifier(cfg config.CaptchaConfig, client HTTPDoer, logg *logger.Logger) *CaptchaVerifier {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &CaptchaVerifier{
		provider:  cfg.NormalizedProvider(),
		secret:    strings.TrimSpace(cfg.SecretKey),
		verifyURL: strings.TrimSpace(cfg.VerifyURL),
		client:    client,
		logg:      logg,
	}
}

// Provider returns the normalized provider name.
func (v *CaptchaVerifier) Provider() string {
	return v.provider
}

// TokenField returns the provider specific form field, or "" for none.
func (v *CaptchaVerifier) TokenField() string {
	return providerFields[v.provider]
}

// Token picks the challenge response out of submitted fields. The provider
// field wins over the generic fallback.
func (v *CaptchaVerifier) Token(lookup func(field string) string) string {
	if field := v.TokenField(); field != "" {
		if token := strings.TrimSpace(lookup(field)); token != "" {
			return token
		}
	}
	return strings.TrimSpace(lookup(FallbackTokenField))
}

// Verify checks token with the provider. Every failure mode fails closed,
// except provider "none" which always passes.
func (v *CaptchaVerifier) Verify(ctx context.Context, token, remoteAddr string) Verdict {
	if v.provider == "" || v.provider == config.CaptchaProviderNone {
		return Verdict{OK: true}
	}
	if strings.TrimSpace(token) == "" {
		return Verdict{Message: msgTokenMissing}
	}
	if v.secret == "" {
		v.warn(ctx, "captcha.secret_missing", nil)
		return Verdict{Message: msgSecretMissing}
	}
	endpoint, ok := providerEndpoints[v.provider]
	if !ok {
		v.warn(ctx, "captcha.provider_unsupported", nil)
		return Verdict{Message: msgProviderBad}
	}
	if v.verifyURL != "" {
		endpoint = v.verifyURL
	}

	payload, err := v.post(ctx, endpoint, token, remoteAddr)
	if err != nil {
		v.warn(ctx, "captcha.verify_error", err)
		return Verdict{Message: msgVerifyFailed}
	}

	success, _ := payload["success"].(bool)
	if !success {
		return Verdict{Message: msgVerifyFailed, Details: payload}
	}

	details := map[string]any{}
	for _, key := range detailKeys {
		if value, ok := payload[key]; ok {
			details[key] = value
		}
	}
	return Verdict{OK: true, Details: details}
}

func (v *CaptchaVerifier) post(ctx context.Context, endpoint, token, remoteAddr string) (map[string]any, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteAddr != "" {
		form.Set("remoteip", remoteAddr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("verify request: unexpected status %d", resp.StatusCode)
	}

	var payload map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxVerifyBodySize)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return payload, nil
}

func (v *CaptchaVerifier) warn(ctx context.Context, msg string, err error) {
	if v.logg == nil {
		return
	}
	fields := map[string]any{"provider": v.provider}
	if err != nil {
		fields["error"] = err.Error()
	}
	v.logg.Warn(v.logg.WithFields(ctx, fields), msg)
}
