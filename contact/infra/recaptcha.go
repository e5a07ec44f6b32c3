package infra

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"contact-gateway/contact/domain"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const DefaultRecaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// RecaptchaVerifier consulta a autoridade de verificação (siteverify).
//
// Falha fechada: sem segredo, erro de transporte, status != 200, JSON inválido
// ou "success" diferente de true resultam em false. Não há retry.
// O segredo nunca é logado.
type RecaptchaVerifier struct {
	secret    string
	verifyURL string
	minScore  float64
	client    *http.Client
	log       zerolog.Logger
}

type RecaptchaOption func(*RecaptchaVerifier)

func WithVerifyURL(u string) RecaptchaOption {
	return func(v *RecaptchaVerifier) { v.verifyURL = u }
}

// WithMinScore exige score >= min (reCAPTCHA v3). 0 desliga a checagem.
func WithMinScore(min float64) RecaptchaOption {
	return func(v *RecaptchaVerifier) { v.minScore = min }
}

func WithHTTPClient(c *http.Client) RecaptchaOption {
	return func(v *RecaptchaVerifier) { v.client = c }
}

func WithVerifierLogger(l zerolog.Logger) RecaptchaOption {
	return func(v *RecaptchaVerifier) { v.log = l }
}

func NewRecaptchaVerifier(secret string, opts ...RecaptchaOption) *RecaptchaVerifier {
	v := &RecaptchaVerifier{
		secret:    secret,
		verifyURL: DefaultRecaptchaVerifyURL,
		// o deadline real vem do ctx; este é só um teto.
		client: &http.Client{Timeout: 30 * time.Second},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *RecaptchaVerifier) Verify(ctx context.Context, token string) bool {
	if v.secret == "" {
		v.log.Warn().Err(domain.ErrCaptchaNoSecret).Msg("rejecting captcha")
		return false
	}
	if token == "" {
		return false
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		v.log.Error().Err(err).Msg("captcha request build failed")
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		v.log.Warn().Err(err).Msg("captcha verification call failed")
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		v.log.Warn().Err(err).Msg("captcha response read failed")
		return false
	}
	if resp.StatusCode != http.StatusOK {
		v.log.Warn().Int("status", resp.StatusCode).Msg("captcha authority returned non-200")
		return false
	}
	if !gjson.ValidBytes(body) {
		v.log.Warn().Msg("captcha authority returned malformed json")
		return false
	}

	res := gjson.GetManyBytes(body, "success", "score", "error-codes")
	if res[0].Type != gjson.True {
		codes := make([]string, 0)
		for _, c := range res[2].Array() {
			codes = append(codes, c.String())
		}
		v.log.Info().Strs("error_codes", codes).Msg("captcha rejected")
		return false
	}
	if v.minScore > 0 && (!res[1].Exists() || res[1].Float() < v.minScore) {
		v.log.Info().Float64("score", res[1].Float()).Msg("captcha score below threshold")
		return false
	}
	return true
}
