// Autoridade de verificação falsa para validar o gateway localmente:
//
//	go run ./teste-validacao/captcha-fake
//	RECAPTCHA_VERIFY_URL=http://localhost:8081/siteverify RECAPTCHA_SECRET_KEY=dev go run ./cmd/contact-gateway
//
// Aceita apenas o token FAKE_TOKEN (padrão "ok") com o segredo FAKE_SECRET (padrão "dev").
package main

import (
	"net/http"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	secret := getenvDefault("FAKE_SECRET", "dev")
	token := getenvDefault("FAKE_TOKEN", "ok")
	addr := getenvDefault("LISTEN_ADDR", ":8081")

	http.HandleFunc("/siteverify", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		res := map[string]any{"success": true}
		switch {
		case r.PostForm.Get("secret") != secret:
			res = map[string]any{"success": false, "error-codes": []string{"invalid-input-secret"}}
		case r.PostForm.Get("response") != token:
			res = map[string]any{"success": false, "error-codes": []string{"invalid-input-response"}}
		}
		log.Info().Interface("result", res["success"]).Msg("siteverify called")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	})

	log.Info().Str("addr", addr).Msg("fake captcha authority listening")
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
