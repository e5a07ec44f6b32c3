package contact

import (
	"net/http"

	"contact-gateway/contact/domain"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type RouterOptions struct {
	ContactPath string
	Contact     http.Handler
	Stats       domain.StatsReader
	Log         zerolog.Logger
}

func NewRouter(opts RouterOptions) *mux.Router {
	if opts.ContactPath == "" {
		opts.ContactPath = "/api/contact"
	}

	router := mux.NewRouter()
	router.Use(RequestID(opts.Log))

	router.Handle(opts.ContactPath, opts.Contact).Methods(http.MethodPost)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	if opts.Stats != nil {
		router.Handle("/stats", StatsHandler(opts.Stats)).Methods(http.MethodGet)
	}
	return router
}

// StatsHandler devolve os totais por resultado.
func StatsHandler(stats domain.StatsReader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		totals, err := stats.Totals(r.Context())
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("stats read failed")
			writeError(w, http.StatusServiceUnavailable, msgUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, totals)
	})
}
