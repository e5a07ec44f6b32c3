package contact

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

func formatInt(v int) string     { return strconv.Itoa(v) }
func formatInt64(v int64) string { return strconv.FormatInt(v, 10) }

// ceilUnits arredonda d para cima em unidades de `unit`.
func ceilUnits(d, unit time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(unit)))
}

type errorBody struct {
	Error        string `json:"error"`
	Details      string `json:"details,omitempty"`
	ResetMinutes int    `json:"resetMinutes,omitempty"`
}

type successBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
