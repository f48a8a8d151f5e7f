// Package mock отдаёт фиксированный ответ /tariffs/box в формате WB.
// Используется как запасной источник при недоступности WB API.
package mock

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed tariffs_box.json
var Payload []byte

// Router монтирует /api/v1/tariffs/box, как у настоящего WB.
func Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/tariffs/box", ServeTariffs)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("OK"))
	})
	return r
}

func ServeTariffs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(Payload)
}
