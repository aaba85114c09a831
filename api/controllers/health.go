package controllers

import (
	"net/http"

	"github.com/aduboahen/juicekart/api/responses"
	"github.com/aduboahen/juicekart/pkg/config"
)

func Healthz(cfg config.AppConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-JuiceKart-Env", cfg.Env)
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
