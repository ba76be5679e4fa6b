package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/notifications", h.CreateNotification)
	mux.HandleFunc("GET /api/v1/notifications", h.ListNotifications)
	mux.HandleFunc("GET /api/v1/notifications/{id}", h.GetNotification)
	mux.HandleFunc("POST /api/v1/notifications/{id}/dispatch", h.DispatchNotification)
	mux.HandleFunc("POST /api/v1/promos/{motelId}/notify", h.SendPromoBlast)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}
