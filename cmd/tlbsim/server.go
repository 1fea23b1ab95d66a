package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// server is the demo harness's HTTP surface: a health check, a Prometheus
// scrape endpoint, and a websocket stream of emitted transactions. A
// CORS-wrapped gorilla/mux router, trimmed to the three routes this
// harness actually needs.
type server struct {
	router *mux.Router
	hub    *txHub
}

func newServer(hub *txHub) *server {
	s := &server{router: mux.NewRouter(), hub: hub}
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.HandleFunc("/ws", hub.handleWebSocket)
	return s
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) start(addr string) error {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	})
	return http.ListenAndServe(addr, c.Handler(s.router))
}
