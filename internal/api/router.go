package api

import (
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/ryos-web/ryos-memory/internal/api/recovery"
	"github.com/ryos-web/ryos-memory/internal/services"
)

// NewRouter wires the HTTP routes to handlers.
func NewRouter(svc *services.MemoryService, isHealthy func() bool, log zerolog.Logger) *mux.Router {
	root := mux.NewRouter()
	root.Use(recovery.Middleware)
	root.Use(RequestLog(log))

	memory := NewMemoryHandler(svc)
	root.HandleFunc("/api/users/{username}/memories", memory.Upsert).Methods("POST")
	root.HandleFunc("/api/users/{username}/memories", memory.GetIndex).Methods("GET")
	root.HandleFunc("/api/users/{username}/memories", memory.Clear).Methods("DELETE")
	root.HandleFunc("/api/users/{username}/memories/keys", memory.ListKeys).Methods("GET")
	root.HandleFunc("/api/users/{username}/memories/prompt", memory.Prompt).Methods("GET")
	root.HandleFunc("/api/users/{username}/memories/{key}", memory.GetDetail).Methods("GET")
	root.HandleFunc("/api/users/{username}/memories/{key}", memory.Update).Methods("PUT")
	root.HandleFunc("/api/users/{username}/memories/{key}", memory.Delete).Methods("DELETE")
	root.HandleFunc("/api/users/{username}/memories/{key}/promote", memory.Promote).Methods("POST")

	health := NewHealthHandler(isHealthy)
	root.HandleFunc("/api/health", health.CheckHealth).Methods("GET")

	return root
}
