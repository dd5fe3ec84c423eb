package api

import (
	"net/http"
	"route-optimizer-service/internal/api/handlers"
	"route-optimizer-service/internal/ports"
	"route-optimizer-service/internal/services"

	"go.uber.org/zap"
)

type RouterDeps struct {
	Planner    handlers.RoutePlanner
	Geolocator ports.Geolocator
	Optimizer  services.OptimizerOptions
	Logger     *zap.Logger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	routeHandler := &handlers.RouteHandler{Planner: deps.Planner}
	optimizeHandler := &handlers.OptimizeHandler{Defaults: deps.Optimizer}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/routes", routeHandler.Plan)
	mux.HandleFunc("/optimize", optimizeHandler.Optimize)

	if deps.Geolocator != nil {
		locateHandler := &handlers.LocateHandler{Geolocator: deps.Geolocator}
		mux.HandleFunc("/locate", locateHandler.Locate)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return requestMiddleware(logger, mux)
}
