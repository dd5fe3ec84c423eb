package handlers

import (
	"errors"
	"math"
	"net/http"
	"route-optimizer-service/internal/api/dto"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/services"

	"go.uber.org/zap"
)

// OptimizeHandler solves a caller-supplied distance matrix directly.
type OptimizeHandler struct {
	Defaults services.OptimizerOptions
}

func (h *OptimizeHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.OptimizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	strategy, ok := domain.ParseStrategy(req.Strategy)
	if !ok || strategy == domain.StrategyDelegate {
		writeError(w, r, http.StatusBadRequest, "strategy must be one of auto, exact, heuristic")
		return
	}

	opts := h.Defaults
	opts.ClosedTour = req.ClosedTour
	if req.Strategy != "" || opts.Strategy == domain.StrategyDelegate {
		opts.Strategy = strategy
	}

	result, err := services.Optimize(toMatrix(req.Distances), opts)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidMatrix) {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		obs.Logger(r.Context()).Error("optimize failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.OptimizeResponse{
		Order:         result.Order,
		TotalDistance: result.TotalCost,
		Strategy:      string(result.Strategy),
	})
}

// toMatrix maps null cells to NaN, which validation reports as missing.
func toMatrix(rows [][]*float64) domain.DistanceMatrix {
	m := make(domain.DistanceMatrix, len(rows))
	for i, row := range rows {
		m[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				m[i][j] = math.NaN()
				continue
			}
			m[i][j] = *v
		}
	}
	return m
}
