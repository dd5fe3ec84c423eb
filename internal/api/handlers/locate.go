package handlers

import (
	"errors"
	"net/http"
	"route-optimizer-service/internal/api/dto"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"

	"go.uber.org/zap"
)

type LocateHandler struct {
	Geolocator ports.Geolocator
}

// Locate labels a device position so it can be used as the route origin.
func (h *LocateHandler) Locate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.LocateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Lat == nil || req.Lon == nil {
		writeError(w, r, http.StatusBadRequest, "lat and lon are required")
		return
	}

	c := domain.Coordinates{Lat: *req.Lat, Lon: *req.Lon}
	if !c.Valid() {
		writeError(w, r, http.StatusBadRequest, "lat and lon are out of range")
		return
	}

	label, err := h.Geolocator.ReverseGeocode(r.Context(), c)
	switch {
	case err == nil:
	case errors.Is(err, ports.ErrAddressNotFound):
		writeError(w, r, http.StatusNotFound, "no address found for this location")
		return
	case errors.Is(err, ports.ErrUpstream):
		obs.Logger(r.Context()).Warn("reverse geocode unavailable", zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "could not resolve the current location")
		return
	default:
		obs.Logger(r.Context()).Error("reverse geocode failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.LocateResponse{Label: label, Lat: c.Lat, Lon: c.Lon})
}
