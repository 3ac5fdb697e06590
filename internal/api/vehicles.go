package api

import (
	"encoding/json"
	"net/http"

	"salesbot/internal/domain"
)

func (s *Server) handleListVehicles(rw http.ResponseWriter, r *http.Request) {
	vehicles, err := s.catalogStore.ListVehicles(r.Context())
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	if vehicles == nil {
		vehicles = []domain.Vehicle{}
	}
	writeJSON(rw, http.StatusOK, vehicles)
}

func (s *Server) handleCreateVehicle(rw http.ResponseWriter, r *http.Request) {
	var v domain.Vehicle
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(rw, http.StatusBadRequest, "invalid JSON")
		return
	}
	if v.StockID == "" {
		writeError(rw, http.StatusBadRequest, "stock_id is required")
		return
	}
	v.ID = ""
	if err := s.catalogStore.SaveVehicle(r.Context(), &v); err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(rw, http.StatusCreated, v)
}

func (s *Server) handleGetVehicle(rw http.ResponseWriter, r *http.Request) {
	v, err := s.catalogStore.GetVehicle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	if v == nil {
		writeError(rw, http.StatusNotFound, "vehicle not found")
		return
	}
	writeJSON(rw, http.StatusOK, v)
}

func (s *Server) handleUpdateVehicle(rw http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := s.catalogStore.GetVehicle(r.Context(), id)
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	if existing == nil {
		writeError(rw, http.StatusNotFound, "vehicle not found")
		return
	}

	var v domain.Vehicle
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(rw, http.StatusBadRequest, "invalid JSON")
		return
	}
	v.ID = id
	if v.StockID == "" {
		v.StockID = existing.StockID
	}
	if err := s.catalogStore.SaveVehicle(r.Context(), &v); err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, v)
}

func (s *Server) handleDeleteVehicle(rw http.ResponseWriter, r *http.Request) {
	if err := s.catalogStore.DeleteVehicle(r.Context(), r.PathValue("id")); err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

// handleImportVehicles accepts a raw CSV body and bulk-upserts the catalog.
func (s *Server) handleImportVehicles(rw http.ResponseWriter, r *http.Request) {
	result, err := s.importer.Import(r.Context(), r.Body)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("catalog imported via API", "imported", result.Imported, "skipped", result.Skipped)
	writeJSON(rw, http.StatusOK, result)
}
