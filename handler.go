package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	fthealth "github.com/Financial-Times/go-fthealth/v1_1"
	log "github.com/Financial-Times/go-logger"
	"github.com/gorilla/mux"
)

type controller interface {
	refresh(ctx context.Context) (*catalogSnapshot, refreshRecord, bool)
	currentSnapshot() *catalogSnapshot
	lastRefresh() refreshRecord
	getRefreshPeriod() time.Duration
	getBaseAddress() string
	findWorkload(ctx context.Context, name string, useCache bool) (workload, bool)
}

type httpHandler struct {
	controller  controller
	environment string
}

type refreshMetadata struct {
	refreshRecord
	RefreshIntervalSeconds int64  `json:"refreshIntervalSeconds"`
	BaseAddress            string `json:"baseAddress"`
}

type catalogResponse struct {
	GeneratedAt *time.Time      `json:"generatedAt"`
	Count       int             `json:"count"`
	Workloads   []workload      `json:"workloads"`
	Refresh     refreshMetadata `json:"refresh"`
}

type refreshResponse struct {
	catalogResponse
	Skipped bool `json:"skipped"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h *httpHandler) handleGoodToGo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=US-ASCII")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if _, err := w.Write([]byte("OK")); err != nil {
		log.WithError(err).Error("Could not write response for gtg.")
	}
}

func (h *httpHandler) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	response := h.buildCatalogResponse(h.controller.currentSnapshot(), h.controller.lastRefresh())
	buildJSONResponse(w, http.StatusOK, response)
}

func (h *httpHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snapshot, record, ran := h.controller.refresh(context.WithoutCancel(r.Context()))
	response := refreshResponse{
		catalogResponse: h.buildCatalogResponse(snapshot, record),
		Skipped:         !ran,
	}
	buildJSONResponse(w, http.StatusOK, response)
}

func (h *httpHandler) handleWorkload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name == "" {
		buildJSONResponse(w, http.StatusBadRequest, errorResponse{Message: "Couldn't get workload name from url."})
		return
	}

	found, ok := h.controller.findWorkload(r.Context(), name, useCache(r.URL))
	if !ok {
		buildJSONResponse(w, http.StatusNotFound, errorResponse{Message: "Workload " + name + " is not in the catalog."})
		return
	}
	buildJSONResponse(w, http.StatusOK, found)
}

func (h *httpHandler) handleCatalogHealth(w http.ResponseWriter, _ *http.Request) {
	hc := buildCatalogHealthCheck(h.environment, h.controller.currentSnapshot(), h.controller.lastRefresh())
	buildHealthcheckJSONResponse(w, fthealth.RunCheck(hc))
}

func (h *httpHandler) buildCatalogResponse(snapshot *catalogSnapshot, record refreshRecord) catalogResponse {
	response := catalogResponse{
		Count:     snapshot.Count,
		Workloads: snapshot.Workloads,
		Refresh: refreshMetadata{
			refreshRecord:          record,
			RefreshIntervalSeconds: int64(h.controller.getRefreshPeriod() / time.Second),
			BaseAddress:            h.controller.getBaseAddress(),
		},
	}
	if !snapshot.GeneratedAt.IsZero() {
		generatedAt := snapshot.GeneratedAt
		response.GeneratedAt = &generatedAt
	}
	if response.Workloads == nil {
		response.Workloads = []workload{}
	}
	return response
}

func useCache(theURL *url.URL) bool {
	//use cache by default
	return theURL.Query().Get("cache") != "false"
}

func buildHealthcheckJSONResponse(w http.ResponseWriter, healthResult fthealth.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(healthResult); err != nil {
		log.WithError(err).Error("Couldn't encode health results to ResponseWriter.")
	}
}

func buildJSONResponse(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("Couldn't encode response to ResponseWriter.")
	}
}
