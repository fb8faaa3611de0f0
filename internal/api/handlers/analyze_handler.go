package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/blueprintpro/estimator/internal/api/middleware"
	"github.com/blueprintpro/estimator/internal/api/types"
	"github.com/blueprintpro/estimator/internal/orchestrator"
	"github.com/blueprintpro/estimator/internal/providers"
	"github.com/blueprintpro/estimator/internal/services"
	"github.com/blueprintpro/estimator/pkg/logger"
)

// AnalyzeHandler serves the stateless analysis relay. Its bodies are bare
// JSON objects rather than the envelope used by the project routes.
type AnalyzeHandler struct {
	analyzer services.Analyzer
	server   providers.CredentialBag
}

func NewAnalyzeHandler(analyzer services.Analyzer, server providers.CredentialBag) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer, server: server}
}

func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req types.AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, types.ErrorBody{Error: "Invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.BlueprintURL) == "" {
		writeJSON(w, http.StatusBadRequest, types.ErrorBody{Error: "Missing blueprintUrl"})
		return
	}

	creds := providers.Resolve(h.server, req.Credentials())
	res, err := h.analyzer.Orchestrate(r.Context(), req.BlueprintURL, req.Preferred(), creds)
	if err != nil {
		writeAnalysisFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.AnalyzeResponse{Provider: string(res.Provider), Result: res.Analysis})
}

// writeAnalysisFailure renders the 502 aggregate body, or a 500 with the
// error message for anything else.
func writeAnalysisFailure(w http.ResponseWriter, r *http.Request, err error) {
	var all *orchestrator.AllProvidersFailedError
	if errors.As(err, &all) {
		writeJSON(w, http.StatusBadGateway, noProviderBody(all))
		return
	}
	logger.L().Error("analysis failed",
		zap.String("id", middleware.GetRequestID(r.Context())),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, types.ErrorBody{Error: err.Error()})
}

func noProviderBody(all *orchestrator.AllProvidersFailedError) types.NoProviderBody {
	body := types.NoProviderBody{
		Error:         "No provider succeeded",
		Details:       make([]types.ProviderFailure, 0, len(all.Attempts)),
		ProviderOrder: make([]string, 0, len(all.Order)),
	}
	for _, a := range all.Attempts {
		body.Details = append(body.Details, types.ProviderFailure{Provider: string(a.Provider), Message: a.Message})
	}
	for _, n := range all.Order {
		body.ProviderOrder = append(body.ProviderOrder, string(n))
	}
	return body
}
