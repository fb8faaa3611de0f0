package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blueprintpro/estimator/internal/api/middleware"
	"github.com/blueprintpro/estimator/internal/api/types"
	appErr "github.com/blueprintpro/estimator/pkg/errors"
	"github.com/blueprintpro/estimator/pkg/logger"
)

// maxBodyBytes bounds request bodies; blueprint data URLs can be large.
const maxBodyBytes = 10 << 20

var errBadJSON = errors.New("invalid json")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err in the envelope with the status its code maps to.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := appErr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, types.APIResponse{Success: false, Error: types.FromAppError(err), Meta: requestMeta(r)})
}

func writeErrorStr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: &types.APIError{Code: string(appErr.CodeInvalid), Message: msg}})
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, types.APIResponse{Success: true, Data: data, Meta: requestMeta(r)})
}

func requestMeta(r *http.Request) *types.Meta {
	id := middleware.GetRequestID(r.Context())
	if id == "" {
		return nil
	}
	return &types.Meta{RequestID: id}
}

// decodeJSON reads a bounded JSON body into dest. An empty body leaves dest untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return errBadJSON
	}
	return nil
}

func projectID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, appErr.Invalid("invalid project id")
	}
	return id, nil
}
