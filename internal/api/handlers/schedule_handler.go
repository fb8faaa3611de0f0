package handlers

import (
	"net/http"

	"github.com/blueprintpro/estimator/internal/api/types"
	"github.com/blueprintpro/estimator/internal/api/validators"
	"github.com/blueprintpro/estimator/internal/models"
	"github.com/blueprintpro/estimator/internal/schedule"
)

// ScheduleHandler derives a schedule from posted phases without storing anything.
type ScheduleHandler struct{}

func NewScheduleHandler() *ScheduleHandler { return &ScheduleHandler{} }

func (h *ScheduleHandler) Derive(w http.ResponseWriter, r *http.Request) {
	var req types.ScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validators.New().Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, validators.Message(err))
		return
	}
	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid start_date")
		return
	}
	writeData(w, r, http.StatusOK, schedule.Derive(req.Phases, start, req.TotalDurationDays))
}
