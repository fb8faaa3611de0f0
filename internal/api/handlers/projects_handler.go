package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/blueprintpro/estimator/internal/api/types"
	"github.com/blueprintpro/estimator/internal/api/validators"
	"github.com/blueprintpro/estimator/internal/estimate"
	"github.com/blueprintpro/estimator/internal/models"
	"github.com/blueprintpro/estimator/internal/orchestrator"
	"github.com/blueprintpro/estimator/internal/repository"
	"github.com/blueprintpro/estimator/internal/services"
	appErr "github.com/blueprintpro/estimator/pkg/errors"
)

type ProjectsHandler struct {
	svc services.ProjectService
}

func NewProjectsHandler(svc services.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{svc: svc}
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	filter := repository.ProjectFilter{Status: models.ProjectStatus(q.Get("status")), Page: page, PageSize: size}

	items, total, err := h.svc.ListProjects(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > repository.MaxPageSize {
		filter.PageSize = repository.DefaultPageSize
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    items,
		Meta:    &types.Meta{Page: filter.Page, PageSize: filter.PageSize, Total: total},
	})
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.ProjectCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validators.New().Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, validators.Message(err))
		return
	}

	p, err := h.svc.CreateProject(r.Context(), &services.CreateProjectInput{
		Name:               req.Name,
		Description:        req.Description,
		BlueprintURL:       req.BlueprintURL,
		Location:           req.Location,
		ExtractedData:      req.ExtractedData,
		MaterialSelections: req.MaterialSelections,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, p)
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.svc.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := projectDetail(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, detail)
}

func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.ProjectUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validators.New().Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, validators.Message(err))
		return
	}

	in := &services.UpdateProjectInput{
		Name:               req.Name,
		Description:        req.Description,
		BlueprintURL:       req.BlueprintURL,
		Location:           req.Location,
		ExtractedData:      req.ExtractedData,
		MaterialSelections: req.MaterialSelections,
	}
	if req.Status != nil {
		st := models.ProjectStatus(*req.Status)
		in.Status = &st
	}
	p, err := h.svc.UpdateProject(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteProject(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Analyze runs the provider chain on the stored blueprint. An exhausted
// chain answers with the same 502 body as the analysis relay.
func (h *ProjectsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.ProjectAnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validators.New().Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, validators.Message(err))
		return
	}

	p, err := h.svc.AnalyzeProject(r.Context(), id, choiceOf(req.ProviderOverrides))
	if err != nil {
		var all *orchestrator.AllProvidersFailedError
		if errors.As(err, &all) {
			writeJSON(w, http.StatusBadGateway, noProviderBody(all))
			return
		}
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

// Estimate generates and stores an estimate, or queues it with ?async=true.
func (h *ProjectsHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.EstimateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validators.New().Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, validators.Message(err))
		return
	}

	in := &services.EstimateInput{Provider: choiceOf(req.ProviderOverrides)}
	if req.StartDate != "" {
		d, err := models.ParseDate(req.StartDate)
		if err != nil {
			writeError(w, r, appErr.Invalid("invalid start_date"))
			return
		}
		in.StartDate = d
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		queued, err := h.svc.EnqueueEstimate(r.Context(), id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, r, http.StatusAccepted, types.EstimateQueued{
			ProjectID: queued.ProjectID.String(),
			TaskID:    queued.TaskID,
			Queue:     queued.Queue,
		})
		return
	}

	out, err := h.svc.GenerateEstimate(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, types.EstimateResponse{
		Project:  out.Project,
		Provider: string(out.Provider),
		Summary:  out.Summary,
	})
}

func choiceOf(o types.ProviderOverrides) services.ProviderChoice {
	return services.ProviderChoice{Preferred: o.Preferred(), Client: o.Credentials()}
}

func projectDetail(p *models.Project) (types.ProjectDetail, error) {
	detail := types.ProjectDetail{Project: p, ResumeStep: services.ResumeStep(p).String()}
	phases, err := p.GetPhases()
	if err != nil {
		return detail, appErr.Wrap(err, appErr.CodeInternal, "decode phase_estimates failed")
	}
	if len(phases) > 0 {
		s := estimate.Summarize(phases)
		detail.Summary = &s
	}
	return detail, nil
}
