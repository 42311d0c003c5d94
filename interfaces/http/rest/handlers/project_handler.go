package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"treeservice/application/commands"
	"treeservice/application/commands/bus"
	"treeservice/application/queries"
	querybus "treeservice/application/queries/bus"
	pkgerrors "treeservice/pkg/errors"
)

// ProjectHandler handles projects and their model selection
type ProjectHandler struct {
	base
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler) *ProjectHandler {
	return &ProjectHandler{base{commandBus: commandBus, queryBus: queryBus, errors: errs}}
}

// ProjectRequest is the body of project create and rename
type ProjectRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// ModelRequest selects a model for a project
type ModelRequest struct {
	ModelID string `json:"modelId" validate:"required"`
}

// ListProjects handles GET /projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.ListProjectsQuery{UserID: userID(r)}, "Got projects")
}

// CreateProject handles POST /projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.send(w, r, commands.CreateProjectCommand{UserID: userID(r), Title: req.Title}, http.StatusCreated, "Project created succesfully")
}

// GetProject handles GET /projects/{projectID}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetProjectQuery{UserID: userID(r), ProjectID: chi.URLParam(r, "projectID")}, "Got project")
}

// UpdateProject handles PUT /projects/{projectID}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.send(w, r, commands.UpdateProjectCommand{
		UserID:    userID(r),
		ProjectID: chi.URLParam(r, "projectID"),
		Title:     req.Title,
	}, http.StatusOK, "Project updated")
}

// GetModel handles GET /projects/{projectID}/model
func (h *ProjectHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetProjectModelQuery{UserID: userID(r), ProjectID: chi.URLParam(r, "projectID")}, "Found model")
}

// SelectModel handles PUT /projects/{projectID}/model
func (h *ProjectHandler) SelectModel(w http.ResponseWriter, r *http.Request) {
	var req ModelRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.send(w, r, commands.SelectModelCommand{
		UserID:    userID(r),
		ProjectID: chi.URLParam(r, "projectID"),
		ModelID:   req.ModelID,
	}, http.StatusOK, "Updated project")
}

// ListModels handles GET /models
func (h *ProjectHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.ListModelsQuery{}, "Got models")
}
