package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"treeservice/application/commands"
	"treeservice/application/commands/bus"
	"treeservice/application/queries"
	querybus "treeservice/application/queries/bus"
	"treeservice/domain/core/valueobjects"
	pkgerrors "treeservice/pkg/errors"
)

// ConfigHandler handles configurations and the project's selection
type ConfigHandler struct {
	base
}

// NewConfigHandler creates a new configuration handler
func NewConfigHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler) *ConfigHandler {
	return &ConfigHandler{base{commandBus: commandBus, queryBus: queryBus, errors: errs}}
}

// ConfigRequest is the body of configuration create and replace
type ConfigRequest struct {
	Name       string                  `json:"name" validate:"max=200"`
	Attributes valueobjects.Attributes `json:"attributes"`
}

// SelectConfigRequest is the body of PUT /projects/{projectID}/config
type SelectConfigRequest struct {
	DesiredConfig string `json:"desiredConfig" validate:"required"`
}

// ListConfigs handles GET /projects/{projectID}/configs
func (h *ConfigHandler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.ListConfigsQuery{UserID: userID(r), ProjectID: chi.URLParam(r, "projectID")}, "Got configs")
}

// CreateConfig handles POST /projects/{projectID}/configs
func (h *ConfigHandler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.send(w, r, commands.CreateConfigCommand{
		UserID:     userID(r),
		ProjectID:  chi.URLParam(r, "projectID"),
		Name:       req.Name,
		Attributes: req.Attributes,
	}, http.StatusCreated, "Created config")
}

// GetConfig handles GET /projects/{projectID}/configs/{configID}
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetConfigQuery{
		UserID:    userID(r),
		ProjectID: chi.URLParam(r, "projectID"),
		ConfigID:  chi.URLParam(r, "configID"),
	}, "Got config")
}

// UpdateConfig handles PUT /projects/{projectID}/configs/{configID}
func (h *ConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.send(w, r, commands.UpdateConfigCommand{
		UserID:     userID(r),
		ProjectID:  chi.URLParam(r, "projectID"),
		ConfigID:   chi.URLParam(r, "configID"),
		Name:       req.Name,
		Attributes: req.Attributes,
	}, http.StatusOK, "Updated config")
}

// GetSelectedConfig handles GET /projects/{projectID}/config
func (h *ConfigHandler) GetSelectedConfig(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetSelectedConfigQuery{UserID: userID(r), ProjectID: chi.URLParam(r, "projectID")}, "Found selected config")
}

// SelectConfig handles PUT /projects/{projectID}/config
func (h *ConfigHandler) SelectConfig(w http.ResponseWriter, r *http.Request) {
	var req SelectConfigRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.send(w, r, commands.SelectConfigCommand{
		UserID:    userID(r),
		ProjectID: chi.URLParam(r, "projectID"),
		ConfigID:  req.DesiredConfig,
	}, http.StatusOK, "Found selected config")
}
