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

// TreeHandler handles tree reads, writes and undo
type TreeHandler struct {
	base
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler) *TreeHandler {
	return &TreeHandler{base{commandBus: commandBus, queryBus: queryBus, errors: errs}}
}

// CreateTreeRequest is the body of POST /projects/{projectID}/trees
type CreateTreeRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// WriteTreeRequest is the body of PUT /projects/{projectID}/trees/{treeID}
type WriteTreeRequest struct {
	Title      string               `json:"title" validate:"required,max=200"`
	Nodes      []commands.NodeInput `json:"nodes" validate:"dive"`
	RootNodeID string               `json:"rootNodeId"`
}

// CreateTree handles POST /projects/{projectID}/trees
func (h *TreeHandler) CreateTree(w http.ResponseWriter, r *http.Request) {
	var req CreateTreeRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.send(w, r, commands.CreateTreeCommand{
		UserID:    userID(r),
		ProjectID: chi.URLParam(r, "projectID"),
		Title:     req.Title,
	}, http.StatusCreated, "Added tree")
}

// ListTrees handles GET /projects/{projectID}/trees
func (h *TreeHandler) ListTrees(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.ListTreesQuery{UserID: userID(r), ProjectID: chi.URLParam(r, "projectID")}, "Got trees succesfully.")
}

// GetTree handles GET /projects/{projectID}/trees/{treeID}
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetTreeQuery{
		UserID:    userID(r),
		ProjectID: chi.URLParam(r, "projectID"),
		TreeID:    chi.URLParam(r, "treeID"),
	}, "Found tree")
}

// WriteTree handles PUT /projects/{projectID}/trees/{treeID}
func (h *TreeHandler) WriteTree(w http.ResponseWriter, r *http.Request) {
	var req WriteTreeRequest
	if err := decodeBody(r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.send(w, r, commands.WriteTreeCommand{
		UserID:     userID(r),
		ProjectID:  chi.URLParam(r, "projectID"),
		TreeID:     chi.URLParam(r, "treeID"),
		Title:      req.Title,
		Nodes:      req.Nodes,
		RootNodeID: req.RootNodeID,
	}, http.StatusOK, "Found tree")
}

// UndoTree handles PUT /projects/{projectID}/trees/{treeID}/undo
func (h *TreeHandler) UndoTree(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, commands.UndoTreeCommand{
		UserID:    userID(r),
		ProjectID: chi.URLParam(r, "projectID"),
		TreeID:    chi.URLParam(r, "treeID"),
	}, http.StatusOK, "Found tree")
}

// GetDag handles GET /projects/{projectID}/trees/{treeID}/dag/{direction}
func (h *TreeHandler) GetDag(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetTreeDagQuery{
		UserID:    userID(r),
		ProjectID: chi.URLParam(r, "projectID"),
		TreeID:    chi.URLParam(r, "treeID"),
		Direction: chi.URLParam(r, "direction"),
	}, "Got relationship")
}

// GetNode handles GET /nodes/{nodeID}
func (h *TreeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetNodeQuery{NodeID: chi.URLParam(r, "nodeID")}, "Got node")
}
