package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"treeservice/application/commands/bus"
	querybus "treeservice/application/queries/bus"
	"treeservice/pkg/common"
	pkgerrors "treeservice/pkg/errors"
	"treeservice/pkg/utils"
)

// base carries what every handler needs
type base struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
}

// decodeBody reads a JSON body into dst and runs its validation tags
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.NewRequestTooLargeError(tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return pkgerrors.NewValidationError("request body is required")
		}
		return pkgerrors.NewValidationError("invalid request body: " + err.Error())
	}
	return utils.ValidateStruct(dst)
}

// userID returns the caller set by the identity middleware, or ""
func userID(r *http.Request) string {
	id, _ := common.GetUserID(r.Context())
	return id
}

func (b base) send(w http.ResponseWriter, r *http.Request, cmd bus.Command, status int, message string) {
	result, err := b.commandBus.Send(r.Context(), cmd)
	if err != nil {
		b.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, status, message, result)
}

func (b base) ask(w http.ResponseWriter, r *http.Request, q querybus.Query, message string) {
	result, err := b.queryBus.Ask(r.Context(), q)
	if err != nil {
		b.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, message, result)
}
