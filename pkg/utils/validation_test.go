package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "treeservice/pkg/errors"
)

type nodeBody struct {
	ID       string   `json:"id" validate:"required"`
	Children []string `json:"children" validate:"dive,required"`
}

type treeBody struct {
	Title string     `json:"title" validate:"required,max=10"`
	Nodes []nodeBody `json:"nodes" validate:"dive"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(treeBody{Title: "ok", Nodes: []nodeBody{{ID: "a", Children: []string{"b"}}}}))

	err := ValidateStruct(treeBody{Title: "", Nodes: []nodeBody{{ID: "", Children: []string{""}}}})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Contains(t, err.Error(), "title is required")
	assert.Contains(t, err.Error(), "nodes[0].id is required")
	assert.Contains(t, err.Error(), "nodes[0].children[0] is required")

	err = ValidateStruct(treeBody{Title: "much too long title"})
	assert.Contains(t, err.Error(), "title must be at most 10 characters")
}
