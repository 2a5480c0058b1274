package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleItem struct {
	Title    string `json:"title" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

type samplePayload struct {
	ID    string       `json:"id" validate:"required"`
	Items []sampleItem `json:"line_items" validate:"required,min=1,dive"`
}

func TestValidateStructReportsJSONFieldPaths(t *testing.T) {
	err := ValidateStruct(samplePayload{
		ID:    "1",
		Items: []sampleItem{{Title: "Widget", Quantity: 0}},
	}, "Invalid order")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Invalid order", ve.Message)
	require.Len(t, ve.Fields, 1)
	assert.Equal(t, "line_items[0].quantity", ve.Fields[0].Field)
	assert.Equal(t, "must be at least 1", ve.Fields[0].Message)
}

func TestValidateStructPasses(t *testing.T) {
	assert.NoError(t, ValidateStruct(samplePayload{
		ID:    "1",
		Items: []sampleItem{{Title: "Widget", Quantity: 2}},
	}, "Invalid order"))
}
