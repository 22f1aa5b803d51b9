package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `validate:"required,max=5"`
	Type string `validate:"accounttype"`
	Kind string `validate:"omitempty,entrykind"`
	From int64  `validate:"gt=0"`
	To   int64  `validate:"gt=0,nefield=From"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(sample{Name: "Cash", Type: "asset", Kind: "CR", From: 1, To: 2})
	assert.NoError(t, err)
}

func TestStruct_FieldsError(t *testing.T) {
	err := Struct(sample{Name: "Too long name", Type: "cash", Kind: "XX", From: 3, To: 3})

	var fe *FieldsError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, map[string]string{
		"name": "name must be at most 5 characters",
		"type": "type must be one of: asset liability equity revenue expense",
		"kind": "kind must be one of: GJ CR CD",
		"to":   "to must differ from from",
	}, fe.Fields)
	assert.Contains(t, err.Error(), "name must be at most 5 characters")
}

func TestStruct_Required(t *testing.T) {
	err := Struct(sample{Type: "asset", From: 1, To: 2})

	var fe *FieldsError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "name is required", fe.Fields["name"])
}
