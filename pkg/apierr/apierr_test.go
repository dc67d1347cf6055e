package apierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndError(t *testing.T) {
	err := New(EntityNotFound, "entity %s not found", "abc")
	assert.Equal(t, EntityNotFound, err.Kind)
	assert.Equal(t, "entity abc not found", err.Message)
	assert.Equal(t, "EntityNotFound: entity abc not found", err.Error())
}

func TestIsValidation(t *testing.T) {
	validation := []Kind{
		EntityNotFound, InvalidEntity, DuplicateID, DuplicateQualifiedName,
		InvalidEdge, WrongEntityType, DeleteInUsed, BadRequest, Forbidden,
	}
	for _, k := range validation {
		assert.True(t, k.IsValidation(), "%s should be a validation kind", k)
	}

	infra := []Kind{Fts, Internal}
	for _, k := range infra {
		assert.False(t, k.IsValidation(), "%s should not be a validation kind", k)
	}
}

func TestAsAPIErrorPassesThroughAPIError(t *testing.T) {
	original := New(DuplicateID, "entity %s already exists", "xyz")
	assert.Same(t, original, AsAPIError(original))
}

func TestAsAPIErrorCollapsesOtherErrors(t *testing.T) {
	err := AsAPIError(errors.New("boltdb: disk full"))
	assert.Equal(t, Internal, err.Kind)
	assert.Equal(t, "boltdb: disk full", err.Message)
}

func TestAsAPIErrorNil(t *testing.T) {
	assert.Nil(t, AsAPIError(nil))
}
