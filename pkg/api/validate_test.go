package api

import (
	"testing"

	"github.com/feathrgo/registry/pkg/apierr"
	"github.com/feathrgo/registry/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsCompletePayload(t *testing.T) {
	req := Request{Op: OpNewProject, ProjectDef: &model.ProjectDef{QualifiedName: "proj"}}
	assert.NoError(t, req.Validate())
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	req := Request{Op: OpNewProject, ProjectDef: &model.ProjectDef{}}
	err := req.Validate()
	require.Error(t, err)
	assert.Equal(t, apierr.BadRequest, apierr.AsAPIError(err).Kind)
}

func TestValidateRejectsMissingDefEntirely(t *testing.T) {
	req := Request{Op: OpNewSource}
	err := req.Validate()
	require.Error(t, err)
	assert.Equal(t, apierr.BadRequest, apierr.AsAPIError(err).Kind)
}

func TestValidateIsNoopForReadingRequests(t *testing.T) {
	req := Request{Op: OpGetEntity}
	assert.NoError(t, req.Validate())
}
