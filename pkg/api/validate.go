package api

import (
	"github.com/go-playground/validator/v10"

	"github.com/feathrgo/registry/pkg/apierr"
)

// validate is package-scoped and built once: one long-lived
// *validator.Validate reused across requests rather than constructed per
// call.
var validate = validator.New()

// Validate checks the creation-request payload for a writing Request before
// it is ever written to the Raft log, so an invalid payload never becomes a
// committed, replicated log entry. Reading requests carry nothing to
// validate beyond what the registry itself checks (entity existence, type),
// so Validate is a no-op for them.
func (r Request) Validate() error {
	var target any
	switch r.Op {
	case OpNewProject:
		target = r.ProjectDef
	case OpNewSource:
		target = r.SourceDef
	case OpNewAnchor:
		target = r.AnchorDef
	case OpNewAnchorFeature:
		target = r.AnchorFeatureDef
	case OpNewDerivedFeature:
		target = r.DerivedFeatureDef
	default:
		return nil
	}
	if target == nil {
		return apierr.New(apierr.BadRequest, "%s requires its definition payload", r.Op)
	}
	if err := validate.Struct(target); err != nil {
		return apierr.New(apierr.BadRequest, "invalid %s payload: %s", r.Op, err)
	}
	return nil
}
