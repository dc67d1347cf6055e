package graph

import (
	"github.com/feathrgo/registry/pkg/apierr"
	"github.com/feathrgo/registry/pkg/model"
)

// Every creator below takes its new entity's id as a parameter rather than
// generating one internally: the id is assigned once by the node that
// originates the request, before the request enters the Raft log, so that
// every replica's FSM.Apply produces byte-identical state from the same log
// entry.

// NewProject creates a Project entity: the graph's own entry point, with no
// parent to Contain it.
func (r *Registry) NewProject(id model.ID, def model.ProjectDef, requestor string) (model.ID, error) {
	e := &model.Entity{
		ID:            id,
		Type:          model.TypeProject,
		Name:          def.QualifiedName,
		QualifiedName: def.QualifiedName,
		Properties:    &model.ProjectProps{QualifiedName: def.QualifiedName, Tags: def.Tags},
		CreatedBy:     requestor,
	}
	if err := r.InsertEntity(e); err != nil {
		return model.Nil, err
	}
	return id, nil
}

// NewSource creates a Source under projectID and connects it with
// Contains/BelongsTo.
func (r *Registry) NewSource(id, projectID model.ID, def model.SourceDef, requestor string) (model.ID, error) {
	project, err := r.requireType(projectID, model.TypeProject)
	if err != nil {
		return model.Nil, err
	}
	qn := def.QualifiedName
	if qn == "" {
		qn = model.QualifiedNameOf(project.QualifiedName, def.Name)
	}
	e := &model.Entity{
		ID:            id,
		Type:          model.TypeSource,
		Name:          def.Name,
		QualifiedName: qn,
		Properties: &model.SourceProps{
			QualifiedName:        qn,
			Path:                 def.Path,
			SourceType:           def.SourceType,
			Preprocessing:        def.Preprocessing,
			EventTimestampColumn: def.EventTimestampColumn,
			TimestampFormat:      def.TimestampFormat,
			Tags:                 def.Tags,
		},
		CreatedBy: requestor,
	}
	if err := r.InsertEntity(e); err != nil {
		return model.Nil, err
	}
	if err := r.Connect(projectID, id, model.Contains); err != nil {
		return model.Nil, err
	}
	return id, nil
}

// NewAnchor creates an Anchor under projectID, connected to its Source via
// Consumes.
func (r *Registry) NewAnchor(id, projectID model.ID, def model.AnchorDef, requestor string) (model.ID, error) {
	project, err := r.requireType(projectID, model.TypeProject)
	if err != nil {
		return model.Nil, err
	}
	if _, err := r.requireType(def.SourceID, model.TypeSource); err != nil {
		return model.Nil, err
	}
	qn := def.QualifiedName
	if qn == "" {
		qn = model.QualifiedNameOf(project.QualifiedName, def.Name)
	}
	e := &model.Entity{
		ID:            id,
		Type:          model.TypeAnchor,
		Name:          def.Name,
		QualifiedName: qn,
		Properties:    &model.AnchorProps{QualifiedName: qn, Tags: def.Tags},
		CreatedBy:     requestor,
	}
	if err := r.InsertEntity(e); err != nil {
		return model.Nil, err
	}
	if err := r.Connect(projectID, id, model.Contains); err != nil {
		return model.Nil, err
	}
	if err := r.Connect(id, def.SourceID, model.Consumes); err != nil {
		return model.Nil, err
	}
	return id, nil
}

// NewAnchorFeature creates an AnchorFeature under anchorID, itself under
// projectID, and connects it to the anchor's own Source via Consumes, if the
// anchor already has one.
func (r *Registry) NewAnchorFeature(id, projectID, anchorID model.ID, def model.AnchorFeatureDef, requestor string) (model.ID, error) {
	project, err := r.requireType(projectID, model.TypeProject)
	if err != nil {
		return model.Nil, err
	}
	anchor, err := r.requireType(anchorID, model.TypeAnchor)
	if err != nil {
		return model.Nil, err
	}
	qn := def.QualifiedName
	if qn == "" {
		qn = model.QualifiedNameOf(anchor.QualifiedName, def.Name)
	}
	e := &model.Entity{
		ID:            id,
		Type:          model.TypeAnchorFeature,
		Name:          def.Name,
		QualifiedName: qn,
		Properties: &model.AnchorFeatureProps{
			QualifiedName:  qn,
			Type:           def.FeatureType,
			Transformation: def.Transformation,
			Key:            def.Key,
			Tags:           def.Tags,
		},
		CreatedBy: requestor,
	}
	if err := r.InsertEntity(e); err != nil {
		return model.Nil, err
	}
	if err := r.Connect(projectID, id, model.Contains); err != nil {
		return model.Nil, err
	}
	if err := r.Connect(anchorID, id, model.Contains); err != nil {
		return model.Nil, err
	}
	if source := anchor.Properties.(*model.AnchorProps).Source; source != nil {
		if err := r.Connect(id, source.ID, model.Consumes); err != nil {
			return model.Nil, err
		}
	}
	return id, nil
}

// NewDerivedFeature creates a DerivedFeature under projectID, consuming a set
// of anchor-feature and derived-feature inputs. A derived feature that lists
// its own id among its derived-feature inputs is rejected with InvalidEdge; non-self cycles
// among derived features remain structurally legal per the edge validation
// matrix and are bounded at traversal time by a BFS size limit instead.
func (r *Registry) NewDerivedFeature(id, projectID model.ID, def model.DerivedFeatureDef, requestor string) (model.ID, error) {
	project, err := r.requireType(projectID, model.TypeProject)
	if err != nil {
		return model.Nil, err
	}
	for _, inputID := range def.InputAnchorFeatures {
		if _, err := r.requireType(inputID, model.TypeAnchorFeature); err != nil {
			return model.Nil, err
		}
	}
	for _, inputID := range def.InputDerivedFeatures {
		if inputID == id {
			return model.Nil, apierr.New(apierr.InvalidEdge, "a derived feature cannot consume itself")
		}
		if _, err := r.requireType(inputID, model.TypeDerivedFeature); err != nil {
			return model.Nil, err
		}
	}

	qn := def.QualifiedName
	if qn == "" {
		qn = model.QualifiedNameOf(project.QualifiedName, def.Name)
	}
	e := &model.Entity{
		ID:            id,
		Type:          model.TypeDerivedFeature,
		Name:          def.Name,
		QualifiedName: qn,
		Properties: &model.DerivedFeatureProps{
			QualifiedName:  qn,
			Type:           def.FeatureType,
			Transformation: def.Transformation,
			Key:            def.Key,
			Tags:           def.Tags,
		},
		CreatedBy: requestor,
	}
	if err := r.InsertEntity(e); err != nil {
		return model.Nil, err
	}
	if err := r.Connect(projectID, id, model.Contains); err != nil {
		return model.Nil, err
	}
	for _, inputID := range def.InputAnchorFeatures {
		if err := r.Connect(id, inputID, model.Consumes); err != nil {
			return model.Nil, err
		}
	}
	for _, inputID := range def.InputDerivedFeatures {
		if err := r.Connect(id, inputID, model.Consumes); err != nil {
			return model.Nil, err
		}
	}
	return id, nil
}

func (r *Registry) requireType(id model.ID, t model.EntityType) (*model.Entity, error) {
	e, err := r.GetEntity(id)
	if err != nil {
		return nil, err
	}
	if e.Type != t {
		return nil, apierr.New(apierr.WrongEntityType, "entity %s has type %s, want %s", id, e.Type, t)
	}
	return e, nil
}
