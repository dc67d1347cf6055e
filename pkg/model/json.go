package model

import (
	"encoding/json"
	"time"
)

func unixNano(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// entityWire is Entity's JSON envelope: Properties is an interface, so it is
// carried as a (type tag, raw payload) pair and reconstructed into the
// matching concrete *Props type on unmarshal. This is what lets a Raft
// snapshot (plain JSON, see pkg/raftstore) round-trip the polymorphic
// property set.
type entityWire struct {
	ID            ID              `json:"id"`
	Type          EntityType      `json:"type"`
	Name          string          `json:"name"`
	QualifiedName string          `json:"qualifiedName"`
	Properties    json.RawMessage `json:"properties"`
	CreatedBy     string          `json:"createdBy"`
	CreatedAt     int64           `json:"createdAtUnixNano"`
}

func (e *Entity) MarshalJSON() ([]byte, error) {
	props, err := json.Marshal(e.Properties)
	if err != nil {
		return nil, err
	}
	var createdAt int64
	if !e.CreatedAt.IsZero() {
		createdAt = e.CreatedAt.UnixNano()
	}
	return json.Marshal(entityWire{
		ID:            e.ID,
		Type:          e.Type,
		Name:          e.Name,
		QualifiedName: e.QualifiedName,
		Properties:    props,
		CreatedBy:     e.CreatedBy,
		CreatedAt:     createdAt,
	})
}

func (e *Entity) UnmarshalJSON(data []byte) error {
	var w entityWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.ID = w.ID
	e.Type = w.Type
	e.Name = w.Name
	e.QualifiedName = w.QualifiedName
	e.CreatedBy = w.CreatedBy
	e.CreatedAt = unixNano(w.CreatedAt)

	props, err := newProps(w.Type)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(w.Properties, props); err != nil {
		return err
	}
	e.Properties = props
	return nil
}

func newProps(t EntityType) (Properties, error) {
	switch t {
	case TypeProject:
		return &ProjectProps{}, nil
	case TypeSource:
		return &SourceProps{}, nil
	case TypeAnchor:
		return &AnchorProps{}, nil
	case TypeAnchorFeature:
		return &AnchorFeatureProps{}, nil
	case TypeDerivedFeature:
		return &DerivedFeatureProps{}, nil
	default:
		return nil, &unknownEntityTypeError{t}
	}
}

type unknownEntityTypeError struct{ t EntityType }

func (e *unknownEntityTypeError) Error() string {
	return "model: unknown entity type " + string(e.t)
}

// ID marshals/unmarshals as its textual UUID form, not as a byte array, so
// snapshots and wire payloads stay human-readable. MarshalText/UnmarshalText
// are what let encoding/json accept ID as a map key (as EntityLineage's
// GuidEntityMap does) — the JSON encoder only string-keys a map whose key
// type implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
