package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Evidence holds the schema definition for the Evidence entity.
//
// (caseId, evidenceType, version) is unique; version = 1 + max existing for
// that pair. Storage keys are never reused (internal/storage.Gateway
// enforces the write-once guarantee at the blob layer).
type Evidence struct {
	ent.Schema
}

// Mixin of the Evidence.
func (Evidence) Mixin() []ent.Mixin {
	return []ent.Mixin{
		TimeMixin{},
		SoftDeleteMixin{},
	}
}

// Fields of the Evidence.
func (Evidence) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("case_id").
			Immutable(),
		field.String("checklist_step_id").
			Optional().
			Nillable(),
		field.String("evidence_type").
			NotEmpty().
			Immutable(),
		field.Int("version").
			Immutable().
			Min(1),
		field.String("filename").
			NotEmpty().
			MaxLen(512),
		field.String("storage_key").
			Unique().
			Immutable(),
		field.String("mime_type").
			NotEmpty(),
		field.Int64("size_bytes").
			Min(0),
		field.String("content_hash").
			Immutable().
			Comment("sha256 hex of uploaded bytes"),
		field.Enum("uploader_context").
			Values("vendor", "internal", "system").
			Immutable(),
		field.Enum("status").
			Values("submitted", "verified", "rejected").
			Default("submitted"),
	}
}

// Edges of the Evidence.
func (Evidence) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("case", CaseRecord.Type).
			Ref("evidence").
			Field("case_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Evidence.
func (Evidence) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("case_id", "evidence_type", "version").Unique(),
		index.Fields("storage_key").Unique(),
		index.Fields("checklist_step_id"),
	}
}
