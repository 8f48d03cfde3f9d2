package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// TimeMixin adds created_at/updated_at timestamps to an entity.
type TimeMixin struct {
	ent.Mixin
}

// Fields of the TimeMixin.
func (TimeMixin) Fields() []ent.Field {
	return []ent.Field{
		field.Time("created_at").
			Immutable().
			Default(time.Now).
			UpdateDefault(time.Now),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// AuditMixin adds a created_at-only timestamp for append-only tables.
type AuditMixin struct {
	ent.Mixin
}

// Fields of the AuditMixin.
func (AuditMixin) Fields() []ent.Field {
	return []ent.Field{
		field.Time("created_at").
			Immutable().
			Default(time.Now),
	}
}

// SoftDeleteMixin adds the tombstone fields spec §9 requires on
// tenants/users/cases/evidence. It declares no indexes, and the unique
// indexes of the schemas that embed it are not conditional on deleted_at:
// they cover tombstoned rows as well.
type SoftDeleteMixin struct {
	ent.Mixin
}

// Fields of the SoftDeleteMixin.
func (SoftDeleteMixin) Fields() []ent.Field {
	return []ent.Field{
		field.Time("deleted_at").
			Optional().
			Nillable(),
		field.String("deleted_by").
			Optional().
			Nillable(),
	}
}
