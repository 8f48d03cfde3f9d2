package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Relationship holds the schema definition for the Relationship entity.
//
// A directed edge between a client tenant and a vendor tenant. At most one
// active relationship may exist per (clientId, vendorId) pair — enforced by
// a partial unique index restricted to status=active.
type Relationship struct {
	ent.Schema
}

// Mixin of the Relationship.
func (Relationship) Mixin() []ent.Mixin {
	return []ent.Mixin{
		TimeMixin{},
	}
}

// Fields of the Relationship.
func (Relationship) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("client_id").
			Immutable().
			Comment("TC- tenant client id"),
		field.String("vendor_id").
			Immutable().
			Comment("TV- tenant vendor id"),
		field.Enum("status").
			Values("active", "inactive").
			Default("active"),
		field.Time("effective_from").
			Optional().
			Nillable(),
		field.Time("effective_to").
			Optional().
			Nillable(),
		field.JSON("metadata", map[string]interface{}{}).
			Optional(),
	}
}

// Indexes of the Relationship.
//
// The (client_id, vendor_id) unique index is partial (status = 'active'),
// so inactive relationships for the same pair may coexist while only one
// active one may.
func (Relationship) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("client_id", "vendor_id").
			Unique().
			Annotations(entsql.IndexWhere("status = 'active'")),
		index.Fields("client_id"),
		index.Fields("vendor_id"),
	}
}
