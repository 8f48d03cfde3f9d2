package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AuditChainEntry holds the schema definition for the AuditChainEntry
// entity — the global, append-only, hash-linked ledger of document events.
//
// Linkage shape (sequenceId as the causal clock, previousHash/chainHash as
// the hash chain) is grounded on the receipt-chain pattern used elsewhere in
// the example pack (PrevHash + LamportClock), adapted to the spec's
// documentId/payloadHash/metadata fields. Entries are never updated or
// deleted once written — enforced in internal/chain, not by DB grant alone.
type AuditChainEntry struct {
	ent.Schema
}

// Mixin of the AuditChainEntry.
func (AuditChainEntry) Mixin() []ent.Mixin {
	return []ent.Mixin{
		AuditMixin{},
	}
}

// Fields of the AuditChainEntry.
func (AuditChainEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.Int64("sequence_id").
			Immutable().
			Comment("strictly monotonic total order, starts at 1"),
		field.String("document_id").
			Immutable(),
		field.String("user_id").
			Immutable(),
		field.String("payload_hash").
			Immutable().
			Comment("sha256 hex supplied by the caller, never recomputed from bytes"),
		field.JSON("metadata", map[string]interface{}{}).
			Optional().
			Immutable(),
		field.String("previous_hash").
			Immutable().
			Comment("chainHash of sequenceId-1, or 64 hex zeros for seq 1"),
		field.String("chain_hash").
			Unique().
			Immutable().
			Comment("sha256(previousHash || payloadHash || canonicalJSON(metadata) || userId)"),
	}
}

// Indexes of the AuditChainEntry.
func (AuditChainEntry) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("sequence_id").Unique(),
		index.Fields("chain_hash").Unique(),
		index.Fields("document_id"),
	}
}
