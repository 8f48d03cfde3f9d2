// Package chain implements the append-only, hash-linked audit chain
// (spec 4.C). A single global chain shard is used; the design notes'
// per-shard advisory-lock scheme (option ii) is followed exactly — grounded
// on the teacher's transactional withTx helper from usecase/create_vm.go.
//
// Import path: aibos-vmp/core/internal/chain
package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/ent/auditchainentry"
	apperrors "aibos-vmp/core/internal/pkg/errors"
	"aibos-vmp/core/internal/pkg/logger"
	"aibos-vmp/core/internal/pkg/metrics"
)

// GenesisHash is the previousHash for sequenceId 1: 64 hex zeros.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// globalShardLockKey is the advisory-lock key for the single global chain.
// A sharded implementation would derive this from a tenant or document
// partition key instead of a constant.
const globalShardLockKey int64 = 0x564D505F4348414E // "VMP_CHAN" in hex, truncated to int64 range

// maxAppendRetries bounds retries of advisory-lock Conflict per spec §7
// ("retried up to N times, N>=3") — mirrors the teacher's River
// MaxAttempts: 3 convention.
const maxAppendRetries = 3

// Chain wraps the ent client for the document-event ledger.
type Chain struct {
	client *ent.Client
}

// New constructs a Chain backed by client.
func New(client *ent.Client) *Chain {
	return &Chain{client: client}
}

// Entry is the caller-facing view of an audit chain row.
type Entry struct {
	ID           string
	SequenceID   int64
	DocumentID   string
	UserID       string
	PayloadHash  string
	Metadata     map[string]interface{}
	PreviousHash string
	ChainHash    string
	CreatedAt    time.Time
}

// LogEvent appends one entry to the chain. The caller supplies payloadHash;
// the chain never re-reads file bytes. Concurrency is serialized via a
// Postgres advisory transaction lock keyed by the chain shard, retried on
// contention per spec §7.
func (c *Chain) LogEvent(ctx context.Context, documentID, userID, payloadHash string, metadata map[string]interface{}) (*Entry, error) {
	var entry *Entry
	var err error

	for attempt := 0; attempt <= maxAppendRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
			}
		}
		entry, err = c.appendOnce(ctx, documentID, userID, payloadHash, metadata)
		if err == nil {
			metrics.ChainEntriesAppended.Inc()
			return entry, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		logger.Warn("chain append conflict, retrying",
			zap.Int("attempt", attempt),
			zap.String("document_id", documentID),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("chain append: exhausted %d retries: %w", maxAppendRetries, err)
}

func (c *Chain) appendOnce(ctx context.Context, documentID, userID, payloadHash string, metadata map[string]interface{}) (*Entry, error) {
	tx, err := c.client.Tx(ctx)
	if err != nil {
		return nil, apperrors.Unavailablef("begin chain transaction: %v", err)
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", globalShardLockKey); err != nil {
		_ = tx.Rollback()
		return nil, apperrors.Chainf("acquire chain lock: %v", err)
	}

	tail, err := tx.AuditChainEntry.Query().
		Order(ent.Desc(auditchainentry.FieldSequenceID)).
		First(ctx)

	var nextSeq int64 = 1
	prevHash := GenesisHash
	if err == nil {
		nextSeq = tail.SequenceID + 1
		prevHash = tail.ChainHash
	} else if !ent.IsNotFound(err) {
		_ = tx.Rollback()
		return nil, apperrors.Chainf("read chain tail: %v", err)
	}

	chainHash := computeChainHash(prevHash, payloadHash, metadata, userID)

	row, err := tx.AuditChainEntry.Create().
		SetID(fmt.Sprintf("audit-%d", nextSeq)).
		SetSequenceID(nextSeq).
		SetDocumentID(documentID).
		SetUserID(userID).
		SetPayloadHash(payloadHash).
		SetNillableMetadata(metadataOrNil(metadata)).
		SetPreviousHash(prevHash).
		SetChainHash(chainHash).
		Save(ctx)
	if err != nil {
		_ = tx.Rollback()
		if ent.IsConstraintError(err) {
			return nil, apperrors.Conflictf("chain tail moved concurrently: %v", err)
		}
		return nil, apperrors.Chainf("insert chain entry: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Chainf("commit chain entry: %v", err)
	}

	return &Entry{
		ID:           row.ID,
		SequenceID:   row.SequenceID,
		DocumentID:   row.DocumentID,
		UserID:       row.UserID,
		PayloadHash:  row.PayloadHash,
		Metadata:     row.Metadata,
		PreviousHash: row.PreviousHash,
		ChainHash:    row.ChainHash,
		CreatedAt:    row.CreatedAt,
	}, nil
}

// computeChainHash is a pure function of its inputs — client-supplied chain
// hashes are never accepted.
func computeChainHash(previousHash, payloadHash string, metadata map[string]interface{}, userID string) string {
	canonical, _ := json.Marshal(metadata) // nil metadata marshals to "null", which is fine and deterministic
	h := sha256.New()
	h.Write([]byte(previousHash))
	h.Write([]byte(payloadHash))
	h.Write(canonical)
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}

func metadataOrNil(m map[string]interface{}) *map[string]interface{} {
	if m == nil {
		return nil
	}
	return &m
}

// Verification is the outcome of VerifyChain.
type Verification struct {
	Valid    bool
	BrokenAt int64
	Reason   string
}

// VerifyChain scans the chain in sequenceId order and recomputes every
// hash, returning the first point of divergence if any.
func (c *Chain) VerifyChain(ctx context.Context) (*Verification, error) {
	entries, err := c.client.AuditChainEntry.Query().
		Order(ent.Asc(auditchainentry.FieldSequenceID)).
		All(ctx)
	if err != nil {
		return nil, apperrors.Chainf("scan chain: %v", err)
	}

	expectedSeq := int64(1)
	expectedPrev := GenesisHash

	for _, e := range entries {
		if e.SequenceID != expectedSeq {
			return &Verification{Valid: false, BrokenAt: e.SequenceID, Reason: "sequence gap"}, nil
		}
		if e.PreviousHash != expectedPrev {
			return &Verification{Valid: false, BrokenAt: e.SequenceID, Reason: "previous hash mismatch"}, nil
		}
		want := computeChainHash(e.PreviousHash, e.PayloadHash, e.Metadata, e.UserID)
		if want != e.ChainHash {
			return &Verification{Valid: false, BrokenAt: e.SequenceID, Reason: "chain hash mismatch"}, nil
		}

		expectedSeq++
		expectedPrev = e.ChainHash
	}

	return &Verification{Valid: true}, nil
}

func isRetryable(err error) bool {
	appErr, ok := apperrors.IsAppError(err)
	return ok && appErr.Kind == apperrors.KindConflict
}
