// Package evidence implements file upload, versioning, and signed
// retrieval for case evidence (spec 4.I).
//
// Import path: aibos-vmp/core/internal/evidence
package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"regexp"
	"time"

	"go.uber.org/zap"

	"aibos-vmp/core/ent"
	entcase "aibos-vmp/core/ent/caserecord"
	"aibos-vmp/core/ent/checkliststep"
	"aibos-vmp/core/ent/evidence"
	"aibos-vmp/core/internal/authz"
	"aibos-vmp/core/internal/caseengine"
	"aibos-vmp/core/internal/chain"
	"aibos-vmp/core/internal/idgen"
	apperrors "aibos-vmp/core/internal/pkg/errors"
	"aibos-vmp/core/internal/pkg/logger"
	"aibos-vmp/core/internal/pkg/metrics"
	"aibos-vmp/core/internal/principal"
	"aibos-vmp/core/internal/storage"
)

// maxEvidenceVersionRetries bounds retries of a per-case advisory-lock
// Conflict during version allocation, mirroring internal/chain's
// maxAppendRetries convention.
const maxEvidenceVersionRetries = 3

// evidenceLockKey derives a per-case Postgres advisory-lock key, the
// per-document analogue of chain.go's single globalShardLockKey constant.
func evidenceLockKey(caseID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(caseID))
	return int64(h.Sum64())
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Service implements UploadEvidence/GetEvidenceURL/Verify/Reject (spec 4.I).
type Service struct {
	client  *ent.Client
	storage storage.Gateway
	chain   *chain.Chain
}

// NewService constructs a Service.
func NewService(client *ent.Client, gateway storage.Gateway, ch *chain.Chain) *Service {
	return &Service{client: client, storage: gateway, chain: ch}
}

// UploadInput is the input to UploadEvidence.
type UploadInput struct {
	CaseID          string
	Bytes           []byte
	Filename        string
	MimeType        string
	EvidenceType    string
	ChecklistStepID string
	UploaderContext string
	UploaderUserID  string
	RemoteIP        string
}

var sanitizeRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeFilename(name string) string {
	cleaned := sanitizeRe.ReplaceAllString(name, "_")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

// UploadEvidence implements spec 4.I's nine-step sequence: hash, version,
// storage key, Put, insert row, mark checklist step, chain log, status
// derivation — with best-effort blob cleanup if any step after Put fails.
//
// Version allocation and the row insert are serialized per caseId by a
// Postgres advisory transaction lock (the same pattern as
// internal/chain.appendOnce, generalized to a per-case key instead of the
// chain's single global shard): two concurrent uploads for the same
// (caseId, evidenceType) never race the same version number, and the loser
// of a rare allocation conflict retries rather than failing outright.
func (s *Service) UploadEvidence(ctx context.Context, f *authz.Filters, in UploadInput) (*ent.Evidence, error) {
	if len(in.Bytes) == 0 {
		return nil, apperrors.Validation(apperrors.CodeValidationFailed, "file is empty")
	}

	caseRow, err := s.client.CaseRecord.Get(ctx, in.CaseID)
	if err != nil {
		return nil, apperrors.CaseNotFoundOrForbidden()
	}
	if !f.AllowsTenant(caseRow.ClientID) && !f.AllowsVendor(caseRow.VendorID) {
		return nil, apperrors.CaseNotFoundOrForbidden()
	}
	if !f.AllowsCompany(derefString(caseRow.CompanyID)) {
		return nil, apperrors.CaseNotFoundOrForbidden()
	}

	sum := sha256.Sum256(in.Bytes)
	contentHash := hex.EncodeToString(sum[:])

	var row *ent.Evidence
	var storageKey string
	for attempt := 0; attempt <= maxEvidenceVersionRetries; attempt++ {
		row, storageKey, err = s.allocateVersionAndStore(ctx, in, contentHash)
		if err == nil {
			break
		}
		if !isRetryableConflict(err) {
			return nil, err
		}
		logger.Warn("evidence version allocation conflict, retrying",
			zap.Int("attempt", attempt),
			zap.String("case_id", in.CaseID),
			zap.String("evidence_type", in.EvidenceType),
			zap.Error(err))
	}
	if err != nil {
		return nil, fmt.Errorf("upload evidence: exhausted %d version-allocation retries: %w", maxEvidenceVersionRetries, err)
	}

	if err := s.finishUpload(ctx, in, row, contentHash); err != nil {
		if delErr := s.storage.Delete(ctx, storageKey); delErr != nil {
			logger.Warn("best-effort evidence blob cleanup failed",
				zap.String("storage_key", storageKey), zap.Error(delErr))
		}
		return nil, err
	}
	metrics.EvidenceUploads.WithLabelValues(in.EvidenceType).Inc()
	return row, nil
}

// allocateVersionAndStore acquires the per-case advisory lock, reads the
// latest version for (caseId, evidenceType), puts the blob under the
// resulting storage key, and inserts the Evidence row — all inside one
// ent.Tx, so a concurrent uploader targeting the same pair either waits on
// the lock or, on the rare unique-index race, surfaces a retryable Conflict
// instead of an unhandled constraint violation.
func (s *Service) allocateVersionAndStore(ctx context.Context, in UploadInput, contentHash string) (*ent.Evidence, string, error) {
	tx, err := s.client.Tx(ctx)
	if err != nil {
		return nil, "", apperrors.Unavailablef("begin evidence transaction: %v", err)
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", evidenceLockKey(in.CaseID)); err != nil {
		_ = tx.Rollback()
		return nil, "", apperrors.Storagef("acquire evidence case lock: %v", err)
	}

	latest, err := tx.Evidence.Query().
		Where(evidence.CaseIDEQ(in.CaseID), evidence.EvidenceTypeEQ(in.EvidenceType)).
		Order(ent.Desc(evidence.FieldVersion)).
		First(ctx)
	version := 1
	if err == nil {
		version = latest.Version + 1
	} else if !ent.IsNotFound(err) {
		_ = tx.Rollback()
		return nil, "", apperrors.Internalf("query latest evidence version: %v", err)
	}

	storageKey := fmt.Sprintf("%s/%s/%s/v%d_%s",
		in.CaseID, in.EvidenceType, time.Now().UTC().Format("2006-01-02"), version, sanitizeFilename(in.Filename))

	if err := s.storage.Put(ctx, storageKey, in.Bytes, in.MimeType); err != nil {
		_ = tx.Rollback()
		return nil, "", apperrors.Storagef("put evidence blob: %v", err)
	}

	create := tx.Evidence.Create().
		SetID(idgen.NewID("EVD", in.CaseID)).
		SetCaseID(in.CaseID).
		SetEvidenceType(in.EvidenceType).
		SetVersion(version).
		SetFilename(in.Filename).
		SetStorageKey(storageKey).
		SetMimeType(in.MimeType).
		SetSizeBytes(int64(len(in.Bytes))).
		SetContentHash(contentHash).
		SetUploaderContext(evidence.UploaderContext(in.UploaderContext))
	if in.ChecklistStepID != "" {
		create = create.SetChecklistStepID(in.ChecklistStepID)
	}

	row, err := create.Save(ctx)
	if err != nil {
		_ = tx.Rollback()
		if delErr := s.storage.Delete(ctx, storageKey); delErr != nil {
			logger.Warn("best-effort evidence blob cleanup after version conflict failed",
				zap.String("storage_key", storageKey), zap.Error(delErr))
		}
		if ent.IsConstraintError(err) {
			return nil, "", apperrors.Conflictf("evidence version allocated concurrently: %v", err)
		}
		return nil, "", apperrors.Internalf("insert evidence row: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", apperrors.Internalf("commit evidence row: %v", err)
	}
	return row, storageKey, nil
}

func isRetryableConflict(err error) bool {
	appErr, ok := apperrors.IsAppError(err)
	return ok && appErr.Kind == apperrors.KindConflict
}

// finishUpload marks the checklist step submitted, appends a chain entry,
// and re-derives case status — steps that follow the locked version
// allocation but do not themselves need the per-case lock.
func (s *Service) finishUpload(ctx context.Context, in UploadInput, row *ent.Evidence, contentHash string) error {
	if in.ChecklistStepID != "" {
		if _, err := s.client.ChecklistStep.UpdateOneID(in.ChecklistStepID).
			SetStatus(checkliststep.StatusSubmitted).
			Save(ctx); err != nil {
			return apperrors.Internalf("mark checklist step submitted: %v", err)
		}
	}

	if s.chain != nil {
		if _, err := s.chain.LogEvent(ctx, in.CaseID, in.UploaderUserID, contentHash, map[string]interface{}{
			"action":       "UPLOAD",
			"caseId":       in.CaseID,
			"evidenceType": in.EvidenceType,
			"version":      row.Version,
			"ip":           in.RemoteIP,
		}); err != nil {
			return apperrors.Chainf("log evidence upload: %v", err)
		}
	}

	return s.recomputeCaseStatus(ctx, in.CaseID)
}

func (s *Service) recomputeCaseStatus(ctx context.Context, caseID string) error {
	steps, err := s.client.ChecklistStep.Query().
		Where(checkliststep.CaseIDEQ(caseID)).
		All(ctx)
	if err != nil {
		return apperrors.Internalf("load checklist steps: %v", err)
	}

	statuses := make([]string, len(steps))
	for i, st := range steps {
		statuses[i] = string(st.Status)
	}

	newStatus := caseengine.DeriveStatus(statuses)
	if newStatus == "" {
		return nil
	}

	if _, err := s.client.CaseRecord.UpdateOneID(caseID).
		SetStatus(entcase.Status(newStatus)).
		Save(ctx); err != nil {
		return apperrors.Internalf("update case status: %v", err)
	}
	return nil
}

// GetEvidenceURL validates authorization via authz.Filters, logs a
// DOWNLOAD chain entry, and returns a signed URL capped at one hour
// (spec 4.I), regardless of the storage gateway's own ceiling.
func (s *Service) GetEvidenceURL(ctx context.Context, f *authz.Filters, p *principal.Principal, evidenceID string) (string, error) {
	row, err := s.client.Evidence.Get(ctx, evidenceID)
	if err != nil {
		return "", apperrors.NotFoundf("evidence not found")
	}

	caseRow, err := s.client.CaseRecord.Get(ctx, row.CaseID)
	if err != nil {
		return "", apperrors.NotFoundf("case not found")
	}
	if !f.AllowsTenant(caseRow.ClientID) && !f.AllowsVendor(caseRow.VendorID) {
		return "", apperrors.CaseNotFoundOrForbidden()
	}
	if !f.AllowsCompany(derefString(caseRow.CompanyID)) {
		return "", apperrors.CaseNotFoundOrForbidden()
	}

	if s.chain != nil {
		if _, err := s.chain.LogEvent(ctx, row.CaseID, p.UserID, row.ContentHash, map[string]interface{}{
			"action":     "DOWNLOAD",
			"evidenceId": evidenceID,
			"storageKey": row.StorageKey,
		}); err != nil {
			return "", apperrors.Chainf("log evidence download: %v", err)
		}
	}

	url, err := s.storage.GetSignedURL(ctx, row.StorageKey, time.Hour)
	if err != nil {
		return "", apperrors.Storagef("sign evidence url: %v", err)
	}
	return url, nil
}
