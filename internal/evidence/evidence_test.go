package evidence

import (
	"context"
	"sync"
	"testing"

	"aibos-vmp/core/ent"
	"aibos-vmp/core/ent/caserecord"
	"aibos-vmp/core/ent/checkliststep"
	"aibos-vmp/core/internal/authz"
	"aibos-vmp/core/internal/chain"
	"aibos-vmp/core/internal/idgen"
	"aibos-vmp/core/internal/principal"
	"aibos-vmp/core/internal/storage"
	"aibos-vmp/core/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *ent.Client, context.Context) {
	t.Helper()
	client := testutil.OpenEntPostgres(t, "evidence")
	svc := NewService(client, storage.NewMemoryGateway(), chain.New(client))
	return svc, client, context.Background()
}

func newCaseWithStep(t *testing.T, client *ent.Client, ctx context.Context) (caseID, stepID string) {
	t.Helper()
	row, err := client.CaseRecord.Create().
		SetID(idgen.NewID("CASE", "evidence-test")).
		SetClientID("TC-AAAA0000").
		SetVendorID("TV-BBBB1111").
		SetCaseType(caserecord.CaseTypeOnboarding).
		SetSubject("evidence test case").
		Save(ctx)
	if err != nil {
		t.Fatalf("create test case: %v", err)
	}

	step, err := client.ChecklistStep.Create().
		SetID(idgen.NewID("CHK", row.ID)).
		SetCaseID(row.ID).
		SetLabel("Bank letter").
		SetRequiredEvidenceType("bank_letter").
		Save(ctx)
	if err != nil {
		t.Fatalf("create checklist step: %v", err)
	}
	return row.ID, step.ID
}

func TestUploadEvidence_FirstUploadIsVersionOne(t *testing.T) {
	t.Parallel()
	svc, client, ctx := newTestService(t)
	caseID, stepID := newCaseWithStep(t, client, ctx)
	f := &authz.Filters{AllowedVendorIDs: []string{"TV-BBBB1111"}}

	row, err := svc.UploadEvidence(ctx, f, UploadInput{
		CaseID:          caseID,
		Bytes:           []byte("fake bank letter pdf bytes"),
		Filename:        "bank letter.pdf",
		MimeType:        "application/pdf",
		EvidenceType:    "bank_letter",
		ChecklistStepID: stepID,
		UploaderContext: "vendor",
		UploaderUserID:  "USR-VENDOR1",
	})
	if err != nil {
		t.Fatalf("UploadEvidence: %v", err)
	}
	if row.Version != 1 {
		t.Fatalf("expected version 1, got %d", row.Version)
	}

	step, err := client.ChecklistStep.Get(ctx, stepID)
	if err != nil {
		t.Fatalf("reload checklist step: %v", err)
	}
	if step.Status != checkliststep.StatusSubmitted {
		t.Fatalf("expected checklist step marked submitted, got %s", step.Status)
	}
}

func TestUploadEvidence_SecondUploadIncrementsVersion(t *testing.T) {
	t.Parallel()
	svc, client, ctx := newTestService(t)
	caseID, stepID := newCaseWithStep(t, client, ctx)
	f := &authz.Filters{AllowedVendorIDs: []string{"TV-BBBB1111"}}

	in := UploadInput{
		CaseID:          caseID,
		Filename:        "bank letter.pdf",
		MimeType:        "application/pdf",
		EvidenceType:    "bank_letter",
		ChecklistStepID: stepID,
		UploaderContext: "vendor",
		UploaderUserID:  "USR-VENDOR1",
	}

	in.Bytes = []byte("first attempt")
	first, err := svc.UploadEvidence(ctx, f, in)
	if err != nil {
		t.Fatalf("first UploadEvidence: %v", err)
	}

	in.Bytes = []byte("corrected attempt")
	second, err := svc.UploadEvidence(ctx, f, in)
	if err != nil {
		t.Fatalf("second UploadEvidence: %v", err)
	}

	if second.Version != first.Version+1 {
		t.Fatalf("expected version %d, got %d", first.Version+1, second.Version)
	}
}

func TestUploadEvidence_RejectsEmptyFile(t *testing.T) {
	t.Parallel()
	svc, client, ctx := newTestService(t)
	caseID, stepID := newCaseWithStep(t, client, ctx)
	f := &authz.Filters{AllowedVendorIDs: []string{"TV-BBBB1111"}}

	_, err := svc.UploadEvidence(ctx, f, UploadInput{
		CaseID:          caseID,
		Filename:        "empty.pdf",
		MimeType:        "application/pdf",
		EvidenceType:    "bank_letter",
		ChecklistStepID: stepID,
		UploaderContext: "vendor",
	})
	if err == nil {
		t.Fatal("expected error uploading empty file")
	}
}

func TestUploadEvidence_RejectsCaseOutsideFilters(t *testing.T) {
	t.Parallel()
	svc, client, ctx := newTestService(t)
	caseID, stepID := newCaseWithStep(t, client, ctx)
	f := &authz.Filters{AllowedVendorIDs: []string{"TV-OTHERVENDOR"}}

	_, err := svc.UploadEvidence(ctx, f, UploadInput{
		CaseID:          caseID,
		Bytes:           []byte("should not be allowed"),
		Filename:        "bank letter.pdf",
		MimeType:        "application/pdf",
		EvidenceType:    "bank_letter",
		ChecklistStepID: stepID,
		UploaderContext: "vendor",
	})
	if err == nil {
		t.Fatal("expected error when filters do not cover the case's vendor")
	}
}

func TestUploadEvidence_ConcurrentUploadsSerializeVersionAllocation(t *testing.T) {
	t.Parallel()
	svc, client, ctx := newTestService(t)
	caseID, stepID := newCaseWithStep(t, client, ctx)
	f := &authz.Filters{AllowedVendorIDs: []string{"TV-BBBB1111"}}

	var wg sync.WaitGroup
	rows := make([]*ent.Evidence, 2)
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rows[i], errs[i] = svc.UploadEvidence(ctx, f, UploadInput{
				CaseID:          caseID,
				Bytes:           []byte("concurrent upload"),
				Filename:        "bank letter.pdf",
				MimeType:        "application/pdf",
				EvidenceType:    "bank_letter",
				ChecklistStepID: stepID,
				UploaderContext: "vendor",
				UploaderUserID:  "USR-VENDOR1",
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent upload %d: %v", i, err)
		}
	}

	versions := map[int]bool{rows[0].Version: true, rows[1].Version: true}
	if len(versions) != 2 || !versions[1] || !versions[2] {
		t.Fatalf("expected concurrent uploads to land on versions 1 and 2, got %d and %d", rows[0].Version, rows[1].Version)
	}
}

func TestGetEvidenceURL_DeniesOutOfScopeTenant(t *testing.T) {
	t.Parallel()
	svc, client, ctx := newTestService(t)
	caseID, stepID := newCaseWithStep(t, client, ctx)
	uploaderFilters := &authz.Filters{AllowedVendorIDs: []string{"TV-BBBB1111"}}

	row, err := svc.UploadEvidence(ctx, uploaderFilters, UploadInput{
		CaseID:          caseID,
		Bytes:           []byte("bank letter bytes"),
		Filename:        "bank letter.pdf",
		MimeType:        "application/pdf",
		EvidenceType:    "bank_letter",
		ChecklistStepID: stepID,
		UploaderContext: "vendor",
		UploaderUserID:  "USR-VENDOR1",
	})
	if err != nil {
		t.Fatalf("UploadEvidence: %v", err)
	}

	p := &principal.Principal{UserID: "USR-OTHER", TenantID: "TNT-OTHER0000", ActiveContext: principal.ContextClient}
	f := &authz.Filters{AllowedTenantID: p.TenantID}

	if _, err := svc.GetEvidenceURL(ctx, f, p, row.ID); err == nil {
		t.Fatal("expected error for a tenant outside the case's allowed set")
	}
}
