package jobs

import (
	"context"
	"testing"

	entcase "aibos-vmp/core/ent/caserecord"
	"aibos-vmp/core/internal/testutil"
)

func TestInvoiceCaseIngestSink_UpsertIsIdempotent(t *testing.T) {
	t.Parallel()
	client := testutil.OpenEntPostgres(t, "jobs_ingest_invoice")
	ctx := context.Background()

	sink := NewInvoiceCaseIngestSink(client)
	row := InvoiceRow{
		ClientID: "TC-AAAA0000", VendorID: "TV-BBBB1111",
		InvoiceRef: "INV-1001", DisputedAmount: 150.25, DisputedCurrency: "USD",
		Subject: "Disputed invoice INV-1001",
	}

	if err := sink.Upsert(ctx, "INV-1001", row); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	row.DisputedAmount = 200.00
	if err := sink.Upsert(ctx, "INV-1001", row); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	rows, err := client.CaseRecord.Query().
		Where(entcase.CaseTypeEQ(entcase.CaseTypeInvoice), entcase.InvoiceRefEQ("INV-1001")).
		All(ctx)
	if err != nil {
		t.Fatalf("query case records: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one case record for invoice ref, got %d", len(rows))
	}
	if rows[0].DisputedAmount == nil || *rows[0].DisputedAmount != 200.00 {
		t.Fatalf("expected updated disputed amount 200.00, got %v", rows[0].DisputedAmount)
	}
}

func TestPaymentCaseIngestSink_CreatesNewCaseOnFirstSeen(t *testing.T) {
	t.Parallel()
	client := testutil.OpenEntPostgres(t, "jobs_ingest_payment")
	ctx := context.Background()

	sink := NewPaymentCaseIngestSink(client)
	row := PaymentRow{
		ClientID: "TC-AAAA0000", VendorID: "TV-BBBB1111",
		PaymentRef: "PAY-2002", DisputedAmount: 75.00, DisputedCurrency: "EUR",
		Subject: "Disputed payment PAY-2002",
	}

	if err := sink.Upsert(ctx, "PAY-2002", row); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	found, err := client.CaseRecord.Query().
		Where(entcase.CaseTypeEQ(entcase.CaseTypePayment), entcase.PaymentRefEQ("PAY-2002")).
		Only(ctx)
	if err != nil {
		t.Fatalf("query case record: %v", err)
	}
	if found.ClientID != row.ClientID || found.VendorID != row.VendorID {
		t.Fatalf("unexpected client/vendor ids on ingested case: %+v", found)
	}
}
