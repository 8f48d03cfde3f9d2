package jobs

import (
	"context"
	"fmt"

	"aibos-vmp/core/ent"
	entcase "aibos-vmp/core/ent/caserecord"
	"aibos-vmp/core/internal/idgen"
)

// InvoiceRow and PaymentRow are the natural-key-addressable rows an external
// CSV/feed ingest would hand to the sinks below. The CSV parsing itself is
// out of scope (spec Non-goals); these interfaces exist so that whatever
// ingest path is added later has an idempotent, upsert-by-natural-key
// contract to target instead of inventing its own.
type InvoiceRow struct {
	ClientID        string
	VendorID        string
	CompanyID       string
	InvoiceRef      string
	DisputedAmount  float64
	DisputedCurrency string
	Subject         string
}

type PaymentRow struct {
	ClientID         string
	VendorID         string
	CompanyID        string
	PaymentRef       string
	DisputedAmount   float64
	DisputedCurrency string
	Subject          string
}

// InvoiceIngestSink upserts one invoice-backed case keyed by naturalKey
// (the invoiceRef). Invoices have no dedicated entity (spec 4.K): a sink
// implementation writes/updates a CaseRecord with caseType=invoice.
type InvoiceIngestSink interface {
	Upsert(ctx context.Context, naturalKey string, row InvoiceRow) error
}

// PaymentIngestSink is InvoiceIngestSink's counterpart for caseType=payment.
type PaymentIngestSink interface {
	Upsert(ctx context.Context, naturalKey string, row PaymentRow) error
}

// caseRecordIngest is the shared ent-backed upsert both sink types below
// delegate to. It is unexported: Go cannot overload a single Upsert method
// across InvoiceRow and PaymentRow on one receiver, so InvoiceIngestSink and
// PaymentIngestSink are implemented by two thin wrapper types instead.
type caseRecordIngest struct {
	client *ent.Client
}

// InvoiceCaseIngestSink implements InvoiceIngestSink directly against ent,
// without going through internal/caseengine: ingest rows are
// system-originated and carry no principal to log a decision against.
type InvoiceCaseIngestSink struct{ caseRecordIngest }

// PaymentCaseIngestSink implements PaymentIngestSink the same way.
type PaymentCaseIngestSink struct{ caseRecordIngest }

// NewInvoiceCaseIngestSink constructs an InvoiceCaseIngestSink.
func NewInvoiceCaseIngestSink(client *ent.Client) *InvoiceCaseIngestSink {
	return &InvoiceCaseIngestSink{caseRecordIngest{client: client}}
}

// NewPaymentCaseIngestSink constructs a PaymentCaseIngestSink.
func NewPaymentCaseIngestSink(client *ent.Client) *PaymentCaseIngestSink {
	return &PaymentCaseIngestSink{caseRecordIngest{client: client}}
}

func (s *InvoiceCaseIngestSink) Upsert(ctx context.Context, naturalKey string, row InvoiceRow) error {
	return s.upsert(ctx, entcase.CaseTypeInvoice, naturalKey, row.ClientID, row.VendorID, row.CompanyID,
		row.InvoiceRef, "", row.DisputedAmount, row.DisputedCurrency, row.Subject)
}

func (s *PaymentCaseIngestSink) Upsert(ctx context.Context, naturalKey string, row PaymentRow) error {
	return s.upsert(ctx, entcase.CaseTypePayment, naturalKey, row.ClientID, row.VendorID, row.CompanyID,
		"", row.PaymentRef, row.DisputedAmount, row.DisputedCurrency, row.Subject)
}

func (s *caseRecordIngest) upsert(ctx context.Context, caseType entcase.CaseType, naturalKey, clientID, vendorID, companyID, invoiceRef, paymentRef string, amount float64, currency, subject string) error {
	var existing *ent.CaseRecord
	var err error
	switch caseType {
	case entcase.CaseTypeInvoice:
		existing, err = s.client.CaseRecord.Query().
			Where(entcase.CaseTypeEQ(caseType), entcase.InvoiceRefEQ(invoiceRef)).
			First(ctx)
	case entcase.CaseTypePayment:
		existing, err = s.client.CaseRecord.Query().
			Where(entcase.CaseTypeEQ(caseType), entcase.PaymentRefEQ(paymentRef)).
			First(ctx)
	}
	if err != nil && !ent.IsNotFound(err) {
		return fmt.Errorf("lookup existing %s case for natural key %s: %w", caseType, naturalKey, err)
	}

	if existing != nil {
		update := s.client.CaseRecord.UpdateOneID(existing.ID)
		if amount != 0 {
			update = update.SetDisputedAmount(amount)
		}
		if currency != "" {
			update = update.SetDisputedCurrency(currency)
		}
		if _, err := update.Save(ctx); err != nil {
			return fmt.Errorf("update ingested %s case %s: %w", caseType, existing.ID, err)
		}
		return nil
	}

	create := s.client.CaseRecord.Create().
		SetID(idgen.NewID("CASE", naturalKey)).
		SetClientID(clientID).
		SetVendorID(vendorID).
		SetCaseType(caseType).
		SetSubject(subject)
	if companyID != "" {
		create = create.SetCompanyID(companyID)
	}
	if invoiceRef != "" {
		create = create.SetInvoiceRef(invoiceRef)
	}
	if paymentRef != "" {
		create = create.SetPaymentRef(paymentRef)
	}
	if amount != 0 {
		create = create.SetDisputedAmount(amount)
	}
	if currency != "" {
		create = create.SetDisputedCurrency(currency)
	}
	if _, err := create.Save(ctx); err != nil {
		return fmt.Errorf("create ingested %s case for natural key %s: %w", caseType, naturalKey, err)
	}
	return nil
}

var (
	_ InvoiceIngestSink = (*InvoiceCaseIngestSink)(nil)
	_ PaymentIngestSink = (*PaymentCaseIngestSink)(nil)
)
