// Package caseengine implements case creation, checklist management,
// status derivation, escalation, and decisioning (spec 4.G).
//
// Import path: aibos-vmp/core/internal/caseengine
package caseengine

// ChecklistRuleEntry describes one required checklist step for a case type.
type ChecklistRuleEntry struct {
	Label                string
	RequiredEvidenceType string
	SortOrder            int
}

// checklistRules is the fixed table of initial checklist steps per case
// type (spec 4.G). New case types extend this table, never the schema.
var checklistRules = map[string][]ChecklistRuleEntry{
	"onboarding": {
		{Label: "Bank letter", RequiredEvidenceType: "bank_letter", SortOrder: 0},
		{Label: "Tax certificate", RequiredEvidenceType: "tax_certificate", SortOrder: 1},
		{Label: "Compliance document", RequiredEvidenceType: "compliance_doc", SortOrder: 2},
	},
	"invoice": {
		{Label: "Invoice PDF", RequiredEvidenceType: "invoice_pdf", SortOrder: 0},
		{Label: "PO reference", RequiredEvidenceType: "po_reference", SortOrder: 1},
		{Label: "GRN reference", RequiredEvidenceType: "grn_reference", SortOrder: 2},
	},
	"payment": {
		{Label: "Remittance advice", RequiredEvidenceType: "remittance", SortOrder: 0},
	},
	"bank_change": {
		{Label: "Bank letter (new)", RequiredEvidenceType: "bank_letter", SortOrder: 0},
		{Label: "Authorization", RequiredEvidenceType: "authorization", SortOrder: 1},
	},
	// general, contract, compliance carry no mandatory checklist: cases are
	// free-form and resolved purely through messaging/manual close.
}

// RulesFor returns the checklist rule entries for caseType, or nil if the
// case type has no mandatory checklist.
func RulesFor(caseType string) []ChecklistRuleEntry {
	return checklistRules[caseType]
}
