package caseengine

// StepStatus mirrors ent/checkliststep.Status's values, kept as plain
// strings here so the derivation function has no ent dependency.
const (
	StepPending   = "pending"
	StepSubmitted = "submitted"
	StepVerified  = "verified"
	StepRejected  = "rejected"
	StepWaived    = "waived"
)

// DeriveStatus implements spec 4.G's status derivation pseudocode as a pure
// function: given the current checklist step statuses, returns the new
// case status, or "" if the status should be left unchanged. Transitions
// to "blocked" happen only via explicit Escalate(level=3), never here.
// Exported so internal/evidence can recompute status without depending on
// caseengine's Service.
func DeriveStatus(stepStatuses []string) string {
	if len(stepStatuses) == 0 {
		return ""
	}

	allVerifiedOrWaived := true
	anyRejected := false
	anySubmitted := false

	for _, s := range stepStatuses {
		if s != StepVerified && s != StepWaived {
			allVerifiedOrWaived = false
		}
		if s == StepRejected {
			anyRejected = true
		}
		if s == StepSubmitted {
			anySubmitted = true
		}
	}

	switch {
	case allVerifiedOrWaived:
		return "resolved"
	case anyRejected:
		return "waiting_supplier"
	case anySubmitted:
		return "waiting_internal"
	default:
		return ""
	}
}
