package errors

import "net/http"

// Error code constants.
// Errors contain code + params only, no hardcoded messages. Frontend
// handles i18n translation. Backend logs always in English.

// Generic codes, one per Kind, used by the f-suffixed constructors.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeConflict           = "CONFLICT"
	CodePreconditionFailed = "PRECONDITION_FAILED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeStorageFailed      = "STORAGE_FAILED"
	CodeChainFailed        = "CHAIN_FAILED"
	CodeUnavailable        = "UNAVAILABLE"
)

// Tenant/Relationship error codes (4.F).
const (
	CodeDuplicateEmail    = "DUPLICATE_EMAIL"
	CodeInviteExpired     = "INVITE_EXPIRED"
	CodeInviteAlreadyUsed = "INVITE_ALREADY_USED"
	CodeTenantInactive    = "TENANT_INACTIVE"
	CodeInvalidTenantID   = "INVALID_TENANT_ID"
)

// Case engine error codes (4.G/4.I).
const (
	CodeCaseNotFound          = "CASE_NOT_FOUND"
	CodeChecklistIncomplete   = "CHECKLIST_INCOMPLETE"
	CodeInvalidCaseType       = "INVALID_CASE_TYPE"
	CodeEvidenceVersionRace   = "EVIDENCE_VERSION_CONFLICT"
	CodeInternalNoteForbidden = "INTERNAL_NOTE_FORBIDDEN"
)

// Auth error codes (4.D).
const (
	CodeAuthFailed        = "AUTH_FAILED"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeTokenInvalid      = "TOKEN_INVALID"
	CodeTokenRevoked      = "TOKEN_REVOKED"
	CodeContextMissing    = "CONTEXT_MISSING"
	CodePasswordChangeReq = "PASSWORD_CHANGE_REQUIRED"
)

// KindHTTPStatus maps a taxonomy Kind to its HTTP status per spec §7.
func KindHTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound, KindForbidden:
		// Case-level denials surface as NotFound (anti-enumeration, spec 4.E);
		// true cross-tenant admin Forbidden also maps to 403 at the edge —
		// handlers choose Kind, this just fixes the status once chosen.
		if kind == KindForbidden {
			return http.StatusForbidden
		}
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindPrecondition:
		return http.StatusPreconditionFailed
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindStorage, KindChain, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Convenience constructors using predefined codes.

// DuplicateEmail creates a Conflict error for CreateUser email collisions.
func DuplicateEmail(email string) *AppError {
	return Conflict(CodeDuplicateEmail, "an account with this email already exists").
		WithDetails(map[string]interface{}{"email": email})
}

// InviteExpired creates a Conflict error for an expired invite token.
func InviteExpired() *AppError {
	return Conflict(CodeInviteExpired, "this invite has expired")
}

// InviteAlreadyUsed creates a Conflict error for a second AcceptInvite call.
func InviteAlreadyUsed() *AppError {
	return Conflict(CodeInviteAlreadyUsed, "this invite has already been accepted")
}

// TenantInactive creates a Validation error for operations against a
// suspended or terminated tenant.
func TenantInactive(tenantID string) *AppError {
	return Validation(CodeTenantInactive, "tenant is not active").
		WithDetails(map[string]interface{}{"tenantId": tenantID})
}

// CaseNotFoundOrForbidden returns the anti-enumeration NotFound used for
// both nonexistent and out-of-scope case reads (spec 4.E/TESTABLE 5).
func CaseNotFoundOrForbidden() *AppError {
	return NotFound(CodeCaseNotFound, "case not found")
}

// ChecklistIncomplete creates a Precondition error for ApproveOnboarding before
// all checklist steps are verified or waived.
func ChecklistIncomplete() *AppError {
	return Precondition(CodeChecklistIncomplete, "not all checklist steps are verified or waived")
}

// InternalNoteForbidden creates a Validation error when a vendor-context
// principal attempts to post an internal note (spec 4.H, S6).
func InternalNoteForbidden() *AppError {
	return Validation(CodeInternalNoteForbidden, "vendor context cannot post internal notes")
}

// ContextMissing creates an Unauthenticated-adjacent error for an internal
// user with no scope set on their user row (spec 4.D).
func ContextMissing() *AppError {
	return New(KindUnauthenticated, CodeContextMissing, "no active scope selected")
}
