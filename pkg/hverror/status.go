package hverror

import "fmt"

// Status is the semantic classification of a non-success wire status code.
// The platform defines many more codes than are listed here; anything not in
// the closed set maps to StatusUnmapped with the numeric code preserved on
// the Error.
type Status int

const (
	StatusOK Status = iota
	StatusUnmapped
	StatusAccessDenied
	StatusInvalidRecord
	StatusCredentialTokenExpired
	StatusAuthSessionTokenExpired
	StatusRecordQuotaExceeded
	StatusDuplicateCredentialFound
	StatusInvalidEmail
	StatusPasswordNotStrong
	StatusOtherDataItemSizeLimitExceeded
)

// Wire status codes, as assigned by the platform.
const (
	codeOK                     = 0
	codeCredentialTokenExpired = 7
	codeAccessDenied           = 11
	codeInvalidRecord          = 38
	codeAuthSessionExpired     = 65
	codeRecordQuotaExceeded    = 68
	codeDuplicateCredential    = 83
	codeInvalidEmail           = 90
	codePasswordNotStrong      = 112
	codeOtherDataSizeLimit     = 126
)

func statusFromCode(code int) Status {
	switch code {
	case codeOK:
		return StatusOK
	case codeCredentialTokenExpired:
		return StatusCredentialTokenExpired
	case codeAccessDenied:
		return StatusAccessDenied
	case codeInvalidRecord:
		return StatusInvalidRecord
	case codeAuthSessionExpired:
		return StatusAuthSessionTokenExpired
	case codeRecordQuotaExceeded:
		return StatusRecordQuotaExceeded
	case codeDuplicateCredential:
		return StatusDuplicateCredentialFound
	case codeInvalidEmail:
		return StatusInvalidEmail
	case codePasswordNotStrong:
		return StatusPasswordNotStrong
	case codeOtherDataSizeLimit:
		return StatusOtherDataItemSizeLimitExceeded
	}
	return StatusUnmapped
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnmapped:
		return "unmapped"
	case StatusAccessDenied:
		return "access-denied"
	case StatusInvalidRecord:
		return "invalid-record"
	case StatusCredentialTokenExpired:
		return "credential-token-expired"
	case StatusAuthSessionTokenExpired:
		return "auth-session-token-expired"
	case StatusRecordQuotaExceeded:
		return "record-quota-exceeded"
	case StatusDuplicateCredentialFound:
		return "duplicate-credential-found"
	case StatusInvalidEmail:
		return "invalid-email"
	case StatusPasswordNotStrong:
		return "password-not-strong"
	case StatusOtherDataItemSizeLimitExceeded:
		return "other-data-item-size-limit-exceeded"
	}
	return fmt.Sprintf("status(%d)", int(s))
}
