package hverror

import (
	"errors"
	"fmt"
	"testing"
)

// =========== Kind Tests ===========

func TestValidationf(t *testing.T) {
	err := Validationf("record id is %s", "nil")
	if !IsValidation(err) {
		t.Error("expected validation kind")
	}
	if IsProtocol(err) || IsParse(err) {
		t.Error("kind predicates should be exclusive")
	}
	if err.Message != "record id is nil" {
		t.Errorf("unexpected message: %q", err.Message)
	}
}

func TestProtocolf(t *testing.T) {
	err := Protocolf("expected one thing, got %d", 3)
	if !IsProtocol(err) {
		t.Error("expected protocol kind")
	}
}

func TestParsef_Unwrap(t *testing.T) {
	cause := errors.New("invalid UUID")
	err := Parsef(cause, "thing-id")
	if !IsParse(err) {
		t.Error("expected parse kind")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
}

func TestIsKind_Wrapped(t *testing.T) {
	err := fmt.Errorf("get things: %w", Validationf("no filters"))
	if !IsValidation(err) {
		t.Error("expected validation kind through wrapping")
	}
}

func TestIsKind_NonHVError(t *testing.T) {
	if IsValidation(errors.New("plain")) {
		t.Error("plain error must not match any kind")
	}
	if IsValidation(nil) {
		t.Error("nil must not match")
	}
}

// =========== Status Mapping Tests ===========

func TestFromStatusCode_Mapping(t *testing.T) {
	cases := []struct {
		code int
		want Status
	}{
		{7, StatusCredentialTokenExpired},
		{11, StatusAccessDenied},
		{38, StatusInvalidRecord},
		{65, StatusAuthSessionTokenExpired},
		{68, StatusRecordQuotaExceeded},
		{83, StatusDuplicateCredentialFound},
		{90, StatusInvalidEmail},
		{112, StatusPasswordNotStrong},
		{126, StatusOtherDataItemSizeLimitExceeded},
		{2, StatusUnmapped},
		{9999, StatusUnmapped},
	}
	for _, tc := range cases {
		err := FromStatusCode(tc.code, "msg")
		if err.Kind != KindServer {
			t.Errorf("code %d: expected server kind", tc.code)
		}
		if err.Status != tc.want {
			t.Errorf("code %d: expected %s, got %s", tc.code, tc.want, err.Status)
		}
		if err.Code != tc.code {
			t.Errorf("code %d: numeric code not preserved: %d", tc.code, err.Code)
		}
	}
}

func TestFromStatusCode_DefaultMessage(t *testing.T) {
	err := FromStatusCode(11, "")
	if err.Message == "" {
		t.Error("expected a default message")
	}
}

func TestIsServerStatus(t *testing.T) {
	err := fmt.Errorf("call: %w", FromStatusCode(11, "denied"))
	if !IsServerStatus(err, StatusAccessDenied) {
		t.Error("expected access-denied match through wrapping")
	}
	if IsServerStatus(err, StatusInvalidRecord) {
		t.Error("unexpected status match")
	}
	if IsServerStatus(Validationf("x"), StatusAccessDenied) {
		t.Error("validation error must not match a server status")
	}
}
