// Package thing implements the health record item core: the Thing model,
// query construction, and deserialization of heterogeneous, versioned XML
// response groups into typed collections.
package thing

import (
	"time"

	"github.com/google/uuid"
)

// Key identifies one version of a thing. A thing id alone is not a full
// identity; every mutation issues a new version stamp.
type Key struct {
	ID           uuid.UUID
	VersionStamp uuid.UUID
}

// IsZero reports whether the key carries no id at all.
func (k Key) IsZero() bool { return k.ID == uuid.Nil }

// State is the lifecycle state of a thing as reported by the platform.
type State int

const (
	StateUnknown State = iota
	StateActive
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateDeleted:
		return "Deleted"
	}
	return "Unknown"
}

func parseState(s string) State {
	switch s {
	case "Active":
		return StateActive
	case "Deleted":
		return StateDeleted
	}
	return StateUnknown
}

// Audit describes who touched a thing, when, and through which avenue.
type Audit struct {
	Timestamp     time.Time
	ApplicationID uuid.UUID
	PersonID      uuid.UUID
	AccessAvenue  string
}

// Thing is one health record item. DataXML holds the raw type-specific
// payload as received; Payload is its parsed form, which is a *RawPayload
// when the type id is not registered.
type Thing struct {
	Key         Key
	TypeID      uuid.UUID
	TypeName    string
	State       State
	Flags       int
	EffDate     time.Time
	Created     *Audit
	Updated     *Audit
	DataXML     []byte
	Payload     TypePayload
	Permissions []string
}

// Platform timestamps are local-format with optional fractional seconds;
// RFC3339 is accepted as well.
var platformTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parsePlatformTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range platformTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func formatPlatformTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}
