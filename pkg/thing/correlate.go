package thing

import "github.com/healthvault/sdk/pkg/hverror"

// CorrelateKeysByPosition assigns server-issued keys back onto the submitted
// things by ordinal position. The platform echoes thing ids in submission
// order without an explicit correlation key; this helper is the single place
// that assumption lives. A length mismatch is a protocol violation.
func CorrelateKeysByPosition(things []*Thing, keys []Key) error {
	if len(things) != len(keys) {
		return hverror.Protocolf("server returned %d thing ids for %d submitted things", len(keys), len(things))
	}
	for i, t := range things {
		t.Key = keys[i]
	}
	return nil
}
