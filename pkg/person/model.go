// Package person retrieves account- and record-level metadata for the
// authenticated session. The returned snapshots are immutable and refreshed
// per call; nothing is cached here.
package person

import (
	"time"

	"github.com/google/uuid"
)

// HealthRecordInfo describes one health record the person can access.
type HealthRecordInfo struct {
	ID               uuid.UUID
	Name             string
	DisplayName      string
	RelationshipType int
	RelationshipName string
	State            string
	IsCustodian      bool
	DateCreated      time.Time
}

// PersonInfo is the account snapshot for the authenticated person.
type PersonInfo struct {
	PersonID           uuid.UUID
	Name               string
	SelectedRecordID   *uuid.UUID
	PreferredCulture   string
	PreferredUICulture string
	Records            []HealthRecordInfo
	// ApplicationSettingsXML is the application's opaque per-person
	// settings blob, as stored by SetApplicationSettings.
	ApplicationSettingsXML []byte
}

// SelectedRecord returns the record the person last selected in the shell,
// when present among the authorized records.
func (p *PersonInfo) SelectedRecord() *HealthRecordInfo {
	if p.SelectedRecordID == nil {
		return nil
	}
	for i := range p.Records {
		if p.Records[i].ID == *p.SelectedRecordID {
			return &p.Records[i]
		}
	}
	return nil
}
