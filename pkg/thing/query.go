package thing

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/healthvault/sdk/pkg/hverror"
)

// Section selects which parts of a thing the server hydrates. Sections
// combine as a bitset; the zero value means SectionCore.
type Section int

const (
	SectionCore Section = 1 << iota
	SectionAudits
	SectionEffectivePermissions
	SectionBlobPayload
)

var sectionNames = []struct {
	section Section
	name    string
}{
	{SectionCore, "core"},
	{SectionAudits, "audits"},
	{SectionEffectivePermissions, "effectivepermissions"},
	{SectionBlobPayload, "blobpayload"},
}

// Query is one logical thing filter. Each query attached to a Searcher
// becomes one <group> in the request and, symmetrically, one result group in
// the response. Type ids and item ids/keys may be combined; a query with no
// filter criteria at all is invalid.
type Query struct {
	// Name is echoed back as the result group's name attribute.
	Name string

	TypeIDs  []uuid.UUID
	ThingIDs []uuid.UUID
	Keys     []Key

	CurrentVersionOnly *bool
	EffDateMin         *time.Time
	EffDateMax         *time.Time

	// View defaults to SectionCore when zero.
	View Section

	// MaxResults caps total matches per group; MaxFullResults caps how
	// many arrive fully hydrated (the rest come back as unprocessed key
	// stubs).
	MaxResults     *int
	MaxFullResults *int
}

// validate enforces the fail-fast invariant: an empty combined filter set
// never reaches the network.
func (q *Query) validate() error {
	if len(q.TypeIDs) == 0 && len(q.ThingIDs) == 0 && len(q.Keys) == 0 {
		return hverror.Validationf("invalid filter: a query must specify at least one type id, thing id, or key")
	}
	return nil
}

// writeGroup serializes the query as one <group> element through the
// streaming encoder.
func (q *Query) writeGroup(enc *xml.Encoder) error {
	group := xml.StartElement{Name: xml.Name{Local: "group"}}
	if q.Name != "" {
		group.Attr = append(group.Attr, xml.Attr{Name: xml.Name{Local: "name"}, Value: q.Name})
	}
	if q.MaxResults != nil {
		group.Attr = append(group.Attr, xml.Attr{Name: xml.Name{Local: "max"}, Value: strconv.Itoa(*q.MaxResults)})
	}
	if q.MaxFullResults != nil {
		group.Attr = append(group.Attr, xml.Attr{Name: xml.Name{Local: "max-full"}, Value: strconv.Itoa(*q.MaxFullResults)})
	}
	if err := enc.EncodeToken(group); err != nil {
		return fmt.Errorf("thing: encode group: %w", err)
	}

	for _, id := range q.ThingIDs {
		if err := enc.EncodeElement(id.String(), xml.StartElement{Name: xml.Name{Local: "id"}}); err != nil {
			return fmt.Errorf("thing: encode id: %w", err)
		}
	}
	for _, key := range q.Keys {
		el := xml.StartElement{
			Name: xml.Name{Local: "key"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "version-stamp"}, Value: key.VersionStamp.String()}},
		}
		if err := enc.EncodeElement(key.ID.String(), el); err != nil {
			return fmt.Errorf("thing: encode key: %w", err)
		}
	}

	filter := xml.StartElement{Name: xml.Name{Local: "filter"}}
	if err := enc.EncodeToken(filter); err != nil {
		return fmt.Errorf("thing: encode filter: %w", err)
	}
	for _, id := range q.TypeIDs {
		if err := enc.EncodeElement(id.String(), xml.StartElement{Name: xml.Name{Local: "type-id"}}); err != nil {
			return fmt.Errorf("thing: encode type-id: %w", err)
		}
	}
	if q.EffDateMin != nil {
		if err := enc.EncodeElement(formatPlatformTime(*q.EffDateMin), xml.StartElement{Name: xml.Name{Local: "eff-date-min"}}); err != nil {
			return fmt.Errorf("thing: encode eff-date-min: %w", err)
		}
	}
	if q.EffDateMax != nil {
		if err := enc.EncodeElement(formatPlatformTime(*q.EffDateMax), xml.StartElement{Name: xml.Name{Local: "eff-date-max"}}); err != nil {
			return fmt.Errorf("thing: encode eff-date-max: %w", err)
		}
	}
	if q.CurrentVersionOnly != nil {
		if err := enc.EncodeElement(strconv.FormatBool(*q.CurrentVersionOnly), xml.StartElement{Name: xml.Name{Local: "current-version-only"}}); err != nil {
			return fmt.Errorf("thing: encode current-version-only: %w", err)
		}
	}
	if err := enc.EncodeToken(filter.End()); err != nil {
		return fmt.Errorf("thing: encode filter end: %w", err)
	}

	format := xml.StartElement{Name: xml.Name{Local: "format"}}
	if err := enc.EncodeToken(format); err != nil {
		return fmt.Errorf("thing: encode format: %w", err)
	}
	view := q.View
	if view == 0 {
		view = SectionCore
	}
	for _, s := range sectionNames {
		if view&s.section != 0 {
			if err := enc.EncodeElement(s.name, xml.StartElement{Name: xml.Name{Local: "section"}}); err != nil {
				return fmt.Errorf("thing: encode section: %w", err)
			}
		}
	}
	if err := enc.EncodeElement("", xml.StartElement{Name: xml.Name{Local: "xml"}}); err != nil {
		return fmt.Errorf("thing: encode xml marker: %w", err)
	}
	if err := enc.EncodeToken(format.End()); err != nil {
		return fmt.Errorf("thing: encode format end: %w", err)
	}

	if err := enc.EncodeToken(group.End()); err != nil {
		return fmt.Errorf("thing: encode group end: %w", err)
	}
	return nil
}
