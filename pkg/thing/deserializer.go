package thing

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/healthvault/sdk/pkg/hverror"
)

// Deserializer turns a GetThings/PutThings response body into typed
// collections, one per <group> element in document order.
type Deserializer struct {
	registry *Registry
}

// NewDeserializer creates a deserializer resolving payloads through the
// given registry; nil means DefaultRegistry.
func NewDeserializer(registry *Registry) *Deserializer {
	if registry == nil {
		registry = DefaultRegistry
	}
	return &Deserializer{registry: registry}
}

// Deserialize walks every descendant <group> element of the document and
// returns one Collection per group, in document order. Zero groups yields an
// empty slice. There is no explicit correlation key between submitted
// filters and returned groups; callers rely on server-side ordering.
//
// Malformed content inside a group (missing thing-id, unparsable uuid or
// timestamp) aborts the whole call with a parse error; there is no per-item
// recovery.
func (d *Deserializer) Deserialize(infoXML []byte) ([]*Collection, error) {
	dec := xml.NewDecoder(bytes.NewReader(infoXML))
	collections := []*Collection{}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, hverror.Parsef(err, "response body")
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "group" {
			continue
		}
		col, err := d.parseGroup(dec, se)
		if err != nil {
			return nil, err
		}
		collections = append(collections, col)
	}
	return collections, nil
}

// parseGroup consumes exactly one <group> element, empty or not: the loop
// ends on the group's own end element, so a zero-child group costs a single
// token read and the cursor never stalls or overruns.
func (d *Deserializer) parseGroup(dec *xml.Decoder, group xml.StartElement) (*Collection, error) {
	col := &Collection{}
	for _, attr := range group.Attr {
		if attr.Name.Local == "name" {
			col.Name = attr.Value
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, hverror.Parsef(err, "group element")
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "group" {
				return col, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "thing":
				thing, err := d.parseThing(dec, t)
				if err != nil {
					return nil, err
				}
				col.appendThing(thing)
			case "unprocessed-thing-key-info":
				key, err := parseUnprocessedKey(dec, t)
				if err != nil {
					return nil, err
				}
				col.appendStub(key)
			case "filtered":
				var filtered string
				if err := dec.DecodeElement(&filtered, &t); err != nil {
					return nil, hverror.Parsef(err, "filtered flag")
				}
				col.WasFiltered = strings.TrimSpace(filtered) == "true"
			case "order-by-culture":
				var culture string
				if err := dec.DecodeElement(&culture, &t); err != nil {
					return nil, hverror.Parsef(err, "order-by-culture")
				}
				col.OrderByCulture = strings.TrimSpace(culture)
			default:
				if err := dec.Skip(); err != nil {
					return nil, hverror.Parsef(err, "group child %q", t.Name.Local)
				}
			}
		}
	}
}

// Wire shapes of the consumed thing fields.

type thingIDXML struct {
	Value        string `xml:",chardata"`
	VersionStamp string `xml:"version-stamp,attr"`
}

type auditXML struct {
	Timestamp    string `xml:"timestamp"`
	AppID        string `xml:"app-id"`
	PersonID     string `xml:"person-id"`
	AccessAvenue string `xml:"access-avenue"`
}

type thingXML struct {
	ThingID thingIDXML `xml:"thing-id"`
	TypeID  struct {
		Value string `xml:",chardata"`
		Name  string `xml:"name,attr"`
	} `xml:"type-id"`
	ThingState string    `xml:"thing-state"`
	Flags      int       `xml:"flags"`
	EffDate    string    `xml:"eff-date"`
	Created    *auditXML `xml:"created"`
	Updated    *auditXML `xml:"updated"`
	DataXML    struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"data-xml"`
	EffPermissions []string `xml:"eff-permissions>permission"`
}

func (d *Deserializer) parseThing(dec *xml.Decoder, start xml.StartElement) (*Thing, error) {
	var x thingXML
	if err := dec.DecodeElement(&x, &start); err != nil {
		return nil, hverror.Parsef(err, "thing element")
	}

	idText := strings.TrimSpace(x.ThingID.Value)
	if idText == "" {
		return nil, hverror.Parsef(nil, "thing is missing mandatory thing-id")
	}
	id, err := uuid.Parse(idText)
	if err != nil {
		return nil, hverror.Parsef(err, "thing-id %q", idText)
	}

	t := &Thing{
		Key:         Key{ID: id},
		TypeName:    x.TypeID.Name,
		State:       parseState(strings.TrimSpace(x.ThingState)),
		Flags:       x.Flags,
		Permissions: x.EffPermissions,
	}

	if vs := strings.TrimSpace(x.ThingID.VersionStamp); vs != "" {
		stamp, err := uuid.Parse(vs)
		if err != nil {
			return nil, hverror.Parsef(err, "version-stamp %q", vs)
		}
		t.Key.VersionStamp = stamp
	}

	if typeText := strings.TrimSpace(x.TypeID.Value); typeText != "" {
		typeID, err := uuid.Parse(typeText)
		if err != nil {
			return nil, hverror.Parsef(err, "type-id %q", typeText)
		}
		t.TypeID = typeID
	}

	if effText := strings.TrimSpace(x.EffDate); effText != "" {
		eff, err := parsePlatformTime(effText)
		if err != nil {
			return nil, hverror.Parsef(err, "eff-date %q", effText)
		}
		t.EffDate = eff
	}

	if x.Created != nil {
		audit, err := parseAudit(x.Created)
		if err != nil {
			return nil, err
		}
		t.Created = audit
	}
	if x.Updated != nil {
		audit, err := parseAudit(x.Updated)
		if err != nil {
			return nil, err
		}
		t.Updated = audit
	}

	if data := bytes.TrimSpace(x.DataXML.Inner); len(data) > 0 {
		t.DataXML = data
		payload := d.registry.New(t.TypeID)
		if err := payload.ParseDataXML(data); err != nil {
			return nil, hverror.Parsef(err, "data-xml for type %s", t.TypeID)
		}
		t.Payload = payload
	}

	return t, nil
}

func parseAudit(x *auditXML) (*Audit, error) {
	audit := &Audit{AccessAvenue: strings.TrimSpace(x.AccessAvenue)}

	if ts := strings.TrimSpace(x.Timestamp); ts != "" {
		t, err := parsePlatformTime(ts)
		if err != nil {
			return nil, hverror.Parsef(err, "audit timestamp %q", ts)
		}
		audit.Timestamp = t
	}
	if app := strings.TrimSpace(x.AppID); app != "" {
		id, err := uuid.Parse(app)
		if err != nil {
			return nil, hverror.Parsef(err, "audit app-id %q", app)
		}
		audit.ApplicationID = id
	}
	if person := strings.TrimSpace(x.PersonID); person != "" {
		id, err := uuid.Parse(person)
		if err != nil {
			return nil, hverror.Parsef(err, "audit person-id %q", person)
		}
		audit.PersonID = id
	}
	return audit, nil
}

type unprocessedKeyXML struct {
	ThingID thingIDXML `xml:"thing-id"`
}

func parseUnprocessedKey(dec *xml.Decoder, start xml.StartElement) (Key, error) {
	var x unprocessedKeyXML
	if err := dec.DecodeElement(&x, &start); err != nil {
		return Key{}, hverror.Parsef(err, "unprocessed-thing-key-info")
	}

	idText := strings.TrimSpace(x.ThingID.Value)
	if idText == "" {
		return Key{}, hverror.Parsef(nil, "unprocessed key is missing thing-id")
	}
	id, err := uuid.Parse(idText)
	if err != nil {
		return Key{}, hverror.Parsef(err, "unprocessed thing-id %q", idText)
	}

	key := Key{ID: id}
	if vs := strings.TrimSpace(x.ThingID.VersionStamp); vs != "" {
		stamp, err := uuid.Parse(vs)
		if err != nil {
			return Key{}, hverror.Parsef(err, "unprocessed version-stamp %q", vs)
		}
		key.VersionStamp = stamp
	}
	return key, nil
}
