package thing

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/healthvault/sdk/pkg/hverror"
	"github.com/healthvault/sdk/pkg/transport"
)

// removeBatchLimit is the largest key batch RemoveThings accepts per call.
const removeBatchLimit = 100

// Client provides thing CRUD over a connection.
type Client struct {
	conn         transport.Connection
	registry     *Registry
	deserializer *Deserializer
}

// NewClient creates a thing client. registry may be nil for DefaultRegistry.
func NewClient(conn transport.Connection, registry *Registry) *Client {
	if registry == nil {
		registry = DefaultRegistry
	}
	return &Client{
		conn:         conn,
		registry:     registry,
		deserializer: NewDeserializer(registry),
	}
}

// GetThings executes the searcher against a record and returns one
// collection per attached query, in submission order.
func (c *Client) GetThings(ctx context.Context, recordID uuid.UUID, searcher *Searcher) ([]*Collection, error) {
	if recordID == uuid.Nil {
		return nil, hverror.Validationf("record id must not be empty")
	}
	if searcher == nil {
		return nil, hverror.Validationf("searcher must not be nil")
	}

	info, err := searcher.BuildGetThingsInfo()
	if err != nil {
		return nil, err
	}

	resp, err := c.conn.Execute(ctx, transport.MethodGetThings, transport.RequestParams{
		InfoXML:  info,
		RecordID: &recordID,
	})
	if err != nil {
		return nil, fmt.Errorf("get things: %w", err)
	}
	return c.deserializer.Deserialize(resp.InfoXML)
}

// GetThingsByQuery executes a single query and returns its result group.
func (c *Client) GetThingsByQuery(ctx context.Context, recordID uuid.UUID, query *Query) (*Collection, error) {
	if query == nil {
		return nil, hverror.Validationf("query must not be nil")
	}
	cols, err := c.GetThings(ctx, recordID, NewSearcher(query))
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, hverror.Protocolf("response contained no result group for the submitted filter")
	}
	return cols[0], nil
}

// GetThing fetches a single thing by id. A missing thing returns (nil, nil);
// more than one full match across all result groups violates the
// single-item contract and fails with a protocol error.
func (c *Client) GetThing(ctx context.Context, recordID, thingID uuid.UUID) (*Thing, error) {
	if thingID == uuid.Nil {
		return nil, hverror.Validationf("thing id must not be empty")
	}
	cols, err := c.GetThings(ctx, recordID, NewSearcher(&Query{ThingIDs: []uuid.UUID{thingID}}))
	if err != nil {
		return nil, err
	}

	var found *Thing
	for _, col := range cols {
		for _, t := range col.Things() {
			if found != nil {
				return nil, hverror.Protocolf("more than one thing returned for id %s", thingID)
			}
			found = t
		}
	}
	return found, nil
}

// CreateNewThings uploads new things and assigns the server-issued
// (id, version-stamp) keys back onto them positionally.
func (c *Client) CreateNewThings(ctx context.Context, recordID uuid.UUID, things []*Thing) error {
	if err := validatePut(recordID, things); err != nil {
		return err
	}
	for i, t := range things {
		if t.TypeID == uuid.Nil && t.Payload == nil {
			return hverror.Validationf("thing %d has neither a type id nor a payload", i)
		}
	}
	return c.putThings(ctx, recordID, things, false)
}

// UpdateThings uploads new versions of existing things. Every thing must
// already carry a key; each gets a fresh version stamp assigned
// positionally from the response.
func (c *Client) UpdateThings(ctx context.Context, recordID uuid.UUID, things []*Thing) error {
	if err := validatePut(recordID, things); err != nil {
		return err
	}
	for i, t := range things {
		if t.Key.IsZero() {
			return hverror.Validationf("thing %d has no key; only previously created things can be updated", i)
		}
	}
	return c.putThings(ctx, recordID, things, true)
}

func validatePut(recordID uuid.UUID, things []*Thing) error {
	if recordID == uuid.Nil {
		return hverror.Validationf("record id must not be empty")
	}
	if len(things) == 0 {
		return hverror.Validationf("things collection must not be nil or empty")
	}
	for i, t := range things {
		if t == nil {
			return hverror.Validationf("thing %d is nil", i)
		}
	}
	return nil
}

func (c *Client) putThings(ctx context.Context, recordID uuid.UUID, things []*Thing, withKeys bool) error {
	info, err := buildPutThingsInfo(things, withKeys)
	if err != nil {
		return err
	}

	resp, err := c.conn.Execute(ctx, transport.MethodPutThings, transport.RequestParams{
		InfoXML:  info,
		RecordID: &recordID,
	})
	if err != nil {
		return fmt.Errorf("put things: %w", err)
	}

	keys, err := parsePutThingsKeys(resp.InfoXML)
	if err != nil {
		return err
	}
	return CorrelateKeysByPosition(things, keys)
}

// RemoveThings tombstones the identified things server-side. The platform
// caps one call at 100 keys.
func (c *Client) RemoveThings(ctx context.Context, recordID uuid.UUID, keys []Key) error {
	if recordID == uuid.Nil {
		return hverror.Validationf("record id must not be empty")
	}
	if len(keys) == 0 {
		return hverror.Validationf("at least one key is required")
	}
	if len(keys) > removeBatchLimit {
		return hverror.Validationf("at most %d keys may be removed per call, got %d", removeBatchLimit, len(keys))
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	for _, key := range keys {
		el := xml.StartElement{
			Name: xml.Name{Local: "thing-id"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "version-stamp"}, Value: key.VersionStamp.String()}},
		}
		if err := enc.EncodeElement(key.ID.String(), el); err != nil {
			return fmt.Errorf("thing: encode thing-id: %w", err)
		}
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("thing: flush remove request: %w", err)
	}

	_, err := c.conn.Execute(ctx, transport.MethodRemoveThings, transport.RequestParams{
		InfoXML:  buf.Bytes(),
		RecordID: &recordID,
	})
	if err != nil {
		return fmt.Errorf("remove things: %w", err)
	}
	return nil
}

// buildPutThingsInfo serializes the things for PutThings. withKeys controls
// whether existing keys are written (updates) or omitted (creates).
func buildPutThingsInfo(things []*Thing, withKeys bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	for _, t := range things {
		el := xml.StartElement{Name: xml.Name{Local: "thing"}}
		if err := enc.EncodeToken(el); err != nil {
			return nil, fmt.Errorf("thing: encode thing: %w", err)
		}

		if withKeys {
			idEl := xml.StartElement{
				Name: xml.Name{Local: "thing-id"},
				Attr: []xml.Attr{{Name: xml.Name{Local: "version-stamp"}, Value: t.Key.VersionStamp.String()}},
			}
			if err := enc.EncodeElement(t.Key.ID.String(), idEl); err != nil {
				return nil, fmt.Errorf("thing: encode thing-id: %w", err)
			}
		}

		typeEl := xml.StartElement{Name: xml.Name{Local: "type-id"}}
		if t.TypeName != "" {
			typeEl.Attr = append(typeEl.Attr, xml.Attr{Name: xml.Name{Local: "name"}, Value: t.TypeName})
		}
		typeID := t.TypeID
		if typeID == uuid.Nil && t.Payload != nil {
			typeID = t.Payload.TypeID()
		}
		if err := enc.EncodeElement(typeID.String(), typeEl); err != nil {
			return nil, fmt.Errorf("thing: encode type-id: %w", err)
		}

		if t.Flags != 0 {
			if err := enc.EncodeElement(t.Flags, xml.StartElement{Name: xml.Name{Local: "flags"}}); err != nil {
				return nil, fmt.Errorf("thing: encode flags: %w", err)
			}
		}
		if !t.EffDate.IsZero() {
			if err := enc.EncodeElement(formatPlatformTime(t.EffDate), xml.StartElement{Name: xml.Name{Local: "eff-date"}}); err != nil {
				return nil, fmt.Errorf("thing: encode eff-date: %w", err)
			}
		}

		dataEl := xml.StartElement{Name: xml.Name{Local: "data-xml"}}
		if err := enc.EncodeToken(dataEl); err != nil {
			return nil, fmt.Errorf("thing: encode data-xml: %w", err)
		}
		payload := t.Payload
		if payload == nil && len(t.DataXML) > 0 {
			payload = NewRawPayload(typeID, t.DataXML)
		}
		if payload != nil {
			if err := payload.WriteDataXML(enc); err != nil {
				return nil, err
			}
		}
		if err := enc.EncodeToken(dataEl.End()); err != nil {
			return nil, fmt.Errorf("thing: encode data-xml end: %w", err)
		}

		if err := enc.EncodeToken(el.End()); err != nil {
			return nil, fmt.Errorf("thing: encode thing end: %w", err)
		}
	}

	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("thing: flush put request: %w", err)
	}
	return buf.Bytes(), nil
}

type putThingsResponseXML struct {
	ThingIDs []thingIDXML `xml:"thing-id"`
}

// parsePutThingsKeys extracts the ordered (thing-id, version-stamp) list the
// server echoes for a PutThings call.
func parsePutThingsKeys(infoXML []byte) ([]Key, error) {
	wrapped := append(append([]byte("<info>"), infoXML...), "</info>"...)
	var resp putThingsResponseXML
	if err := xml.Unmarshal(wrapped, &resp); err != nil {
		return nil, hverror.Parsef(err, "put things response")
	}

	keys := make([]Key, 0, len(resp.ThingIDs))
	for _, idXML := range resp.ThingIDs {
		idText := strings.TrimSpace(idXML.Value)
		id, err := uuid.Parse(idText)
		if err != nil {
			return nil, hverror.Parsef(err, "returned thing-id %q", idText)
		}
		key := Key{ID: id}
		if vs := strings.TrimSpace(idXML.VersionStamp); vs != "" {
			stamp, err := uuid.Parse(vs)
			if err != nil {
				return nil, hverror.Parsef(err, "returned version-stamp %q", vs)
			}
			key.VersionStamp = stamp
		}
		keys = append(keys, key)
	}
	return keys, nil
}
