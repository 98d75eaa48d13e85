package person

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/healthvault/sdk/pkg/hverror"
	"github.com/healthvault/sdk/pkg/transport"
)

// Client provides person and record metadata operations over a connection.
type Client struct {
	conn transport.Connection
}

// NewClient creates a person client.
func NewClient(conn transport.Connection) *Client {
	return &Client{conn: conn}
}

// GetPersonInfo fetches the account snapshot for the authenticated person.
func (c *Client) GetPersonInfo(ctx context.Context) (*PersonInfo, error) {
	resp, err := c.conn.Execute(ctx, transport.MethodGetPersonInfo, transport.RequestParams{})
	if err != nil {
		return nil, fmt.Errorf("get person info: %w", err)
	}
	return parsePersonInfo(resp.InfoXML)
}

// GetAuthorizedRecords fetches record metadata for the given record ids,
// limited to records the session is authorized to see.
func (c *Client) GetAuthorizedRecords(ctx context.Context, recordIDs []uuid.UUID) ([]HealthRecordInfo, error) {
	if len(recordIDs) == 0 {
		return nil, hverror.Validationf("at least one record id is required")
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	for _, id := range recordIDs {
		if err := enc.EncodeElement(id.String(), xml.StartElement{Name: xml.Name{Local: "id"}}); err != nil {
			return nil, fmt.Errorf("person: encode record id: %w", err)
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("person: flush request: %w", err)
	}

	resp, err := c.conn.Execute(ctx, transport.MethodGetAuthorizedRecords, transport.RequestParams{InfoXML: buf.Bytes()})
	if err != nil {
		return nil, fmt.Errorf("get authorized records: %w", err)
	}

	var doc struct {
		Records []recordXML `xml:"record"`
	}
	if err := xml.Unmarshal(wrap(resp.InfoXML), &doc); err != nil {
		return nil, hverror.Parsef(err, "authorized records")
	}
	records := make([]HealthRecordInfo, 0, len(doc.Records))
	for _, r := range doc.Records {
		rec, err := r.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetApplicationSettings fetches the application's opaque per-person
// settings blob.
func (c *Client) GetApplicationSettings(ctx context.Context) ([]byte, error) {
	resp, err := c.conn.Execute(ctx, transport.MethodGetApplicationSettings, transport.RequestParams{})
	if err != nil {
		return nil, fmt.Errorf("get application settings: %w", err)
	}
	var doc struct {
		AppSettings struct {
			Inner []byte `xml:",innerxml"`
		} `xml:"app-settings"`
	}
	if err := xml.Unmarshal(wrap(resp.InfoXML), &doc); err != nil {
		return nil, hverror.Parsef(err, "application settings")
	}
	return bytes.TrimSpace(doc.AppSettings.Inner), nil
}

// SetApplicationSettings stores the application's per-person settings blob,
// replacing any previous value. settingsXML must be a well-formed fragment.
func (c *Client) SetApplicationSettings(ctx context.Context, settingsXML []byte) error {
	if len(bytes.TrimSpace(settingsXML)) == 0 {
		return hverror.Validationf("settings must not be empty")
	}

	body := append(append([]byte("<app-settings>"), settingsXML...), "</app-settings>"...)
	if _, err := c.conn.Execute(ctx, transport.MethodSetApplicationSettings, transport.RequestParams{InfoXML: body}); err != nil {
		return fmt.Errorf("set application settings: %w", err)
	}
	return nil
}

// Wire shapes.

type recordXML struct {
	ID          string `xml:"id,attr"`
	Name        string `xml:",chardata"`
	DisplayName string `xml:"display-name,attr"`
	Custodian   bool   `xml:"record-custodian,attr"`
	RelType     int    `xml:"rel-type,attr"`
	RelName     string `xml:"rel-name,attr"`
	State       string `xml:"state,attr"`
	DateCreated string `xml:"date-created,attr"`
}

func (r recordXML) toRecord() (HealthRecordInfo, error) {
	id, err := uuid.Parse(strings.TrimSpace(r.ID))
	if err != nil {
		return HealthRecordInfo{}, hverror.Parsef(err, "record id %q", r.ID)
	}
	rec := HealthRecordInfo{
		ID:               id,
		Name:             strings.TrimSpace(r.Name),
		DisplayName:      r.DisplayName,
		IsCustodian:      r.Custodian,
		RelationshipType: r.RelType,
		RelationshipName: r.RelName,
		State:            r.State,
	}
	if ts := strings.TrimSpace(r.DateCreated); ts != "" {
		created, err := parsePlatformTime(ts)
		if err != nil {
			return HealthRecordInfo{}, hverror.Parsef(err, "record date-created %q", ts)
		}
		rec.DateCreated = created
	}
	return rec, nil
}

type personInfoXML struct {
	PersonID         string `xml:"person-id"`
	Name             string `xml:"name"`
	SelectedRecordID string `xml:"selected-record-id"`
	PreferredCulture struct {
		Language string `xml:"language"`
	} `xml:"preferred-culture"`
	PreferredUICulture struct {
		Language string `xml:"language"`
	} `xml:"preferred-uiculture"`
	AppSettings struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"app-settings"`
	Records []recordXML `xml:"record"`
}

func parsePersonInfo(infoXML []byte) (*PersonInfo, error) {
	var doc struct {
		PersonInfo personInfoXML `xml:"person-info"`
	}
	if err := xml.Unmarshal(wrap(infoXML), &doc); err != nil {
		return nil, hverror.Parsef(err, "person info")
	}
	x := doc.PersonInfo

	personID, err := uuid.Parse(strings.TrimSpace(x.PersonID))
	if err != nil {
		return nil, hverror.Parsef(err, "person-id %q", x.PersonID)
	}

	info := &PersonInfo{
		PersonID:               personID,
		Name:                   strings.TrimSpace(x.Name),
		PreferredCulture:       x.PreferredCulture.Language,
		PreferredUICulture:     x.PreferredUICulture.Language,
		ApplicationSettingsXML: bytes.TrimSpace(x.AppSettings.Inner),
	}

	if sel := strings.TrimSpace(x.SelectedRecordID); sel != "" {
		id, err := uuid.Parse(sel)
		if err != nil {
			return nil, hverror.Parsef(err, "selected-record-id %q", sel)
		}
		info.SelectedRecordID = &id
	}

	for _, r := range x.Records {
		rec, err := r.toRecord()
		if err != nil {
			return nil, err
		}
		info.Records = append(info.Records, rec)
	}
	return info, nil
}

func wrap(inner []byte) []byte {
	return append(append([]byte("<info>"), inner...), "</info>"...)
}

func parsePlatformTime(s string) (time.Time, error) {
	layouts := []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", time.RFC3339}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
