package platform

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/healthvault/sdk/pkg/hverror"
	"github.com/healthvault/sdk/pkg/transport"
)

// Section names a part of the service definition that can be requested
// on its own.
type Section string

const (
	SectionPlatform   Section = "platform"
	SectionShell      Section = "shell"
	SectionTopology   Section = "topology"
	SectionXMLMethods Section = "xml-over-http-methods"
)

var validSections = map[Section]bool{
	SectionPlatform:   true,
	SectionShell:      true,
	SectionTopology:   true,
	SectionXMLMethods: true,
}

// Client provides service definition operations over a connection.
type Client struct {
	conn transport.Connection
}

// NewClient creates a platform client.
func NewClient(conn transport.Connection) *Client {
	return &Client{conn: conn}
}

// GetServiceDefinition fetches the full service definition.
func (c *Client) GetServiceDefinition(ctx context.Context) (*ServiceInfo, error) {
	return c.get(ctx, nil)
}

// GetServiceDefinitionWithSections fetches only the named sections of the
// service definition. Fields for omitted sections stay zero.
func (c *Client) GetServiceDefinitionWithSections(ctx context.Context, sections ...Section) (*ServiceInfo, error) {
	if len(sections) == 0 {
		return nil, hverror.Validationf("at least one response section is required")
	}
	for _, s := range sections {
		if !validSections[s] {
			return nil, hverror.Validationf("unknown response section %q", s)
		}
	}
	return c.get(ctx, sections)
}

func (c *Client) get(ctx context.Context, sections []Section) (*ServiceInfo, error) {
	var infoXML []byte
	if len(sections) > 0 {
		var buf bytes.Buffer
		enc := xml.NewEncoder(&buf)
		wrapper := xml.StartElement{Name: xml.Name{Local: "response-sections"}}
		if err := enc.EncodeToken(wrapper); err != nil {
			return nil, fmt.Errorf("platform: encode response-sections: %w", err)
		}
		for _, s := range sections {
			if err := enc.EncodeElement(string(s), xml.StartElement{Name: xml.Name{Local: "section"}}); err != nil {
				return nil, fmt.Errorf("platform: encode section: %w", err)
			}
		}
		if err := enc.EncodeToken(wrapper.End()); err != nil {
			return nil, fmt.Errorf("platform: encode response-sections end: %w", err)
		}
		if err := enc.Flush(); err != nil {
			return nil, fmt.Errorf("platform: flush request: %w", err)
		}
		infoXML = buf.Bytes()
	}

	resp, err := c.conn.Execute(ctx, transport.MethodGetServiceDefinition, transport.RequestParams{InfoXML: infoXML})
	if err != nil {
		return nil, fmt.Errorf("get service definition: %w", err)
	}
	return parseServiceInfo(resp.InfoXML)
}

// Wire shapes.

type serviceInfoXML struct {
	UpdatedDate string `xml:"updated-date"`
	Platform    struct {
		URL     string `xml:"url"`
		Version string `xml:"version"`
	} `xml:"platform"`
	Shell struct {
		URL string `xml:"url"`
	} `xml:"shell"`
	Methods []struct {
		Name string `xml:"name"`
	} `xml:"xml-method"`
	Instances struct {
		CurrentID string `xml:"current-instance-id,attr"`
		Items     []struct {
			ID          string `xml:"id,attr"`
			Name        string `xml:"name"`
			Description string `xml:"description"`
			PlatformURL string `xml:"platform-url"`
			ShellURL    string `xml:"shell-url"`
		} `xml:"instance"`
	} `xml:"instances"`
}

func parseServiceInfo(infoXML []byte) (*ServiceInfo, error) {
	wrapped := append(append([]byte("<info>"), infoXML...), "</info>"...)
	var x serviceInfoXML
	if err := xml.Unmarshal(wrapped, &x); err != nil {
		return nil, hverror.Parsef(err, "service definition")
	}

	info := &ServiceInfo{
		PlatformURL:       x.Platform.URL,
		PlatformVersion:   x.Platform.Version,
		ShellURL:          x.Shell.URL,
		CurrentInstanceID: x.Instances.CurrentID,
	}
	for _, m := range x.Methods {
		if m.Name != "" {
			info.Methods = append(info.Methods, m.Name)
		}
	}
	for _, inst := range x.Instances.Items {
		info.Instances = append(info.Instances, Instance{
			ID:          inst.ID,
			Name:        inst.Name,
			Description: inst.Description,
			PlatformURL: inst.PlatformURL,
			ShellURL:    inst.ShellURL,
		})
	}
	if ts := strings.TrimSpace(x.UpdatedDate); ts != "" {
		updated, err := parsePlatformTime(ts)
		if err != nil {
			return nil, hverror.Parsef(err, "updated-date %q", ts)
		}
		info.LastUpdated = updated
	}
	return info, nil
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
