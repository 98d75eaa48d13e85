package platform

import (
	"context"
	"strings"
	"testing"

	"github.com/healthvault/sdk/pkg/hverror"
	"github.com/healthvault/sdk/pkg/transport"
)

type mockConnection struct {
	lastMethod transport.Method
	lastInfo   []byte
	calls      int
	response   *transport.ResponseInfo
	err        error
}

func (m *mockConnection) Execute(_ context.Context, method transport.Method, params transport.RequestParams) (*transport.ResponseInfo, error) {
	m.calls++
	m.lastMethod = method
	m.lastInfo = params.InfoXML
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

const fullDefinition = `<updated-date>2024-03-01T12:00:00</updated-date>
<platform><url>https://platform.example.com/wildcat.ashx</url><version>2.18</version></platform>
<shell><url>https://shell.example.com</url></shell>
<xml-method><name>GetThings</name></xml-method>
<xml-method><name>PutThings</name></xml-method>
<instances current-instance-id="1">
	<instance id="1"><name>US</name><description>United States</description><platform-url>https://platform.example.com/wildcat.ashx</platform-url><shell-url>https://shell.example.com</shell-url></instance>
	<instance id="2"><name>EU</name><description>Europe</description><platform-url>https://platform.eu.example.com/wildcat.ashx</platform-url><shell-url>https://shell.eu.example.com</shell-url></instance>
</instances>`

func TestGetServiceDefinition(t *testing.T) {
	conn := &mockConnection{response: &transport.ResponseInfo{InfoXML: []byte(fullDefinition)}}
	info, err := NewClient(conn).GetServiceDefinition(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn.lastMethod != transport.MethodGetServiceDefinition {
		t.Errorf("wrong method: %+v", conn.lastMethod)
	}
	if len(conn.lastInfo) != 0 {
		t.Errorf("full definition must send an empty info body, got %s", conn.lastInfo)
	}
	if info.PlatformURL != "https://platform.example.com/wildcat.ashx" || info.PlatformVersion != "2.18" {
		t.Errorf("platform section: %+v", info)
	}
	if info.ShellURL != "https://shell.example.com" {
		t.Errorf("shell section: %q", info.ShellURL)
	}
	if len(info.Methods) != 2 || info.Methods[1] != "PutThings" {
		t.Errorf("methods: %+v", info.Methods)
	}
	if info.LastUpdated.IsZero() {
		t.Error("updated-date not parsed")
	}
	if len(info.Instances) != 2 || info.CurrentInstanceID != "1" {
		t.Fatalf("topology: %+v", info)
	}

	cur := info.CurrentInstance()
	if cur == nil || cur.Name != "US" {
		t.Errorf("current instance: %+v", cur)
	}
	if inst := SelectInstance(info, "2"); inst == nil || inst.ShellURL != "https://shell.eu.example.com" {
		t.Errorf("instance 2: %+v", inst)
	}
	if SelectInstance(info, "9") != nil {
		t.Error("unknown instance id must resolve to nil")
	}
}

func TestGetServiceDefinitionWithSections(t *testing.T) {
	conn := &mockConnection{response: &transport.ResponseInfo{InfoXML: []byte(`<shell><url>https://shell.example.com</url></shell>`)}}
	c := NewClient(conn)

	info, err := c.GetServiceDefinitionWithSections(context.Background(), SectionShell, SectionTopology)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := string(conn.lastInfo)
	if !strings.Contains(body, "<section>shell</section>") || !strings.Contains(body, "<section>topology</section>") {
		t.Errorf("request body: %s", body)
	}
	if info.ShellURL != "https://shell.example.com" {
		t.Errorf("shell url: %q", info.ShellURL)
	}
	if info.PlatformURL != "" || len(info.Instances) != 0 {
		t.Errorf("omitted sections must stay zero: %+v", info)
	}
}

func TestGetServiceDefinitionWithSections_Validation(t *testing.T) {
	conn := &mockConnection{}
	c := NewClient(conn)

	if _, err := c.GetServiceDefinitionWithSections(context.Background()); !hverror.IsValidation(err) {
		t.Errorf("no sections: expected validation error, got %v", err)
	}
	if _, err := c.GetServiceDefinitionWithSections(context.Background(), Section("bogus")); !hverror.IsValidation(err) {
		t.Errorf("unknown section: expected validation error, got %v", err)
	}
	if conn.calls != 0 {
		t.Error("validation must precede the network call")
	}
}

func TestGetServiceDefinition_Malformed(t *testing.T) {
	conn := &mockConnection{response: &transport.ResponseInfo{InfoXML: []byte(`<platform><url>`)}}
	if _, err := NewClient(conn).GetServiceDefinition(context.Background()); !hverror.IsParse(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}
