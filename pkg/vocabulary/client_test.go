package vocabulary

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

func respondingWith(infoXML string) *mockConnection {
	return &mockConnection{response: &transport.ResponseInfo{InfoXML: []byte(infoXML)}}
}

// =========== Search Validation Boundary Tests ===========

func TestSearch_LengthBoundaries(t *testing.T) {
	keysResponse := `<vocabulary-key><name>rxnorm</name><family>wc</family><version>1</version></vocabulary-key>`

	cases := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"empty", "", true},
		{"one char", "a", false},
		{"exactly 255", strings.Repeat("x", 255), false},
		{"256", strings.Repeat("x", 256), true},
		{"255 multibyte runes", strings.Repeat("å", 255), false},
		{"256 multibyte runes", strings.Repeat("å", 256), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn := respondingWith(keysResponse)
			c := NewClient(conn)
			_, err := c.Search(context.Background(), tc.text, nil)
			if tc.wantErr {
				if !hverror.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				if conn.calls != 0 {
					t.Error("validation must precede the network call")
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSearch_MaxResultsBoundaries(t *testing.T) {
	zero, one := 0, 1
	keysResponse := `<vocabulary-key><name>rxnorm</name></vocabulary-key>`

	conn := respondingWith(keysResponse)
	c := NewClient(conn)

	if _, err := c.Search(context.Background(), "aspirin", &zero); !hverror.IsValidation(err) {
		t.Errorf("maxResults 0: expected validation error, got %v", err)
	}
	if conn.calls != 0 {
		t.Error("maxResults validation must precede the network call")
	}
	if _, err := c.Search(context.Background(), "aspirin", &one); err != nil {
		t.Errorf("maxResults 1: unexpected error: %v", err)
	}
	if _, err := c.Search(context.Background(), "aspirin", nil); err != nil {
		t.Errorf("maxResults nil: unexpected error: %v", err)
	}
}

func TestSearch_RequestShapeAndResult(t *testing.T) {
	five := 5
	conn := respondingWith(`<vocabulary-key><name>medications</name><family>wc</family><version>2</version><description>Meds</description></vocabulary-key>`)
	c := NewClient(conn)

	keys, err := c.Search(context.Background(), "aspirin", &five)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn.lastMethod != transport.MethodSearchVocabulary {
		t.Errorf("wrong method: %+v", conn.lastMethod)
	}
	body := string(conn.lastInfo)
	if !strings.Contains(body, "aspirin") || !strings.Contains(body, "<max-results>5</max-results>") {
		t.Errorf("request body: %s", body)
	}
	if len(keys) != 1 || keys[0].Name != "medications" || keys[0].Version != "2" {
		t.Errorf("keys: %+v", keys)
	}
	if keys[0].Description != "Meds" {
		t.Errorf("description: %q", keys[0].Description)
	}
}

// =========== Get Tests ===========

func TestGet_ParsesVocabulary(t *testing.T) {
	conn := respondingWith(`<vocabulary>
		<name>blood-types</name><family>wc</family><version>1</version>
		<culture>en-US</culture>
		<is-vocab-truncated>true</is-vocab-truncated>
		<code-item><code-value>A+</code-value><display-text>A positive</display-text></code-item>
		<code-item><code-value>O-</code-value><display-text>O negative</display-text><abbreviation-text>O-</abbreviation-text></code-item>
	</vocabulary>`)
	c := NewClient(conn)

	v, err := c.Get(context.Background(), Key{Name: "blood-types", Family: "wc"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Key.Name != "blood-types" || v.Culture != "en-US" || !v.IsTruncated {
		t.Errorf("vocabulary header: %+v", v)
	}
	if len(v.Items) != 2 {
		t.Fatalf("items: %d", len(v.Items))
	}
	if item, ok := v.Item("O-"); !ok || item.DisplayText != "O negative" {
		t.Errorf("item lookup: %+v ok=%v", item, ok)
	}
	if _, ok := v.Item("AB+"); ok {
		t.Error("absent code must not resolve")
	}

	body := string(conn.lastInfo)
	if !strings.Contains(body, "<fixed-culture>true</fixed-culture>") {
		t.Errorf("fixed-culture not sent: %s", body)
	}
}

func TestGet_RequiresName(t *testing.T) {
	c := NewClient(&mockConnection{})
	if _, err := c.Get(context.Background(), Key{}, false); !hverror.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetKeys(t *testing.T) {
	conn := respondingWith(`<vocabulary-key><name>a</name></vocabulary-key><vocabulary-key><name>b</name></vocabulary-key>`)
	c := NewClient(conn)
	keys, err := c.GetKeys(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[1].Name != "b" {
		t.Errorf("keys: %+v", keys)
	}
}
