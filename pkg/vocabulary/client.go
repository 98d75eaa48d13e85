package vocabulary

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/healthvault/sdk/pkg/hverror"
	"github.com/healthvault/sdk/pkg/transport"
)

// maxSearchStringLength is the longest search string the platform accepts.
const maxSearchStringLength = 255

// Client provides vocabulary operations over a connection.
type Client struct {
	conn transport.Connection
}

// NewClient creates a vocabulary client.
func NewClient(conn transport.Connection) *Client {
	return &Client{conn: conn}
}

// GetKeys lists the keys of every vocabulary the platform exposes.
func (c *Client) GetKeys(ctx context.Context) ([]Key, error) {
	resp, err := c.conn.Execute(ctx, transport.MethodGetVocabulary, transport.RequestParams{})
	if err != nil {
		return nil, fmt.Errorf("get vocabulary keys: %w", err)
	}
	return parseKeys(resp.InfoXML)
}

// Get fetches one vocabulary. fixedCulture pins the response to the
// vocabulary's own culture instead of falling back along the culture chain.
func (c *Client) Get(ctx context.Context, key Key, fixedCulture bool) (*Vocabulary, error) {
	vocabs, err := c.GetMany(ctx, []Key{key}, fixedCulture)
	if err != nil {
		return nil, err
	}
	if len(vocabs) == 0 {
		return nil, hverror.Protocolf("response contained no vocabulary for key %q", key.Name)
	}
	return vocabs[0], nil
}

// GetMany fetches several vocabularies in one call.
func (c *Client) GetMany(ctx context.Context, keys []Key, fixedCulture bool) ([]*Vocabulary, error) {
	if len(keys) == 0 {
		return nil, hverror.Validationf("at least one vocabulary key is required")
	}
	for i, key := range keys {
		if key.Name == "" {
			return nil, hverror.Validationf("vocabulary key %d has no name", i)
		}
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	params := xml.StartElement{Name: xml.Name{Local: "vocabulary-parameters"}}
	if err := enc.EncodeToken(params); err != nil {
		return nil, fmt.Errorf("vocabulary: encode parameters: %w", err)
	}
	for _, key := range keys {
		if err := writeKey(enc, key); err != nil {
			return nil, err
		}
	}
	if err := enc.EncodeElement(strconv.FormatBool(fixedCulture), xml.StartElement{Name: xml.Name{Local: "fixed-culture"}}); err != nil {
		return nil, fmt.Errorf("vocabulary: encode fixed-culture: %w", err)
	}
	if err := enc.EncodeToken(params.End()); err != nil {
		return nil, fmt.Errorf("vocabulary: encode parameters end: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("vocabulary: flush parameters: %w", err)
	}

	resp, err := c.conn.Execute(ctx, transport.MethodGetVocabulary, transport.RequestParams{InfoXML: buf.Bytes()})
	if err != nil {
		return nil, fmt.Errorf("get vocabulary: %w", err)
	}
	return parseVocabularies(resp.InfoXML)
}

// Search performs a text search across a vocabulary's display texts.
// The search string must be 1 to 255 characters; maxResults, when given,
// must be at least 1. Both are validated before any network traffic.
func (c *Client) Search(ctx context.Context, text string, maxResults *int) ([]Key, error) {
	if length := utf8.RuneCountInString(text); length == 0 || length > maxSearchStringLength {
		return nil, hverror.Validationf("search string must be 1 to %d characters, got %d", maxSearchStringLength, length)
	}
	if maxResults != nil && *maxResults < 1 {
		return nil, hverror.Validationf("max results must be at least 1, got %d", *maxResults)
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := enc.EncodeElement(text, xml.StartElement{
		Name: xml.Name{Local: "text-search-parameters"},
	}); err != nil {
		return nil, fmt.Errorf("vocabulary: encode search text: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("vocabulary: flush search request: %w", err)
	}

	body := buf.Bytes()
	if maxResults != nil {
		var mr bytes.Buffer
		mrEnc := xml.NewEncoder(&mr)
		if err := mrEnc.EncodeElement(*maxResults, xml.StartElement{Name: xml.Name{Local: "max-results"}}); err != nil {
			return nil, fmt.Errorf("vocabulary: encode max-results: %w", err)
		}
		if err := mrEnc.Flush(); err != nil {
			return nil, fmt.Errorf("vocabulary: flush max-results: %w", err)
		}
		body = append(body, mr.Bytes()...)
	}

	resp, err := c.conn.Execute(ctx, transport.MethodSearchVocabulary, transport.RequestParams{InfoXML: body})
	if err != nil {
		return nil, fmt.Errorf("search vocabulary: %w", err)
	}
	return parseKeys(resp.InfoXML)
}

func writeKey(enc *xml.Encoder, key Key) error {
	el := xml.StartElement{Name: xml.Name{Local: "vocabulary-key"}}
	if err := enc.EncodeToken(el); err != nil {
		return fmt.Errorf("vocabulary: encode key: %w", err)
	}
	if err := enc.EncodeElement(key.Name, xml.StartElement{Name: xml.Name{Local: "name"}}); err != nil {
		return fmt.Errorf("vocabulary: encode name: %w", err)
	}
	if key.Family != "" {
		if err := enc.EncodeElement(key.Family, xml.StartElement{Name: xml.Name{Local: "family"}}); err != nil {
			return fmt.Errorf("vocabulary: encode family: %w", err)
		}
	}
	if key.Version != "" {
		if err := enc.EncodeElement(key.Version, xml.StartElement{Name: xml.Name{Local: "version"}}); err != nil {
			return fmt.Errorf("vocabulary: encode version: %w", err)
		}
	}
	if key.CodeValue != "" {
		if err := enc.EncodeElement(key.CodeValue, xml.StartElement{Name: xml.Name{Local: "code-value"}}); err != nil {
			return fmt.Errorf("vocabulary: encode code-value: %w", err)
		}
	}
	return enc.EncodeToken(el.End())
}

// Wire shapes.

type keyXML struct {
	Name        string `xml:"name"`
	Family      string `xml:"family"`
	Version     string `xml:"version"`
	Description string `xml:"description"`
}

type itemXML struct {
	CodeValue        string `xml:"code-value"`
	DisplayText      string `xml:"display-text"`
	AbbreviationText string `xml:"abbreviation-text"`
	InfoXML          struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"info-xml"`
}

type vocabularyXML struct {
	Name        string    `xml:"name"`
	Family      string    `xml:"family"`
	Version     string    `xml:"version"`
	Culture     string    `xml:"culture"`
	IsTruncated bool      `xml:"is-vocab-truncated"`
	Items       []itemXML `xml:"code-item"`
}

func wrap(inner []byte) []byte {
	return append(append([]byte("<info>"), inner...), "</info>"...)
}

func parseKeys(infoXML []byte) ([]Key, error) {
	var doc struct {
		Keys []keyXML `xml:"vocabulary-key"`
	}
	if err := xml.Unmarshal(wrap(infoXML), &doc); err != nil {
		return nil, hverror.Parsef(err, "vocabulary keys")
	}
	keys := make([]Key, 0, len(doc.Keys))
	for _, k := range doc.Keys {
		keys = append(keys, Key{Name: k.Name, Family: k.Family, Version: k.Version, Description: k.Description})
	}
	return keys, nil
}

func parseVocabularies(infoXML []byte) ([]*Vocabulary, error) {
	var doc struct {
		Vocabularies []vocabularyXML `xml:"vocabulary"`
	}
	if err := xml.Unmarshal(wrap(infoXML), &doc); err != nil {
		return nil, hverror.Parsef(err, "vocabulary set")
	}

	out := make([]*Vocabulary, 0, len(doc.Vocabularies))
	for _, v := range doc.Vocabularies {
		vocab := &Vocabulary{
			Key:         Key{Name: v.Name, Family: v.Family, Version: v.Version},
			Culture:     v.Culture,
			IsTruncated: v.IsTruncated,
			Items:       make([]Item, 0, len(v.Items)),
		}
		for _, item := range v.Items {
			vocab.Items = append(vocab.Items, Item{
				Code:             item.CodeValue,
				DisplayText:      item.DisplayText,
				AbbreviationText: item.AbbreviationText,
				InfoXML:          bytes.TrimSpace(item.InfoXML.Inner),
			})
		}
		out = append(out, vocab)
	}
	return out, nil
}
