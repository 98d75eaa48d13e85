package thing

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// TypePayload is the parsed form of a thing's data-xml. Implementations are
// registered per type id; anything unregistered deserializes into
// *RawPayload rather than failing.
type TypePayload interface {
	TypeID() uuid.UUID
	ParseDataXML(data []byte) error
	WriteDataXML(enc *xml.Encoder) error
}

// Registry maps thing type ids to payload factories. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[uuid.UUID]func() TypePayload
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[uuid.UUID]func() TypePayload)}
}

// Register associates a payload factory with a type id, replacing any
// previous registration.
func (r *Registry) Register(typeID uuid.UUID, factory func() TypePayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typeID] = factory
}

// New returns a fresh payload for the type id, or a *RawPayload when the
// type id is not registered.
func (r *Registry) New(typeID uuid.UUID) TypePayload {
	r.mu.RLock()
	factory, ok := r.factories[typeID]
	r.mu.RUnlock()
	if !ok {
		return &RawPayload{typeID: typeID}
	}
	return factory()
}

// DefaultRegistry carries the built-in payload types. Applications with
// custom thing types register them here or on a private registry passed to
// the deserializer.
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(WeightTypeID, func() TypePayload { return &Weight{} })
	r.Register(BloodPressureTypeID, func() TypePayload { return &BloodPressure{} })
	r.Register(BasicTypeID, func() TypePayload { return &Basic{} })
	return r
}

// RawPayload is the generic payload for unregistered type ids: the data-xml
// bytes held opaquely.
type RawPayload struct {
	typeID uuid.UUID
	XML    []byte
}

// NewRawPayload creates an opaque payload for the given type id.
func NewRawPayload(typeID uuid.UUID, data []byte) *RawPayload {
	return &RawPayload{typeID: typeID, XML: data}
}

func (p *RawPayload) TypeID() uuid.UUID { return p.typeID }

func (p *RawPayload) ParseDataXML(data []byte) error {
	p.XML = append(p.XML[:0], data...)
	return nil
}

// WriteDataXML replays the stored fragment token by token so it passes
// through the caller's encoder without double escaping.
func (p *RawPayload) WriteDataXML(enc *xml.Encoder) error {
	if len(bytes.TrimSpace(p.XML)) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(p.XML))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("thing: replay raw payload: %w", err)
		}
		if err := enc.EncodeToken(fixupToken(tok)); err != nil {
			return fmt.Errorf("thing: encode raw payload: %w", err)
		}
	}
	return nil
}

// fixupToken strips decoder-resolved namespace URLs from element names so
// re-encoding does not invent xmlns attributes for unprefixed fragments.
func fixupToken(tok xml.Token) xml.Token {
	switch t := tok.(type) {
	case xml.StartElement:
		t.Name.Space = ""
		attrs := t.Attr[:0]
		for _, a := range t.Attr {
			if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
				continue
			}
			a.Name.Space = ""
			attrs = append(attrs, a)
		}
		t.Attr = attrs
		return t
	case xml.EndElement:
		t.Name.Space = ""
		return t
	}
	return tok
}
