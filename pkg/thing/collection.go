package thing

// entry is one position in a result group: either a fully hydrated thing or
// an unprocessed key stub.
type entry struct {
	thing *Thing
	key   Key
}

// Collection is the typed form of one response <group>: an ordered sequence
// of things and key stubs plus the group-level metadata.
type Collection struct {
	// Name is the group's name attribute, when present.
	Name string
	// WasFiltered reports that the server applied a filter that dropped
	// matches from this group.
	WasFiltered bool
	// OrderByCulture is the locale tag the server ordered the group by.
	OrderByCulture string

	entries []entry
}

// Count is the number of positions in the group: fully hydrated things plus
// unprocessed key stubs.
func (c *Collection) Count() int { return len(c.entries) }

// MaxResultsPerRequest is the number of fully hydrated things actually
// returned in this group; key stubs do not count. The name follows the wire
// contract, not the semantics.
func (c *Collection) MaxResultsPerRequest() int {
	n := 0
	for _, e := range c.entries {
		if e.thing != nil {
			n++
		}
	}
	return n
}

// IsStub reports whether position i is an unprocessed key stub.
func (c *Collection) IsStub(i int) bool { return c.entries[i].thing == nil }

// ThingAt returns the fully hydrated thing at position i, or nil for a stub.
func (c *Collection) ThingAt(i int) *Thing { return c.entries[i].thing }

// KeyAt returns the key at position i; for full things it is the thing's key.
func (c *Collection) KeyAt(i int) Key {
	if t := c.entries[i].thing; t != nil {
		return t.Key
	}
	return c.entries[i].key
}

// Things returns the fully hydrated things in group order, skipping stubs.
func (c *Collection) Things() []*Thing {
	out := make([]*Thing, 0, len(c.entries))
	for _, e := range c.entries {
		if e.thing != nil {
			out = append(out, e.thing)
		}
	}
	return out
}

// StubKeys returns the keys of the unprocessed stubs in group order.
func (c *Collection) StubKeys() []Key {
	var out []Key
	for _, e := range c.entries {
		if e.thing == nil {
			out = append(out, e.key)
		}
	}
	return out
}

func (c *Collection) appendThing(t *Thing) { c.entries = append(c.entries, entry{thing: t}) }
func (c *Collection) appendStub(k Key)     { c.entries = append(c.entries, entry{key: k}) }

// ThingsOfType returns, across all collections in order, the things whose
// payload has the given concrete type. This is the runtime-type filter used
// by the single-item convenience operations.
func ThingsOfType[T TypePayload](cols ...*Collection) []*Thing {
	var out []*Thing
	for _, c := range cols {
		for _, e := range c.entries {
			if e.thing == nil {
				continue
			}
			if _, ok := e.thing.Payload.(T); ok {
				out = append(out, e.thing)
			}
		}
	}
	return out
}
