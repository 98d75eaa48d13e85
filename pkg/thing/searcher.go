package thing

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/healthvault/sdk/pkg/hverror"
)

// Searcher assembles one GetThings request from one or more queries. Filter
// index i in the request corresponds to result group index i in the
// response; the correspondence is positional (see CorrelateKeysByPosition
// for the same assumption on the write path).
type Searcher struct {
	queries []*Query
}

// NewSearcher creates a searcher over the given queries.
func NewSearcher(queries ...*Query) *Searcher {
	return &Searcher{queries: queries}
}

// AddQuery appends a query; it becomes the next <group> in the request.
func (s *Searcher) AddQuery(q *Query) {
	s.queries = append(s.queries, q)
}

// Queries returns the attached queries in submission order.
func (s *Searcher) Queries() []*Query { return s.queries }

// BuildGetThingsInfo serializes all attached queries into the GetThings
// <info> body. A searcher with no queries, or any query with an empty
// combined filter, fails here rather than on the server.
func (s *Searcher) BuildGetThingsInfo() ([]byte, error) {
	if len(s.queries) == 0 {
		return nil, hverror.Validationf("invalid filter: at least one query must be attached to the searcher")
	}
	for _, q := range s.queries {
		if err := q.validate(); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	for _, q := range s.queries {
		if err := q.writeGroup(enc); err != nil {
			return nil, err
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("thing: flush query: %w", err)
	}
	return buf.Bytes(), nil
}
