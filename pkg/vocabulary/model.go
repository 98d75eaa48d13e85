// Package vocabulary provides lookup and text search over the platform's
// controlled vocabularies.
package vocabulary

// Key identifies one controlled vocabulary. A name alone is not unique;
// family and version disambiguate (an empty family means the platform
// default, an empty version means the latest).
type Key struct {
	Name        string
	Family      string
	Version     string
	Description string

	// CodeValue, when set on a request, resumes a truncated vocabulary
	// fetch after the given code.
	CodeValue string
}

// Item is one coded concept within a vocabulary.
type Item struct {
	Code             string
	DisplayText      string
	AbbreviationText string
	// InfoXML is the item's type-specific extra data, kept opaque.
	InfoXML []byte
}

// Vocabulary is one fetched code set. IsTruncated indicates the server
// stopped short of the full set; re-request with Key.CodeValue set to the
// last returned code to continue.
type Vocabulary struct {
	Key         Key
	Culture     string
	IsTruncated bool
	Items       []Item
}

// Item lookup by code. Returns the zero Item when absent.
func (v *Vocabulary) Item(code string) (Item, bool) {
	for _, item := range v.Items {
		if item.Code == code {
			return item, true
		}
	}
	return Item{}, false
}
