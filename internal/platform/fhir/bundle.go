package fhir

import (
	"encoding/json"
	"fmt"
)

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
	Search   *BundleSearch   `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode  string   `json:"mode,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

// NextLink returns the URL of the next page, or "" on the last page.
func (b *Bundle) NextLink() string {
	if b == nil {
		return ""
	}
	for _, l := range b.Link {
		if l.Relation == "next" {
			return l.URL
		}
	}
	return ""
}

// ResourcesOfType decodes every entry whose resourceType equals
// resourceType into T. Entries of any other type, such as an
// OperationOutcome included with search mode "outcome", are skipped.
func ResourcesOfType[T any](b *Bundle, resourceType string) ([]T, error) {
	if b == nil {
		return nil, nil
	}
	var out []T
	for i, e := range b.Entry {
		if len(e.Resource) == 0 || PeekResourceType(e.Resource) != resourceType {
			continue
		}
		var r T
		if err := json.Unmarshal(e.Resource, &r); err != nil {
			return nil, fmt.Errorf("decode %s entry %d: %w", resourceType, i, err)
		}
		out = append(out, r)
	}
	return out, nil
}
