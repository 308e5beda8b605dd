package airtable

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

type Records struct {
	Items []*Record
}

// Record is a table row as returned by the store. Fields are kept untouched.
type Record struct {
	ID          string         `mapstructure:"id" json:"id"`
	CreatedTime string         `mapstructure:"createdTime" json:"-"`
	Fields      map[string]any `mapstructure:"fields" json:"fields"`
}

// ResourceFields is a typed view over the columns of the resources table.
type ResourceFields struct {
	Geography   string   `mapstructure:"Geography" json:"Geography,omitempty"`
	Stage       []string `mapstructure:"Stage" json:"Stage,omitempty"`
	Category    []string `mapstructure:"Category" json:"Category,omitempty"`
	Sector      []string `mapstructure:"Sector" json:"Sector,omitempty"`
	Link        string   `mapstructure:"Link to tool" json:"Link to tool,omitempty"`
	Resource    string   `mapstructure:"Resource" json:"Resource,omitempty"`
	Description string   `mapstructure:"Description" json:"Description,omitempty"`
}

// Resource decodes the raw fields into ResourceFields. Single values are
// accepted where a list is expected.
func (r *Record) Resource() (*ResourceFields, error) {
	var fields ResourceFields

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &fields,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(r.Fields); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", r.ID, err)
	}

	return &fields, nil
}

func (r *Records) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}

// List returns the records as a non-nil slice, suitable for JSON encoding.
func (r *Records) List() []*Record {
	if r == nil || r.Items == nil {
		return []*Record{}
	}
	return r.Items
}
