package ai

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Recommendation is the model output parsed as JSON. Value is kept exactly as
// decoded; its shape is requested from the model but never enforced.
type Recommendation struct {
	Value any
	Raw   string
}

// RankedResource is a resource restructured and scored by the model.
type RankedResource struct {
	ID     string       `mapstructure:"id" json:"id"`
	Fields RankedFields `mapstructure:"fields" json:"fields"`
}

type RankedFields struct {
	Geography   string   `mapstructure:"Geography" json:"Geography"`
	Stage       []string `mapstructure:"Stage" json:"Stage"`
	Category    []string `mapstructure:"Category" json:"Category"`
	Sector      []string `mapstructure:"Sector" json:"Sector"`
	Score       float64  `mapstructure:"Score" json:"Score"`
	Link        string   `mapstructure:"Link to tool" json:"Link to tool"`
	Resource    string   `mapstructure:"Resource" json:"Resource"`
	Description string   `mapstructure:"Description" json:"Description"`
}

// Recommender turns a sector selection into a model recommendation.
type Recommender interface {
	Recommend(ctx context.Context, sectors []string) (*Recommendation, error)
}

// Ranked decodes the "resources" list of the recommendation. It is best
// effort: the model is free to answer with any JSON document.
func (r *Recommendation) Ranked() ([]RankedResource, error) {
	if r == nil {
		return nil, nil
	}

	doc, ok := r.Value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("recommendation is %T, not an object", r.Value)
	}

	list, ok := doc["resources"]
	if !ok || list == nil {
		return nil, nil
	}

	var ranked []RankedResource
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ranked,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(list); err != nil {
		return nil, fmt.Errorf("decode ranked resources: %w", err)
	}

	return ranked, nil
}
