package ai

import (
	"encoding/json"
	"testing"
)

func TestRecommendationRanked(t *testing.T) {
	var value any
	raw := `{"resources":[{"id":"rec1","fields":{"Geography":"Global","Stage":["Seed"],"Category":"Funding","Sector":["FinTech"],"Score":0.87,"Link to tool":"https://example.com","Resource":"Tool","Description":"Useful"}}]}`
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := &Recommendation{Value: value, Raw: raw}
	ranked, err := rec.Ranked()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ranked) != 1 {
		t.Fatalf("expected 1 ranked resource, got %d", len(ranked))
	}

	got := ranked[0]
	if got.ID != "rec1" || got.Fields.Score != 0.87 {
		t.Fatalf("unexpected ranked resource: %+v", got)
	}
	if got.Fields.Link != "https://example.com" {
		t.Fatalf("unexpected link: %q", got.Fields.Link)
	}
	if len(got.Fields.Category) != 1 || got.Fields.Category[0] != "Funding" {
		t.Fatalf("expected single category to be lifted into a list, got %v", got.Fields.Category)
	}
}

func TestRecommendationRankedTolerance(t *testing.T) {
	t.Parallel()

	ranked, err := (&Recommendation{Value: map[string]any{"other": 1}}).Ranked()
	if err != nil || ranked != nil {
		t.Fatalf("expected nothing for missing resources, got %v, %v", ranked, err)
	}

	if _, err := (&Recommendation{Value: []any{1, 2}}).Ranked(); err == nil {
		t.Fatal("expected error for a non-object document")
	}

	var nilRec *Recommendation
	if ranked, err := nilRec.Ranked(); err != nil || ranked != nil {
		t.Fatalf("expected nil result for nil recommendation")
	}
}
