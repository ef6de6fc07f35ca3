package guardrail

import (
	"strings"
	"testing"

	"github.com/dukerupert/mutualaid/internal/model"
)

func validQuestType() model.QuestType {
	return model.QuestType{
		Slug:                "spark",
		Label:               "Spark",
		ValidationMethod:    model.ValidationSelfReport,
		RecognitionType:     model.RecognitionXP,
		BaseRecognition:     5,
		MaxPartySize:        1,
		ValidationThreshold: 0,
	}
}

func TestValidateQuestType(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.QuestType)
		field  string
	}{
		{"valid", func(*model.QuestType) {}, ""},
		{"uppercase slug", func(q *model.QuestType) { q.Slug = "Spark" }, "slug"},
		{"underscore slug", func(q *model.QuestType) { q.Slug = "big_job" }, "slug"},
		{"long slug", func(q *model.QuestType) { q.Slug = strings.Repeat("a", 51) }, "slug"},
		{"empty label", func(q *model.QuestType) { q.Label = "" }, "label"},
		{"bad method", func(q *model.QuestType) { q.ValidationMethod = "vibes" }, "validation_method"},
		{"threshold", func(q *model.QuestType) { q.ValidationThreshold = 101 }, "validation_threshold"},
		{"recognition type", func(q *model.QuestType) { q.RecognitionType = "cash" }, "recognition_type"},
		{"base recognition", func(q *model.QuestType) { q.BaseRecognition = 1001 }, "base_recognition"},
		{"cooldown", func(q *model.QuestType) { q.CooldownHours = 169 }, "cooldown_hours"},
		{"party zero", func(q *model.QuestType) { q.MaxPartySize = 0 }, "max_party_size"},
		{"party eleven", func(q *model.QuestType) { q.MaxPartySize = 11 }, "max_party_size"},
	}
	for _, tt := range tests {
		qt := validQuestType()
		tt.mutate(&qt)
		vs := ValidateQuestType(qt)
		if tt.field == "" {
			if len(vs) != 0 {
				t.Errorf("%s: unexpected violations %v", tt.name, vs)
			}
			continue
		}
		if len(vs) != 1 || vs[0].Field != tt.field {
			t.Errorf("%s: violations = %v, want one on %q", tt.name, vs, tt.field)
		}
	}
}

func TestValidateSkillDomain(t *testing.T) {
	sd := model.SkillDomain{
		Slug:              "craft",
		Label:             "Craft",
		Examples:          []string{"Woodworking"},
		VisibilityDefault: model.VisibilityPrivate,
	}
	if vs := ValidateSkillDomain(sd); len(vs) != 0 {
		t.Fatalf("valid domain rejected: %v", vs)
	}

	sd.VisibilityDefault = "public"
	sd.Examples = make([]string, 11)
	vs := ValidateSkillDomain(sd)
	if len(vs) != 2 {
		t.Errorf("violations = %v, want 2", vs)
	}
}

func TestValidateRecognitionTier(t *testing.T) {
	rt := model.RecognitionTier{
		TierNumber:     3,
		Name:           "Pillar",
		ThresholdType:  model.ThresholdPoints,
		ThresholdValue: 50,
	}
	if vs := ValidateRecognitionTier(rt); len(vs) != 0 {
		t.Fatalf("valid tier rejected: %v", vs)
	}

	rt.TierNumber = 8
	rt.ThresholdValue = 10001
	rt.Unlocks = []string{strings.Repeat("x", 201)}
	if vs := ValidateRecognitionTier(rt); len(vs) != 3 {
		t.Errorf("violations = %v, want 3", vs)
	}
}

func TestValidateRecognitionSource(t *testing.T) {
	over := 600
	vs := ValidateRecognitionSource(model.RecognitionSource{SourceType: "bribery", Amount: -1, MaxPerDay: &over})
	if len(vs) != 3 {
		t.Errorf("violations = %v, want 3", vs)
	}
}

func TestValidateDraftFields(t *testing.T) {
	if vs := ValidateDraftFields("Block Party", "", "We help each other out.", "Because neighbors matter."); len(vs) != 0 {
		t.Errorf("valid draft rejected: %v", vs)
	}
	if vs := ValidateDraftFields("No", "", "short", "short"); len(vs) != 3 {
		t.Errorf("violations = %v, want 3", vs)
	}
}

func TestDeriveSlug(t *testing.T) {
	if got := DeriveSlug("", "Home Repair"); got != "home-repair" {
		t.Errorf("DeriveSlug = %q, want %q", got, "home-repair")
	}
	if got := DeriveSlug("keep", "Other"); got != "keep" {
		t.Errorf("DeriveSlug = %q, want %q", got, "keep")
	}
}
