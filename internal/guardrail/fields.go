package guardrail

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"

	"github.com/dukerupert/mutualaid/internal/model"
)

// DeriveSlug makes a slug from label when s is empty.
func DeriveSlug(s, label string) string {
	if s != "" {
		return s
	}
	return slug.Make(label)
}

// ValidSlug reports whether s is lowercase alphanumeric plus dashes.
func ValidSlug(s string) bool {
	return slug.IsSlug(s) && !strings.Contains(s, "_")
}

func ValidateDraftFields(name, description, valueStatement, rationale string) []Violation {
	var vs []Violation
	vs = checkLen(vs, "name", "Name", name, 3, 100)
	vs = checkLen(vs, "description", "Description", description, 0, 1000)
	vs = checkLen(vs, "value_statement", "Value statement", valueStatement, 10, 2000)
	vs = checkLen(vs, "design_rationale", "Design rationale", rationale, 10, 5000)
	return vs
}

func ValidateQuestType(qt model.QuestType) []Violation {
	var vs []Violation
	vs = checkSlug(vs, qt.Slug)
	vs = checkLen(vs, "label", "Label", qt.Label, 1, 100)
	vs = checkLen(vs, "description", "Description", qt.Description, 0, 500)
	if !validMethod(qt.ValidationMethod) {
		vs = append(vs, Violation{"validation_method", "Invalid validation method"})
	}
	vs = checkRange(vs, "validation_threshold", "Validation threshold", qt.ValidationThreshold, 0, MaxValidationThreshold)
	if !validRecognitionType(qt.RecognitionType) {
		vs = append(vs, Violation{"recognition_type", "Invalid recognition type"})
	}
	vs = checkRange(vs, "base_recognition", "Base recognition", qt.BaseRecognition, 0, MaxBaseRecognition)
	vs = checkRange(vs, "cooldown_hours", "Cooldown hours", qt.CooldownHours, 0, MaxCooldownHours)
	vs = checkRange(vs, "max_party_size", "Max party size", qt.MaxPartySize, 1, MaxPartySize)
	if qt.SortOrder < 0 {
		vs = append(vs, Violation{"sort_order", "Sort order cannot be negative"})
	}
	return vs
}

func ValidateSkillDomain(sd model.SkillDomain) []Violation {
	var vs []Violation
	vs = checkSlug(vs, sd.Slug)
	vs = checkLen(vs, "label", "Label", sd.Label, 1, 100)
	vs = checkLen(vs, "description", "Description", sd.Description, 0, 500)
	if len(sd.Examples) > MaxExamples {
		vs = append(vs, Violation{"examples", fmt.Sprintf("Maximum %d examples allowed", MaxExamples)})
	}
	for _, ex := range sd.Examples {
		if runeLen(ex) > 100 {
			vs = append(vs, Violation{"examples", "Examples must be at most 100 characters"})
			break
		}
	}
	if !ValidateVisibilityDefault(sd.VisibilityDefault) {
		vs = append(vs, Violation{"visibility_default", "Visibility must be private, opt_in or summary_only"})
	}
	if sd.SortOrder < 0 {
		vs = append(vs, Violation{"sort_order", "Sort order cannot be negative"})
	}
	return vs
}

func ValidateRecognitionTier(rt model.RecognitionTier) []Violation {
	var vs []Violation
	vs = checkRange(vs, "tier_number", "Tier number", rt.TierNumber, 1, MaxRecognitionTiers)
	vs = checkLen(vs, "name", "Name", rt.Name, 1, 50)
	if !validThresholdType(rt.ThresholdType) {
		vs = append(vs, Violation{"threshold_type", "Invalid threshold type"})
	}
	vs = checkRange(vs, "threshold_value", "Threshold value", rt.ThresholdValue, 0, MaxTierThreshold)
	if len(rt.Unlocks) > MaxUnlocks {
		vs = append(vs, Violation{"unlocks", fmt.Sprintf("Maximum %d unlocks allowed", MaxUnlocks)})
	}
	for _, u := range rt.Unlocks {
		if runeLen(u) > 200 {
			vs = append(vs, Violation{"unlocks", "Unlocks must be at most 200 characters"})
			break
		}
	}
	return vs
}

func ValidateRecognitionSource(rs model.RecognitionSource) []Violation {
	var vs []Violation
	if !validSourceType(rs.SourceType) {
		vs = append(vs, Violation{"source_type", "Invalid recognition source type"})
	}
	return append(vs, ValidateRecognitionAmount(rs.Amount, rs.MaxPerDay)...)
}

func checkSlug(vs []Violation, s string) []Violation {
	if runeLen(s) < 1 || runeLen(s) > 50 {
		return append(vs, Violation{"slug", "Slug must be between 1 and 50 characters"})
	}
	if !ValidSlug(s) {
		return append(vs, Violation{"slug", "Slug must be lowercase alphanumeric with dashes"})
	}
	return vs
}

func checkLen(vs []Violation, field, label, s string, lo, hi int) []Violation {
	n := runeLen(s)
	switch {
	case n < lo && lo == 1:
		return append(vs, Violation{field, label + " is required"})
	case n < lo:
		return append(vs, Violation{field, fmt.Sprintf("%s must be at least %d characters", label, lo)})
	case n > hi:
		return append(vs, Violation{field, fmt.Sprintf("%s must be at most %d characters", label, hi)})
	}
	return vs
}

func checkRange(vs []Violation, field, label string, v, lo, hi int) []Violation {
	if v < lo || v > hi {
		return append(vs, Violation{field, fmt.Sprintf("%s must be between %d and %d", label, lo, hi)})
	}
	return vs
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
