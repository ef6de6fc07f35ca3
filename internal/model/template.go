package model

// Template is a fixed starting point a community can seed a draft from.
type Template struct {
	ID             string         `json:"id"`
	Slug           string         `json:"slug"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	ValueStatement string         `json:"value_statement"`
	Config         TemplateConfig `json:"config"`
}

// TemplateConfig is the JSON blob stored with a template.
type TemplateConfig struct {
	QuestTypes         []TemplateQuestType         `json:"quest_types"`
	SkillDomains       []TemplateSkillDomain       `json:"skill_domains"`
	RecognitionTiers   []TemplateRecognitionTier   `json:"recognition_tiers"`
	RecognitionSources []TemplateRecognitionSource `json:"recognition_sources"`
}

type TemplateQuestType struct {
	Slug                string `json:"slug"`
	Label               string `json:"label"`
	Description         string `json:"description"`
	ValidationMethod    string `json:"validation_method"`
	ValidationThreshold int    `json:"validation_threshold"`
	RecognitionType     string `json:"recognition_type"`
	BaseRecognition     int    `json:"base_recognition"`
	NarrativePrompt     string `json:"narrative_prompt"`
	CooldownHours       int    `json:"cooldown_hours"`
	MaxPartySize        int    `json:"max_party_size"`
}

type TemplateSkillDomain struct {
	Slug        string   `json:"slug"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
}

type TemplateRecognitionTier struct {
	TierNumber             int            `json:"tier_number"`
	Name                   string         `json:"name"`
	ThresholdType          string         `json:"threshold_type"`
	ThresholdValue         int            `json:"threshold_value"`
	AdditionalRequirements map[string]any `json:"additional_requirements"`
	Unlocks                []string       `json:"unlocks"`
}

type TemplateRecognitionSource struct {
	SourceType string  `json:"source_type"`
	Amount     float64 `json:"amount"`
	MaxPerDay  *int    `json:"max_per_day"`
}

// Rows converts the template config into child rows for a draft, applying
// the same defaults the editor applies to manual rows.
func (c TemplateConfig) Rows() RulesetChildren {
	var out RulesetChildren
	for i, qt := range c.QuestTypes {
		row := QuestType{
			Slug:                qt.Slug,
			Label:               qt.Label,
			Description:         qt.Description,
			ValidationMethod:    ValidationMethod(qt.ValidationMethod),
			ValidationThreshold: qt.ValidationThreshold,
			RecognitionType:     RecognitionType(qt.RecognitionType),
			BaseRecognition:     qt.BaseRecognition,
			NarrativePrompt:     qt.NarrativePrompt,
			CooldownHours:       qt.CooldownHours,
			MaxPartySize:        qt.MaxPartySize,
			SortOrder:           i,
		}
		if row.RecognitionType == "" {
			row.RecognitionType = RecognitionXP
		}
		if row.MaxPartySize == 0 {
			row.MaxPartySize = 1
		}
		out.QuestTypes = append(out.QuestTypes, row)
	}
	for i, sd := range c.SkillDomains {
		out.SkillDomains = append(out.SkillDomains, SkillDomain{
			Slug:              sd.Slug,
			Label:             sd.Label,
			Description:       sd.Description,
			Examples:          sd.Examples,
			VisibilityDefault: VisibilityPrivate,
			SortOrder:         i,
		})
	}
	for _, rt := range c.RecognitionTiers {
		row := RecognitionTier{
			TierNumber:             rt.TierNumber,
			Name:                   rt.Name,
			ThresholdType:          ThresholdType(rt.ThresholdType),
			ThresholdValue:         rt.ThresholdValue,
			AdditionalRequirements: rt.AdditionalRequirements,
			Unlocks:                rt.Unlocks,
		}
		if row.ThresholdType == "" {
			row.ThresholdType = ThresholdPoints
		}
		out.RecognitionTiers = append(out.RecognitionTiers, row)
	}
	for _, rs := range c.RecognitionSources {
		out.RecognitionSources = append(out.RecognitionSources, RecognitionSource{
			SourceType: SourceType(rs.SourceType),
			Amount:     rs.Amount,
			MaxPerDay:  rs.MaxPerDay,
		})
	}
	return out
}
