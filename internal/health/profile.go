package health

import (
	"net/url"
	"strings"

	"github.com/breatheroute/envhealth/internal/airquality"
	"github.com/breatheroute/envhealth/internal/pollen"
)

// Sensitivity is the user's self-reported UV sensitivity.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// Respiratory conditions with dedicated advice. Other condition names are
// accepted and treated as generic respiratory conditions.
const (
	ConditionAsthma = "asthma"
	ConditionCOPD   = "copd"
)

// Profile is the health profile a dashboard view is personalized for.
type Profile struct {
	RespiratoryConditions []string      `json:"respiratoryConditions"`
	Allergies             []pollen.Type `json:"allergies"`
	UVSensitivity         Sensitivity   `json:"uvSensitivity"`
}

// DefaultProfile returns a profile with no conditions and medium UV sensitivity.
func DefaultProfile() Profile {
	return Profile{UVSensitivity: SensitivityMedium}
}

// HasRespiratoryCondition reports whether any respiratory condition is set.
func (p Profile) HasRespiratoryCondition() bool {
	return len(p.RespiratoryConditions) > 0
}

// IsAllergicTo reports whether the profile lists the pollen type.
func (p Profile) IsAllergicTo(t pollen.Type) bool {
	for _, a := range p.Allergies {
		if a == t {
			return true
		}
	}
	return false
}

// FieldError describes an invalid profile field.
type FieldError struct {
	Field   string
	Message string
}

// ParseProfile reads a profile from query parameters:
// conditions=asthma,copd&allergies=grass,tree&uvSensitivity=high.
// Missing parameters keep their defaults.
func ParseProfile(q url.Values) (Profile, []FieldError) {
	profile := DefaultProfile()
	var errs []FieldError

	for _, c := range splitList(q.Get("conditions")) {
		profile.RespiratoryConditions = append(profile.RespiratoryConditions, strings.ToLower(c))
	}

	for _, a := range splitList(q.Get("allergies")) {
		t, err := pollen.ParseType(a)
		if err != nil {
			errs = append(errs, FieldError{
				Field:   "allergies",
				Message: "unknown pollen type: " + a,
			})
			continue
		}
		if !profile.IsAllergicTo(t) {
			profile.Allergies = append(profile.Allergies, t)
		}
	}

	if s := strings.TrimSpace(q.Get("uvSensitivity")); s != "" {
		switch sens := Sensitivity(strings.ToLower(s)); sens {
		case SensitivityLow, SensitivityMedium, SensitivityHigh:
			profile.UVSensitivity = sens
		default:
			errs = append(errs, FieldError{
				Field:   "uvSensitivity",
				Message: "must be one of low, medium, high",
			})
		}
	}

	return profile, errs
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Severity of an advisory.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Advisory is a personalized message shown above the dashboard cards.
type Advisory struct {
	Domain   string   `json:"domain"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// uvThreshold is the UV index at which a warning is raised per sensitivity.
var uvThreshold = map[Sensitivity]float64{
	SensitivityHigh:   3,
	SensitivityMedium: 6,
	SensitivityLow:    8,
}

// Personalize derives advisories for a profile from the current readings.
// Any of the inputs may be nil; missing data produces no advisory.
func Personalize(p Profile, aq *airquality.Current, recs *Recommendations, pollenToday []pollen.Reading) []Advisory {
	advisories := make([]Advisory, 0)

	if aq != nil && p.HasRespiratoryCondition() {
		category := airquality.Classify(float64(aq.AQI))
		if category.Tier >= airquality.TierUnhealthySensitive {
			msg := "Air quality is " + category.Label + ". Limit outdoor exertion and keep your inhaler with you."
			if hasCondition(p, ConditionCOPD) {
				msg = "Air quality is " + category.Label + ". Stay indoors where possible and follow your COPD action plan."
			}
			advisories = append(advisories, Advisory{Domain: "airQuality", Severity: SeverityWarning, Message: msg})
		} else if category.Tier == airquality.TierModerate {
			advisories = append(advisories, Advisory{
				Domain:   "airQuality",
				Severity: SeverityInfo,
				Message:  "Air quality is Moderate. Watch for symptoms during prolonged outdoor activity.",
			})
		}
	}

	for _, r := range pollenToday {
		if p.IsAllergicTo(r.Type) && r.Risk.AtLeast(pollen.RiskModerate) {
			advisories = append(advisories, Advisory{
				Domain:   "pollen",
				Severity: SeverityWarning,
				Message:  strings.ToLower(string(r.Type)) + " pollen risk is " + strings.ToLower(strings.ReplaceAll(string(r.Risk), "_", " ")) + " today.",
			})
		}
	}

	if recs != nil {
		threshold, ok := uvThreshold[p.UVSensitivity]
		if !ok {
			threshold = uvThreshold[SensitivityMedium]
		}
		if recs.UV.Index >= threshold {
			advisories = append(advisories, Advisory{
				Domain:   "uv",
				Severity: SeverityWarning,
				Message:  "UV index is " + string(UVLevelFromIndex(recs.UV.Index)) + ". Cover up and apply sunscreen before going out.",
			})
		}
	}

	return advisories
}

func hasCondition(p Profile, condition string) bool {
	for _, c := range p.RespiratoryConditions {
		if c == condition {
			return true
		}
	}
	return false
}
