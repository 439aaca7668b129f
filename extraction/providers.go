package extraction

import (
	"regexp"
	"strings"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"github.com/shopspring/decimal"
)

// FreeTextRule matches a label in raw analyzer text; the amount is expected on
// the same line or within the bounded lookahead below it.
type FreeTextRule struct {
	Label     string
	LineType  models.LineType
	MetricKey string // non-empty makes this a metric rule
}

// SynthesizedLine is a canonical line a provider always reports. When a source
// section is missing we synthesize it at zero so downstream consumers keep a
// stable schema across periods.
type SynthesizedLine struct {
	Description string
	LineType    models.LineType
}

// ProviderPolicy captures what we know about one provider's statements.
type ProviderPolicy struct {
	Name string

	// DescriptionAllowlist, when non-nil, is the strict set of canonical
	// descriptions kept after collapsing. It prevents a gross total and its
	// component breakdown from double-counting as revenue.
	DescriptionAllowlist map[string]bool

	// AlwaysPresent lines are synthesized at zero when extraction found none.
	AlwaysPresent []SynthesizedLine

	// AnchorDescription is the authoritative revenue total used by snapshots
	// instead of summing income components.
	AnchorDescription string

	FreeTextRules []FreeTextRule
}

// Identifier/registration noise is dropped regardless of provider.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bhst\s*(registration|number|#)`),
	regexp.MustCompile(`(?i)\bgst/hst\s*registration`),
	regexp.MustCompile(`(?i)\bdriver\s*(id|number)\b`),
	regexp.MustCompile(`(?i)\baccount\s*(id|number)\b`),
	regexp.MustCompile(`(?i)\bbusiness\s*number\b`),
	regexp.MustCompile(`(?i)\bpartner\s*id\b`),
}

var providerPolicies = map[string]ProviderPolicy{
	"uber": {
		Name: "uber",
		DescriptionAllowlist: map[string]bool{
			"gross earnings":    true,
			"tips":              true,
			"incentives":        true,
			"service fee":       true,
			"booking fee":       true,
			"airport fee":       true,
			"gst/hst collected": true,
			"gst/hst paid":      true,
		},
		AlwaysPresent: []SynthesizedLine{
			{Description: "gross earnings", LineType: models.LineTypeIncome},
			{Description: "service fee", LineType: models.LineTypeFee},
			{Description: "gst/hst collected", LineType: models.LineTypeTaxCollected},
		},
		AnchorDescription: "gross earnings",
		FreeTextRules: []FreeTextRule{
			{Label: "gross uber rides fare", LineType: models.LineTypeIncome},
			{Label: "gross earnings", LineType: models.LineTypeIncome},
			{Label: "uber rides service fee", LineType: models.LineTypeFee},
			{Label: "booking fee", LineType: models.LineTypeFee},
			{Label: "gst/hst you collected", LineType: models.LineTypeTaxCollected},
			{Label: "gst/hst paid to uber", LineType: models.LineTypeItc},
			{Label: "kilometers on-trip", MetricKey: MetricDistanceKm},
			{Label: "online hours", MetricKey: MetricOnlineHours},
		},
	},
	"lyft": {
		Name:              "lyft",
		AnchorDescription: "gross ride earnings",
		FreeTextRules: []FreeTextRule{
			{Label: "gross ride earnings", LineType: models.LineTypeIncome},
			{Label: "platform fee", LineType: models.LineTypeFee},
			{Label: "service fee", LineType: models.LineTypeFee},
			{Label: "tips", LineType: models.LineTypeIncome},
			{Label: "rides completed", MetricKey: MetricTripCount},
		},
	},
	"doordash": {
		Name: "doordash",
		FreeTextRules: []FreeTextRule{
			{Label: "base pay", LineType: models.LineTypeIncome},
			{Label: "peak pay", LineType: models.LineTypeIncome},
			{Label: "customer tips", LineType: models.LineTypeIncome},
			{Label: "deliveries completed", MetricKey: MetricDeliveries},
		},
	},
}

// ProviderPolicyFor returns the provider's policy, or an empty generic policy
// for providers we have no special rules for.
func ProviderPolicyFor(provider string) ProviderPolicy {
	if p, ok := providerPolicies[strings.ToLower(strings.TrimSpace(provider))]; ok {
		return p
	}
	return ProviderPolicy{Name: strings.ToLower(strings.TrimSpace(provider))}
}

// AnchorDescriptionFor exposes the anchor revenue line for snapshots.
func AnchorDescriptionFor(provider string) string {
	return ProviderPolicyFor(provider).AnchorDescription
}

// IsNoise reports whether a description is identifier/registration noise.
func IsNoise(description string) bool {
	for _, p := range noisePatterns {
		if p.MatchString(description) {
			return true
		}
	}
	return false
}

// ApplyProviderPolicy runs the post-collapse prune: drop noise, enforce the
// allowlist when the provider has one, synthesize missing always-present lines.
func ApplyProviderPolicy(policy ProviderPolicy, lines []models.StatementLine) []models.StatementLine {
	kept := make([]models.StatementLine, 0, len(lines))
	for _, l := range lines {
		if IsNoise(l.Description) {
			continue
		}
		if policy.DescriptionAllowlist != nil && !l.IsMetric {
			if !policy.DescriptionAllowlist[strings.ToLower(l.Description)] {
				continue
			}
		}
		kept = append(kept, l)
	}

	for _, syn := range policy.AlwaysPresent {
		found := false
		for _, l := range kept {
			if !l.IsMetric && strings.EqualFold(l.Description, syn.Description) {
				found = true
				break
			}
		}
		if !found {
			zero := decimal.Zero
			kept = append(kept, models.StatementLine{
				Description:            syn.Description,
				LineType:               syn.LineType,
				MoneyAmount:            &zero,
				ClassificationEvidence: models.EvidenceInferred,
				CurrencyEvidence:       models.EvidenceInferred,
			})
		}
	}
	return kept
}
