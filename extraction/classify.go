package extraction

import (
	"regexp"
	"strings"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"github.com/shopspring/decimal"
)

var itcWordPattern = regexp.MustCompile(`\bitc\b`)

func hintEvidence(c LineCandidate) models.Evidence {
	if c.SourceEvidence == models.EvidenceExtracted {
		return models.EvidenceExtracted
	}
	return models.EvidenceInferred
}

// Classification is the outcome of running a candidate through the rule table.
type Classification struct {
	LineType  models.LineType
	IsMetric  bool
	MetricKey string
	Evidence  models.Evidence
}

// classifyRule pairs a predicate with its classification. Rules are evaluated
// strictly in priority order; new provider phrases are appended to the right
// tier without touching the others.
type classifyRule struct {
	name     string
	match    func(desc string) bool
	lineType models.LineType
}

func phraseRule(name string, lineType models.LineType, phrases ...string) classifyRule {
	return classifyRule{
		name:     name,
		lineType: lineType,
		match: func(desc string) bool {
			for _, p := range phrases {
				if strings.Contains(desc, p) {
					return true
				}
			}
			return false
		},
	}
}

// Ordered heuristic tiers: ITC > tax-collected > fee > income.
// (Metric indicators run before this table; sign fallback runs after.)
var classifyRules = []classifyRule{
	{
		name:     "itc",
		lineType: models.LineTypeItc,
		match: func(desc string) bool {
			if itcWordPattern.MatchString(desc) {
				return true
			}
			for _, p := range []string{"input tax credit", "gst/hst paid", "hst paid", "tax on fees", "tax paid"} {
				if strings.Contains(desc, p) {
					return true
				}
			}
			return false
		},
	},
	phraseRule("tax-collected", models.LineTypeTaxCollected,
		"gst/hst collected", "hst collected", "gst collected", "tax collected",
		"hst on fares", "sales tax", "gst/hst you collected"),
	phraseRule("fee", models.LineTypeFee,
		"service fee", "booking fee", "platform fee", "commission", "airport fee",
		"marketplace fee", "split fare fee", "fee"),
	phraseRule("income", models.LineTypeIncome,
		"gross earnings", "earnings", "fare", "tip", "bonus", "incentive", "quest",
		"boost", "surge", "payout", "revenue", "gross"),
}

// Classify applies explicit hints first, then metric indicators, then the
// ordered keyword tiers, then the sign-of-amount fallback. Only explicit hints
// count as Extracted evidence; everything heuristic is Inferred.
func Classify(c LineCandidate) Classification {
	// A hint from structured fields is Extracted evidence; a hint produced by
	// a free-text rule is still a heuristic and stays Inferred.
	if c.MetricHint != "" {
		return Classification{IsMetric: true, MetricKey: c.MetricHint, Evidence: hintEvidence(c)}
	}
	if c.HasTypeHint {
		return Classification{LineType: c.TypeHint, Evidence: hintEvidence(c)}
	}

	desc := strings.ToLower(c.Description)

	if key, ok := CanonicalMetricKey(desc); ok {
		return Classification{IsMetric: true, MetricKey: key, Evidence: models.EvidenceInferred}
	}

	for _, rule := range classifyRules {
		if rule.match(desc) {
			return Classification{LineType: rule.lineType, Evidence: models.EvidenceInferred}
		}
	}

	// Sign fallback: positive amounts read as income, negative as deductions.
	amount := decimal.Zero
	if c.Amount != nil {
		amount = *c.Amount
	}
	if amount.IsNegative() {
		return Classification{LineType: models.LineTypeFee, Evidence: models.EvidenceInferred}
	}
	if amount.IsZero() {
		return Classification{LineType: models.LineTypeOther, Evidence: models.EvidenceInferred}
	}
	return Classification{LineType: models.LineTypeIncome, Evidence: models.EvidenceInferred}
}
