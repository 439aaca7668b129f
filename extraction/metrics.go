package extraction

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical metric keys. Statement metrics are never posted to the ledger;
// they feed snapshots and reconciliation only.
const (
	MetricDistanceKm  = "distance_km"
	MetricOnlineHours = "online_hours"
	MetricTripCount   = "trip_count"
	MetricDeliveries  = "delivery_count"
	MetricGrossTotal  = "gross_total"
	MetricNetPayout   = "net_payout"
)

// metricPrecision is the per-key rounding table: counts are integers,
// distance/time keep two decimals.
var metricPrecision = map[string]int32{
	MetricDistanceKm:  2,
	MetricOnlineHours: 2,
	MetricTripCount:   0,
	MetricDeliveries:  0,
	MetricGrossTotal:  2,
	MetricNetPayout:   2,
}

// metricUnits maps canonical keys to their display unit.
var metricUnits = map[string]string{
	MetricDistanceKm:  "km",
	MetricOnlineHours: "h",
	MetricTripCount:   "trips",
	MetricDeliveries:  "deliveries",
}

// metricIndicators maps description phrases to canonical metric keys,
// checked before any monetary classification.
var metricIndicators = []struct {
	phrase string
	key    string
}{
	{"kilometers", MetricDistanceKm},
	{"kilometres", MetricDistanceKm},
	{"distance", MetricDistanceKm},
	{"km driven", MetricDistanceKm},
	{"online hours", MetricOnlineHours},
	{"hours online", MetricOnlineHours},
	{"active hours", MetricOnlineHours},
	{"trips completed", MetricTripCount},
	{"total trips", MetricTripCount},
	{"rides completed", MetricTripCount},
	{"total rides", MetricTripCount},
	{"deliveries completed", MetricDeliveries},
	{"total deliveries", MetricDeliveries},
}

// CanonicalMetricKey matches a description against the metric indicator table.
func CanonicalMetricKey(description string) (string, bool) {
	desc := strings.ToLower(description)
	for _, ind := range metricIndicators {
		if strings.Contains(desc, ind.phrase) {
			return ind.key, true
		}
	}
	return "", false
}

// RoundMetricValue applies the per-key precision table. Unknown keys keep two
// decimals so an unmapped provider metric still collapses deterministically.
func RoundMetricValue(key string, v decimal.Decimal) decimal.Decimal {
	precision, ok := metricPrecision[key]
	if !ok {
		precision = 2
	}
	return v.Round(precision)
}

// MetricUnit returns the display unit for a canonical key, empty if none.
func MetricUnit(key string) string {
	return metricUnits[key]
}
