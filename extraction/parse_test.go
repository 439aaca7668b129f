package extraction

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in       string
		expected string
		ok       bool
	}{
		{"1234.56", "1234.56", true},
		{"$1,234.56", "1234.56", true},
		{"$ 1,234.56", "1234.56", true},
		{"(50.00)", "-50", true},
		{"-$12.00", "-12", true},
		{"100.00-", "-100", true},
		{"1.234,56", "1234.56", true},
		{"10,50", "10.5", true},
		{"1'234.56", "1234.56", true},
		{"0", "0", true},
		{"", "", false},
		{"n/a", "", false},
	}
	for _, tc := range cases {
		d, ok := ParseAmount(tc.in)
		if ok != tc.ok {
			t.Fatalf("ParseAmount(%q) ok=%v, expected %v", tc.in, ok, tc.ok)
		}
		if ok && d.String() != tc.expected {
			t.Fatalf("ParseAmount(%q) = %s, expected %s", tc.in, d.String(), tc.expected)
		}
	}
}

func TestFindAmount(t *testing.T) {
	d, ok := FindAmount("Gross earnings: $1,234.56")
	require.True(t, ok)
	assert.Equal(t, "1234.56", d.String())

	d, ok = FindAmount("Adjustments (15.00)")
	require.True(t, ok)
	assert.Equal(t, "-15", d.String())

	// A long bare identifier is not an amount.
	_, ok = FindAmount("Driver number 123456789")
	assert.False(t, ok)

	_, ok = FindAmount("no numbers here")
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2024-07-31", "2024/07/31", "Jul 31, 2024", "31 Jul 2024"} {
		d, ok := ParseDate(in)
		require.True(t, ok, "ParseDate(%q)", in)
		assert.Equal(t, time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC), d)
	}

	_, ok := ParseDate("last tuesday")
	assert.False(t, ok)
}

func TestDetectCurrencyCode(t *testing.T) {
	code, ok := DetectCurrencyCode("1,234.56 CAD")
	require.True(t, ok)
	assert.Equal(t, "CAD", code)

	code, ok = DetectCurrencyCode("usd")
	require.True(t, ok)
	assert.Equal(t, "USD", code)

	_, ok = DetectCurrencyCode("gross earnings")
	assert.False(t, ok)
}

func TestPeriodRange(t *testing.T) {
	start, end, err := PeriodRange(models.PeriodTypeMonthly, "2024-07")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), end)

	start, end, err = PeriodRange(models.PeriodTypeQuarterly, "2024-Q3")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), end)

	start, end, err = PeriodRange(models.PeriodTypeYearly, "2024")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestPeriodRangeMalformedKeys(t *testing.T) {
	cases := []struct {
		periodType models.PeriodType
		key        string
	}{
		{models.PeriodTypeMonthly, "2024-13"},
		{models.PeriodTypeMonthly, "2024"},
		{models.PeriodTypeQuarterly, "2024-Q5"},
		{models.PeriodTypeYearly, "24"},
		{models.PeriodType("Weekly"), "2024-W31"},
	}
	for _, tc := range cases {
		_, _, err := PeriodRange(tc.periodType, tc.key)
		require.Error(t, err, "%s %s", tc.periodType, tc.key)
		assert.True(t, utils.IsDataIntegrityError(err), "%s %s should be a data integrity failure", tc.periodType, tc.key)
	}
}
