package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTally_CountsLiteralStatuses(t *testing.T) {
	entries := []ReportEntry{
		{Results: map[string]ResultStatus{"a1": StatusOK, "a2": StatusOK, "a3": StatusNOK}},
		{Results: map[string]ResultStatus{"a1": StatusNA, "a2": StatusNR, "a3": StatusOK}},
		{Results: map[string]ResultStatus{"a1": "", "a2": "BOGUS"}},
	}

	got := Tally(entries)

	assert.Equal(t, StatusTally{OK: 3, NOK: 1, NA: 1, NR: 1}, got)
}

func TestFrequencyLabel(t *testing.T) {
	assert.Equal(t, "MENSUAL", Activity{Frequency: "Frequency.MENSUAL"}.FrequencyLabel())
	assert.Equal(t, "ANUAL", Activity{Frequency: "ANUAL"}.FrequencyLabel())
	assert.Equal(t, "a.b.", Activity{Frequency: "a.b."}.FrequencyLabel())
}

func TestInvolvedFrequencies_FirstSeenOrder(t *testing.T) {
	catalog := []DeviceDefinition{
		{ID: "ext", Activities: []Activity{
			{ID: "p", Frequency: "Frequency.MENSUAL"},
			{ID: "q", Frequency: "Frequency.ANUAL"},
		}},
		{ID: "det", Activities: []Activity{
			{ID: "r", Frequency: "Frequency.TRIMESTRAL"},
			{ID: "s", Frequency: "Frequency.MENSUAL"},
		}},
	}
	report := ServiceReport{Entries: []ReportEntry{
		{Results: map[string]ResultStatus{"r": StatusOK}},
		{Results: map[string]ResultStatus{"q": StatusOK, "s": StatusNA, "p": ""}},
	}}

	got := InvolvedFrequencies(report, catalog)

	assert.Equal(t, []string{"TRIMESTRAL", "MENSUAL", "ANUAL"}, got)
}
