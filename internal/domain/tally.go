package domain

// StatusTally counts result statuses across a report.
type StatusTally struct {
	OK  int `json:"ok"`
	NOK int `json:"nok"`
	NA  int `json:"na"`
	NR  int `json:"nr"`
}

// Tally counts every status value of every entry's result mapping.
// Absent and unknown values are not counted.
func Tally(entries []ReportEntry) StatusTally {
	var t StatusTally
	for _, e := range entries {
		for _, s := range e.Results {
			switch s {
			case StatusOK:
				t.OK++
			case StatusNOK:
				t.NOK++
			case StatusNA:
				t.NA++
			case StatusNR:
				t.NR++
			}
		}
	}
	return t
}

// InvolvedFrequencies returns the distinct frequency labels of every catalog
// activity that appears as a result key in the report, in first-seen order.
// Entries are walked in report order, definitions in catalog order, and
// activities in definition order.
func InvolvedFrequencies(report ServiceReport, catalog []DeviceDefinition) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range report.Entries {
		for _, def := range catalog {
			for _, a := range def.Activities {
				if !e.HasResult(a.ID) {
					continue
				}
				label := a.FrequencyLabel()
				if _, ok := seen[label]; ok {
					continue
				}
				seen[label] = struct{}{}
				out = append(out, label)
			}
		}
	}
	return out
}
