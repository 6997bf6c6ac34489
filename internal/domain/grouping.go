package domain

import "strings"

// InstanceMatches reports whether an entry instance id belongs to the policy
// device baseID: either equal, or baseID followed by "_" and decimal digits
// (one of several identical units sharing a base instance).
func InstanceMatches(entryID, baseID string) bool {
	if entryID == baseID {
		return true
	}
	suffix, ok := strings.CutPrefix(entryID, baseID+"_")
	if !ok || suffix == "" {
		return false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// EntryGroup is the set of entries rendered under one device definition.
type EntryGroup struct {
	DefinitionID string
	Entries      []ReportEntry
}

// GroupEntries buckets entries by the definition of the first policy device
// they match. Groups keep the order in which their definition is first seen;
// entries keep report order. Entries matching no device are returned as dropped.
func GroupEntries(entries []ReportEntry, devices []PolicyDevice) (groups []EntryGroup, dropped []ReportEntry) {
	index := make(map[string]int)
	for _, entry := range entries {
		var device *PolicyDevice
		for i := range devices {
			if InstanceMatches(entry.InstanceID, devices[i].InstanceID) {
				device = &devices[i]
				break
			}
		}
		if device == nil {
			dropped = append(dropped, entry)
			continue
		}

		pos, ok := index[device.DefinitionID]
		if !ok {
			pos = len(groups)
			index[device.DefinitionID] = pos
			groups = append(groups, EntryGroup{DefinitionID: device.DefinitionID})
		}
		groups[pos].Entries = append(groups[pos].Entries, entry)
	}
	return groups, dropped
}

// RelevantActivities returns the activities of def that appear as a result
// key in at least one entry, in definition order.
func RelevantActivities(def DeviceDefinition, entries []ReportEntry) []Activity {
	scheduled := make(map[string]struct{})
	for _, e := range entries {
		for id := range e.Results {
			scheduled[id] = struct{}{}
		}
	}

	var out []Activity
	for _, a := range def.Activities {
		if _, ok := scheduled[a.ID]; ok {
			out = append(out, a)
		}
	}
	return out
}

// FindDefinition looks up a definition by id in the catalog.
func FindDefinition(catalog []DeviceDefinition, id string) (DeviceDefinition, bool) {
	for _, d := range catalog {
		if d.ID == id {
			return d, true
		}
	}
	return DeviceDefinition{}, false
}

// Roster resolves technician ids to display names.
type Roster map[string]Technician

// NewRoster indexes technicians by id.
func NewRoster(technicians []Technician) Roster {
	r := make(Roster, len(technicians))
	for _, t := range technicians {
		r[t.ID] = t
	}
	return r
}

// Names maps ids to names, substituting unknown ids with fallback(id),
// and joins them with ", ".
func (r Roster) Names(ids []string, fallback func(id string) string) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if t, ok := r[id]; ok {
			names = append(names, t.Name)
			continue
		}
		names = append(names, fallback(id))
	}
	return strings.Join(names, ", ")
}
