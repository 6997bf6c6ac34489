package domain

import (
	"strings"
	"time"
)

// ResultStatus is the outcome recorded for one activity of one entry.
type ResultStatus string

const (
	StatusOK  ResultStatus = "OK"
	StatusNOK ResultStatus = "NOK"
	StatusNA  ResultStatus = "NA"
	StatusNR  ResultStatus = "NR"
)

// ActivityData carries the per-activity evidence of an entry.
type ActivityData struct {
	PhotoURLs    []string `json:"photoUrls"`
	Observations string   `json:"observations"`
}

// ReportEntry is the inspection record of one physical unit.
type ReportEntry struct {
	InstanceID   string                  `json:"instanceId"`
	DeviceIndex  int                     `json:"deviceIndex"`
	CustomID     string                  `json:"customId"`
	Area         string                  `json:"area"`
	Results      map[string]ResultStatus `json:"results"`
	Observations string                  `json:"observations"`
	PhotoURLs    []string                `json:"photoUrls"`
	ActivityData map[string]ActivityData `json:"activityData"`
}

// HasResult reports whether activityID is a key of the result mapping,
// whatever its value (a null status is still a scheduled activity).
func (e ReportEntry) HasResult(activityID string) bool {
	_, ok := e.Results[activityID]
	return ok
}

// HasObservations reports whether the entry carries non-blank observation text.
func (e ReportEntry) HasObservations() bool {
	return strings.TrimSpace(e.Observations) != ""
}

// ServiceReport is the root aggregate rendered into one document.
type ServiceReport struct {
	ID                    string              `json:"id"`
	PolicyID              string              `json:"policyId"`
	DateStr               string              `json:"dateStr"`
	ServiceDate           time.Time           `json:"serviceDate"`
	StartTime             string              `json:"startTime,omitempty"`
	EndTime               string              `json:"endTime,omitempty"`
	AssignedTechnicianIDs []string            `json:"assignedTechnicianIds"`
	Entries               []ReportEntry       `json:"entries"`
	GeneralObservations   string              `json:"generalObservations"`
	ProviderSignature     string              `json:"providerSignature,omitempty"`
	ClientSignature       string              `json:"clientSignature,omitempty"`
	ProviderSignerName    string              `json:"providerSignerName,omitempty"`
	ClientSignerName      string              `json:"clientSignerName,omitempty"`
	SectionAssignments    map[string][]string `json:"sectionAssignments"`
}

// PolicyDevice is one device instance contracted by a policy.
type PolicyDevice struct {
	InstanceID      string         `json:"instanceId"`
	DefinitionID    string         `json:"definitionId"`
	Quantity        int            `json:"quantity"`
	ScheduleOffsets map[string]int `json:"scheduleOffsets,omitempty"`
}

// Policy is the service contract a report belongs to.
type Policy struct {
	ID       string         `json:"id"`
	ClientID string         `json:"clientId"`
	Devices  []PolicyDevice `json:"devices"`
}

// Activity is one inspectable property of a device definition.
type Activity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Frequency string `json:"frequency"`
	Type      string `json:"type"`
}

// FrequencyLabel returns the last dotted segment of the frequency code,
// e.g. "Frequency.MENSUAL" -> "MENSUAL".
func (a Activity) FrequencyLabel() string {
	if i := strings.LastIndex(a.Frequency, "."); i >= 0 && i < len(a.Frequency)-1 {
		return a.Frequency[i+1:]
	}
	return a.Frequency
}

// ViewModeList selects the itemized list layout.
const ViewModeList = "list"

// DeviceDefinition is a catalog entry describing a class of equipment.
type DeviceDefinition struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	ViewMode   string     `json:"viewMode,omitempty"`
	Activities []Activity `json:"activities"`
}

// IsListView reports whether the definition renders as an itemized list.
func (d DeviceDefinition) IsListView() bool {
	return d.ViewMode == ViewModeList
}

// Client is the customer identity printed in the header.
type Client struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LegalName   string `json:"razonSocial"`
	ContactName string `json:"nombreContacto"`
	Contact     string `json:"contact"`
	Address     string `json:"address"`
	LogoURL     string `json:"logoUrl"`
}

// CompanySettings is the service provider identity printed in the header.
type CompanySettings struct {
	Name      string `json:"name"`
	LegalName string `json:"legalName"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	LogoURL   string `json:"logoUrl"`
}

// DefaultCompany is used when no company profile has been stored.
func DefaultCompany() CompanySettings {
	return CompanySettings{Name: "Mi Empresa"}
}

// Technician is a staff member that can be assigned to a report or a section.
type Technician struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
