package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ExtensionKind is the declared type of an extension value.
type ExtensionKind string

const (
	ExtensionText   ExtensionKind = "text"
	ExtensionNumber ExtensionKind = "number"
	ExtensionBool   ExtensionKind = "bool"
	ExtensionNull   ExtensionKind = "null"
)

// ExtensionValue is a typed value for a field outside the known report schema.
type ExtensionValue struct {
	Kind   ExtensionKind `json:"kind"`
	Text   string        `json:"text,omitempty"`
	Number float64       `json:"number,omitempty"`
	Bool   bool          `json:"bool,omitempty"`
}

// Extensions holds source fields the canonical schema does not know about.
type Extensions map[string]ExtensionValue

// Keys returns the extension keys in sorted order.
func (e Extensions) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (e Extensions) Clone() Extensions {
	if e == nil {
		return nil
	}
	out := make(Extensions, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

func extensionFromSource(v SourceValue) ExtensionValue {
	switch v.Kind {
	case SourceNumber:
		return ExtensionValue{Kind: ExtensionNumber, Number: v.Number}
	case SourceBool:
		return ExtensionValue{Kind: ExtensionBool, Bool: v.Bool}
	case SourceString, SourceOther:
		return ExtensionValue{Kind: ExtensionText, Text: v.Text}
	default:
		return ExtensionValue{Kind: ExtensionNull}
	}
}

// RawReport is a daily progress report exactly as the data store or an
// import file delivered it. Numeric and date fields keep their source kind.
type RawReport struct {
	ID              string      `json:"id"`
	ProjectID       *string     `json:"project_id"`
	ProjectName     string      `json:"project_name"`
	Date            SourceValue `json:"report_date"`
	Stage           string      `json:"stage"`
	Cost            SourceValue `json:"cost"`
	Manpower        SourceValue `json:"manpower"`
	WorkCompleted   string      `json:"work_completed"`
	MaterialsUsed   string      `json:"materials_used"`
	Remarks         string      `json:"remarks"`
	Weather         string      `json:"weather"`
	Machinery       string      `json:"machinery"`
	SafetyIncidents string      `json:"safety_incidents"`
	CreatedAt       *time.Time  `json:"created_at,omitempty"`
	Extensions      Extensions  `json:"-"`
}

var rawReportFields = map[string]bool{
	"id": true, "project_id": true, "project_name": true, "report_date": true,
	"stage": true, "cost": true, "manpower": true, "work_completed": true,
	"materials_used": true, "remarks": true, "weather": true, "machinery": true,
	"safety_incidents": true, "created_at": true,
}

// UnmarshalJSON decodes the known columns and moves every other key into
// Extensions. Null text fields decode as empty strings.
func (r *RawReport) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode report: %w", err)
	}

	out := RawReport{
		Date:     SourceValue{Kind: SourceAbsent},
		Cost:     SourceValue{Kind: SourceAbsent},
		Manpower: SourceValue{Kind: SourceAbsent},
	}

	text := func(key string) (string, error) {
		raw, ok := fields[key]
		if !ok {
			return "", nil
		}
		var v SourceValue
		if err := v.UnmarshalJSON(raw); err != nil {
			return "", fmt.Errorf("field %s: %w", key, err)
		}
		return v.String(), nil
	}
	value := func(key string, dst *SourceValue) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		if err := dst.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		return nil
	}

	var err error
	targets := []struct {
		key string
		dst *string
	}{
		{"id", &out.ID},
		{"project_name", &out.ProjectName},
		{"stage", &out.Stage},
		{"work_completed", &out.WorkCompleted},
		{"materials_used", &out.MaterialsUsed},
		{"remarks", &out.Remarks},
		{"weather", &out.Weather},
		{"machinery", &out.Machinery},
		{"safety_incidents", &out.SafetyIncidents},
	}
	for _, t := range targets {
		if *t.dst, err = text(t.key); err != nil {
			return err
		}
	}

	if raw, ok := fields["project_id"]; ok {
		var v SourceValue
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("field project_id: %w", err)
		}
		if !v.IsMissing() {
			id := v.String()
			out.ProjectID = &id
		}
	}

	for key, dst := range map[string]*SourceValue{
		"report_date": &out.Date,
		"cost":        &out.Cost,
		"manpower":    &out.Manpower,
	} {
		if err := value(key, dst); err != nil {
			return err
		}
	}

	if raw, ok := fields["created_at"]; ok && string(raw) != "null" {
		var ts time.Time
		if err := json.Unmarshal(raw, &ts); err == nil {
			out.CreatedAt = &ts
		}
	}

	for key, raw := range fields {
		if rawReportFields[key] {
			continue
		}
		var v SourceValue
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("extension %s: %w", key, err)
		}
		if out.Extensions == nil {
			out.Extensions = make(Extensions)
		}
		out.Extensions[key] = extensionFromSource(v)
	}

	*r = out
	return nil
}

// Report is the canonical, sanitized form of a daily progress report.
type Report struct {
	ID              string     `json:"id" db:"id"`
	Date            time.Time  `json:"report_date" db:"report_date"`
	ProjectID       *string    `json:"project_id,omitempty" db:"project_id"`
	ProjectName     string     `json:"project_name" db:"project_name"`
	Stage           string     `json:"stage" db:"stage"`
	Cost            float64    `json:"cost" db:"cost"`
	Manpower        float64    `json:"manpower" db:"manpower"`
	WorkCompleted   string     `json:"work_completed" db:"work_completed"`
	MaterialsUsed   string     `json:"materials_used" db:"materials_used"`
	Remarks         string     `json:"remarks" db:"remarks"`
	Weather         string     `json:"weather" db:"weather"`
	Machinery       string     `json:"machinery" db:"machinery"`
	SafetyIncidents string     `json:"safety_incidents" db:"safety_incidents"`
	Extensions      Extensions `json:"extensions,omitempty" db:"-"`
}

// ProjectKey returns the project identifier or the empty string for
// orphaned reports.
func (r Report) ProjectKey() string {
	if r.ProjectID == nil {
		return ""
	}
	return *r.ProjectID
}

// Problem lists the defects found in one source record.
type Problem struct {
	Index  int      `json:"index"`
	Issues []string `json:"issues"`
}

// SanitizeResult is the output of the record sanitizer. Cleaned has one entry
// per input record, in input order.
type SanitizeResult struct {
	Cleaned  []Report  `json:"cleaned"`
	Problems []Problem `json:"problems"`
}

// Flagged reports whether the record at index has at least one problem.
func (s SanitizeResult) Flagged(index int) bool {
	for _, p := range s.Problems {
		if p.Index == index {
			return true
		}
	}
	return false
}

// Unflagged returns the cleaned records that carry no problem entry.
func (s SanitizeResult) Unflagged() []Report {
	flagged := make(map[int]bool, len(s.Problems))
	for _, p := range s.Problems {
		flagged[p.Index] = true
	}
	out := make([]Report, 0, len(s.Cleaned))
	for i, r := range s.Cleaned {
		if !flagged[i] {
			out = append(out, r)
		}
	}
	return out
}

// ReportFilter narrows report queries against the data store.
type ReportFilter struct {
	ProjectID string     `json:"project_id,omitempty"`
	DateFrom  *time.Time `json:"date_from,omitempty"`
	DateTo    *time.Time `json:"date_to,omitempty"`
	Limit     int        `json:"limit,omitempty"`
}

// NewReport is a validated report submission.
type NewReport struct {
	ProjectID       *string   `json:"project_id,omitempty" validate:"omitempty,min=1"`
	ProjectName     string    `json:"project_name" validate:"required,min=1,max=100"`
	Date            time.Time `json:"report_date" validate:"required"`
	Stage           string    `json:"stage" validate:"max=100"`
	WorkCompleted   string    `json:"work_completed" validate:"required,max=2000"`
	MaterialsUsed   string    `json:"materials_used" validate:"max=2000"`
	Machinery       string    `json:"machinery" validate:"max=1000"`
	SafetyIncidents string    `json:"safety_incidents" validate:"max=1000"`
	Remarks         string    `json:"remarks" validate:"max=2000"`
	Weather         string    `json:"weather" validate:"omitempty,oneof=sunny cloudy rainy stormy"`
	Manpower        int       `json:"manpower" validate:"gte=0"`
	Cost            float64   `json:"cost" validate:"gte=0"`
}

// Raw converts a canonical report back into source form. Sanitizing the
// result yields the same report.
func (r Report) Raw() RawReport {
	var projectID *string
	if r.ProjectID != nil {
		id := *r.ProjectID
		projectID = &id
	}
	return RawReport{
		ID:              r.ID,
		ProjectID:       projectID,
		ProjectName:     r.ProjectName,
		Date:            Str(r.Date.Format("2006-01-02")),
		Stage:           r.Stage,
		Cost:            Num(r.Cost),
		Manpower:        Num(r.Manpower),
		WorkCompleted:   r.WorkCompleted,
		MaterialsUsed:   r.MaterialsUsed,
		Remarks:         r.Remarks,
		Weather:         r.Weather,
		Machinery:       r.Machinery,
		SafetyIncidents: r.SafetyIncidents,
		Extensions:      r.Extensions.Clone(),
	}
}
