package report

import "strings"

// Entry is one extracted key/value pair. Field names are kept verbatim
// as they appear in the source image, not mapped onto a fixed vocabulary.
type Entry struct {
	FieldName  string `json:"field_name"`
	FieldValue string `json:"field_value"`
}

// LabRecord is the structured, schema-validated extraction of a lab-report image.
type LabRecord struct {
	TestName   string  `json:"test_name"`
	ReportType string  `json:"report_type"` // "tabular" | "descriptive"
	Entries    []Entry `json:"entries"`
}

// Text renders the record as "name: value" lines for use in prompts.
func (r LabRecord) Text() string {
	var b strings.Builder
	b.WriteString(r.TestName)
	b.WriteString(" (")
	b.WriteString(r.ReportType)
	b.WriteString(")\n")
	for _, e := range r.Entries {
		b.WriteString(e.FieldName)
		b.WriteString(": ")
		b.WriteString(e.FieldValue)
		b.WriteString("\n")
	}
	return b.String()
}
