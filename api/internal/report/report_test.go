package report

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func validRecord() LabRecord {
	return LabRecord{
		TestName:   "Complete Blood Count",
		ReportType: "tabular",
		Entries: []Entry{
			{FieldName: "Hemoglobin", FieldValue: "12.5 g/dL"},
			{FieldName: "WBC", FieldValue: "3000 cells/µL"},
		},
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	rec := validRecord()
	payload, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	wrappers := map[string]string{
		"bare":         string(payload),
		"fenced":       "```json\n" + string(payload) + "\n```",
		"fenced-plain": "```\n" + string(payload) + "\n```",
		"prose":        "Sure, here is the extracted report:\n" + string(payload) + "\nLet me know if you need anything else.",
	}
	for name, raw := range wrappers {
		got, err := Validate(raw)
		if err != nil {
			t.Fatalf("%s: Validate error: %v", name, err)
		}
		if !reflect.DeepEqual(*got, rec) {
			t.Fatalf("%s: round trip mismatch: %+v", name, got)
		}
	}
}

func TestValidate_NoPayload(t *testing.T) {
	for _, raw := range []string{"", "no json here", "just } a stray brace"} {
		if _, err := Validate(raw); !errors.Is(err, ErrNoPayload) {
			t.Fatalf("Validate(%q) = %v, want ErrNoPayload", raw, err)
		}
	}
}

func TestValidate_Malformed(t *testing.T) {
	raw := `{"test_name": "CBC", "entries": [` // found a span start but truncated
	if _, err := Validate(raw); !errors.Is(err, ErrNoPayload) {
		// unbalanced braces never form a span
		t.Fatalf("Validate = %v, want ErrNoPayload", err)
	}

	raw = "```json\n{\"test_name\": CBC}\n```"
	if _, err := Validate(raw); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Validate = %v, want ErrMalformed", err)
	}
}

func TestValidate_SchemaMismatch(t *testing.T) {
	cases := map[string]string{
		"missing test_name": `{"report_type": "tabular", "entries": [{"field_name": "A", "field_value": "1"}]}`,
		"empty test_name":   `{"test_name": "", "report_type": "tabular", "entries": [{"field_name": "A", "field_value": "1"}]}`,
		"bad report_type":   `{"test_name": "CBC", "report_type": "table", "entries": [{"field_name": "A", "field_value": "1"}]}`,
		"empty entries":     `{"test_name": "CBC", "report_type": "tabular", "entries": []}`,
		"empty field_name":  `{"test_name": "CBC", "report_type": "tabular", "entries": [{"field_name": "", "field_value": "1"}]}`,
		"entries not array": `{"test_name": "CBC", "report_type": "tabular", "entries": "Hemoglobin 12.5"}`,
	}
	for name, raw := range cases {
		if _, err := Validate(raw); !errors.Is(err, ErrSchemaMismatch) {
			t.Fatalf("%s: Validate = %v, want ErrSchemaMismatch", name, err)
		}
	}
}

func TestExtractPayload_BracesInsideStrings(t *testing.T) {
	raw := `note before {"test_name": "CBC {differential}", "report_type": "tabular", "entries": [{"field_name": "WBC", "field_value": "}{"}]} trailing`
	payload, err := ExtractPayload(raw)
	if err != nil {
		t.Fatalf("ExtractPayload: %v", err)
	}
	var rec LabRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		t.Fatalf("payload is not standalone JSON: %v", err)
	}
	if rec.TestName != "CBC {differential}" {
		t.Fatalf("test_name = %q", rec.TestName)
	}
}

func TestExtractPayload_PrefersFencedBlock(t *testing.T) {
	raw := "{\"decoy\": true} and the real one:\n```json\n{\"test_name\": \"CBC\"}\n```"
	payload, err := ExtractPayload(raw)
	if err != nil {
		t.Fatalf("ExtractPayload: %v", err)
	}
	if payload != `{"test_name": "CBC"}` {
		t.Fatalf("payload = %q, want fenced block contents", payload)
	}
}

func TestLabRecordText(t *testing.T) {
	txt := validRecord().Text()
	for _, want := range []string{"Complete Blood Count", "Hemoglobin: 12.5 g/dL", "WBC: 3000 cells/µL"} {
		if !strings.Contains(txt, want) {
			t.Fatalf("Text() missing %q:\n%s", want, txt)
		}
	}
}
