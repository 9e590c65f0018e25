package services

import (
	"strings"
	"testing"
)

const otherIDCSVHeader = "Type,Value,URL,Relationship,Email,First Name,Last Name\n"

func TestParseOtherIDCSV(t *testing.T) {
	data := otherIDCSVHeader +
		"URI,RES-1,https://profiles.example.org/res-1,self,jane@example.org,Jane,Doe\n"
	records, err := ParseOtherIDCSV([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	rec := records[0]
	if rec.Type != "uri" || rec.Value != "RES-1" {
		t.Errorf("record = %+v", rec)
	}
	if deref(rec.Relationship) != "SELF" {
		t.Errorf("relationship = %v", rec.Relationship)
	}
	if deref(rec.URL) != "https://profiles.example.org/res-1" {
		t.Errorf("url = %v", rec.URL)
	}
}

func TestParseOtherIDCSVMissingValue(t *testing.T) {
	data := otherIDCSVHeader +
		"uri,,https://profiles.example.org/res-1,SELF,jane@example.org,Jane,Doe\n"
	_, err := ParseOtherIDCSV([]byte(data))
	if err == nil || err.Error() != "Missing External Id Value, #2" {
		t.Errorf("error = %v", err)
	}
}

func TestParseOtherIDCSVMissingURLOrRelationship(t *testing.T) {
	data := otherIDCSVHeader +
		"uri,RES-1,,SELF,jane@example.org,Jane,Doe\n"
	_, err := ParseOtherIDCSV([]byte(data))
	want := "Missing External Id Url '' or External Id Relationship 'SELF', #2"
	if err == nil || err.Error() != want {
		t.Errorf("error = %v", err)
	}
}

func TestParseOtherIDCSVInvalidVocab(t *testing.T) {
	data := otherIDCSVHeader +
		"bogus,RES-1,https://profiles.example.org/res-1,SELF,jane@example.org,Jane,Doe\n"
	_, err := ParseOtherIDCSV([]byte(data))
	if err == nil || !strings.Contains(err.Error(), "Invalid External Id Type: 'bogus'") {
		t.Errorf("error = %v", err)
	}
}

func TestParseOtherIDJSON(t *testing.T) {
	body := `[{
		"external-id-type": "URI",
		"external-id-value": "RES-1",
		"external-id-url": {"value": "https://profiles.example.org/res-1"},
		"external-id-relationship": "self",
		"email": "Jane@Example.org"
	}]`
	list, err := loadRecordList([]byte(body), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	records, err := ParseOtherIDJSON(list)
	if err != nil {
		t.Fatal(err)
	}
	rec := records[0]
	if rec.Type != "uri" || deref(rec.Relationship) != "SELF" {
		t.Errorf("record = %+v", rec)
	}
	if deref(rec.Email) != "jane@example.org" {
		t.Errorf("email = %v", rec.Email)
	}
}

func TestParseOtherIDJSONPlainKeys(t *testing.T) {
	body := `[{"type": "uri", "value": "RES-1", "url": "https://profiles.example.org/res-1",
		"relationship": "SELF", "orcid": "0000-0002-1825-0097"}]`
	list, err := loadRecordList([]byte(body), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	records, err := ParseOtherIDJSON(list)
	if err != nil {
		t.Fatal(err)
	}
	if deref(records[0].Orcid) != "0000-0002-1825-0097" {
		t.Errorf("orcid = %v", records[0].Orcid)
	}
}

func TestParseOtherIDJSONMissingIdentifier(t *testing.T) {
	body := `[{"type": "uri", "value": "RES-1", "url": "https://x.test", "relationship": "SELF"}]`
	list, err := loadRecordList([]byte(body), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseOtherIDJSON(list); err == nil ||
		!strings.Contains(err.Error(), "Missing user identifier") {
		t.Errorf("error = %v", err)
	}
}
