package services

import (
	"strings"
	"testing"
)

const affiliationCSVHeader = "First Name,Last Name,Email,Organisation,Affiliation Type,Put Code,Delete Record\n"

func TestParseAffiliationCSV(t *testing.T) {
	data := affiliationCSVHeader +
		"Jane,Doe,Jane@Example.org,Test University,Student,,\n" +
		"John,Smith,john@example.org,Test University,employment,42,\n"
	records, err := ParseAffiliationCSV([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if deref(records[0].Email) != "jane@example.org" {
		t.Errorf("email = %v", records[0].Email)
	}
	if deref(records[0].AffiliationType) != "student" {
		t.Errorf("affiliation type = %v", records[0].AffiliationType)
	}
	if records[1].PutCode == nil || *records[1].PutCode != 42 {
		t.Errorf("put code = %v", records[1].PutCode)
	}
}

func TestParseAffiliationCSVDeleteNeedsPutCode(t *testing.T) {
	data := affiliationCSVHeader +
		"Jane,Doe,jane@example.org,Test University,student,,Y\n"
	_, err := ParseAffiliationCSV([]byte(data))
	if err == nil || err.Error() != "Missing put-code. Cannot delete a record without put-code. #2" {
		t.Errorf("error = %v", err)
	}
}

func TestParseAffiliationCSVDeleteWithPutCode(t *testing.T) {
	// A deletion row needs no affiliation type or name fields.
	data := affiliationCSVHeader +
		",,jane@example.org,,,42,Y\n"
	records, err := ParseAffiliationCSV([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if !records[0].DeleteRecord || records[0].PutCode == nil {
		t.Errorf("record = %+v", records[0])
	}
}

func TestParseAffiliationCSVInvalidType(t *testing.T) {
	data := affiliationCSVHeader +
		"Jane,Doe,jane@example.org,Test University,visitor,,\n"
	_, err := ParseAffiliationCSV([]byte(data))
	if err == nil || !strings.Contains(err.Error(), "Invalid affiliation type 'visitor' in the row #2") {
		t.Errorf("error = %v", err)
	}
}

func TestParseAffiliationCSVMissingIdentifier(t *testing.T) {
	data := affiliationCSVHeader +
		"Jane,Doe,,Test University,student,,\n"
	_, err := ParseAffiliationCSV([]byte(data))
	if err == nil || !strings.Contains(err.Error(), "Missing user identifier") {
		t.Errorf("error = %v", err)
	}
}

func TestParseAffiliationCSVExternalIDAsEmail(t *testing.T) {
	data := "First Name,Last Name,External Id,Organisation,Affiliation Type\n" +
		"Jane,Doe,Jane@Uni.ac.nz,Test University,staff\n"
	records, err := ParseAffiliationCSV([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if deref(records[0].Email) != "jane@uni.ac.nz" {
		t.Errorf("email fallback = %v", records[0].Email)
	}
	if deref(records[0].ExternalID) != "Jane@Uni.ac.nz" {
		t.Errorf("external id = %v", records[0].ExternalID)
	}
}

func TestParseAffiliationJSON(t *testing.T) {
	body := `[{"first-name": "Jane", "last-name": "Doe", "email": "jane@example.org",
		"organisation": "Test University", "affiliation-type": "EDUCATION",
		"start-date": "2019-02", "visibility": "public"}]`
	list, err := loadRecordList([]byte(body), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	records, err := ParseAffiliationJSON(list)
	if err != nil {
		t.Fatal(err)
	}
	rec := records[0]
	if deref(rec.AffiliationType) != "education" {
		t.Errorf("affiliation type = %v", rec.AffiliationType)
	}
	if rec.StartDate == nil || rec.StartDate.Year != 2019 || rec.StartDate.Month != 2 {
		t.Errorf("start date = %v", rec.StartDate)
	}
	if deref(rec.Visibility) != "PUBLIC" {
		t.Errorf("visibility = %v", rec.Visibility)
	}
}

func TestParseAffiliationJSONDeleteNeedsPutCode(t *testing.T) {
	body := `[{"email": "jane@example.org", "delete-record": true}]`
	list, err := loadRecordList([]byte(body), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	_, err = ParseAffiliationJSON(list)
	if err == nil || err.Error() != "Missing put-code. Cannot delete a record without put-code." {
		t.Errorf("error = %v", err)
	}

	body = `[{"email": "jane@example.org", "delete-record": true, "put-code": 42}]`
	if list, err = loadRecordList([]byte(body), FormatJSON); err != nil {
		t.Fatal(err)
	}
	records, err := ParseAffiliationJSON(list)
	if err != nil {
		t.Fatal(err)
	}
	if !records[0].DeleteRecord || records[0].PutCode == nil {
		t.Errorf("record = %+v", records[0])
	}
}
