package services

import (
	"errors"
	"strings"
	"testing"

	"profile-hub-api/models"
)

const fundingCSVHeader = "Title,Type,Start Date,End Date,Email,External Id Type," +
	"External Id Value,External Id Relationship,Is Active,First Name,Last Name\n"

func testOrg() *models.Organisation {
	return &models.Organisation{
		Name:                 "Test University",
		City:                 "Wellington",
		Country:              "NZ",
		DisambiguatedID:      "1234",
		DisambiguationSource: "RINGGOLD",
	}
}

func TestParseFundingCSVMergesAdjacentRows(t *testing.T) {
	data := fundingCSVHeader +
		"Grant A,CONTRACT,2020,2021,jane@example.org,grant_number,GN1,SELF,Y,Jane,Doe\n" +
		"Grant A,CONTRACT,2020,2021,john@example.org,grant_number,GN1,SELF,Y,John,Smith\n" +
		"Grant B,AWARD,2019,,pat@example.org,grant_number,GN2,SELF,Y,Pat,Lee\n"

	records, err := ParseFundingCSV([]byte(data), testOrg())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.Title != "Grant A" || first.Type != "CONTRACT" {
		t.Errorf("record = %+v", first)
	}
	if len(first.ExternalIDs) != 1 {
		t.Errorf("expected merged rows to share 1 external id, got %d", len(first.ExternalIDs))
	}
	if len(first.Invitees) != 2 {
		t.Fatalf("expected 2 invitees on the merged record, got %d", len(first.Invitees))
	}
	if deref(first.Invitees[1].Email) != "john@example.org" {
		t.Errorf("second invitee = %+v", first.Invitees[1])
	}
	if first.StartDate == nil || first.StartDate.Year != 2020 {
		t.Errorf("start date = %v", first.StartDate)
	}
	if !first.IsActive {
		t.Error("expected the record to be active")
	}
	if first.ExternalIDs[0].Type != "grant_number" || first.ExternalIDs[0].Relationship != "SELF" {
		t.Errorf("external id = %+v", first.ExternalIDs[0])
	}
}

func TestParseFundingCSVCollectsDistinctExternalIDs(t *testing.T) {
	data := fundingCSVHeader +
		"Grant A,CONTRACT,2020,2021,jane@example.org,grant_number,GN1,SELF,Y,Jane,Doe\n" +
		"Grant A,CONTRACT,2020,2021,jane@example.org,grant_number,GN2,SELF,Y,Jane,Doe\n"

	records, err := ParseFundingCSV([]byte(data), testOrg())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if len(rec.ExternalIDs) != 2 {
		t.Fatalf("expected both grant numbers on one record, got %d", len(rec.ExternalIDs))
	}
	if rec.ExternalIDs[0].Value != "GN1" || rec.ExternalIDs[1].Value != "GN2" {
		t.Errorf("external ids = %+v", rec.ExternalIDs)
	}
	if len(rec.Invitees) != 1 {
		t.Errorf("expected the repeated invitee once, got %d", len(rec.Invitees))
	}
}

func TestParseFundingCSVOrgDefaults(t *testing.T) {
	data := fundingCSVHeader +
		"Grant A,CONTRACT,2020,,jane@example.org,grant_number,GN1,SELF,,Jane,Doe\n"
	records, err := ParseFundingCSV([]byte(data), testOrg())
	if err != nil {
		t.Fatal(err)
	}
	rec := records[0]
	if deref(rec.OrgName) != "Test University" || deref(rec.City) != "Wellington" {
		t.Errorf("org defaults not applied: %+v", rec)
	}
	if deref(rec.DisambiguationSource) != "RINGGOLD" {
		t.Errorf("disambiguation source = %v", rec.DisambiguationSource)
	}
}

func TestParseFundingCSVMissingTitle(t *testing.T) {
	data := fundingCSVHeader +
		",CONTRACT,2020,,jane@example.org,grant_number,GN1,SELF,,Jane,Doe\n"
	_, err := ParseFundingCSV([]byte(data), testOrg())
	var fv *FieldValidationError
	if !errors.As(err, &fv) {
		t.Fatalf("expected FieldValidationError, got %v", err)
	}
	if !strings.HasPrefix(fv.Message, "Title is mandatory, #2.") {
		t.Errorf("message = %q", fv.Message)
	}
	if fv.Row != 2 {
		t.Errorf("row = %d", fv.Row)
	}
}

func TestParseFundingCSVMissingExternalIDValue(t *testing.T) {
	data := fundingCSVHeader +
		"Grant A,CONTRACT,2020,,jane@example.org,,,,,Jane,Doe\n"
	_, err := ParseFundingCSV([]byte(data), testOrg())
	if err == nil || err.Error() != "Invalid External Id Value or Funding Id, #2" {
		t.Errorf("error = %v", err)
	}
}

func TestParseFundingCSVInvalidExternalIDType(t *testing.T) {
	data := fundingCSVHeader +
		"Grant A,CONTRACT,2020,,jane@example.org,bogus-type,GN1,SELF,,Jane,Doe\n"
	_, err := ParseFundingCSV([]byte(data), testOrg())
	if err == nil || !strings.Contains(err.Error(), "Invalid External Id Type: 'bogus-type'") {
		t.Errorf("error = %v", err)
	}
}

func TestParseFundingJSON(t *testing.T) {
	body := `[{
		"title": {"title": {"value": "Grant A"},
			"translated-title": {"value": "Subvention A", "language-code": "fr"}},
		"type": "GRANT",
		"amount": {"value": "50000", "currency-code": "NZD"},
		"start-date": {"year": {"value": "2020"}},
		"organization": {"name": "Funder", "address": {"city": "Auckland", "country": "NZ"}},
		"invitees": [{"email": "Jane@Example.org", "first-name": "Jane", "put-code": "1001"}],
		"contributors": {"contributor": [{
			"credit-name": {"value": "A. Leader"},
			"contributor-attributes": {"contributor-role": "lead"}}]},
		"external-ids": {"external-id": [{
			"external-id-type": "grant_number",
			"external-id-value": "GN1",
			"external-id-relationship": "self"}]}
	}]`
	list, err := loadRecordList([]byte(body), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	records, err := ParseFundingJSON(list)
	if err != nil {
		t.Fatal(err)
	}
	rec := records[0]
	if rec.Title != "Grant A" || deref(rec.TranslatedTitle) != "Subvention A" {
		t.Errorf("record = %+v", rec)
	}
	if deref(rec.Amount) != "50000" || deref(rec.Currency) != "NZD" {
		t.Errorf("amount = %v %v", rec.Amount, rec.Currency)
	}
	if len(rec.Invitees) != 1 || deref(rec.Invitees[0].Email) != "jane@example.org" {
		t.Fatalf("invitees = %+v", rec.Invitees)
	}
	if rec.Invitees[0].PutCode == nil || *rec.Invitees[0].PutCode != 1001 {
		t.Errorf("put code = %v", rec.Invitees[0].PutCode)
	}
	if len(rec.Contributors) != 1 || deref(rec.Contributors[0].Role) != "lead" {
		t.Errorf("contributors = %+v", rec.Contributors)
	}
	if rec.ExternalIDs[0].Relationship != "SELF" {
		t.Errorf("relationship = %q", rec.ExternalIDs[0].Relationship)
	}
}

func TestParseFundingJSONRequiresInvitees(t *testing.T) {
	body := `[{"title": {"title": {"value": "Grant A"}}, "type": "GRANT",
		"external-ids": {"external-id": [{"external-id-type": "grant_number",
			"external-id-value": "GN1", "external-id-relationship": "SELF"}]}}]`
	list, err := loadRecordList([]byte(body), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	_, err = ParseFundingJSON(list)
	want := "Expecting Invitees for which the funding record will be written"
	if err == nil || err.Error() != want {
		t.Errorf("error = %v", err)
	}
}

func TestParseFundingJSONRequiresExternalID(t *testing.T) {
	body := `[{"title": {"title": {"value": "Grant A"}}, "type": "GRANT",
		"invitees": [{"email": "jane@example.org"}]}]`
	list, err := loadRecordList([]byte(body), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	_, err = ParseFundingJSON(list)
	if err == nil || err.Error() != "An external identifier is required" {
		t.Errorf("error = %v", err)
	}
}
