package services

import (
	"errors"
	"strings"
	"testing"
)

const workCSVHeader = "Title,Type,Publication Date,Email,External Id Type," +
	"External Id Value,External Id Relationship,First Name,Last Name\n"

func TestParseWorkCSVMergesAdjacentRows(t *testing.T) {
	data := workCSVHeader +
		"Paper A,JOURNAL_ARTICLE,2021-03,jane@example.org,doi,10.1/xyz,SELF,Jane,Doe\n" +
		"Paper A,JOURNAL_ARTICLE,2021-03,john@example.org,doi,10.1/xyz,SELF,John,Smith\n"
	records, err := ParseWorkCSV([]byte(data), testOrg())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 merged record, got %d", len(records))
	}
	rec := records[0]
	if rec.Title != "Paper A" || deref(rec.Type) != "JOURNAL_ARTICLE" {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.ExternalIDs) != 1 || len(rec.Invitees) != 2 {
		t.Errorf("external ids = %d, invitees = %d", len(rec.ExternalIDs), len(rec.Invitees))
	}
	if rec.PublicationDate == nil || rec.PublicationDate.Year != 2021 || rec.PublicationDate.Month != 3 {
		t.Errorf("publication date = %v", rec.PublicationDate)
	}
}

func TestParseWorkCSVCollectsDistinctExternalIDs(t *testing.T) {
	data := workCSVHeader +
		"Paper A,JOURNAL_ARTICLE,2021-03,jane@example.org,doi,10.1/xyz,SELF,Jane,Doe\n" +
		"Paper A,JOURNAL_ARTICLE,2021-03,jane@example.org,issn,0264-3561,PART_OF,Jane,Doe\n"
	records, err := ParseWorkCSV([]byte(data), testOrg())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if len(rec.ExternalIDs) != 2 {
		t.Fatalf("expected both identifiers on one record, got %d", len(rec.ExternalIDs))
	}
	if rec.ExternalIDs[1].Type != "issn" || rec.ExternalIDs[1].Relationship != "PART_OF" {
		t.Errorf("second external id = %+v", rec.ExternalIDs[1])
	}
	if len(rec.Invitees) != 1 {
		t.Errorf("expected the repeated invitee once, got %d", len(rec.Invitees))
	}
}

func TestParseWorkCSVBadPublicationDate(t *testing.T) {
	data := workCSVHeader +
		"Paper A,JOURNAL_ARTICLE,**ERROR**,jane@example.org,doi,10.1/xyz,SELF,Jane,Doe\n"
	_, err := ParseWorkCSV([]byte(data), testOrg())
	var fv *FieldValidationError
	if !errors.As(err, &fv) {
		t.Fatalf("expected FieldValidationError, got %v", err)
	}
	if fv.Message != "Wrong partial date value '**ERROR**'" {
		t.Errorf("message = %q", fv.Message)
	}
}

func TestParseWorkCSVMissingType(t *testing.T) {
	data := workCSVHeader +
		"Paper A,,2021,jane@example.org,doi,10.1/xyz,SELF,Jane,Doe\n"
	_, err := ParseWorkCSV([]byte(data), testOrg())
	if err == nil || !strings.HasPrefix(err.Error(), "Work type is mandatory, #2.") {
		t.Errorf("error = %v", err)
	}
}

func TestParseWorkCSVMissingExternalIDValue(t *testing.T) {
	data := workCSVHeader +
		"Paper A,JOURNAL_ARTICLE,2021,jane@example.org,,,,Jane,Doe\n"
	_, err := ParseWorkCSV([]byte(data), testOrg())
	if err == nil || err.Error() != "Invalid External Id Value or Work Id, #2" {
		t.Errorf("error = %v", err)
	}
}

func TestParseWorkJSON(t *testing.T) {
	body := `[{
		"title": {"title": {"value": "Paper A"}, "subtitle": {"value": "An enquiry"}},
		"journal-title": {"value": "Journal of Testing"},
		"type": "journal-article",
		"citation": {"citation-type": "bibtex", "citation-value": "@article{a}"},
		"publication-date": {"year": {"value": "2021"}, "media-type": "print"},
		"invitees": [{"email": "jane@example.org", "ORCID-iD": "0000-0002-1825-0097"}],
		"contributors": {"contributor": [{
			"credit-name": {"value": "J. Doe"},
			"contributor-attributes": {"contributor-sequence": "first", "contributor-role": "author"}}]},
		"external-ids": {"external-id": [{
			"external-id-type": "DOI",
			"external-id-value": "10.1/xyz",
			"external-id-relationship": "self"}]}
	}]`
	list, err := loadRecordList([]byte(body), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	records, err := ParseWorkJSON(list)
	if err != nil {
		t.Fatal(err)
	}
	rec := records[0]
	if deref(rec.Subtitle) != "An enquiry" || deref(rec.JournalTitle) != "Journal of Testing" {
		t.Errorf("record = %+v", rec)
	}
	if deref(rec.CitationType) != "BIBTEX" {
		t.Errorf("citation type = %v", rec.CitationType)
	}
	if deref(rec.PublicationMediaType) != "print" {
		t.Errorf("media type = %v", rec.PublicationMediaType)
	}
	if deref(rec.Invitees[0].Orcid) != "0000-0002-1825-0097" {
		t.Errorf("invitee = %+v", rec.Invitees[0])
	}
	if deref(rec.Contributors[0].ContributorSequence) != "first" {
		t.Errorf("contributor = %+v", rec.Contributors[0])
	}
	if rec.ExternalIDs[0].Type != "doi" {
		t.Errorf("external id type = %q", rec.ExternalIDs[0].Type)
	}
}

func TestParseWorkJSONRequiresInvitees(t *testing.T) {
	body := `[{"title": {"title": {"value": "Paper A"}}, "type": "journal-article",
		"external-ids": {"external-id": [{"external-id-type": "doi",
			"external-id-value": "10.1/xyz", "external-id-relationship": "SELF"}]}}]`
	list, err := loadRecordList([]byte(body), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	_, err = ParseWorkJSON(list)
	want := "Expecting Invitees for which the work record will be written"
	if err == nil || err.Error() != want {
		t.Errorf("error = %v", err)
	}
}
