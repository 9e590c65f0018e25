package services

import (
	"encoding/json"
	"strings"
	"testing"

	"profile-hub-api/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestContentType(t *testing.T) {
	cases := map[string]string{
		FormatCSV:  "text/csv",
		FormatTSV:  "text/tab-separated-values",
		FormatJSON: "application/json",
		FormatYAML: "application/x-yaml",
		FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		FormatHTML: "text/html",
		"odd":      "application/octet-stream",
	}
	for format, want := range cases {
		if got := ContentType(format); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", format, got, want)
		}
	}
}

func TestRenderDelimited(t *testing.T) {
	header := []string{"First Name", "Email"}
	rows := [][]string{{"Jane", "jane@example.org"}, {"John, Jr.", "john@example.org"}}

	out, err := renderDelimited(header, rows, ',')
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 3 || lines[0] != "First Name,Email" {
		t.Errorf("lines = %v", lines)
	}
	if lines[2] != `"John, Jr.",john@example.org` {
		t.Errorf("quoting: %q", lines[2])
	}

	out, err = renderDelimited(header, rows, '\t')
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out), "First Name\tEmail\n") {
		t.Errorf("tsv output = %q", string(out))
	}
}

func TestRenderHTMLEscapes(t *testing.T) {
	task := &models.Task{TaskID: 1, TaskType: models.TaskTypeWork, Filename: "works.csv"}
	out := string(renderHTML(task, []string{"Title"}, [][]string{{"<script>alert(1)</script>"}}))
	if !strings.Contains(out, "<title>works.csv</title>") {
		t.Errorf("title missing: %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Error("cell content not escaped")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Error("escaped cell content missing")
	}
}

func TestCompositeRows(t *testing.T) {
	base := []string{"Grant A", "CONTRACT"}
	extIDs := []models.ExternalIDFields{
		{Type: "grant_number", Value: "GN1", Relationship: "SELF"},
		{Type: "grant_number", Value: "GN2", Relationship: "SELF"},
	}
	email1, email2 := "jane@example.org", "john@example.org"
	invitees := []models.InviteeFields{{Email: &email1}, {Email: &email2}}

	rows := compositeRows(base, invitees, extIDs)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want one per invitee and external id", len(rows))
	}
	// base + 6 invitee columns + 4 external id columns
	if len(rows[0]) != 12 {
		t.Errorf("columns = %d", len(rows[0]))
	}
	if rows[0][2] != "jane@example.org" || rows[3][2] != "john@example.org" {
		t.Errorf("invitee columns = %v / %v", rows[0], rows[3])
	}
	if rows[0][9] != "GN1" || rows[1][9] != "GN2" {
		t.Errorf("external id columns = %v / %v", rows[0], rows[1])
	}
	if rows[0][8] != "grant_number" || rows[0][11] != "SELF" {
		t.Errorf("external id columns = %v", rows[0])
	}

	rows = compositeRows(base, nil, extIDs)
	if len(rows) != 2 || rows[0][2] != "" || rows[1][9] != "GN2" {
		t.Errorf("inviteeless rows = %v", rows)
	}

	rows = compositeRows(base, invitees, nil)
	if len(rows) != 2 || rows[0][8] != "" || rows[1][2] != "john@example.org" {
		t.Errorf("idless rows = %v", rows)
	}
}

func TestExtIDStrings(t *testing.T) {
	got := extIDStrings(models.ExternalIDFields{Type: "doi", Value: "10.1/x", Relationship: "SELF"})
	if len(got) != 4 || got[0] != "doi" || got[1] != "10.1/x" || got[2] != "" || got[3] != "SELF" {
		t.Errorf("columns = %v", got)
	}
}

func TestAffiliationExportMapRoundTrip(t *testing.T) {
	email := "jane@example.org"
	org := "Test University"
	affType := "staff"
	putCode := 42
	rec := models.AffiliationRecord{
		Email:           &email,
		Organisation:    &org,
		AffiliationType: &affType,
		PutCode:         &putCode,
		StartDate:       &models.PartialDate{Year: 2020, Month: 1},
		DeleteRecord:    true,
	}
	m := affiliationExportMap(&rec)
	if m["email"] != email || m["organisation"] != org {
		t.Errorf("map = %v", m)
	}
	if m["start-date"] != "2020-01" || m["put-code"] != 42 || m["delete-record"] != true {
		t.Errorf("map = %v", m)
	}
	if _, ok := m["first-name"]; ok {
		t.Error("empty fields should be omitted")
	}

	// The exported shape feeds straight back through the importer.
	raw, err := json.Marshal([]map[string]interface{}{m})
	if err != nil {
		t.Fatal(err)
	}
	list, err := loadRecordList(raw, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ParseAffiliationJSON(list)
	if err != nil {
		t.Fatal(err)
	}
	if deref(back[0].Email) != email || back[0].PutCode == nil || *back[0].PutCode != 42 {
		t.Errorf("round trip = %+v", back[0])
	}
	if !back[0].DeleteRecord {
		t.Error("delete-record lost in round trip")
	}
}

func TestInviteeExportList(t *testing.T) {
	email := "jane@example.org"
	orcid := "0000-0002-1825-0097"
	putCode := 7
	out := inviteeExportList([]models.InviteeFields{{Email: &email, Orcid: &orcid, PutCode: &putCode}})
	if len(out) != 1 {
		t.Fatalf("out = %v", out)
	}
	if out[0]["email"] != email || out[0]["ORCID-iD"] != orcid || out[0]["put-code"] != 7 {
		t.Errorf("invitee map = %v", out[0])
	}
}

func TestExportJSONDocument(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `affiliation_records`").
		WillReturnRows(sqlmock.NewRows([]string{"record_id", "task_id", "first_name", "last_name", "email"}).
			AddRow(1, 5, "Jane", "Doe", "jane@example.org"))

	task := &models.Task{TaskID: 5, TaskType: models.TaskTypeAffiliation, Filename: "staff.csv"}
	out, err := NewExportService(NewTaskService(db)).Export(task, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		ID       int                      `json:"id"`
		Filename string                   `json:"filename"`
		TaskType string                   `json:"task-type"`
		Records  []map[string]interface{} `json:"records"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.ID != 5 || doc.TaskType != "AFFILIATION" || doc.Filename != "staff.csv" {
		t.Errorf("doc = %+v", doc)
	}
	if len(doc.Records) != 1 || doc.Records[0]["email"] != "jane@example.org" {
		t.Errorf("records = %v", doc.Records)
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	task := &models.Task{TaskID: 5, TaskType: models.TaskTypeAffiliation}
	if _, err := NewExportService(NewTaskService(nil)).Export(task, "pdf"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
