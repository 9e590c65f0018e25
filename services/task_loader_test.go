package services

import (
	"errors"
	"strings"
	"testing"
)

func TestSniffFormat(t *testing.T) {
	cases := []struct {
		filename string
		data     string
		want     string
	}{
		{"records.csv", "a,b\n1,2\n", FormatCSV},
		{"records.tsv", "a\tb\n1\t2\n", FormatTSV},
		{"records.json", `[{"a": 1}]`, FormatJSON},
		{"records.yaml", "records:\n- a: 1\n", FormatYAML},
		{"records.yml", "- a: 1\n", FormatYAML},
		{"noext", `{"records": []}`, FormatJSON},
	}
	for _, tc := range cases {
		got, err := SniffFormat(tc.filename, []byte(tc.data))
		if err != nil {
			t.Errorf("SniffFormat(%q) error: %v", tc.filename, err)
			continue
		}
		if got != tc.want {
			t.Errorf("SniffFormat(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}

func TestSniffFormatMismatch(t *testing.T) {
	_, err := SniffFormat("records.csv", []byte(`[{"a": 1}]`))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if fe.Error() != "Expected CSV or TSV format file." {
		t.Errorf("message = %q", fe.Error())
	}

	if _, err := SniffFormat("records.json", []byte("a,b\n")); err == nil {
		t.Error("expected error for JSON extension over delimited content")
	}
}

func TestSniffFormatBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`[{"a": 1}]`)...)
	got, err := SniffFormat("noext", data)
	if err != nil || got != FormatJSON {
		t.Errorf("SniffFormat with BOM = %q, %v", got, err)
	}
}

func TestReadDelimitedTabFallback(t *testing.T) {
	header, rows, err := readDelimited([]byte("First Name\tLast Name\nJane\tDoe\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(header) != 2 || header[0] != "First Name" {
		t.Errorf("header = %v", header)
	}
	if len(rows) != 1 || rows[0][1] != "Doe" {
		t.Errorf("rows = %v", rows)
	}
}

func TestReadDelimitedSingleColumn(t *testing.T) {
	_, _, err := readDelimited([]byte("justonecolumn\nvalue\n"))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestMapHeaderNoMatch(t *testing.T) {
	patterns := compilePatterns([]string{`title$`, `email`})
	_, err := mapHeader([]string{"foo", "bar"}, patterns)
	if err == nil {
		t.Fatal("expected error for unmappable header")
	}
	if !strings.Contains(err.Error(), "Failed to map fields based on the header of the file") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestMapHeaderFirstMatchWins(t *testing.T) {
	patterns := compilePatterns([]string{`title$`, `email`})
	cm, err := mapHeader([]string{"Email", "Title"}, patterns)
	if err != nil {
		t.Fatal(err)
	}
	row := []string{"jane@example.org", "A Title"}
	if got := cm.val(row, 0); got != "A Title" {
		t.Errorf("title = %q", got)
	}
	if got := cm.val(row, 1); got != "jane@example.org" {
		t.Errorf("email = %q", got)
	}
}

func TestLoadRecordListBareList(t *testing.T) {
	list, err := loadRecordList([]byte(`[{"title": "x"}]`), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Records) != 1 {
		t.Fatalf("records = %v", list.Records)
	}
}

func TestLoadRecordListWrapped(t *testing.T) {
	list, err := loadRecordList([]byte("filename: f.yaml\nrecords:\n- title: x\n"), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Records) != 1 || list.Meta["filename"] != "f.yaml" {
		t.Fatalf("list = %+v", list)
	}
}

func TestLoadRecordListNotAList(t *testing.T) {
	_, err := loadRecordList([]byte(`{"filename": "x"}`), FormatJSON)
	if err == nil || err.Error() != "Expecting a list of Records" {
		t.Errorf("error = %v", err)
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []string{"y", "Y", "yes", "OK", "delete", "1", "true"} {
		if !truthy(v) {
			t.Errorf("truthy(%q) = false", v)
		}
	}
	for _, v := range []string{"", "n", "no", "0", "false", "maybe"} {
		if truthy(v) {
			t.Errorf("truthy(%q) = true", v)
		}
	}
}
