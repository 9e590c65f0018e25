package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"gopkg.in/yaml.v3"
)

// Container formats accepted for task uploads.
const (
	FormatCSV  = "csv"
	FormatTSV  = "tsv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// SniffFormat determines the container format of an uploaded file from its
// leading bytes, cross-checked against the filename extension. A delimited
// extension over JSON/YAML content (or the reverse) is a hard rejection.
func SniffFormat(filename string, data []byte) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	trimmed := bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	trimmed = bytes.TrimLeft(trimmed, " \t\r\n")
	structured := len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')

	switch ext {
	case "csv", "tsv":
		if structured {
			return "", &FormatError{Message: "Expected CSV or TSV format file."}
		}
		return ext, nil
	case "json":
		if !structured {
			return "", formatErrorf("Failed to parse the file %q as JSON.", filename)
		}
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}

	// No usable extension: fall back to content detection.
	if structured {
		return FormatJSON, nil
	}
	mt := mimetype.Detect(data)
	if mt.Is("text/tab-separated-values") {
		return FormatTSV, nil
	}
	if mt.Is("text/csv") || mt.Is("text/plain") {
		return FormatCSV, nil
	}
	return "", formatErrorf("Unsupported file format %q.", mt.String())
}

// readDelimited reads the header and data rows of a CSV/TSV upload.
// A single-column header containing tabs is re-read as TSV; a file that
// still yields fewer than two columns is not a delimited upload.
func readDelimited(data []byte) (header []string, rows [][]string, err error) {
	parse := func(delim rune) ([][]string, error) {
		r := csv.NewReader(bytes.NewReader(data))
		r.Comma = delim
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		return r.ReadAll()
	}

	all, err := parse(',')
	if err != nil {
		return nil, nil, &FormatError{Message: "Expected CSV or TSV format file."}
	}
	if len(all) == 0 {
		return nil, nil, &FormatError{Message: "Expected CSV or TSV format file."}
	}
	if len(all[0]) == 1 && strings.Contains(all[0][0], "\t") {
		if all, err = parse('\t'); err != nil || len(all) == 0 {
			return nil, nil, &FormatError{Message: "Expected CSV or TSV format file."}
		}
	}
	if len(all[0]) < 2 {
		return nil, nil, &FormatError{Message: "Expected CSV or TSV format file."}
	}
	return all[0], all[1:], nil
}

// columnMap resolves canonical fields to header columns. Index -1 means the
// field is absent from the file.
type columnMap struct {
	header []string
	idxs   []int
}

// mapHeader matches each field pattern against the header columns,
// case-insensitively, first match wins. The pattern tables are static per
// record kind and compiled once at package init.
func mapHeader(header []string, patterns []*regexp.Regexp) (*columnMap, error) {
	m := &columnMap{header: header, idxs: make([]int, len(patterns))}
	matched := false
	for i, rex := range patterns {
		m.idxs[i] = -1
		for col, name := range header {
			if rex.MatchString(strings.TrimSpace(name)) {
				m.idxs[i] = col
				matched = true
				break
			}
		}
	}
	if !matched {
		return nil, formatErrorf(
			"Failed to map fields based on the header of the file: %v", header)
	}
	return m, nil
}

// val returns the trimmed cell for field i, or "" when unmapped or absent.
func (m *columnMap) val(row []string, i int) string {
	if i >= len(m.idxs) || m.idxs[i] < 0 || m.idxs[i] >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[m.idxs[i]])
}

// compilePatterns builds a header pattern table. Matching is anchored at
// the start of the column name, mirroring the upstream header synonyms.
func compilePatterns(exprs []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, ex := range exprs {
		out[i] = regexp.MustCompile(`(?i)^(?:` + ex + `)`)
	}
	return out
}

// isEmptyRow reports whether every cell of the row is blank.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// recordList is the decoded body of a JSON/YAML upload: either a bare list
// of record objects, or a wrapper object with a "records" key plus task
// metadata (filename, task-type).
type recordList struct {
	Records []map[string]interface{}
	Meta    map[string]interface{}
}

// loadRecordList decodes a JSON or YAML upload into its record list.
func loadRecordList(data []byte, format string) (*recordList, error) {
	var doc interface{}
	if format == FormatYAML {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, formatErrorf("Failed to parse the file as YAML: %v", err)
		}
	} else {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, formatErrorf("Failed to parse the file as JSON: %v", err)
		}
	}

	switch v := doc.(type) {
	case []interface{}:
		records, err := toRecordMaps(v)
		if err != nil {
			return nil, err
		}
		return &recordList{Records: records}, nil
	case map[string]interface{}:
		raw, ok := v["records"].([]interface{})
		if !ok {
			return nil, &FormatError{Message: "Expecting a list of Records"}
		}
		records, err := toRecordMaps(raw)
		if err != nil {
			return nil, err
		}
		return &recordList{Records: records, Meta: v}, nil
	default:
		return nil, &FormatError{Message: "Expecting a list of Records"}
	}
}

func toRecordMaps(raw []interface{}) ([]map[string]interface{}, error) {
	records := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, &FormatError{Message: "Expecting a list of Records"}
		}
		records = append(records, m)
	}
	return records, nil
}

// nestedString walks nested maps and returns the string leaf, e.g.
// nestedString(r, "title", "title", "value").
func nestedString(m map[string]interface{}, keys ...string) string {
	var cur interface{} = m
	for _, k := range keys {
		node, ok := cur.(map[string]interface{})
		if !ok {
			return ""
		}
		cur = node[k]
	}
	switch v := cur.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// nestedMap walks nested maps and returns the map leaf.
func nestedMap(m map[string]interface{}, keys ...string) map[string]interface{} {
	var cur interface{} = m
	for _, k := range keys {
		node, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = node[k]
	}
	leaf, _ := cur.(map[string]interface{})
	return leaf
}

// nestedList walks nested maps and returns the list-of-maps leaf.
func nestedList(m map[string]interface{}, keys ...string) []map[string]interface{} {
	var cur interface{} = m
	for _, k := range keys {
		node, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = node[k]
	}
	raw, ok := cur.([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if mm, ok := item.(map[string]interface{}); ok {
			out = append(out, mm)
		}
	}
	return out
}

// truthy interprets the yes/no spellings accepted in delimited uploads.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes", "ok", "delete", "1", "true":
		return true
	}
	return false
}
