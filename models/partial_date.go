package models

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var partialDateRegex = regexp.MustCompile(`\d+([/\-.]\d+){0,2}`)

// PartialDate is a date with possibly missing day or month-and-day
// components, as used by the registry (year, year-month or
// year-month-day). The zero value of a component means "not given".
type PartialDate struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// ParsePartialDate parses "2003", "2003-07", "2003-07-14" and the
// slash/dot separated variants, including day-first forms such as
// "14/07/2003". An empty value yields a nil date.
func ParsePartialDate(raw string) (*PartialDate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	match := partialDateRegex.FindString(raw)
	if match == "" {
		return nil, fmt.Errorf("Wrong partial date value '%s'", raw)
	}

	var parts []string
	for _, sep := range []string{"/", "."} {
		if strings.Contains(match, sep) {
			parts = strings.Split(match, sep)
			// day-first form: the year comes last
			if len(parts[len(parts)-1]) > 2 {
				for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
					parts[i], parts[j] = parts[j], parts[i]
				}
			}
			break
		}
	}
	if parts == nil {
		parts = strings.Split(match, "-")
	}

	vals := make([]int, 0, 3)
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("Wrong partial date value '%s'", raw)
		}
		vals = append(vals, n)
	}
	pd := &PartialDate{Year: vals[0]}
	if len(vals) > 1 {
		pd.Month = vals[1]
	}
	if len(vals) > 2 {
		pd.Day = vals[2]
	}
	return pd, nil
}

func (pd *PartialDate) String() string {
	if pd == nil || pd.Year == 0 {
		return ""
	}
	res := fmt.Sprintf("%04d", pd.Year)
	if pd.Month != 0 {
		res += fmt.Sprintf("-%02d", pd.Month)
	}
	if pd.Day != 0 {
		res += fmt.Sprintf("-%02d", pd.Day)
	}
	return res
}

// Value stores the partial date as its canonical string form.
func (pd PartialDate) Value() (driver.Value, error) {
	s := pd.String()
	if s == "" {
		return nil, nil
	}
	return s, nil
}

func (pd *PartialDate) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*pd = PartialDate{}
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("cannot scan partial date from %T", src)
	}
	parsed, err := ParsePartialDate(raw)
	if err != nil {
		return err
	}
	if parsed == nil {
		*pd = PartialDate{}
	} else {
		*pd = *parsed
	}
	return nil
}

// AsOrcidMap renders the registry document shape of the date, e.g.
// {"year": {"value": "2003"}, "month": null, "day": null}.
func (pd *PartialDate) AsOrcidMap() map[string]interface{} {
	if pd == nil || (pd.Year == 0 && pd.Month == 0 && pd.Day == 0) {
		return nil
	}
	m := map[string]interface{}{"year": nil, "month": nil, "day": nil}
	if pd.Year != 0 {
		m["year"] = map[string]string{"value": fmt.Sprintf("%04d", pd.Year)}
	}
	if pd.Month != 0 {
		m["month"] = map[string]string{"value": fmt.Sprintf("%02d", pd.Month)}
	}
	if pd.Day != 0 {
		m["day"] = map[string]string{"value": fmt.Sprintf("%02d", pd.Day)}
	}
	return m
}

// PartialDateFromMap builds a date from the registry document shape.
func PartialDateFromMap(m map[string]interface{}) *PartialDate {
	if len(m) == 0 {
		return nil
	}
	pick := func(key string) int {
		field, ok := m[key].(map[string]interface{})
		if !ok {
			return 0
		}
		switch v := field["value"].(type) {
		case string:
			n, _ := strconv.Atoi(v)
			return n
		case float64:
			return int(v)
		case int:
			return v
		}
		return 0
	}
	pd := &PartialDate{Year: pick("year"), Month: pick("month"), Day: pick("day")}
	if pd.Year == 0 && pd.Month == 0 && pd.Day == 0 {
		return nil
	}
	return pd
}
