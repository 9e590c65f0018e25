package services

import (
	"strconv"
	"strings"

	"profile-hub-api/models"
	"profile-hub-api/utils"
)

func optStr(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func optUpper(v string) *string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return nil
	}
	return &v
}

func optInt(v string) *int {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// normalizeCountry enforces ISO 3166-1 alpha-2 country codes.
func normalizeCountry(v string, rowNo int) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	if !models.IsValidCountryCode(v) {
		return "", fieldErrorf(rowNo,
			" (Country must be 2 character from ISO 3166-1 alpha-2) in the row #%d", rowNo)
	}
	return strings.ToUpper(v), nil
}

// checkRowIdentity validates the optional ORCID iD and email of a row.
func checkRowIdentity(orcid, email string, rowNo int) error {
	if orcid != "" {
		if err := utils.ValidateOrcidID(orcid); err != nil {
			return &FieldValidationError{Row: rowNo, Message: err.Error()}
		}
	}
	if email != "" && !utils.ValidateEmail(email) {
		return fieldErrorf(rowNo, "Invalid email address '%s' in the row #%d", email, rowNo)
	}
	return nil
}

// checkExternalIDVocab validates an external-id (type, relationship) pair.
// The type is reported case-preserved, the relationship upper-cased.
func checkExternalIDVocab(idType, relationship string, rowNo int) error {
	if !models.IsValidExternalIDType(idType) {
		return fieldErrorf(rowNo,
			"Invalid External Id Type: '%s', Use 'doi', 'issn' or one of the accepted types "+
				"found here: https://pub.orcid.org/v2.0/identifiers", idType)
	}
	if !models.IsValidRelationship(relationship) {
		return fieldErrorf(rowNo,
			"Invalid External Id Relationship '%s' as it is not one of the %v, #%d",
			strings.ToUpper(relationship), models.Relationships, rowNo)
	}
	return nil
}

// parsePartialDateField wraps date parsing with the row context.
func parsePartialDateField(raw string, rowNo int) (*models.PartialDate, error) {
	pd, err := models.ParsePartialDate(raw)
	if err != nil {
		return nil, &FieldValidationError{Row: rowNo, Message: err.Error()}
	}
	return pd, nil
}

// orgDefault falls back to the organisation-level value when the upload
// leaves the field blank.
func orgDefault(v, fallback string) *string {
	if s := strings.TrimSpace(v); s != "" {
		return &s
	}
	if fallback == "" {
		return nil
	}
	return &fallback
}
