package services

import (
	"log"
	"strings"

	"profile-hub-api/config"
	"profile-hub-api/models"
	"profile-hub-api/utils"

	"gorm.io/gorm"
)

var otherIDHeaderPatterns = compilePatterns([]string{
	`(external)?\s*id(entifier)?\s*type$|type$`,
	`(external)?\s*id(entifier)?\s*value$|value$`,
	`(external)?\s*id(entifier)?\s*url|url$`,
	`(external)?\s*id(entifier)?\s*rel(ationship)?|rel(ationship)?$`,
	`display\s*index`,
	`email`,
	`first\s*(name)?`,
	`(last|sur)\s*(name)?`,
	`orcid\s*(id)?$`,
	`put.*code`,
	`(is)?\s*visib(bility|le)?`,
	`(is)?\s*active$`,
})

const (
	oidType = iota
	oidValue
	oidURL
	oidRelationship
	oidDisplayIndex
	oidEmail
	oidFirstName
	oidLastName
	oidOrcid
	oidPutCode
	oidVisibility
	oidIsActive
)

// OtherIDImportService loads external person identifier batch files.
type OtherIDImportService struct {
	db *gorm.DB
}

func NewOtherIDImportService(db *gorm.DB) *OtherIDImportService {
	if db == nil {
		db = config.DB
	}
	return &OtherIDImportService{db: db}
}

// ParseOtherIDCSV maps a delimited upload onto other-id records.
func ParseOtherIDCSV(data []byte) ([]models.OtherIDRecord, error) {
	header, rows, err := readDelimited(data)
	if err != nil {
		return nil, err
	}
	cm, err := mapHeader(header, otherIDHeaderPatterns)
	if err != nil {
		return nil, err
	}

	var records []models.OtherIDRecord
	for i, row := range rows {
		rowNo := i + 2
		if isEmptyRow(row) {
			continue
		}

		idType := cm.val(row, oidType)
		value := cm.val(row, oidValue)
		url := cm.val(row, oidURL)
		relationship := cm.val(row, oidRelationship)
		if value == "" {
			return nil, fieldErrorf(rowNo, "Missing External Id Value, #%d", rowNo)
		}
		if url == "" || relationship == "" {
			return nil, fieldErrorf(rowNo,
				"Missing External Id Url '%s' or External Id Relationship '%s', #%d",
				url, relationship, rowNo)
		}
		if err := checkExternalIDVocab(idType, relationship, rowNo); err != nil {
			return nil, err
		}

		email := utils.NormalizeEmail(cm.val(row, oidEmail))
		orcid := cm.val(row, oidOrcid)
		if email == "" && orcid == "" {
			return nil, fieldErrorf(rowNo,
				"Missing user identifier (email address or ORCID iD) in the row #%d", rowNo)
		}
		if err := checkRowIdentity(orcid, email, rowNo); err != nil {
			return nil, err
		}

		rec := models.OtherIDRecord{
			Type:         strings.ToLower(idType),
			Value:        value,
			URL:          optStr(url),
			Relationship: optUpper(relationship),
			DisplayIndex: optInt(cm.val(row, oidDisplayIndex)),
			Email:        optStr(email),
			FirstName:    optStr(cm.val(row, oidFirstName)),
			LastName:     optStr(cm.val(row, oidLastName)),
			Orcid:        optStr(orcid),
			PutCode:      optInt(cm.val(row, oidPutCode)),
			Visibility:   optUpper(cm.val(row, oidVisibility)),
		}
		rec.IsActive = truthy(cm.val(row, oidIsActive))
		records = append(records, rec)
	}
	return records, nil
}

// ParseOtherIDJSON maps a decoded JSON/YAML record list onto other-id
// records.
func ParseOtherIDJSON(list *recordList) ([]models.OtherIDRecord, error) {
	records := make([]models.OtherIDRecord, 0, len(list.Records))
	for _, r := range list.Records {
		idType := nestedString(r, "external-id-type")
		if idType == "" {
			idType = nestedString(r, "type")
		}
		value := nestedString(r, "external-id-value")
		if value == "" {
			value = nestedString(r, "value")
		}
		url := nestedString(r, "external-id-url", "value")
		if url == "" {
			url = nestedString(r, "url")
		}
		relationship := nestedString(r, "external-id-relationship")
		if relationship == "" {
			relationship = nestedString(r, "relationship")
		}

		if value == "" {
			return nil, &FieldValidationError{Message: "Missing External Id Value"}
		}
		if url == "" || relationship == "" {
			return nil, fieldErrorf(0,
				"Missing External Id Url '%s' or External Id Relationship '%s'",
				url, relationship)
		}
		if err := checkExternalIDVocab(idType, relationship, 0); err != nil {
			return nil, err
		}

		email := utils.NormalizeEmail(nestedString(r, "email"))
		orcid := nestedString(r, "orcid")
		if email == "" && orcid == "" {
			return nil, &FieldValidationError{
				Message: "Missing user identifier (email address or ORCID iD)"}
		}
		if err := checkRowIdentity(orcid, email, 0); err != nil {
			return nil, err
		}

		records = append(records, models.OtherIDRecord{
			Type:         strings.ToLower(idType),
			Value:        value,
			URL:          optStr(url),
			Relationship: optUpper(relationship),
			DisplayIndex: optInt(nestedString(r, "display-index")),
			Email:        optStr(email),
			FirstName:    optStr(nestedString(r, "first-name")),
			LastName:     optStr(nestedString(r, "last-name")),
			Orcid:        optStr(orcid),
			PutCode:      optInt(nestedString(r, "put-code")),
			Visibility:   optUpper(nestedString(r, "visibility")),
		})
	}
	return records, nil
}

// Load parses an upload in any supported format and persists the task with
// its other-id records in one transaction.
func (s *OtherIDImportService) Load(data []byte, filename string, org *models.Organisation, creatorID int) (*models.Task, error) {
	format, err := SniffFormat(filename, data)
	if err != nil {
		return nil, err
	}

	var records []models.OtherIDRecord
	switch format {
	case FormatCSV, FormatTSV:
		records, err = ParseOtherIDCSV(data)
	default:
		var list *recordList
		if list, err = loadRecordList(data, format); err == nil {
			records, err = ParseOtherIDJSON(list)
		}
	}
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		OrgID:     org.OrgID,
		CreatedBy: creatorID,
		Filename:  filename,
		TaskType:  models.TaskTypeOtherID,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		for i := range records {
			records[i].TaskID = task.TaskID
			if err := tx.Create(&records[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Failed to load other id file %s: %v", filename, err)
		return nil, err
	}
	return task, nil
}
