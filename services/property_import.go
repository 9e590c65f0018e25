package services

import (
	"log"
	"strings"

	"profile-hub-api/config"
	"profile-hub-api/models"
	"profile-hub-api/utils"

	"gorm.io/gorm"
)

var propertyHeaderPatterns = compilePatterns([]string{
	`(property)?\s*type$`,
	`display\s*index`,
	`(url)?\s*name$`,
	`value|content|url$|country|(other)?\s*name(s)?$|keyword`,
	`email`,
	`first\s*(name)?`,
	`(last|sur)\s*(name)?`,
	`orcid\s*(id)?$`,
	`put.*code`,
	`(is)?\s*visib(bility|le)?`,
	`(is)?\s*active$`,
})

const (
	propType = iota
	propDisplayIndex
	propName
	propValue
	propEmail
	propFirstName
	propLastName
	propOrcid
	propPutCode
	propVisibility
	propIsActive
)

// PropertyImportService loads researcher-property batch files (URLs, other
// names, keywords and countries).
type PropertyImportService struct {
	db *gorm.DB
}

func NewPropertyImportService(db *gorm.DB) *PropertyImportService {
	if db == nil {
		db = config.DB
	}
	return &PropertyImportService{db: db}
}

// ParsePropertyCSV maps a delimited upload onto property records.
// fileType, when non-empty, supplies the property type for files whose rows
// carry no type column.
func ParsePropertyCSV(data []byte, fileType string) ([]models.PropertyRecord, error) {
	header, rows, err := readDelimited(data)
	if err != nil {
		return nil, err
	}
	cm, err := mapHeader(header, propertyHeaderPatterns)
	if err != nil {
		return nil, err
	}

	var records []models.PropertyRecord
	for i, row := range rows {
		rowNo := i + 2
		if isEmptyRow(row) {
			continue
		}

		propertyType := strings.ToUpper(cm.val(row, propType))
		if propertyType == "" {
			propertyType = strings.ToUpper(fileType)
		}
		if !models.IsValidPropertyType(propertyType) {
			return nil, fieldErrorf(rowNo,
				"Invalid property type '%s' in the row #%d. Expected values: %s.",
				propertyType, rowNo, strings.Join(models.PropertyTypes, ", "))
		}

		value := cm.val(row, propValue)
		if value == "" {
			return nil, fieldErrorf(rowNo, "Missing property value, #%d", rowNo)
		}
		name := cm.val(row, propName)
		switch propertyType {
		case "URL":
			if name == "" {
				return nil, fieldErrorf(rowNo, "Missing URL name, #%d", rowNo)
			}
		case "COUNTRY":
			normalized, err := normalizeCountry(value, rowNo)
			if err != nil {
				return nil, err
			}
			value = normalized
		}

		email := utils.NormalizeEmail(cm.val(row, propEmail))
		orcid := cm.val(row, propOrcid)
		if email == "" && orcid == "" {
			return nil, fieldErrorf(rowNo,
				"Missing user identifier (email address or ORCID iD) in the row #%d", rowNo)
		}
		if err := checkRowIdentity(orcid, email, rowNo); err != nil {
			return nil, err
		}

		rec := models.PropertyRecord{
			Type:         propertyType,
			DisplayIndex: optInt(cm.val(row, propDisplayIndex)),
			Name:         optStr(name),
			Value:        value,
			Email:        optStr(email),
			FirstName:    optStr(cm.val(row, propFirstName)),
			LastName:     optStr(cm.val(row, propLastName)),
			Orcid:        optStr(orcid),
			PutCode:      optInt(cm.val(row, propPutCode)),
			Visibility:   optUpper(cm.val(row, propVisibility)),
		}
		rec.IsActive = truthy(cm.val(row, propIsActive))
		records = append(records, rec)
	}
	return records, nil
}

// ParsePropertyJSON maps a decoded JSON/YAML record list onto property
// records.
func ParsePropertyJSON(list *recordList, fileType string) ([]models.PropertyRecord, error) {
	records := make([]models.PropertyRecord, 0, len(list.Records))
	for _, r := range list.Records {
		propertyType := strings.ToUpper(nestedString(r, "type"))
		if propertyType == "" {
			propertyType = strings.ToUpper(fileType)
		}
		if !models.IsValidPropertyType(propertyType) {
			return nil, fieldErrorf(0,
				"Invalid property type '%s'. Expected values: %s.",
				propertyType, strings.Join(models.PropertyTypes, ", "))
		}

		value := nestedString(r, "value")
		if value == "" {
			// The registry spellings double as value keys.
			for _, k := range []string{"url", "content", "country", "name", "keyword"} {
				if value = nestedString(r, k); value != "" {
					break
				}
			}
		}
		if value == "" {
			return nil, &FieldValidationError{Message: "Missing property value"}
		}
		name := nestedString(r, "url-name")
		if name == "" {
			name = nestedString(r, "name")
		}
		if propertyType == "URL" && name == "" {
			return nil, &FieldValidationError{Message: "Missing URL name"}
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

		records = append(records, models.PropertyRecord{
			Type:         propertyType,
			DisplayIndex: optInt(nestedString(r, "display-index")),
			Name:         optStr(name),
			Value:        value,
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
// its property records in one transaction.
func (s *PropertyImportService) Load(data []byte, filename, fileType string, org *models.Organisation, creatorID int) (*models.Task, error) {
	format, err := SniffFormat(filename, data)
	if err != nil {
		return nil, err
	}

	var records []models.PropertyRecord
	switch format {
	case FormatCSV, FormatTSV:
		records, err = ParsePropertyCSV(data, fileType)
	default:
		var list *recordList
		if list, err = loadRecordList(data, format); err == nil {
			records, err = ParsePropertyJSON(list, fileType)
		}
	}
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		OrgID:     org.OrgID,
		CreatedBy: creatorID,
		Filename:  filename,
		TaskType:  models.TaskTypeProperty,
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
		log.Printf("Failed to load property file %s: %v", filename, err)
		return nil, err
	}
	return task, nil
}
