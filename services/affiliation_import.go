package services

import (
	"log"
	"strings"

	"profile-hub-api/config"
	"profile-hub-api/models"
	"profile-hub-api/utils"

	"gorm.io/gorm"
)

var affiliationHeaderPatterns = compilePatterns([]string{
	`first\s*(name)?`,
	`last\s*(name)?`,
	`email`,
	`organisation|name`,
	`campus|department`,
	`city`,
	`state|region`,
	`course|title|role`,
	`start\s*(date)?`,
	`end\s*(date)?`,
	`affiliation(s)?\s*(type)?|student|staff`,
	`country`,
	`disambiguat.*id`,
	`disambiguat.*source`,
	`put|code`,
	`orcid.*`,
	`external.*|.*identifier`,
	`delete(.*record)?`,
	`(is)?\s*visib(bility|le)?`,
})

const (
	affFirstName = iota
	affLastName
	affEmail
	affOrganisation
	affDepartment
	affCity
	affState
	affRole
	affStartDate
	affEndDate
	affType
	affCountry
	affDisambiguatedID
	affDisambiguationSource
	affPutCode
	affOrcid
	affExternalID
	affDeleteRecord
	affVisibility
)

// AffiliationImportService loads employment/education batch files.
type AffiliationImportService struct {
	db *gorm.DB
}

func NewAffiliationImportService(db *gorm.DB) *AffiliationImportService {
	if db == nil {
		db = config.DB
	}
	return &AffiliationImportService{db: db}
}

// ParseAffiliationCSV maps a delimited upload onto affiliation records.
func ParseAffiliationCSV(data []byte) ([]models.AffiliationRecord, error) {
	header, rows, err := readDelimited(data)
	if err != nil {
		return nil, err
	}
	if len(header) < 3 {
		return nil, formatErrorf(
			"Wrong number of fields. Expected at least 4 fields "+
				"(first name, last name, email address or another unique identifier, student/staff). "+
				"Read header: %v", header)
	}
	cm, err := mapHeader(header, affiliationHeaderPatterns)
	if err != nil {
		return nil, err
	}

	var records []models.AffiliationRecord
	for i, row := range rows {
		rowNo := i + 2
		if isEmptyRow(row) {
			continue
		}

		deleteRecord := truthy(cm.val(row, affDeleteRecord))
		putCode := optInt(cm.val(row, affPutCode))
		if deleteRecord && putCode == nil {
			return nil, fieldErrorf(rowNo,
				"Missing put-code. Cannot delete a record without put-code. #%d", rowNo)
		}

		affiliationType := strings.ToLower(cm.val(row, affType))
		if !deleteRecord && !models.IsValidAffiliationType(affiliationType) {
			return nil, fieldErrorf(rowNo,
				"Invalid affiliation type '%s' in the row #%d. Expected values: %s.",
				affiliationType, rowNo, strings.Join(models.AffiliationTypes, ", "))
		}

		startDate, err := parsePartialDateField(cm.val(row, affStartDate), rowNo)
		if err != nil {
			return nil, err
		}
		endDate, err := parsePartialDateField(cm.val(row, affEndDate), rowNo)
		if err != nil {
			return nil, err
		}

		email := utils.NormalizeEmail(cm.val(row, affEmail))
		orcid := cm.val(row, affOrcid)
		externalID := cm.val(row, affExternalID)
		// An external id that looks like an email can stand in for one.
		if email == "" && orcid == "" && externalID != "" && utils.ValidateEmail(externalID) {
			email = strings.ToLower(externalID)
		}
		if !deleteRecord && email == "" && orcid == "" {
			return nil, fieldErrorf(rowNo,
				"Missing user identifier (email address or ORCID iD) in the row #%d", rowNo)
		}
		if err := checkRowIdentity(orcid, email, rowNo); err != nil {
			return nil, err
		}

		firstName := cm.val(row, affFirstName)
		lastName := cm.val(row, affLastName)
		if !deleteRecord && (firstName == "" || lastName == "") {
			return nil, fieldErrorf(rowNo,
				"Wrong number of fields. Expected at least 4 fields (first name, last name, "+
					"email address or another unique identifier, student/staff), #%d", rowNo)
		}

		country, err := normalizeCountry(cm.val(row, affCountry), rowNo)
		if err != nil {
			return nil, err
		}

		rec := models.AffiliationRecord{
			FirstName:            optStr(firstName),
			LastName:             optStr(lastName),
			Email:                optStr(email),
			Orcid:                optStr(orcid),
			Organisation:         optStr(cm.val(row, affOrganisation)),
			Department:           optStr(cm.val(row, affDepartment)),
			City:                 optStr(cm.val(row, affCity)),
			Region:               optStr(cm.val(row, affState)),
			Role:                 optStr(cm.val(row, affRole)),
			StartDate:            startDate,
			EndDate:              endDate,
			AffiliationType:      optStr(affiliationType),
			Country:              optStr(country),
			DisambiguatedID:      optStr(cm.val(row, affDisambiguatedID)),
			DisambiguationSource: optUpper(cm.val(row, affDisambiguationSource)),
			PutCode:              putCode,
			ExternalID:           optStr(externalID),
			DeleteRecord:         deleteRecord,
			Visibility:           optUpper(cm.val(row, affVisibility)),
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseAffiliationJSON maps a decoded JSON/YAML record list onto
// affiliation records. Keys follow the registry's dashed spelling.
func ParseAffiliationJSON(list *recordList) ([]models.AffiliationRecord, error) {
	records := make([]models.AffiliationRecord, 0, len(list.Records))
	for _, r := range list.Records {
		startDate := models.PartialDateFromMap(nestedMap(r, "start-date"))
		if startDate == nil {
			pd, err := models.ParsePartialDate(nestedString(r, "start-date"))
			if err != nil {
				return nil, &FieldValidationError{Message: err.Error()}
			}
			startDate = pd
		}
		endDate := models.PartialDateFromMap(nestedMap(r, "end-date"))
		if endDate == nil {
			pd, err := models.ParsePartialDate(nestedString(r, "end-date"))
			if err != nil {
				return nil, &FieldValidationError{Message: err.Error()}
			}
			endDate = pd
		}

		email := utils.NormalizeEmail(nestedString(r, "email"))
		orcid := nestedString(r, "orcid")
		if err := checkRowIdentity(orcid, email, 0); err != nil {
			return nil, err
		}
		affiliationType := strings.ToLower(nestedString(r, "affiliation-type"))
		if affiliationType != "" && !models.IsValidAffiliationType(affiliationType) {
			return nil, fieldErrorf(0,
				"Invalid affiliation type '%s'. Expected values: %s.",
				affiliationType, strings.Join(models.AffiliationTypes, ", "))
		}

		rec := models.AffiliationRecord{
			FirstName:            optStr(nestedString(r, "first-name")),
			LastName:             optStr(nestedString(r, "last-name")),
			Email:                optStr(email),
			Orcid:                optStr(orcid),
			Organisation:         optStr(nestedString(r, "organisation")),
			Department:           optStr(nestedString(r, "department")),
			City:                 optStr(nestedString(r, "city")),
			Region:               optStr(nestedString(r, "state")),
			Role:                 optStr(nestedString(r, "role")),
			StartDate:            startDate,
			EndDate:              endDate,
			AffiliationType:      optStr(affiliationType),
			Country:              optStr(nestedString(r, "country")),
			DisambiguatedID:      optStr(nestedString(r, "disambiguated-id")),
			DisambiguationSource: optUpper(nestedString(r, "disambiguation-source")),
			PutCode:              optInt(nestedString(r, "put-code")),
			ExternalID:           optStr(nestedString(r, "external-id")),
			DeleteRecord:         truthy(nestedString(r, "delete-record")),
			Visibility:           optUpper(nestedString(r, "visibility")),
		}
		if rec.DeleteRecord && rec.PutCode == nil {
			return nil, &FieldValidationError{
				Message: "Missing put-code. Cannot delete a record without put-code."}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Load parses an upload in any supported format and persists the task with
// its affiliation records in one transaction.
func (s *AffiliationImportService) Load(data []byte, filename string, org *models.Organisation, creatorID int) (*models.Task, error) {
	format, err := SniffFormat(filename, data)
	if err != nil {
		return nil, err
	}

	var records []models.AffiliationRecord
	switch format {
	case FormatCSV, FormatTSV:
		records, err = ParseAffiliationCSV(data)
	default:
		var list *recordList
		if list, err = loadRecordList(data, format); err == nil {
			records, err = ParseAffiliationJSON(list)
		}
	}
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		OrgID:     org.OrgID,
		CreatedBy: creatorID,
		Filename:  filename,
		TaskType:  models.TaskTypeAffiliation,
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
		log.Printf("Failed to load affiliation file %s: %v", filename, err)
		return nil, err
	}
	return task, nil
}
