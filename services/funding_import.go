package services

import (
	"log"
	"strings"

	"profile-hub-api/config"
	"profile-hub-api/models"
	"profile-hub-api/utils"

	"gorm.io/gorm"
)

// Column synonyms accepted in funding CSV/TSV headers, resolved once.
var fundingHeaderPatterns = compilePatterns([]string{
	`title$`,
	`translated\s+(title)?`,
	`translat(ed)?(ion)?\s+(title)?\s*lang(uage)?.*(code)?`,
	`type$`,
	`org(ani[sz]ation)?\s*(defined)?\s*type`,
	`(short\s*|description\s*)+$`,
	`amount`,
	`currency`,
	`start\s*(date)?`,
	`end\s*(date)?`,
	`(org(gani[zs]ation)?)?\s*name$`,
	`city`,
	`region|state`,
	`country`,
	`disambiguated\s*(org(ani[zs]ation)?)?\s*id(entifier)?`,
	`disambiguation\s+source$`,
	`(is)?\s*active$`,
	`orcid\s*(id)?$`,
	`email`,
	`(external)?\s*id(entifier)?\s+type$`,
	`((external)?\s*id(entifier)?\s+value|funding.*id)$`,
	`(external)?\s*id(entifier)?\s*url`,
	`(external)?\s*id(entifier)?\s*rel(ationship)?`,
	`put.*code`,
	`(is)?\s*visib(bility|le)?`,
	`first\s*(name)?`,
	`(last|sur)\s*(name)?`,
	`identifier`,
})

const (
	fundTitle = iota
	fundTranslatedTitle
	fundTranslatedLang
	fundType
	fundOrgDefinedType
	fundShortDescription
	fundAmount
	fundCurrency
	fundStartDate
	fundEndDate
	fundOrgName
	fundCity
	fundRegion
	fundCountry
	fundDisambiguatedID
	fundDisambiguationSource
	fundIsActive
	fundOrcid
	fundEmail
	fundExtIDType
	fundExtIDValue
	fundExtIDURL
	fundExtIDRelationship
	fundPutCode
	fundVisibility
	fundFirstName
	fundLastName
	fundIdentifier
)

// FundingImportService loads funding batch files into tasks.
type FundingImportService struct {
	db *gorm.DB
}

func NewFundingImportService(db *gorm.DB) *FundingImportService {
	if db == nil {
		db = config.DB
	}
	return &FundingImportService{db: db}
}

// ParseFundingCSV maps a delimited upload onto funding records. Adjacent
// rows that repeat the same funding fields collapse into a single record
// accumulating the distinct external ids and invitees.
func ParseFundingCSV(data []byte, org *models.Organisation) ([]models.FundingRecord, error) {
	header, rows, err := readDelimited(data)
	if err != nil {
		return nil, err
	}
	cm, err := mapHeader(header, fundingHeaderPatterns)
	if err != nil {
		return nil, err
	}

	var records []models.FundingRecord
	var prevKey string
	for i, row := range rows {
		rowNo := i + 2
		if isEmptyRow(row) {
			continue
		}

		title := cm.val(row, fundTitle)
		if title == "" {
			return nil, fieldErrorf(rowNo, "Title is mandatory, #%d. Header: %v", rowNo, header)
		}
		fundingType := cm.val(row, fundType)
		if fundingType == "" {
			return nil, fieldErrorf(rowNo, "Funding type is mandatory, #%d. Header: %v", rowNo, header)
		}

		startDate, err := parsePartialDateField(cm.val(row, fundStartDate), rowNo)
		if err != nil {
			return nil, err
		}
		endDate, err := parsePartialDateField(cm.val(row, fundEndDate), rowNo)
		if err != nil {
			return nil, err
		}

		email := utils.NormalizeEmail(cm.val(row, fundEmail))
		orcid := cm.val(row, fundOrcid)
		if err := checkRowIdentity(orcid, email, rowNo); err != nil {
			return nil, err
		}

		extType := cm.val(row, fundExtIDType)
		extValue := cm.val(row, fundExtIDValue)
		extRelationship := cm.val(row, fundExtIDRelationship)
		putCode := optInt(cm.val(row, fundPutCode))
		if extType != "" || extValue != "" {
			if err := checkExternalIDVocab(extType, extRelationship, rowNo); err != nil {
				return nil, err
			}
		}
		if extValue == "" && putCode == nil {
			return nil, fieldErrorf(rowNo, "Invalid External Id Value or Funding Id, #%d", rowNo)
		}

		country, err := normalizeCountry(cm.val(row, fundCountry), rowNo)
		if err != nil {
			return nil, err
		}

		rec := models.FundingRecord{
			Title:                       title,
			TranslatedTitle:             optStr(cm.val(row, fundTranslatedTitle)),
			TranslatedTitleLanguageCode: optStr(cm.val(row, fundTranslatedLang)),
			Type:                        fundingType,
			OrganizationDefinedType:     optStr(cm.val(row, fundOrgDefinedType)),
			ShortDescription:            optStr(cm.val(row, fundShortDescription)),
			Amount:                      optStr(cm.val(row, fundAmount)),
			Currency:                    optStr(cm.val(row, fundCurrency)),
			StartDate:                   startDate,
			EndDate:                     endDate,
			OrgName:                     orgDefault(cm.val(row, fundOrgName), org.Name),
			City:                        orgDefault(cm.val(row, fundCity), org.City),
			Region:                      orgDefault(cm.val(row, fundRegion), org.Region),
			Country:                     orgDefault(country, org.Country),
			DisambiguatedID:             orgDefault(cm.val(row, fundDisambiguatedID), org.DisambiguatedID),
			DisambiguationSource:        orgDefault(cm.val(row, fundDisambiguationSource), org.DisambiguationSource),
		}
		rec.IsActive = truthy(cm.val(row, fundIsActive))

		invitee := models.FundingInvitee{InviteeFields: models.InviteeFields{
			Identifier: optStr(cm.val(row, fundIdentifier)),
			Email:      optStr(email),
			FirstName:  optStr(cm.val(row, fundFirstName)),
			LastName:   optStr(cm.val(row, fundLastName)),
			Orcid:      optStr(orcid),
			PutCode:    putCode,
			Visibility: optUpper(cm.val(row, fundVisibility)),
		}}

		key := fundingRowKey(&rec)
		if len(records) > 0 && key == prevKey {
			appendFundingChildren(&records[len(records)-1], extType, extValue,
				cm.val(row, fundExtIDURL), extRelationship, invitee)
			continue
		}
		prevKey = key

		appendFundingChildren(&rec, extType, extValue, cm.val(row, fundExtIDURL), extRelationship, invitee)
		records = append(records, rec)
	}
	return records, nil
}

// fundingRowKey identifies the funding entry a row describes, ignoring the
// per-row external id and invitee columns.
func fundingRowKey(rec *models.FundingRecord) string {
	return strings.ToLower(strings.Join([]string{
		rec.Title, deref(rec.TranslatedTitle), deref(rec.TranslatedTitleLanguageCode),
		rec.Type, deref(rec.OrganizationDefinedType), deref(rec.ShortDescription),
		deref(rec.Amount), deref(rec.Currency),
		rec.StartDate.String(), rec.EndDate.String(),
		deref(rec.OrgName), deref(rec.City), deref(rec.Region), deref(rec.Country),
		deref(rec.DisambiguatedID), deref(rec.DisambiguationSource),
		boolStr(rec.IsActive),
	}, "\x00"))
}

// appendFundingChildren attaches the row's external id and invitee to the
// record, deduplicating both.
func appendFundingChildren(rec *models.FundingRecord, extType, extValue, extURL, extRel string, invitee models.FundingInvitee) {
	if extType != "" && extValue != "" {
		exists := false
		for _, e := range rec.ExternalIDs {
			if strings.EqualFold(e.Type, extType) && strings.EqualFold(e.Value, extValue) &&
				strings.EqualFold(e.Relationship, extRel) {
				exists = true
				break
			}
		}
		if !exists {
			rec.ExternalIDs = append(rec.ExternalIDs, models.FundingExternalID{
				ExternalIDFields: models.ExternalIDFields{
					Type:         strings.ToLower(extType),
					Value:        extValue,
					URL:          optStr(extURL),
					Relationship: strings.ToUpper(extRel),
				},
			})
		}
	}
	if invitee.Email != nil {
		for _, inv := range rec.Invitees {
			if inv.Email != nil && strings.EqualFold(*inv.Email, *invitee.Email) {
				return
			}
		}
		rec.Invitees = append(rec.Invitees, invitee)
	}
}

// ParseFundingJSON maps a decoded JSON/YAML record list onto funding
// records with their nested invitees, contributors and external ids.
func ParseFundingJSON(list *recordList) ([]models.FundingRecord, error) {
	records := make([]models.FundingRecord, 0, len(list.Records))
	for _, r := range list.Records {
		startDate := models.PartialDateFromMap(nestedMap(r, "start-date"))
		endDate := models.PartialDateFromMap(nestedMap(r, "end-date"))

		rec := models.FundingRecord{
			Title:                       nestedString(r, "title", "title", "value"),
			TranslatedTitle:             optStr(nestedString(r, "title", "translated-title", "value")),
			TranslatedTitleLanguageCode: optStr(nestedString(r, "title", "translated-title", "language-code")),
			Type:                        nestedString(r, "type"),
			OrganizationDefinedType:     optStr(nestedString(r, "organization-defined-type", "value")),
			ShortDescription:            optStr(nestedString(r, "short-description")),
			Amount:                      optStr(nestedString(r, "amount", "value")),
			Currency:                    optStr(nestedString(r, "amount", "currency-code")),
			StartDate:                   startDate,
			EndDate:                     endDate,
			OrgName:                     optStr(nestedString(r, "organization", "name")),
			City:                        optStr(nestedString(r, "organization", "address", "city")),
			Region:                      optStr(nestedString(r, "organization", "address", "region")),
			Country:                     optStr(nestedString(r, "organization", "address", "country")),
			DisambiguatedID: optStr(nestedString(r, "organization",
				"disambiguated-organization", "disambiguated-organization-identifier")),
			DisambiguationSource: optStr(nestedString(r, "organization",
				"disambiguated-organization", "disambiguation-source")),
		}
		if rec.Title == "" {
			return nil, &FieldValidationError{Message: "Title is mandatory"}
		}

		invitees := nestedList(r, "invitees")
		if len(invitees) == 0 {
			return nil, &FieldValidationError{
				Message: "Expecting Invitees for which the funding record will be written"}
		}
		for _, inv := range invitees {
			email := utils.NormalizeEmail(nestedString(inv, "email"))
			rec.Invitees = append(rec.Invitees, models.FundingInvitee{InviteeFields: models.InviteeFields{
				Identifier: optStr(nestedString(inv, "identifier")),
				Email:      optStr(email),
				FirstName:  optStr(nestedString(inv, "first-name")),
				LastName:   optStr(nestedString(inv, "last-name")),
				Orcid:      optStr(nestedString(inv, "ORCID-iD")),
				PutCode:    optInt(nestedString(inv, "put-code")),
				Visibility: optUpper(nestedString(inv, "visibility")),
			}})
		}

		for _, c := range nestedList(r, "contributors", "contributor") {
			rec.Contributors = append(rec.Contributors, models.FundingContributor{
				ContributorFields: models.ContributorFields{
					Orcid: optStr(nestedString(c, "contributor-orcid", "path")),
					Name:  optStr(nestedString(c, "credit-name", "value")),
					Email: optStr(utils.NormalizeEmail(nestedString(c, "contributor-email", "value"))),
					Role:  optStr(nestedString(c, "contributor-attributes", "contributor-role")),
				},
			})
		}

		extIDs := nestedList(r, "external-ids", "external-id")
		if len(extIDs) == 0 {
			return nil, &FieldValidationError{Message: "An external identifier is required"}
		}
		for _, e := range extIDs {
			idType := nestedString(e, "external-id-type")
			relationship := nestedString(e, "external-id-relationship")
			if err := checkExternalIDVocab(idType, relationship, 0); err != nil {
				return nil, err
			}
			rec.ExternalIDs = append(rec.ExternalIDs, models.FundingExternalID{
				ExternalIDFields: models.ExternalIDFields{
					Type:         strings.ToLower(idType),
					Value:        nestedString(e, "external-id-value"),
					URL:          optStr(nestedString(e, "external-id-url", "value")),
					Relationship: strings.ToUpper(relationship),
				},
			})
		}
		records = append(records, rec)
	}
	return records, nil
}

// Load parses an upload in any supported format and persists the task with
// its funding records in one transaction. Nothing is persisted on error.
func (s *FundingImportService) Load(data []byte, filename string, org *models.Organisation, creatorID int) (*models.Task, error) {
	format, err := SniffFormat(filename, data)
	if err != nil {
		return nil, err
	}

	var records []models.FundingRecord
	switch format {
	case FormatCSV, FormatTSV:
		records, err = ParseFundingCSV(data, org)
	default:
		var list *recordList
		if list, err = loadRecordList(data, format); err == nil {
			records, err = ParseFundingJSON(list)
		}
	}
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		OrgID:     org.OrgID,
		CreatedBy: creatorID,
		Filename:  filename,
		TaskType:  models.TaskTypeFunding,
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
		log.Printf("Failed to load funding file %s: %v", filename, err)
		return nil, err
	}
	return task, nil
}
