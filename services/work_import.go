package services

import (
	"log"
	"strings"

	"profile-hub-api/config"
	"profile-hub-api/models"
	"profile-hub-api/utils"

	"gorm.io/gorm"
)

var workHeaderPatterns = compilePatterns([]string{
	`title$`,
	`sub.*(title)?$`,
	`translated\s+(title)?`,
	`translat(ed)?(ion)?\s+(title)?\s*lang(uage)?.*(code)?`,
	`journal`,
	`type$`,
	`(short\s*|description\s*)+$`,
	`citat(ion)?.*type`,
	`citat(ion)?.*value`,
	`(publication)?.*date`,
	`(publ(ication?))?.*media.*(type)?`,
	`url`,
	`lang(uage)?.*(code)?`,
	`country`,
	`(is)?\s*active$`,
	`orcid\s*(id)?$`,
	`email`,
	`(external)?\s*id(entifier)?\s+type$`,
	`((external)?\s*id(entifier)?\s+value|work.*id)$`,
	`(external)?\s*id(entifier)?\s*url`,
	`(external)?\s*id(entifier)?\s*rel(ationship)?`,
	`put.*code`,
	`(is)?\s*visib(bility|le)?`,
	`first\s*(name)?`,
	`(last|sur)\s*(name)?`,
	`identifier`,
})

const (
	workTitle = iota
	workSubtitle
	workTranslatedTitle
	workTranslatedLang
	workJournal
	workType
	workShortDescription
	workCitationType
	workCitationValue
	workPublicationDate
	workMediaType
	workURL
	workLanguageCode
	workCountry
	workIsActive
	workOrcid
	workEmail
	workExtIDType
	workExtIDValue
	workExtIDURL
	workExtIDRelationship
	workPutCode
	workVisibility
	workFirstName
	workLastName
	workIdentifier
)

// WorkImportService loads research-output batch files.
type WorkImportService struct {
	db *gorm.DB
}

func NewWorkImportService(db *gorm.DB) *WorkImportService {
	if db == nil {
		db = config.DB
	}
	return &WorkImportService{db: db}
}

// ParseWorkCSV maps a delimited upload onto work records, collapsing
// adjacent rows that repeat the same work fields into one record the same
// way the funding loader does.
func ParseWorkCSV(data []byte, org *models.Organisation) ([]models.WorkRecord, error) {
	header, rows, err := readDelimited(data)
	if err != nil {
		return nil, err
	}
	cm, err := mapHeader(header, workHeaderPatterns)
	if err != nil {
		return nil, err
	}

	var records []models.WorkRecord
	var prevKey string
	for i, row := range rows {
		rowNo := i + 2
		if isEmptyRow(row) {
			continue
		}

		title := cm.val(row, workTitle)
		if title == "" {
			return nil, fieldErrorf(rowNo, "Title is mandatory, #%d. Header: %v", rowNo, header)
		}
		typeVal := cm.val(row, workType)
		if typeVal == "" {
			return nil, fieldErrorf(rowNo, "Work type is mandatory, #%d. Header: %v", rowNo, header)
		}

		publicationDate, err := parsePartialDateField(cm.val(row, workPublicationDate), rowNo)
		if err != nil {
			return nil, err
		}

		email := utils.NormalizeEmail(cm.val(row, workEmail))
		orcid := cm.val(row, workOrcid)
		if err := checkRowIdentity(orcid, email, rowNo); err != nil {
			return nil, err
		}

		extType := cm.val(row, workExtIDType)
		extValue := cm.val(row, workExtIDValue)
		extRelationship := cm.val(row, workExtIDRelationship)
		putCode := optInt(cm.val(row, workPutCode))
		if extType != "" || extValue != "" {
			if err := checkExternalIDVocab(extType, extRelationship, rowNo); err != nil {
				return nil, err
			}
		}
		if extValue == "" && putCode == nil {
			return nil, fieldErrorf(rowNo, "Invalid External Id Value or Work Id, #%d", rowNo)
		}

		country, err := normalizeCountry(cm.val(row, workCountry), rowNo)
		if err != nil {
			return nil, err
		}

		rec := models.WorkRecord{
			Title:                       title,
			Subtitle:                    optStr(cm.val(row, workSubtitle)),
			TranslatedTitle:             optStr(cm.val(row, workTranslatedTitle)),
			TranslatedTitleLanguageCode: optStr(cm.val(row, workTranslatedLang)),
			JournalTitle:                optStr(cm.val(row, workJournal)),
			ShortDescription:            optStr(cm.val(row, workShortDescription)),
			CitationType:                optUpper(cm.val(row, workCitationType)),
			CitationValue:               optStr(cm.val(row, workCitationValue)),
			Type:                        optStr(typeVal),
			PublicationDate:             publicationDate,
			PublicationMediaType:        optStr(cm.val(row, workMediaType)),
			URL:                         optStr(cm.val(row, workURL)),
			LanguageCode:                optStr(cm.val(row, workLanguageCode)),
			Country:                     optStr(country),
		}
		rec.IsActive = truthy(cm.val(row, workIsActive))

		invitee := models.WorkInvitee{InviteeFields: models.InviteeFields{
			Identifier: optStr(cm.val(row, workIdentifier)),
			Email:      optStr(email),
			FirstName:  optStr(cm.val(row, workFirstName)),
			LastName:   optStr(cm.val(row, workLastName)),
			Orcid:      optStr(orcid),
			PutCode:    putCode,
			Visibility: optUpper(cm.val(row, workVisibility)),
		}}

		key := workRowKey(&rec)
		if len(records) > 0 && key == prevKey {
			appendWorkChildren(&records[len(records)-1], extType, extValue,
				cm.val(row, workExtIDURL), extRelationship, invitee)
			continue
		}
		prevKey = key

		appendWorkChildren(&rec, extType, extValue, cm.val(row, workExtIDURL), extRelationship, invitee)
		records = append(records, rec)
	}
	return records, nil
}

// workRowKey identifies the work a row describes, ignoring the per-row
// external id and invitee columns.
func workRowKey(rec *models.WorkRecord) string {
	return strings.ToLower(strings.Join([]string{
		rec.Title, deref(rec.Subtitle), deref(rec.TranslatedTitle),
		deref(rec.TranslatedTitleLanguageCode), deref(rec.JournalTitle), deref(rec.Type),
		deref(rec.ShortDescription), deref(rec.CitationType), deref(rec.CitationValue),
		rec.PublicationDate.String(), deref(rec.PublicationMediaType),
		deref(rec.URL), deref(rec.LanguageCode), deref(rec.Country),
		boolStr(rec.IsActive),
	}, "\x00"))
}

func appendWorkChildren(rec *models.WorkRecord, extType, extValue, extURL, extRel string, invitee models.WorkInvitee) {
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
			rec.ExternalIDs = append(rec.ExternalIDs, models.WorkExternalID{
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

// ParseWorkJSON maps a decoded JSON/YAML record list onto work records.
func ParseWorkJSON(list *recordList) ([]models.WorkRecord, error) {
	records := make([]models.WorkRecord, 0, len(list.Records))
	for _, r := range list.Records {
		publicationDate := models.PartialDateFromMap(nestedMap(r, "publication-date"))

		rec := models.WorkRecord{
			Title:                       nestedString(r, "title", "title", "value"),
			Subtitle:                    optStr(nestedString(r, "title", "subtitle", "value")),
			TranslatedTitle:             optStr(nestedString(r, "title", "translated-title", "value")),
			TranslatedTitleLanguageCode: optStr(nestedString(r, "title", "translated-title", "language-code")),
			JournalTitle:                optStr(nestedString(r, "journal-title", "value")),
			ShortDescription:            optStr(nestedString(r, "short-description")),
			CitationType:                optUpper(nestedString(r, "citation", "citation-type")),
			CitationValue:               optStr(nestedString(r, "citation", "citation-value")),
			Type:                        optStr(nestedString(r, "type")),
			PublicationDate:             publicationDate,
			PublicationMediaType:        optStr(nestedString(r, "publication-date", "media-type")),
			URL:                         optStr(nestedString(r, "url", "value")),
			LanguageCode:                optStr(nestedString(r, "language-code")),
			Country:                     optStr(nestedString(r, "country", "value")),
		}
		if rec.Title == "" {
			return nil, &FieldValidationError{Message: "Title is mandatory"}
		}

		invitees := nestedList(r, "invitees")
		if len(invitees) == 0 {
			return nil, &FieldValidationError{
				Message: "Expecting Invitees for which the work record will be written"}
		}
		for _, inv := range invitees {
			email := utils.NormalizeEmail(nestedString(inv, "email"))
			rec.Invitees = append(rec.Invitees, models.WorkInvitee{InviteeFields: models.InviteeFields{
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
			rec.Contributors = append(rec.Contributors, models.WorkContributor{
				ContributorFields: models.ContributorFields{
					Orcid: optStr(nestedString(c, "contributor-orcid", "path")),
					Name:  optStr(nestedString(c, "credit-name", "value")),
					Email: optStr(utils.NormalizeEmail(nestedString(c, "contributor-email", "value"))),
					Role:  optStr(nestedString(c, "contributor-attributes", "contributor-role")),
				},
				ContributorSequence: optStr(nestedString(c, "contributor-attributes", "contributor-sequence")),
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
			rec.ExternalIDs = append(rec.ExternalIDs, models.WorkExternalID{
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
// its work records in one transaction.
func (s *WorkImportService) Load(data []byte, filename string, org *models.Organisation, creatorID int) (*models.Task, error) {
	format, err := SniffFormat(filename, data)
	if err != nil {
		return nil, err
	}

	var records []models.WorkRecord
	switch format {
	case FormatCSV, FormatTSV:
		records, err = ParseWorkCSV(data, org)
	default:
		var list *recordList
		if list, err = loadRecordList(data, format); err == nil {
			records, err = ParseWorkJSON(list)
		}
	}
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		OrgID:     org.OrgID,
		CreatedBy: creatorID,
		Filename:  filename,
		TaskType:  models.TaskTypeWork,
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
		log.Printf("Failed to load work record file %s: %v", filename, err)
		return nil, err
	}
	return task, nil
}
