package services

import (
	"log"
	"strings"

	"profile-hub-api/config"
	"profile-hub-api/models"
	"profile-hub-api/utils"

	"gorm.io/gorm"
)

var peerReviewHeaderPatterns = compilePatterns([]string{
	`review\s*group\s*id$`,
	`(reviewer)?\s*role$`,
	`review\s*url`,
	`review\s*type$`,
	`(review\s*)?(completion)?.*date`,
	`subject\s*(external)?\s*id(entifier)?\s+type$`,
	`subject\s*(external)?\s*id(entifier)?\s+value$`,
	`subject\s*(external)?\s*id(entifier)?\s*url`,
	`subject\s*(external)?\s*id(entifier)?\s*rel(ationship)?`,
	`subject\s*container\s*(name)?`,
	`subject\s*(type)?$`,
	`(subject)?\s*(name)?\s*title$`,
	`(subject)?\s*(name)?\s*sub.*(title)?$`,
	`(subject)?\s*(name)?\s*translated\s+(title)?$`,
	`(subject)?\s*(name)?\s*translat(ed)?(ion)?\s+(title)?\s*lang(uage)?.*(code)?`,
	`(subject)?\s*url$`,
	`(convening)?\s*org(anisation|anization)?\s*(name)?$`,
	`(convening)?\s*org(anisation|anization)?\s*city`,
	`(convening)?\s*org(anisation|anization)?\s*(state|region)`,
	`(convening)?\s*org(anisation|anization)?\s*country`,
	`(convening)?\s*org(anisation|anization)?\s*disambiguat.*id`,
	`(convening)?\s*org(anisation|anization)?\s*disambiguat.*source`,
	`(is)?\s*active$`,
	`orcid\s*(id)?$`,
	`email`,
	`(external)?\s*id(entifier)?\s+type$`,
	`((external)?\s*id(entifier)?\s+value|peer\s*review.*id)$`,
	`(external)?\s*id(entifier)?\s*url`,
	`(external)?\s*id(entifier)?\s*rel(ationship)?`,
	`put.*code`,
	`(is)?\s*visib(bility|le)?`,
	`first\s*(name)?`,
	`(last|sur)\s*(name)?`,
	`identifier`,
})

const (
	prGroupID = iota
	prReviewerRole
	prReviewURL
	prReviewType
	prCompletionDate
	prSubjectExtIDType
	prSubjectExtIDValue
	prSubjectExtIDURL
	prSubjectExtIDRelationship
	prSubjectContainerName
	prSubjectType
	prSubjectTitle
	prSubjectSubtitle
	prSubjectTranslatedTitle
	prSubjectTranslatedLang
	prSubjectURL
	prOrgName
	prOrgCity
	prOrgRegion
	prOrgCountry
	prOrgDisambiguatedID
	prOrgDisambiguationSource
	prIsActive
	prOrcid
	prEmail
	prExtIDType
	prExtIDValue
	prExtIDURL
	prExtIDRelationship
	prPutCode
	prVisibility
	prFirstName
	prLastName
	prIdentifier
)

// PeerReviewImportService loads peer-review batch files.
type PeerReviewImportService struct {
	db *gorm.DB
}

func NewPeerReviewImportService(db *gorm.DB) *PeerReviewImportService {
	if db == nil {
		db = config.DB
	}
	return &PeerReviewImportService{db: db}
}

// ParsePeerReviewCSV maps a delimited upload onto peer-review records.
// Adjacent rows sharing the review and convening-org fields collapse into
// one record accumulating the distinct review identifiers and invitees.
func ParsePeerReviewCSV(data []byte, org *models.Organisation) ([]models.PeerReviewRecord, error) {
	header, rows, err := readDelimited(data)
	if err != nil {
		return nil, err
	}
	cm, err := mapHeader(header, peerReviewHeaderPatterns)
	if err != nil {
		return nil, err
	}

	var records []models.PeerReviewRecord
	var prevKey string
	for i, row := range rows {
		rowNo := i + 2
		if isEmptyRow(row) {
			continue
		}

		groupID := cm.val(row, prGroupID)
		if groupID == "" {
			return nil, fieldErrorf(rowNo, "Review Group ID is mandatory, #%d. Header: %v", rowNo, header)
		}

		orgName := cm.val(row, prOrgName)
		orgCity := cm.val(row, prOrgCity)
		orgCountryRaw := cm.val(row, prOrgCountry)
		if orgName == "" || orgCity == "" || orgCountryRaw == "" {
			return nil, fieldErrorf(rowNo,
				"Convening Org Name, City and Country are mandatory, #%d. Header: %v", rowNo, header)
		}
		orgCountry, err := normalizeCountry(orgCountryRaw, rowNo)
		if err != nil {
			return nil, err
		}

		completionDate, err := parsePartialDateField(cm.val(row, prCompletionDate), rowNo)
		if err != nil {
			return nil, err
		}

		email := utils.NormalizeEmail(cm.val(row, prEmail))
		orcid := cm.val(row, prOrcid)
		if err := checkRowIdentity(orcid, email, rowNo); err != nil {
			return nil, err
		}

		extType := cm.val(row, prExtIDType)
		extValue := cm.val(row, prExtIDValue)
		extRelationship := cm.val(row, prExtIDRelationship)
		putCode := optInt(cm.val(row, prPutCode))
		if extType != "" || extValue != "" {
			if err := checkExternalIDVocab(extType, extRelationship, rowNo); err != nil {
				return nil, err
			}
		}
		if extValue == "" && putCode == nil {
			return nil, fieldErrorf(rowNo, "Invalid External Id Value or Peer Review Id, #%d", rowNo)
		}

		subjectExtType := cm.val(row, prSubjectExtIDType)
		subjectExtRel := cm.val(row, prSubjectExtIDRelationship)
		if subjectExtType != "" {
			if err := checkExternalIDVocab(subjectExtType, subjectExtRel, rowNo); err != nil {
				return nil, err
			}
		}

		rec := models.PeerReviewRecord{
			ReviewGroupID:                       groupID,
			ReviewerRole:                        optUpper(cm.val(row, prReviewerRole)),
			ReviewURL:                           optStr(cm.val(row, prReviewURL)),
			ReviewType:                          optUpper(cm.val(row, prReviewType)),
			ReviewCompletionDate:                completionDate,
			SubjectExternalIDType:               optStr(strings.ToLower(subjectExtType)),
			SubjectExternalIDValue:              optStr(cm.val(row, prSubjectExtIDValue)),
			SubjectExternalIDURL:                optStr(cm.val(row, prSubjectExtIDURL)),
			SubjectExternalIDRelationship:       optUpper(subjectExtRel),
			SubjectContainerName:                optStr(cm.val(row, prSubjectContainerName)),
			SubjectType:                         optStr(cm.val(row, prSubjectType)),
			SubjectNameTitle:                    optStr(cm.val(row, prSubjectTitle)),
			SubjectNameSubtitle:                 optStr(cm.val(row, prSubjectSubtitle)),
			SubjectNameTranslatedTitle:          optStr(cm.val(row, prSubjectTranslatedTitle)),
			SubjectNameTranslatedTitleLangCode:  optStr(cm.val(row, prSubjectTranslatedLang)),
			SubjectURL:                          optStr(cm.val(row, prSubjectURL)),
			ConveningOrgName:                    optStr(orgName),
			ConveningOrgCity:                    optStr(orgCity),
			ConveningOrgRegion:                  optStr(cm.val(row, prOrgRegion)),
			ConveningOrgCountry:                 optStr(orgCountry),
			ConveningOrgDisambiguatedIdentifier: optStr(cm.val(row, prOrgDisambiguatedID)),
			ConveningOrgDisambiguationSource:    optUpper(cm.val(row, prOrgDisambiguationSource)),
		}
		rec.IsActive = truthy(cm.val(row, prIsActive))

		invitee := models.PeerReviewInvitee{InviteeFields: models.InviteeFields{
			Identifier: optStr(cm.val(row, prIdentifier)),
			Email:      optStr(email),
			FirstName:  optStr(cm.val(row, prFirstName)),
			LastName:   optStr(cm.val(row, prLastName)),
			Orcid:      optStr(orcid),
			PutCode:    putCode,
			Visibility: optUpper(cm.val(row, prVisibility)),
		}}

		key := peerReviewRowKey(&rec)
		if len(records) > 0 && key == prevKey {
			appendPeerReviewChildren(&records[len(records)-1], extType, extValue,
				cm.val(row, prExtIDURL), extRelationship, invitee)
			continue
		}
		prevKey = key

		appendPeerReviewChildren(&rec, extType, extValue, cm.val(row, prExtIDURL), extRelationship, invitee)
		records = append(records, rec)
	}
	return records, nil
}

// peerReviewRowKey identifies the review a row describes, ignoring the
// per-row review identifier and invitee columns.
func peerReviewRowKey(rec *models.PeerReviewRecord) string {
	return strings.ToLower(strings.Join([]string{
		rec.ReviewGroupID, deref(rec.ReviewerRole), deref(rec.ReviewURL),
		deref(rec.ReviewType), rec.ReviewCompletionDate.String(),
		deref(rec.SubjectExternalIDType), deref(rec.SubjectExternalIDValue),
		deref(rec.SubjectNameTitle), deref(rec.SubjectType),
		deref(rec.ConveningOrgName), deref(rec.ConveningOrgCity),
		deref(rec.ConveningOrgRegion), deref(rec.ConveningOrgCountry),
		boolStr(rec.IsActive),
	}, "\x00"))
}

func appendPeerReviewChildren(rec *models.PeerReviewRecord, extType, extValue, extURL, extRel string, invitee models.PeerReviewInvitee) {
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
			rec.ExternalIDs = append(rec.ExternalIDs, models.PeerReviewExternalID{
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

// ParsePeerReviewJSON maps a decoded JSON/YAML record list onto
// peer-review records.
func ParsePeerReviewJSON(list *recordList) ([]models.PeerReviewRecord, error) {
	records := make([]models.PeerReviewRecord, 0, len(list.Records))
	for _, r := range list.Records {
		groupID := nestedString(r, "review-group-id")
		if groupID == "" {
			return nil, &FieldValidationError{Message: "Review Group ID is mandatory"}
		}
		completionDate := models.PartialDateFromMap(nestedMap(r, "review-completion-date"))

		rec := models.PeerReviewRecord{
			ReviewGroupID:                       groupID,
			ReviewerRole:                        optUpper(nestedString(r, "reviewer-role")),
			ReviewURL:                           optStr(nestedString(r, "review-url", "value")),
			ReviewType:                          optUpper(nestedString(r, "review-type")),
			ReviewCompletionDate:                completionDate,
			SubjectExternalIDType:               optStr(strings.ToLower(nestedString(r, "subject-external-identifier", "external-id-type"))),
			SubjectExternalIDValue:              optStr(nestedString(r, "subject-external-identifier", "external-id-value")),
			SubjectExternalIDURL:                optStr(nestedString(r, "subject-external-identifier", "external-id-url", "value")),
			SubjectExternalIDRelationship:       optUpper(nestedString(r, "subject-external-identifier", "external-id-relationship")),
			SubjectContainerName:                optStr(nestedString(r, "subject-container-name", "value")),
			SubjectType:                         optStr(nestedString(r, "subject-type")),
			SubjectNameTitle:                    optStr(nestedString(r, "subject-name", "title", "value")),
			SubjectNameSubtitle:                 optStr(nestedString(r, "subject-name", "subtitle", "value")),
			SubjectNameTranslatedTitle:          optStr(nestedString(r, "subject-name", "translated-title", "value")),
			SubjectNameTranslatedTitleLangCode:  optStr(nestedString(r, "subject-name", "translated-title", "language-code")),
			SubjectURL:                          optStr(nestedString(r, "subject-url", "value")),
			ConveningOrgName:                    optStr(nestedString(r, "convening-organization", "name")),
			ConveningOrgCity:                    optStr(nestedString(r, "convening-organization", "address", "city")),
			ConveningOrgRegion:                  optStr(nestedString(r, "convening-organization", "address", "region")),
			ConveningOrgCountry:                 optStr(nestedString(r, "convening-organization", "address", "country")),
			ConveningOrgDisambiguatedIdentifier: optStr(nestedString(r, "convening-organization", "disambiguated-organization", "disambiguated-organization-identifier")),
			ConveningOrgDisambiguationSource:    optUpper(nestedString(r, "convening-organization", "disambiguated-organization", "disambiguation-source")),
		}
		if rec.ConveningOrgName == nil || rec.ConveningOrgCity == nil || rec.ConveningOrgCountry == nil {
			return nil, &FieldValidationError{
				Message: "Convening Org Name, City and Country are mandatory"}
		}

		invitees := nestedList(r, "invitees")
		if len(invitees) == 0 {
			return nil, &FieldValidationError{
				Message: "Expecting Invitees for which the peer review record will be written"}
		}
		for _, inv := range invitees {
			email := utils.NormalizeEmail(nestedString(inv, "email"))
			rec.Invitees = append(rec.Invitees, models.PeerReviewInvitee{InviteeFields: models.InviteeFields{
				Identifier: optStr(nestedString(inv, "identifier")),
				Email:      optStr(email),
				FirstName:  optStr(nestedString(inv, "first-name")),
				LastName:   optStr(nestedString(inv, "last-name")),
				Orcid:      optStr(nestedString(inv, "ORCID-iD")),
				PutCode:    optInt(nestedString(inv, "put-code")),
				Visibility: optUpper(nestedString(inv, "visibility")),
			}})
		}

		extIDs := nestedList(r, "review-identifiers", "external-id")
		if len(extIDs) == 0 {
			return nil, &FieldValidationError{Message: "An external identifier is required"}
		}
		for _, e := range extIDs {
			idType := nestedString(e, "external-id-type")
			relationship := nestedString(e, "external-id-relationship")
			if err := checkExternalIDVocab(idType, relationship, 0); err != nil {
				return nil, err
			}
			rec.ExternalIDs = append(rec.ExternalIDs, models.PeerReviewExternalID{
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
// its peer-review records in one transaction.
func (s *PeerReviewImportService) Load(data []byte, filename string, org *models.Organisation, creatorID int) (*models.Task, error) {
	format, err := SniffFormat(filename, data)
	if err != nil {
		return nil, err
	}

	var records []models.PeerReviewRecord
	switch format {
	case FormatCSV, FormatTSV:
		records, err = ParsePeerReviewCSV(data, org)
	default:
		var list *recordList
		if list, err = loadRecordList(data, format); err == nil {
			records, err = ParsePeerReviewJSON(list)
		}
	}
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		OrgID:     org.OrgID,
		CreatedBy: creatorID,
		Filename:  filename,
		TaskType:  models.TaskTypePeerReview,
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
		log.Printf("Failed to load peer review file %s: %v", filename, err)
		return nil, err
	}
	return task, nil
}
