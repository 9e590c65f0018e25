package services

import (
	"strings"

	"profile-hub-api/models"
)

// Payload builders assembling the registry's JSON section shapes from
// stored records. Organisation-level address and disambiguation values fill
// in for fields the upload left blank.

func valueOf(s *string) map[string]interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return map[string]interface{}{"value": *s}
}

func visibilityOf(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return strings.ToLower(*s)
}

func pick(v *string, fallback string) string {
	if v != nil && *v != "" {
		return *v
	}
	return fallback
}

func organizationPayload(name, city, region, country, disambiguatedID, disambiguationSource string) map[string]interface{} {
	org := map[string]interface{}{
		"name": name,
		"address": map[string]interface{}{
			"city":    city,
			"region":  region,
			"country": country,
		},
	}
	if disambiguatedID != "" {
		org["disambiguated-organization"] = map[string]interface{}{
			"disambiguated-organization-identifier": disambiguatedID,
			"disambiguation-source":                 disambiguationSource,
		}
	}
	return org
}

func externalIDsPayload(ids []models.ExternalIDFields) map[string]interface{} {
	if len(ids) == 0 {
		return nil
	}
	list := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		item := map[string]interface{}{
			"external-id-type":         id.Type,
			"external-id-value":        id.Value,
			"external-id-relationship": strings.ToLower(id.Relationship),
		}
		if id.URL != nil && *id.URL != "" {
			item["external-id-url"] = map[string]interface{}{"value": *id.URL}
		}
		list = append(list, item)
	}
	return map[string]interface{}{"external-id": list}
}

func affiliationPayload(rec *models.AffiliationRecord, org *models.Organisation) map[string]interface{} {
	payload := map[string]interface{}{
		"organization": organizationPayload(
			pick(rec.Organisation, org.Name),
			pick(rec.City, org.City),
			pick(rec.Region, org.Region),
			pick(rec.Country, org.Country),
			pick(rec.DisambiguatedID, org.DisambiguatedID),
			pick(rec.DisambiguationSource, org.DisambiguationSource),
		),
	}
	if rec.Role != nil {
		payload["role-title"] = *rec.Role
	}
	if rec.Department != nil {
		payload["department-name"] = *rec.Department
	}
	if rec.StartDate != nil {
		payload["start-date"] = rec.StartDate.AsOrcidMap()
	}
	if rec.EndDate != nil {
		payload["end-date"] = rec.EndDate.AsOrcidMap()
	}
	if v := visibilityOf(rec.Visibility); v != nil {
		payload["visibility"] = v
	}
	return payload
}

func fundingPayload(rec *models.FundingRecord, org *models.Organisation) map[string]interface{} {
	title := map[string]interface{}{
		"title": map[string]interface{}{"value": rec.Title},
	}
	if rec.TranslatedTitle != nil {
		tt := map[string]interface{}{"value": *rec.TranslatedTitle}
		if rec.TranslatedTitleLanguageCode != nil {
			tt["language-code"] = *rec.TranslatedTitleLanguageCode
		}
		title["translated-title"] = tt
	}

	payload := map[string]interface{}{
		"title": title,
		"type":  strings.ToLower(rec.Type),
		"organization": organizationPayload(
			pick(rec.OrgName, org.Name),
			pick(rec.City, org.City),
			pick(rec.Region, org.Region),
			pick(rec.Country, org.Country),
			pick(rec.DisambiguatedID, org.DisambiguatedID),
			pick(rec.DisambiguationSource, org.DisambiguationSource),
		),
	}
	if rec.OrganizationDefinedType != nil {
		payload["organization-defined-type"] = valueOf(rec.OrganizationDefinedType)
	}
	if rec.ShortDescription != nil {
		payload["short-description"] = *rec.ShortDescription
	}
	if rec.Amount != nil {
		amount := map[string]interface{}{"value": *rec.Amount}
		if rec.Currency != nil {
			amount["currency-code"] = *rec.Currency
		}
		payload["amount"] = amount
	}
	if rec.StartDate != nil {
		payload["start-date"] = rec.StartDate.AsOrcidMap()
	}
	if rec.EndDate != nil {
		payload["end-date"] = rec.EndDate.AsOrcidMap()
	}

	ids := make([]models.ExternalIDFields, len(rec.ExternalIDs))
	for i, id := range rec.ExternalIDs {
		ids[i] = id.ExternalIDFields
	}
	if ext := externalIDsPayload(ids); ext != nil {
		payload["external-ids"] = ext
	}

	if len(rec.Contributors) > 0 {
		list := make([]map[string]interface{}, 0, len(rec.Contributors))
		for _, c := range rec.Contributors {
			item := map[string]interface{}{}
			if c.Name != nil {
				item["credit-name"] = map[string]interface{}{"value": *c.Name}
			}
			if c.Orcid != nil {
				item["contributor-orcid"] = map[string]interface{}{"path": *c.Orcid}
			}
			if c.Role != nil {
				item["contributor-attributes"] = map[string]interface{}{
					"contributor-role": strings.ToLower(*c.Role),
				}
			}
			list = append(list, item)
		}
		payload["contributors"] = map[string]interface{}{"contributor": list}
	}
	return payload
}

func workPayload(rec *models.WorkRecord) map[string]interface{} {
	title := map[string]interface{}{
		"title": map[string]interface{}{"value": rec.Title},
	}
	if rec.Subtitle != nil {
		title["subtitle"] = valueOf(rec.Subtitle)
	}
	if rec.TranslatedTitle != nil {
		tt := map[string]interface{}{"value": *rec.TranslatedTitle}
		if rec.TranslatedTitleLanguageCode != nil {
			tt["language-code"] = *rec.TranslatedTitleLanguageCode
		}
		title["translated-title"] = tt
	}

	payload := map[string]interface{}{"title": title}
	if rec.Type != nil {
		payload["type"] = strings.ToLower(*rec.Type)
	}
	if rec.JournalTitle != nil {
		payload["journal-title"] = valueOf(rec.JournalTitle)
	}
	if rec.ShortDescription != nil {
		payload["short-description"] = *rec.ShortDescription
	}
	if rec.CitationType != nil && rec.CitationValue != nil {
		payload["citation"] = map[string]interface{}{
			"citation-type":  strings.ToLower(*rec.CitationType),
			"citation-value": *rec.CitationValue,
		}
	}
	if rec.PublicationDate != nil {
		pd := rec.PublicationDate.AsOrcidMap()
		if rec.PublicationMediaType != nil {
			pd["media-type"] = *rec.PublicationMediaType
		}
		payload["publication-date"] = pd
	}
	if rec.URL != nil {
		payload["url"] = valueOf(rec.URL)
	}
	if rec.LanguageCode != nil {
		payload["language-code"] = *rec.LanguageCode
	}
	if rec.Country != nil {
		payload["country"] = valueOf(rec.Country)
	}

	ids := make([]models.ExternalIDFields, len(rec.ExternalIDs))
	for i, id := range rec.ExternalIDs {
		ids[i] = id.ExternalIDFields
	}
	if ext := externalIDsPayload(ids); ext != nil {
		payload["external-ids"] = ext
	}

	if len(rec.Contributors) > 0 {
		list := make([]map[string]interface{}, 0, len(rec.Contributors))
		for _, c := range rec.Contributors {
			item := map[string]interface{}{}
			if c.Name != nil {
				item["credit-name"] = map[string]interface{}{"value": *c.Name}
			}
			if c.Orcid != nil {
				item["contributor-orcid"] = map[string]interface{}{"path": *c.Orcid}
			}
			attrs := map[string]interface{}{}
			if c.Role != nil {
				attrs["contributor-role"] = strings.ToLower(*c.Role)
			}
			if c.ContributorSequence != nil {
				attrs["contributor-sequence"] = strings.ToLower(*c.ContributorSequence)
			}
			if len(attrs) > 0 {
				item["contributor-attributes"] = attrs
			}
			list = append(list, item)
		}
		payload["contributors"] = map[string]interface{}{"contributor": list}
	}
	return payload
}

func peerReviewPayload(rec *models.PeerReviewRecord, org *models.Organisation) map[string]interface{} {
	payload := map[string]interface{}{
		"review-group-id": rec.ReviewGroupID,
		"convening-organization": organizationPayload(
			pick(rec.ConveningOrgName, org.Name),
			pick(rec.ConveningOrgCity, org.City),
			pick(rec.ConveningOrgRegion, org.Region),
			pick(rec.ConveningOrgCountry, org.Country),
			pick(rec.ConveningOrgDisambiguatedIdentifier, org.DisambiguatedID),
			pick(rec.ConveningOrgDisambiguationSource, org.DisambiguationSource),
		),
	}
	if rec.ReviewerRole != nil {
		payload["reviewer-role"] = strings.ToLower(*rec.ReviewerRole)
	}
	if rec.ReviewType != nil {
		payload["review-type"] = strings.ToLower(*rec.ReviewType)
	}
	if rec.ReviewURL != nil {
		payload["review-url"] = valueOf(rec.ReviewURL)
	}
	if rec.ReviewCompletionDate != nil {
		payload["review-completion-date"] = rec.ReviewCompletionDate.AsOrcidMap()
	}
	if rec.SubjectExternalIDValue != nil {
		subject := map[string]interface{}{
			"external-id-value": *rec.SubjectExternalIDValue,
		}
		if rec.SubjectExternalIDType != nil {
			subject["external-id-type"] = *rec.SubjectExternalIDType
		}
		if rec.SubjectExternalIDRelationship != nil {
			subject["external-id-relationship"] = strings.ToLower(*rec.SubjectExternalIDRelationship)
		}
		if rec.SubjectExternalIDURL != nil {
			subject["external-id-url"] = valueOf(rec.SubjectExternalIDURL)
		}
		payload["subject-external-identifier"] = subject
	}
	if rec.SubjectContainerName != nil {
		payload["subject-container-name"] = valueOf(rec.SubjectContainerName)
	}
	if rec.SubjectType != nil {
		payload["subject-type"] = strings.ToLower(*rec.SubjectType)
	}
	if rec.SubjectNameTitle != nil {
		name := map[string]interface{}{
			"title": map[string]interface{}{"value": *rec.SubjectNameTitle},
		}
		if rec.SubjectNameSubtitle != nil {
			name["subtitle"] = valueOf(rec.SubjectNameSubtitle)
		}
		if rec.SubjectNameTranslatedTitle != nil {
			tt := map[string]interface{}{"value": *rec.SubjectNameTranslatedTitle}
			if rec.SubjectNameTranslatedTitleLangCode != nil {
				tt["language-code"] = *rec.SubjectNameTranslatedTitleLangCode
			}
			name["translated-title"] = tt
		}
		payload["subject-name"] = name
	}
	if rec.SubjectURL != nil {
		payload["subject-url"] = valueOf(rec.SubjectURL)
	}

	ids := make([]models.ExternalIDFields, len(rec.ExternalIDs))
	for i, id := range rec.ExternalIDs {
		ids[i] = id.ExternalIDFields
	}
	if ext := externalIDsPayload(ids); ext != nil {
		payload["review-identifiers"] = ext
	}
	return payload
}

func propertyPayload(rec *models.PropertyRecord) map[string]interface{} {
	var payload map[string]interface{}
	switch strings.ToUpper(rec.Type) {
	case "URL":
		payload = map[string]interface{}{
			"url-name": deref(rec.Name),
			"url":      map[string]interface{}{"value": rec.Value},
		}
	case "COUNTRY":
		payload = map[string]interface{}{
			"country": map[string]interface{}{"value": rec.Value},
		}
	default: // NAME, KEYWORD
		payload = map[string]interface{}{"content": rec.Value}
	}
	if rec.DisplayIndex != nil {
		payload["display-index"] = *rec.DisplayIndex
	}
	if v := visibilityOf(rec.Visibility); v != nil {
		payload["visibility"] = v
	}
	return payload
}

func otherIDPayload(rec *models.OtherIDRecord) map[string]interface{} {
	payload := map[string]interface{}{
		"external-id-type":  rec.Type,
		"external-id-value": rec.Value,
	}
	if rec.Relationship != nil {
		payload["external-id-relationship"] = strings.ToLower(*rec.Relationship)
	}
	if rec.URL != nil {
		payload["external-id-url"] = map[string]interface{}{"value": *rec.URL}
	}
	if rec.DisplayIndex != nil {
		payload["display-index"] = *rec.DisplayIndex
	}
	if v := visibilityOf(rec.Visibility); v != nil {
		payload["visibility"] = v
	}
	return payload
}
