package models

import "time"

// PeerReviewRecord is one peer-review activity to be pushed to the
// registry, keyed by its review group.
type PeerReviewRecord struct {
	RecordID int `gorm:"primaryKey;column:record_id" json:"record_id"`
	TaskID   int `gorm:"column:task_id" json:"task_id"`
	RecordStatusFields

	ReviewGroupID                       string       `gorm:"column:review_group_id" json:"review_group_id"`
	ReviewerRole                        *string      `gorm:"column:reviewer_role" json:"reviewer_role,omitempty"`
	ReviewURL                           *string      `gorm:"column:review_url" json:"review_url,omitempty"`
	ReviewType                          *string      `gorm:"column:review_type" json:"review_type,omitempty"`
	ReviewCompletionDate                *PartialDate `gorm:"column:review_completion_date" json:"review_completion_date,omitempty"`
	SubjectExternalIDType               *string      `gorm:"column:subject_external_id_type" json:"subject_external_id_type,omitempty"`
	SubjectExternalIDValue              *string      `gorm:"column:subject_external_id_value" json:"subject_external_id_value,omitempty"`
	SubjectExternalIDURL                *string      `gorm:"column:subject_external_id_url" json:"subject_external_id_url,omitempty"`
	SubjectExternalIDRelationship       *string      `gorm:"column:subject_external_id_relationship" json:"subject_external_id_relationship,omitempty"`
	SubjectContainerName                *string      `gorm:"column:subject_container_name" json:"subject_container_name,omitempty"`
	SubjectType                         *string      `gorm:"column:subject_type" json:"subject_type,omitempty"`
	SubjectNameTitle                    *string      `gorm:"column:subject_name_title" json:"subject_name_title,omitempty"`
	SubjectNameSubtitle                 *string      `gorm:"column:subject_name_subtitle" json:"subject_name_subtitle,omitempty"`
	SubjectNameTranslatedTitleLangCode  *string      `gorm:"column:subject_name_translated_title_lang_code" json:"subject_name_translated_title_lang_code,omitempty"`
	SubjectNameTranslatedTitle          *string      `gorm:"column:subject_name_translated_title" json:"subject_name_translated_title,omitempty"`
	SubjectURL                          *string      `gorm:"column:subject_url" json:"subject_url,omitempty"`
	ConveningOrgName                    *string      `gorm:"column:convening_org_name" json:"convening_org_name,omitempty"`
	ConveningOrgCity                    *string      `gorm:"column:convening_org_city" json:"convening_org_city,omitempty"`
	ConveningOrgRegion                  *string      `gorm:"column:convening_org_region" json:"convening_org_region,omitempty"`
	ConveningOrgCountry                 *string      `gorm:"column:convening_org_country" json:"convening_org_country,omitempty"`
	ConveningOrgDisambiguatedIdentifier *string      `gorm:"column:convening_org_disambiguated_identifier" json:"convening_org_disambiguated_identifier,omitempty"`
	ConveningOrgDisambiguationSource    *string      `gorm:"column:convening_org_disambiguation_source" json:"convening_org_disambiguation_source,omitempty"`
	CreateAt                            time.Time    `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt                            time.Time    `gorm:"column:update_at;autoUpdateTime" json:"update_at"`

	Task        Task                   `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	Invitees    []PeerReviewInvitee    `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"invitees,omitempty"`
	ExternalIDs []PeerReviewExternalID `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"external_ids,omitempty"`
}

func (PeerReviewRecord) TableName() string {
	return "peer_review_records"
}
