package models

import "time"

// FundingRecord is one funding entry (grant, award, contract) to be pushed
// to the registry, possibly on behalf of several invitees.
type FundingRecord struct {
	RecordID int `gorm:"primaryKey;column:record_id" json:"record_id"`
	TaskID   int `gorm:"column:task_id" json:"task_id"`
	RecordStatusFields

	Title                       string       `gorm:"column:title" json:"title"`
	TranslatedTitle             *string      `gorm:"column:translated_title" json:"translated_title,omitempty"`
	TranslatedTitleLanguageCode *string      `gorm:"column:translated_title_language_code" json:"translated_title_language_code,omitempty"`
	Type                        string       `gorm:"column:type" json:"type"`
	OrganizationDefinedType     *string      `gorm:"column:organization_defined_type" json:"organization_defined_type,omitempty"`
	ShortDescription            *string      `gorm:"column:short_description" json:"short_description,omitempty"`
	Amount                      *string      `gorm:"column:amount" json:"amount,omitempty"`
	Currency                    *string      `gorm:"column:currency" json:"currency,omitempty"`
	StartDate                   *PartialDate `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate                     *PartialDate `gorm:"column:end_date" json:"end_date,omitempty"`
	OrgName                     *string      `gorm:"column:org_name" json:"org_name,omitempty"`
	City                        *string      `gorm:"column:city" json:"city,omitempty"`
	Region                      *string      `gorm:"column:region" json:"region,omitempty"`
	Country                     *string      `gorm:"column:country" json:"country,omitempty"`
	DisambiguatedID             *string      `gorm:"column:disambiguated_id" json:"disambiguated_id,omitempty"`
	DisambiguationSource        *string      `gorm:"column:disambiguation_source" json:"disambiguation_source,omitempty"`
	CreateAt                    time.Time    `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt                    time.Time    `gorm:"column:update_at;autoUpdateTime" json:"update_at"`

	Task         Task                 `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	Invitees     []FundingInvitee     `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"invitees,omitempty"`
	Contributors []FundingContributor `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"contributors,omitempty"`
	ExternalIDs  []FundingExternalID  `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"external_ids,omitempty"`
}

func (FundingRecord) TableName() string {
	return "funding_records"
}
