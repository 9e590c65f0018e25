package models

import "time"

// AffiliationRecord is one employment/education entry to be pushed to the
// registry for a single researcher.
type AffiliationRecord struct {
	RecordID int `gorm:"primaryKey;column:record_id" json:"record_id"`
	TaskID   int `gorm:"column:task_id" json:"task_id"`
	RecordStatusFields

	PutCode              *int         `gorm:"column:put_code" json:"put_code,omitempty"`
	ExternalID           *string      `gorm:"column:external_id" json:"external_id,omitempty"`
	FirstName            *string      `gorm:"column:first_name" json:"first_name,omitempty"`
	LastName             *string      `gorm:"column:last_name" json:"last_name,omitempty"`
	Email                *string      `gorm:"column:email" json:"email,omitempty"`
	Orcid                *string      `gorm:"column:orcid" json:"orcid,omitempty"`
	Organisation         *string      `gorm:"column:organisation" json:"organisation,omitempty"`
	AffiliationType      *string      `gorm:"column:affiliation_type" json:"affiliation_type,omitempty"`
	Role                 *string      `gorm:"column:role" json:"role,omitempty"`
	Department           *string      `gorm:"column:department" json:"department,omitempty"`
	StartDate            *PartialDate `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate              *PartialDate `gorm:"column:end_date" json:"end_date,omitempty"`
	City                 *string      `gorm:"column:city" json:"city,omitempty"`
	Region               *string      `gorm:"column:region" json:"region,omitempty"`
	Country              *string      `gorm:"column:country" json:"country,omitempty"`
	DisambiguatedID      *string      `gorm:"column:disambiguated_id" json:"disambiguated_id,omitempty"`
	DisambiguationSource *string      `gorm:"column:disambiguation_source" json:"disambiguation_source,omitempty"`
	DeleteRecord         bool         `gorm:"column:delete_record" json:"delete_record"`
	Visibility           *string      `gorm:"column:visibility" json:"visibility,omitempty"`
	UserID               *int         `gorm:"column:user_id" json:"user_id,omitempty"`
	CreateAt             time.Time    `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt             time.Time    `gorm:"column:update_at;autoUpdateTime" json:"update_at"`

	Task Task `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AffiliationRecord) TableName() string {
	return "affiliation_records"
}
