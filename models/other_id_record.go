package models

import "time"

// OtherIDRecord is one external person identifier (the "other-id" profile
// section) to be pushed to the registry.
type OtherIDRecord struct {
	RecordID int `gorm:"primaryKey;column:record_id" json:"record_id"`
	TaskID   int `gorm:"column:task_id" json:"task_id"`
	RecordStatusFields

	Type         string    `gorm:"column:type" json:"type"`
	Value        string    `gorm:"column:value" json:"value"`
	URL          *string   `gorm:"column:url" json:"url,omitempty"`
	Relationship *string   `gorm:"column:relationship" json:"relationship,omitempty"`
	DisplayIndex *int      `gorm:"column:display_index" json:"display_index,omitempty"`
	Email        *string   `gorm:"column:email" json:"email,omitempty"`
	FirstName    *string   `gorm:"column:first_name" json:"first_name,omitempty"`
	LastName     *string   `gorm:"column:last_name" json:"last_name,omitempty"`
	Orcid        *string   `gorm:"column:orcid" json:"orcid,omitempty"`
	PutCode      *int      `gorm:"column:put_code" json:"put_code,omitempty"`
	Visibility   *string   `gorm:"column:visibility" json:"visibility,omitempty"`
	UserID       *int      `gorm:"column:user_id" json:"user_id,omitempty"`
	CreateAt     time.Time `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt     time.Time `gorm:"column:update_at;autoUpdateTime" json:"update_at"`

	Task Task `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}

func (OtherIDRecord) TableName() string {
	return "other_id_records"
}
