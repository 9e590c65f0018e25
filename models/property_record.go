package models

import "time"

// PropertyRecord is one researcher property (URL, other name, keyword or
// country) to be pushed to the registry.
type PropertyRecord struct {
	RecordID int `gorm:"primaryKey;column:record_id" json:"record_id"`
	TaskID   int `gorm:"column:task_id" json:"task_id"`
	RecordStatusFields

	Type         string    `gorm:"column:type" json:"type"`
	DisplayIndex *int      `gorm:"column:display_index" json:"display_index,omitempty"`
	Name         *string   `gorm:"column:name" json:"name,omitempty"`
	Value        string    `gorm:"column:value" json:"value"`
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

func (PropertyRecord) TableName() string {
	return "property_records"
}
