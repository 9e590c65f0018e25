package models

import "time"

// WorkRecord is one research output (article, book, data set) to be pushed
// to the registry.
type WorkRecord struct {
	RecordID int `gorm:"primaryKey;column:record_id" json:"record_id"`
	TaskID   int `gorm:"column:task_id" json:"task_id"`
	RecordStatusFields

	Title                       string       `gorm:"column:title" json:"title"`
	Subtitle                    *string      `gorm:"column:subtitle" json:"subtitle,omitempty"`
	TranslatedTitle             *string      `gorm:"column:translated_title" json:"translated_title,omitempty"`
	TranslatedTitleLanguageCode *string      `gorm:"column:translated_title_language_code" json:"translated_title_language_code,omitempty"`
	JournalTitle                *string      `gorm:"column:journal_title" json:"journal_title,omitempty"`
	ShortDescription            *string      `gorm:"column:short_description" json:"short_description,omitempty"`
	CitationType                *string      `gorm:"column:citation_type" json:"citation_type,omitempty"`
	CitationValue               *string      `gorm:"column:citation_value" json:"citation_value,omitempty"`
	Type                        *string      `gorm:"column:type" json:"type,omitempty"`
	PublicationDate             *PartialDate `gorm:"column:publication_date" json:"publication_date,omitempty"`
	PublicationMediaType        *string      `gorm:"column:publication_media_type" json:"publication_media_type,omitempty"`
	URL                         *string      `gorm:"column:url" json:"url,omitempty"`
	LanguageCode                *string      `gorm:"column:language_code" json:"language_code,omitempty"`
	Country                     *string      `gorm:"column:country" json:"country,omitempty"`
	CreateAt                    time.Time    `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt                    time.Time    `gorm:"column:update_at;autoUpdateTime" json:"update_at"`

	Task         Task              `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	Invitees     []WorkInvitee     `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"invitees,omitempty"`
	Contributors []WorkContributor `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"contributors,omitempty"`
	ExternalIDs  []WorkExternalID  `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"external_ids,omitempty"`
}

func (WorkRecord) TableName() string {
	return "work_records"
}
