package models

// ExternalIDFields identifies the subject record in an external system.
// The type must come from the registry's identifier vocabulary and the
// relationship from {SELF, PART_OF}.
type ExternalIDFields struct {
	ExternalIDID int     `gorm:"primaryKey;column:external_id_id" json:"external_id_id"`
	RecordID     int     `gorm:"column:record_id" json:"record_id"`
	Type         string  `gorm:"column:type" json:"type"`
	Value        string  `gorm:"column:value" json:"value"`
	URL          *string `gorm:"column:url" json:"url,omitempty"`
	Relationship string  `gorm:"column:relationship" json:"relationship"`
}

// FundingExternalID identifies a funding record in an external system.
type FundingExternalID struct {
	ExternalIDFields
}

func (FundingExternalID) TableName() string {
	return "funding_external_ids"
}

// WorkExternalID identifies a work record in an external system.
type WorkExternalID struct {
	ExternalIDFields
}

func (WorkExternalID) TableName() string {
	return "work_external_ids"
}

// PeerReviewExternalID identifies a peer-review record in an external system.
type PeerReviewExternalID struct {
	ExternalIDFields
}

func (PeerReviewExternalID) TableName() string {
	return "peer_review_external_ids"
}
