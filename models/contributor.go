package models

// ContributorFields is the common shape of a contributor credited on a
// funding or work record.
type ContributorFields struct {
	ContributorID int     `gorm:"primaryKey;column:contributor_id" json:"contributor_id"`
	RecordID      int     `gorm:"column:record_id" json:"record_id"`
	Orcid         *string `gorm:"column:orcid" json:"orcid,omitempty"`
	Name          *string `gorm:"column:name" json:"name,omitempty"`
	Role          *string `gorm:"column:role" json:"role,omitempty"`
	Email         *string `gorm:"column:email" json:"email,omitempty"`
}

// FundingContributor is a contributor credited on a funding record.
type FundingContributor struct {
	ContributorFields
}

func (FundingContributor) TableName() string {
	return "funding_contributors"
}

// WorkContributor is a contributor credited on a work record.
type WorkContributor struct {
	ContributorFields
	ContributorSequence *string `gorm:"column:contributor_sequence" json:"contributor_sequence,omitempty"`
}

func (WorkContributor) TableName() string {
	return "work_contributors"
}
