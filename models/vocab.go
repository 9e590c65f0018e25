package models

import "strings"

// Controlled vocabularies of the external registry. Values arriving from
// uploaded files are matched case-insensitively; the canonical casing below
// is what gets persisted and exported.

var AffiliationTypes = []string{"student", "education", "staff", "employment"}

var DisambiguationSources = []string{"RINGGOLD", "GRID", "FUNDREF", "ISNI"}

var Visibilities = []string{"PUBLIC", "PRIVATE", "REGISTERED_ONLY", "LIMITED"}

var ExternalIDTypes = []string{
	"agr", "ark", "arxiv", "asin", "asin-tld", "authenticusid", "bibcode",
	"cba", "cienciaiul", "cit", "ctx", "dnb", "doi", "eid", "ethos",
	"grant_number", "handle", "hir", "isbn", "issn", "jfm", "jstor", "kuid",
	"lccn", "lensid", "mr", "oclc", "ol", "osti", "other-id", "pat", "pdb",
	"pmc", "pmid", "rfc", "rrid", "source-work-id", "ssrn", "uri", "urn",
	"wosuid", "zbl",
}

var FundingTypes = []string{"AWARD", "CONTRACT", "GRANT", "SALARY_AWARD"}

var WorkTypes = []string{
	"ARTISTIC_PERFORMANCE", "BOOK", "BOOK_CHAPTER", "BOOK_REVIEW",
	"CONFERENCE_ABSTRACT", "CONFERENCE_PAPER", "CONFERENCE_POSTER",
	"DATA_SET", "DICTIONARY_ENTRY", "DISCLOSURE", "DISSERTATION",
	"EDITED_BOOK", "ENCYCLOPEDIA_ENTRY", "INVENTION", "JOURNAL_ARTICLE",
	"JOURNAL_ISSUE", "LECTURE_SPEECH", "LICENSE", "MAGAZINE_ARTICLE",
	"MANUAL", "NEWSLETTER_ARTICLE", "NEWSPAPER_ARTICLE", "ONLINE_RESOURCE",
	"OTHER", "PATENT", "REGISTERED_COPYRIGHT", "REPORT",
	"RESEARCH_TECHNIQUE", "RESEARCH_TOOL", "SPIN_OFF_COMPANY",
	"STANDARDS_AND_POLICY", "SUPERVISED_STUDENT_PUBLICATION",
	"TECHNICAL_STANDARD", "TEST", "TRADEMARK", "TRANSLATION", "UNDEFINED",
	"WEBSITE", "WORKING_PAPER",
}

// SubjectTypes shares the work type list; the registry keeps them aligned.
var SubjectTypes = WorkTypes

var ReviewerRoles = []string{"CHAIR", "EDITOR", "MEMBER", "ORGANIZER", "REVIEWER"}

var ReviewTypes = []string{"EVALUATION", "REVIEW"}

var Relationships = []string{"PART_OF", "SELF"}

var CitationTypes = []string{
	"BIBTEX", "FORMATTED_APA", "FORMATTED_CHICAGO", "FORMATTED_HARVARD",
	"FORMATTED_IEEE", "FORMATTED_MLA", "FORMATTED_UNSPECIFIED",
	"FORMATTED_VANCOUVER", "RIS",
}

var PropertyTypes = []string{"URL", "NAME", "KEYWORD", "COUNTRY"}

func containsFold(values []string, needle string) bool {
	for _, v := range values {
		if strings.EqualFold(v, needle) {
			return true
		}
	}
	return false
}

// IsValidExternalIDType checks the identifier type vocabulary.
func IsValidExternalIDType(t string) bool { return containsFold(ExternalIDTypes, t) }

// IsValidRelationship checks the external-id relationship vocabulary.
func IsValidRelationship(r string) bool { return containsFold(Relationships, r) }

// IsValidAffiliationType checks the affiliation type vocabulary.
func IsValidAffiliationType(t string) bool { return containsFold(AffiliationTypes, t) }

// IsValidVisibility checks the visibility vocabulary.
func IsValidVisibility(v string) bool { return v == "" || containsFold(Visibilities, v) }

// IsValidPropertyType checks the property type vocabulary.
func IsValidPropertyType(t string) bool { return containsFold(PropertyTypes, t) }

// IsValidCountryCode accepts ISO 3166-1 alpha-2 codes. Free-form country
// names are not resolved; uploads must already carry the 2-letter code.
func IsValidCountryCode(c string) bool {
	if len(c) != 2 {
		return false
	}
	for _, r := range c {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
