package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"profile-hub-api/config"
	"profile-hub-api/models"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// Additional export-only formats.
const (
	FormatXLSX = "xlsx"
	FormatHTML = "html"
)

// ExportService renders a task with its records back out in any supported
// format. The JSON and YAML renditions use the nested registry shape, so an
// exported file can be re-imported as a new task.
type ExportService struct {
	tasks *TaskService
}

func NewExportService(tasks *TaskService) *ExportService {
	if tasks == nil {
		tasks = NewTaskService(config.DB)
	}
	return &ExportService{tasks: tasks}
}

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv"
	case FormatTSV:
		return "text/tab-separated-values"
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/x-yaml"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatHTML:
		return "text/html"
	}
	return "application/octet-stream"
}

// Export renders the task in the requested format.
func (s *ExportService) Export(task *models.Task, format string) ([]byte, error) {
	switch format {
	case FormatJSON, FormatYAML:
		doc, err := s.exportDocument(task)
		if err != nil {
			return nil, err
		}
		if format == FormatYAML {
			return yaml.Marshal(doc)
		}
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatCSV, FormatTSV, FormatXLSX, FormatHTML:
		header, rows, err := s.exportTable(task)
		if err != nil {
			return nil, err
		}
		switch format {
		case FormatXLSX:
			return renderXLSX(task, header, rows)
		case FormatHTML:
			return renderHTML(task, header, rows), nil
		default:
			delim := ','
			if format == FormatTSV {
				delim = '\t'
			}
			return renderDelimited(header, rows, delim)
		}
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// exportDocument builds the nested record list with task metadata.
func (s *ExportService) exportDocument(task *models.Task) (map[string]interface{}, error) {
	var records []map[string]interface{}

	switch task.TaskType {
	case models.TaskTypeAffiliation:
		recs, err := s.tasks.ListAffiliationRecords(task.TaskID, RecordFilter{})
		if err != nil {
			return nil, err
		}
		for i := range recs {
			records = append(records, affiliationExportMap(&recs[i]))
		}
	case models.TaskTypeFunding:
		recs, err := s.tasks.ListFundingRecords(task.TaskID, RecordFilter{})
		if err != nil {
			return nil, err
		}
		for i := range recs {
			m := fundingPayload(&recs[i], &models.Organisation{})
			m["invitees"] = inviteeExportList(fundingInviteeFields(recs[i].Invitees))
			records = append(records, m)
		}
	case models.TaskTypeWork:
		recs, err := s.tasks.ListWorkRecords(task.TaskID, RecordFilter{})
		if err != nil {
			return nil, err
		}
		for i := range recs {
			m := workPayload(&recs[i])
			m["invitees"] = inviteeExportList(workInviteeFields(recs[i].Invitees))
			records = append(records, m)
		}
	case models.TaskTypePeerReview:
		recs, err := s.tasks.ListPeerReviewRecords(task.TaskID, RecordFilter{})
		if err != nil {
			return nil, err
		}
		for i := range recs {
			m := peerReviewPayload(&recs[i], &models.Organisation{})
			m["invitees"] = inviteeExportList(peerReviewInviteeFields(recs[i].Invitees))
			records = append(records, m)
		}
	case models.TaskTypeProperty:
		recs, err := s.tasks.ListPropertyRecords(task.TaskID, RecordFilter{})
		if err != nil {
			return nil, err
		}
		for i := range recs {
			records = append(records, propertyExportMap(&recs[i]))
		}
	case models.TaskTypeOtherID:
		recs, err := s.tasks.ListOtherIDRecords(task.TaskID, RecordFilter{})
		if err != nil {
			return nil, err
		}
		for i := range recs {
			records = append(records, otherIDExportMap(&recs[i]))
		}
	default:
		return nil, ErrWrongTaskType
	}

	return map[string]interface{}{
		"id":        task.TaskID,
		"filename":  task.Filename,
		"task-type": task.TaskType.String(),
		"records":   records,
	}, nil
}

func affiliationExportMap(rec *models.AffiliationRecord) map[string]interface{} {
	m := map[string]interface{}{}
	putMaybe(m, "first-name", rec.FirstName)
	putMaybe(m, "last-name", rec.LastName)
	putMaybe(m, "email", rec.Email)
	putMaybe(m, "orcid", rec.Orcid)
	putMaybe(m, "organisation", rec.Organisation)
	putMaybe(m, "department", rec.Department)
	putMaybe(m, "city", rec.City)
	putMaybe(m, "state", rec.Region)
	putMaybe(m, "role", rec.Role)
	putMaybe(m, "affiliation-type", rec.AffiliationType)
	putMaybe(m, "country", rec.Country)
	putMaybe(m, "disambiguated-id", rec.DisambiguatedID)
	putMaybe(m, "disambiguation-source", rec.DisambiguationSource)
	putMaybe(m, "external-id", rec.ExternalID)
	putMaybe(m, "visibility", rec.Visibility)
	if rec.StartDate != nil {
		m["start-date"] = rec.StartDate.String()
	}
	if rec.EndDate != nil {
		m["end-date"] = rec.EndDate.String()
	}
	if rec.PutCode != nil {
		m["put-code"] = *rec.PutCode
	}
	if rec.DeleteRecord {
		m["delete-record"] = true
	}
	return m
}

func propertyExportMap(rec *models.PropertyRecord) map[string]interface{} {
	m := map[string]interface{}{
		"type":  rec.Type,
		"value": rec.Value,
	}
	putMaybe(m, "name", rec.Name)
	putMaybe(m, "email", rec.Email)
	putMaybe(m, "first-name", rec.FirstName)
	putMaybe(m, "last-name", rec.LastName)
	putMaybe(m, "orcid", rec.Orcid)
	putMaybe(m, "visibility", rec.Visibility)
	if rec.DisplayIndex != nil {
		m["display-index"] = *rec.DisplayIndex
	}
	if rec.PutCode != nil {
		m["put-code"] = *rec.PutCode
	}
	return m
}

func otherIDExportMap(rec *models.OtherIDRecord) map[string]interface{} {
	m := map[string]interface{}{
		"external-id-type":  rec.Type,
		"external-id-value": rec.Value,
	}
	putMaybe(m, "external-id-relationship", rec.Relationship)
	if rec.URL != nil {
		m["external-id-url"] = map[string]interface{}{"value": *rec.URL}
	}
	putMaybe(m, "email", rec.Email)
	putMaybe(m, "first-name", rec.FirstName)
	putMaybe(m, "last-name", rec.LastName)
	putMaybe(m, "orcid", rec.Orcid)
	putMaybe(m, "visibility", rec.Visibility)
	if rec.DisplayIndex != nil {
		m["display-index"] = *rec.DisplayIndex
	}
	if rec.PutCode != nil {
		m["put-code"] = *rec.PutCode
	}
	return m
}

func putMaybe(m map[string]interface{}, key string, v *string) {
	if v != nil && *v != "" {
		m[key] = *v
	}
}

func fundingInviteeFields(invs []models.FundingInvitee) []models.InviteeFields {
	out := make([]models.InviteeFields, len(invs))
	for i := range invs {
		out[i] = invs[i].InviteeFields
	}
	return out
}

func workInviteeFields(invs []models.WorkInvitee) []models.InviteeFields {
	out := make([]models.InviteeFields, len(invs))
	for i := range invs {
		out[i] = invs[i].InviteeFields
	}
	return out
}

func peerReviewInviteeFields(invs []models.PeerReviewInvitee) []models.InviteeFields {
	out := make([]models.InviteeFields, len(invs))
	for i := range invs {
		out[i] = invs[i].InviteeFields
	}
	return out
}

func inviteeExportList(invs []models.InviteeFields) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(invs))
	for i := range invs {
		inv := &invs[i]
		m := map[string]interface{}{}
		putMaybe(m, "identifier", inv.Identifier)
		putMaybe(m, "email", inv.Email)
		putMaybe(m, "first-name", inv.FirstName)
		putMaybe(m, "last-name", inv.LastName)
		putMaybe(m, "ORCID-iD", inv.Orcid)
		putMaybe(m, "visibility", inv.Visibility)
		if inv.PutCode != nil {
			m["put-code"] = *inv.PutCode
		}
		out = append(out, m)
	}
	return out
}

// exportTable builds the flat per-row rendition. Composite records repeat
// one row per invitee and external id; contributors are not part of the
// flat shape.
func (s *ExportService) exportTable(task *models.Task) ([]string, [][]string, error) {
	switch task.TaskType {
	case models.TaskTypeAffiliation:
		recs, err := s.tasks.ListAffiliationRecords(task.TaskID, RecordFilter{})
		if err != nil {
			return nil, nil, err
		}
		header := []string{"First Name", "Last Name", "Email", "ORCID iD", "Organisation",
			"Department", "City", "Region", "Course or Role", "Start Date", "End Date",
			"Affiliation Type", "Country", "Disambiguated Id", "Disambiguation Source",
			"Put Code", "External Id", "Delete Record", "Visibility"}
		rows := make([][]string, 0, len(recs))
		for i := range recs {
			r := &recs[i]
			rows = append(rows, []string{
				deref(r.FirstName), deref(r.LastName), deref(r.Email), deref(r.Orcid),
				deref(r.Organisation), deref(r.Department), deref(r.City), deref(r.Region),
				deref(r.Role), dateStr(r.StartDate), dateStr(r.EndDate),
				deref(r.AffiliationType), deref(r.Country), deref(r.DisambiguatedID),
				deref(r.DisambiguationSource), intStr(r.PutCode), deref(r.ExternalID),
				boolStr(r.DeleteRecord), deref(r.Visibility),
			})
		}
		return header, rows, nil
	case models.TaskTypeFunding:
		recs, err := s.tasks.ListFundingRecords(task.TaskID, RecordFilter{})
		if err != nil {
			return nil, nil, err
		}
		header := []string{"Title", "Translated Title", "Translated Title Language Code",
			"Type", "Organization Defined Type", "Short Description", "Amount", "Currency",
			"Start Date", "End Date", "Org Name", "City", "Region", "Country",
			"Disambiguated Id", "Disambiguation Source", "Is Active",
			"Email", "First Name", "Last Name", "ORCID iD", "Put Code", "Visibility",
			"External Id Type", "External Id Value", "External Id Url", "External Id Relationship"}
		var rows [][]string
		for i := range recs {
			r := &recs[i]
			base := []string{r.Title, deref(r.TranslatedTitle), deref(r.TranslatedTitleLanguageCode),
				r.Type, deref(r.OrganizationDefinedType), deref(r.ShortDescription),
				deref(r.Amount), deref(r.Currency), dateStr(r.StartDate), dateStr(r.EndDate),
				deref(r.OrgName), deref(r.City), deref(r.Region), deref(r.Country),
				deref(r.DisambiguatedID), deref(r.DisambiguationSource), boolStr(r.IsActive)}
			rows = append(rows, compositeRows(base, fundingInviteeFields(r.Invitees), fundingExtIDFields(r.ExternalIDs))...)
		}
		return header, rows, nil
	case models.TaskTypeWork:
		recs, err := s.tasks.ListWorkRecords(task.TaskID, RecordFilter{})
		if err != nil {
			return nil, nil, err
		}
		header := []string{"Title", "Subtitle", "Translated Title", "Translated Title Language Code",
			"Journal Title", "Type", "Short Description", "Citation Type", "Citation Value",
			"Publication Date", "Publication Media Type", "Url", "Language Code", "Country", "Is Active",
			"Email", "First Name", "Last Name", "ORCID iD", "Put Code", "Visibility",
			"External Id Type", "External Id Value", "External Id Url", "External Id Relationship"}
		var rows [][]string
		for i := range recs {
			r := &recs[i]
			base := []string{r.Title, deref(r.Subtitle), deref(r.TranslatedTitle),
				deref(r.TranslatedTitleLanguageCode), deref(r.JournalTitle), deref(r.Type),
				deref(r.ShortDescription), deref(r.CitationType), deref(r.CitationValue),
				dateStr(r.PublicationDate), deref(r.PublicationMediaType), deref(r.URL),
				deref(r.LanguageCode), deref(r.Country), boolStr(r.IsActive)}
			rows = append(rows, compositeRows(base, workInviteeFields(r.Invitees), workExtIDFields(r.ExternalIDs))...)
		}
		return header, rows, nil
	case models.TaskTypePeerReview:
		recs, err := s.tasks.ListPeerReviewRecords(task.TaskID, RecordFilter{})
		if err != nil {
			return nil, nil, err
		}
		header := []string{"Review Group Id", "Reviewer Role", "Review Url", "Review Type",
			"Review Completion Date", "Subject External Id Type", "Subject External Id Value",
			"Subject External Id Url", "Subject External Id Relationship", "Subject Container Name",
			"Subject Type", "Subject Name Title", "Subject Name Subtitle",
			"Subject Name Translated Title", "Subject Name Translated Title Lang Code", "Subject Url",
			"Convening Org Name", "Convening Org City", "Convening Org Region", "Convening Org Country",
			"Convening Org Disambiguated Identifier", "Convening Org Disambiguation Source", "Is Active",
			"Email", "First Name", "Last Name", "ORCID iD", "Put Code", "Visibility",
			"External Id Type", "External Id Value", "External Id Url", "External Id Relationship"}
		var rows [][]string
		for i := range recs {
			r := &recs[i]
			base := []string{r.ReviewGroupID, deref(r.ReviewerRole), deref(r.ReviewURL),
				deref(r.ReviewType), dateStr(r.ReviewCompletionDate),
				deref(r.SubjectExternalIDType), deref(r.SubjectExternalIDValue),
				deref(r.SubjectExternalIDURL), deref(r.SubjectExternalIDRelationship),
				deref(r.SubjectContainerName), deref(r.SubjectType), deref(r.SubjectNameTitle),
				deref(r.SubjectNameSubtitle), deref(r.SubjectNameTranslatedTitle),
				deref(r.SubjectNameTranslatedTitleLangCode), deref(r.SubjectURL),
				deref(r.ConveningOrgName), deref(r.ConveningOrgCity), deref(r.ConveningOrgRegion),
				deref(r.ConveningOrgCountry), deref(r.ConveningOrgDisambiguatedIdentifier),
				deref(r.ConveningOrgDisambiguationSource), boolStr(r.IsActive)}
			rows = append(rows, compositeRows(base, peerReviewInviteeFields(r.Invitees), peerReviewExtIDFields(r.ExternalIDs))...)
		}
		return header, rows, nil
	case models.TaskTypeProperty:
		recs, err := s.tasks.ListPropertyRecords(task.TaskID, RecordFilter{})
		if err != nil {
			return nil, nil, err
		}
		header := []string{"Property Type", "Display Index", "Name", "Value",
			"Email", "First Name", "Last Name", "ORCID iD", "Put Code", "Visibility", "Is Active"}
		rows := make([][]string, 0, len(recs))
		for i := range recs {
			r := &recs[i]
			rows = append(rows, []string{r.Type, intStr(r.DisplayIndex), deref(r.Name), r.Value,
				deref(r.Email), deref(r.FirstName), deref(r.LastName), deref(r.Orcid),
				intStr(r.PutCode), deref(r.Visibility), boolStr(r.IsActive)})
		}
		return header, rows, nil
	case models.TaskTypeOtherID:
		recs, err := s.tasks.ListOtherIDRecords(task.TaskID, RecordFilter{})
		if err != nil {
			return nil, nil, err
		}
		header := []string{"External Id Type", "External Id Value", "External Id Url",
			"External Id Relationship", "Display Index",
			"Email", "First Name", "Last Name", "ORCID iD", "Put Code", "Visibility", "Is Active"}
		rows := make([][]string, 0, len(recs))
		for i := range recs {
			r := &recs[i]
			rows = append(rows, []string{r.Type, r.Value, deref(r.URL), deref(r.Relationship),
				intStr(r.DisplayIndex), deref(r.Email), deref(r.FirstName), deref(r.LastName),
				deref(r.Orcid), intStr(r.PutCode), deref(r.Visibility), boolStr(r.IsActive)})
		}
		return header, rows, nil
	}
	return nil, nil, ErrWrongTaskType
}

func fundingExtIDFields(ids []models.FundingExternalID) []models.ExternalIDFields {
	out := make([]models.ExternalIDFields, len(ids))
	for i := range ids {
		out[i] = ids[i].ExternalIDFields
	}
	return out
}

func workExtIDFields(ids []models.WorkExternalID) []models.ExternalIDFields {
	out := make([]models.ExternalIDFields, len(ids))
	for i := range ids {
		out[i] = ids[i].ExternalIDFields
	}
	return out
}

func peerReviewExtIDFields(ids []models.PeerReviewExternalID) []models.ExternalIDFields {
	out := make([]models.ExternalIDFields, len(ids))
	for i := range ids {
		out[i] = ids[i].ExternalIDFields
	}
	return out
}

// extIDStrings renders one external id as the flat-row columns.
func extIDStrings(id models.ExternalIDFields) []string {
	return []string{id.Type, id.Value, deref(id.URL), id.Relationship}
}

// compositeRows repeats the record columns once per invitee and external id
// pair, the same row shape the delimited loaders collapse back into a
// single record.
func compositeRows(base []string, invitees []models.InviteeFields, extIDs []models.ExternalIDFields) [][]string {
	inviteeCols := [][]string{{"", "", "", "", "", ""}}
	if len(invitees) > 0 {
		inviteeCols = inviteeCols[:0]
		for i := range invitees {
			inv := &invitees[i]
			inviteeCols = append(inviteeCols, []string{
				deref(inv.Email), deref(inv.FirstName), deref(inv.LastName),
				deref(inv.Orcid), intStr(inv.PutCode), deref(inv.Visibility)})
		}
	}
	idCols := [][]string{{"", "", "", ""}}
	if len(extIDs) > 0 {
		idCols = idCols[:0]
		for _, id := range extIDs {
			idCols = append(idCols, extIDStrings(id))
		}
	}

	rows := make([][]string, 0, len(inviteeCols)*len(idCols))
	for _, inv := range inviteeCols {
		for _, id := range idCols {
			row := append(append(append([]string{}, base...), inv...), id...)
			rows = append(rows, row)
		}
	}
	return rows
}

func dateStr(pd *models.PartialDate) string {
	if pd == nil {
		return ""
	}
	return pd.String()
}

func intStr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func boolStr(v bool) string {
	if v {
		return "Y"
	}
	return ""
}

func renderDelimited(header []string, rows [][]string, delim rune) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delim
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(task *models.Task, header []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := task.TaskType.String()
	if sheet == "" || sheet == "NONE" {
		sheet = "Records"
	}
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	writeRow := func(rowNo int, cells []string) error {
		for col, cell := range cells {
			name, err := excelize.CoordinatesToCellName(col+1, rowNo)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, name, cell); err != nil {
				return err
			}
		}
		return nil
	}
	if err := writeRow(1, header); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if err := writeRow(i+2, row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderHTML(task *models.Task, header []string, rows [][]string) []byte {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(html.EscapeString(task.DisplayName()))
	b.WriteString("</title></head><body>\n<table border=\"1\">\n<tr>")
	for _, h := range header {
		b.WriteString("<th>")
		b.WriteString(html.EscapeString(h))
		b.WriteString("</th>")
	}
	b.WriteString("</tr>\n")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(cell))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>\n</body></html>\n")
	return []byte(b.String())
}
