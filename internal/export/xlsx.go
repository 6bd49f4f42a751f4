// Package export writes campaign leads to spreadsheet files.
package export

import (
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/prospect-cli/internal/mailer"
	"github.com/sells-group/prospect-cli/internal/model"
)

// LeadColumns is the header row of the leads sheet.
var LeadColumns = []string{
	"ID", "Company", "Website", "Contact Email", "Status",
	"Email Subject", "Mockup", "Created At", "Processed At", "Sent At",
}

const timeLayout = time.RFC3339

// NewLeadsWorkbook builds a workbook with a campaign summary sheet and one
// row per lead in the order given.
func NewLeadsWorkbook(c *model.Campaign, leads []model.Lead) (*xlsx.File, error) {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Campaign")
	if err != nil {
		return nil, eris.Wrap(err, "export: add campaign sheet")
	}
	addPairs(summary, [][2]string{
		{"Name", c.Name},
		{"Business Type", c.BusinessType},
		{"Location", c.Location},
		{"Requested Leads", strconv.Itoa(c.NumberOfLeads)},
		{"Created At", c.CreatedAt.UTC().Format(timeLayout)},
	})

	var ready, sent int
	for _, l := range leads {
		switch l.Status {
		case model.LeadStatusReviewPending:
			ready++
		case model.LeadStatusSent:
			sent++
		}
	}
	addPairs(summary, [][2]string{
		{"Total Leads", strconv.Itoa(len(leads))},
		{"Ready", strconv.Itoa(ready)},
		{"Sent", strconv.Itoa(sent)},
	})

	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return nil, eris.Wrap(err, "export: add leads sheet")
	}
	addRow(sheet, LeadColumns)
	for _, l := range leads {
		addRow(sheet, leadRow(l))
	}
	return f, nil
}

// WriteLeadsXLSX streams the workbook to w.
func WriteLeadsXLSX(w io.Writer, c *model.Campaign, leads []model.Lead) error {
	f, err := NewLeadsWorkbook(c, leads)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write xlsx")
}

// SaveLeadsXLSX writes the workbook to path.
func SaveLeadsXLSX(path string, c *model.Campaign, leads []model.Lead) error {
	f, err := NewLeadsWorkbook(c, leads)
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func leadRow(l model.Lead) []string {
	var subject string
	if l.EmailContent != nil {
		subject, _ = mailer.ParseEmailContent(*l.EmailContent)
	}
	return []string{
		strconv.FormatInt(l.ID, 10),
		l.CompanyName,
		l.WebsiteURL,
		deref(l.ContactEmail),
		string(l.Status),
		subject,
		deref(l.MockupPath),
		l.CreatedAt.UTC().Format(timeLayout),
		formatTime(l.ProcessedAt),
		formatTime(l.SentAt),
	}
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addPairs(sheet *xlsx.Sheet, pairs [][2]string) {
	for _, p := range pairs {
		addRow(sheet, p[:])
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
