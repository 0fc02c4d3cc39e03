package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"internbot/internal/domain/application"
)

const (
	SheetName  = "Applications"
	dateLayout = "2006-01-02 15:04"
)

// Translator resolves localized strings.
type Translator interface {
	Text(lang, key string, args ...string) string
}

// Filename names an export produced at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("applications_export_%s.xlsx", now.Format("20060102_150405"))
}

var headerKeys = []string{"", "name", "phone", "course", "major", "about_student", "job", "company", "status", "applied_at", "reviewed_at"}

// WriteApplications renders one row per application into an xlsx workbook
// with headers and statuses in lang.
func WriteApplications(w io.Writer, texts Translator, lang string, details []application.Detail) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	header := make([]any, len(headerKeys))
	for i, key := range headerKeys {
		if key == "" {
			header[i] = "ID"
			continue
		}
		header[i] = texts.Text(lang, key)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, d := range details {
		reviewed := ""
		if d.ReviewedAt != nil {
			reviewed = d.ReviewedAt.Format(dateLayout)
		}
		row := []any{
			d.ID,
			d.StudentName,
			d.StudentPhone,
			d.StudentCourse,
			d.StudentMajor,
			d.StudentAbout,
			d.PostingTitle,
			d.CompanyName,
			texts.Text(lang, "status_"+string(d.Status)),
			d.AppliedAt.Format(dateLayout),
			reviewed,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", d.ID, err)
		}
	}
	if err := f.SetColWidth(SheetName, "A", "K", 20); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
