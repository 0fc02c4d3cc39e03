package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"internbot/internal/domain/application"
	"internbot/internal/i18n"
)

func TestWriteApplicationsLocalizesHeaderAndStatus(t *testing.T) {
	catalog, err := i18n.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	applied := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)
	reviewed := applied.Add(26 * time.Hour)
	details := []application.Detail{
		{
			Application:   application.Application{ID: 7, Status: application.StatusAccepted, AppliedAt: applied, ReviewedAt: &reviewed},
			StudentName:   "Aru Sadykova",
			StudentPhone:  "+77001234567",
			StudentCourse: "3",
			StudentMajor:  "CS",
			StudentAbout:  "Go and SQL",
			PostingTitle:  "Backend intern",
			CompanyName:   "Acme",
		},
		{
			Application:  application.Application{ID: 8, Status: application.StatusPending, AppliedAt: applied},
			StudentName:  "Dana",
			PostingTitle: "Backend intern",
			CompanyName:  "Acme",
		},
	}

	var buf bytes.Buffer
	if err := WriteApplications(&buf, catalog, "en", details); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus two rows, got %d", len(rows))
	}
	if rows[0][1] != "Name" || rows[0][8] != "Status" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "7" || rows[1][8] != catalog.Text("en", "status_accepted") {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[1][9] != "2024-03-01 09:30" || rows[1][10] != "2024-03-02 11:30" {
		t.Fatalf("unexpected dates: %v", rows[1])
	}
	if len(rows[2]) > 10 && rows[2][10] != "" {
		t.Fatalf("pending application must have empty reviewed date: %v", rows[2])
	}
}

func TestFilename(t *testing.T) {
	got := Filename(time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC))
	if got != "applications_export_20240301_090507.xlsx" {
		t.Fatalf("unexpected filename %q", got)
	}
}
