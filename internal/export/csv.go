// Package export renders attendance records for download: CSV for the
// payroll pipeline and XLSX for the office. Both emit the same columns.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"crewtime/internal/model"
)

// Header is the column set both export formats share.
var Header = []string{"日付", "ホール", "役割", "メンバー", "人数", "開始", "退勤", "ステータス", "メモ"}

// utf8BOM makes Excel open the CSV as UTF-8 instead of Shift_JIS.
const utf8BOM = "\uFEFF"

// WriteCSV writes rows as a BOM-prefixed, CRLF-terminated CSV. Fields with
// commas, quotes or line breaks get standard CSV quoting.
func WriteCSV(w io.Writer, rows []model.Entry, loc *time.Location) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range rows {
		if err := cw.Write(record(e, loc)); err != nil {
			return fmt.Errorf("write row %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName returns the download name for a month, e.g. CREW_2026年3月.csv.
func FileName(monthTitle, ext string) string {
	return "CREW_" + monthTitle + "." + ext
}

func record(e model.Entry, loc *time.Location) []string {
	checkOut := ""
	if e.CheckOut != nil {
		checkOut = e.CheckOut.In(loc).Format("15:04")
	}
	return []string{
		e.Date,
		e.Hall.Label(),
		e.Role.Label(),
		strings.Join(e.MemberNames, "、"),
		strconv.Itoa(e.Headcount()),
		e.CheckIn.In(loc).Format("15:04"),
		checkOut,
		e.Status.Label(),
		e.Memo,
	}
}
