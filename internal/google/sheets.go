// Package google mirrors monthly attendance into a shared Google
// Spreadsheet, one sheet per month. The spreadsheet is a read-only mirror
// for the venue office; SQLite stays the source of truth.
package google

import (
	"context"
	"fmt"
	"os"
	"time"

	"crewtime/internal/export"
	"crewtime/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsService syncs month listings into one spreadsheet.
type SheetsService struct {
	srv           *sheets.Service
	spreadsheetID string
	logger        zerolog.Logger
}

// NewSheetsService authenticates with a service-account key file.
func NewSheetsService(ctx context.Context, credentialsPath, spreadsheetID string, logger zerolog.Logger) (*SheetsService, error) {
	creds, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &SheetsService{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		logger:        logger.With().Str("component", "sheets").Logger(),
	}, nil
}

// SyncMonth replaces the sheet named after the month (e.g. 2026年3月) with
// the given rows. The sheet is created on first sync.
func (s *SheetsService) SyncMonth(ctx context.Context, monthTitle string, rows []model.Entry, loc *time.Location) error {
	if err := s.ensureSheet(ctx, monthTitle); err != nil {
		return err
	}

	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, headerRowValues())
	for _, e := range rows {
		values = append(values, entryRowValues(&e, loc))
	}

	clearReq := s.srv.Spreadsheets.Values.Clear(s.spreadsheetID, monthTitle, &sheets.ClearValuesRequest{})
	if _, err := clearReq.Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", monthTitle, err)
	}

	updateReq := s.srv.Spreadsheets.Values.Update(
		s.spreadsheetID,
		fmt.Sprintf("%s!A1", monthTitle),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("RAW")
	if _, err := updateReq.Context(ctx).Do(); err != nil {
		return fmt.Errorf("update sheet %s: %w", monthTitle, err)
	}

	s.logger.Info().Str("month", monthTitle).Int("rows", len(rows)).Msg("spreadsheet synced")
	return nil
}

func (s *SheetsService) ensureSheet(ctx context.Context, title string) error {
	meta, err := s.srv.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("spreadsheet metadata: %w", err)
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := s.srv.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	return nil
}

func headerRowValues() []interface{} {
	vals := make([]interface{}, len(export.Header))
	for i, h := range export.Header {
		vals[i] = h
	}
	return vals
}

func entryRowValues(e *model.Entry, loc *time.Location) []interface{} {
	checkOut := ""
	if e.CheckOut != nil {
		checkOut = e.CheckOut.In(loc).Format("15:04")
	}
	names := ""
	for i, n := range e.MemberNames {
		if i > 0 {
			names += "、"
		}
		names += n
	}
	return []interface{}{
		e.Date,
		e.Hall.Label(),
		e.Role.Label(),
		names,
		e.Headcount(),
		e.CheckIn.In(loc).Format("15:04"),
		checkOut,
		e.Status.Label(),
		e.Memo,
	}
}
