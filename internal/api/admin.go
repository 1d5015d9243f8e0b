package api

import (
	"fmt"
	"net/http"
	"net/url"

	"crewtime/internal/admin"
	"crewtime/internal/export"
	"crewtime/internal/metrics"

	"github.com/go-chi/chi/v5"
)

// AdminUpdateRequest is the body for PATCH /api/admin/entries/{id}.
// Absent fields stay untouched; memberNames replaces the whole list.
type AdminUpdateRequest struct {
	MemberNames []string `json:"memberNames"`
	CheckIn     *string  `json:"checkIn"`  // HH:MM
	CheckOut    *string  `json:"checkOut"` // HH:MM
	Memo        *string  `json:"memo"`
}

// handleAdminList returns one month of records with totals.
// GET /api/admin/entries?month=YYYY-MM&hall=HallA&role=AUDIO
func (s *Server) handleAdminList(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_list")
	q := r.URL.Query()

	listing, err := s.admin.List(r.Context(), s.monthParam(q), q.Get("hall"), q.Get("role"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// handleAdminUpdate applies an administrative override to one record.
// PATCH /api/admin/entries/{id}
func (s *Server) handleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_update")

	var req AdminUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が不正です")
		return
	}

	entry, err := s.admin.Update(r.Context(), chi.URLParam(r, "id"), admin.UpdateRequest{
		MemberNames: req.MemberNames,
		CheckIn:     req.CheckIn,
		CheckOut:    req.CheckOut,
		Memo:        req.Memo,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.board.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, entry)
}

// handleExportCSV downloads one month as CSV, narrowed like the listing.
// GET /api/admin/entries/export.csv?month=YYYY-MM&hall=&role=
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_export_csv")
	q := r.URL.Query()

	listing, err := s.admin.List(r.Context(), s.monthParam(q), q.Get("hall"), q.Get("role"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	setDownloadHeaders(w, export.FileName(listing.Title, "csv"), "text/csv; charset=utf-8")
	if err := export.WriteCSV(w, listing.Rows, s.loc); err != nil {
		s.logger.Error().Err(err).Msg("csv export failed")
	}
}

// handleExportXLSX downloads one month as a workbook, narrowed like the listing.
// GET /api/admin/entries/export.xlsx?month=YYYY-MM&hall=&role=
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_export_xlsx")
	q := r.URL.Query()

	listing, err := s.admin.List(r.Context(), s.monthParam(q), q.Get("hall"), q.Get("role"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	setDownloadHeaders(w, export.FileName(listing.Title, "xlsx"),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := export.WriteXLSX(w, listing.Title, listing.Rows, s.loc); err != nil {
		s.logger.Error().Err(err).Msg("xlsx export failed")
	}
}

// handleSheetsSync mirrors one month into the shared spreadsheet.
// POST /api/admin/sheets/sync?month=YYYY-MM
func (s *Server) handleSheetsSync(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_sheets_sync")
	if s.sheets == nil {
		writeError(w, http.StatusServiceUnavailable, "スプレッドシート連携は設定されていません")
		return
	}

	listing, err := s.admin.List(r.Context(), s.monthParam(r.URL.Query()), "", "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.sheets.SyncMonth(r.Context(), listing.Title, listing.Rows, s.loc); err != nil {
		writeError(w, http.StatusBadGateway, "スプレッドシート同期に失敗しました: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"synced": len(listing.Rows), "month": listing.Title})
}

// monthParam defaults to the current month in the venue timezone.
func (s *Server) monthParam(q url.Values) string {
	if m := q.Get("month"); m != "" {
		return m
	}
	return s.svc.Now().Format("2006-01")
}

func setDownloadHeaders(w http.ResponseWriter, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename)))
}
