package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"crewtime/internal/metrics"
	"crewtime/internal/model"
)

// CheckInRequest is the body for POST /api/kiosk/{hall}/{role}/checkin.
type CheckInRequest struct {
	Names []string `json:"names"`
}

// ToggleMemberRequest is the body for POST /api/kiosk/{hall}/{role}/members.
type ToggleMemberRequest struct {
	Name string `json:"name"`
}

// CorrectTimeRequest is the body for POST /api/kiosk/{hall}/{role}/checkin-time.
type CorrectTimeRequest struct {
	Time string `json:"time"` // HH:MM
	PIN  string `json:"pin"`
}

// SlotResponse is the per-slot kiosk view: the open entry (if any) plus the
// role's selectable roster.
type SlotResponse struct {
	Hall   model.Hall     `json:"hall"`
	Role   model.Role     `json:"role"`
	Open   bool           `json:"open"`
	Entry  *model.Entry   `json:"entry,omitempty"`
	Roster []model.Member `json:"roster"`
}

// handleBoard returns the status of all six slots.
// GET /api/kiosk/status
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("kiosk_status")
	ctx := r.Context()

	if board, ok := s.board.Get(ctx); ok {
		writeJSON(w, http.StatusOK, board)
		return
	}

	board, err := s.svc.Board(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.board.Set(ctx, board)
	writeJSON(w, http.StatusOK, board)
}

// handleSlot returns one slot's open entry and roster.
// GET /api/kiosk/{hall}/{role}
func (s *Server) handleSlot(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("kiosk_slot")
	hall, role, ok := slotParams(r)
	if !ok {
		writeError(w, http.StatusNotFound, "不明なホールまたは役割です")
		return
	}
	ctx := r.Context()

	entry, err := s.svc.Snapshot(ctx, hall, role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	roster, err := s.svc.Roster(ctx, role)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SlotResponse{
		Hall:   hall,
		Role:   role,
		Open:   entry != nil,
		Entry:  entry,
		Roster: roster,
	})
}

// handleCheckIn opens the slot with the selected members.
// POST /api/kiosk/{hall}/{role}/checkin
func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("kiosk_checkin")
	hall, role, ok := slotParams(r)
	if !ok {
		writeError(w, http.StatusNotFound, "不明なホールまたは役割です")
		return
	}

	var req CheckInRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が不正です")
		return
	}

	entry, err := s.svc.CheckIn(r.Context(), hall, role, req.Names)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.board.Invalidate(r.Context())
	writeJSON(w, http.StatusCreated, entry)
}

// handleCheckOut closes the slot's open entry.
// POST /api/kiosk/{hall}/{role}/checkout
func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("kiosk_checkout")
	hall, role, ok := slotParams(r)
	if !ok {
		writeError(w, http.StatusNotFound, "不明なホールまたは役割です")
		return
	}

	entry, err := s.svc.CheckOut(r.Context(), hall, role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.board.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, entry)
}

// handleToggleMember adds or removes one member on the open entry.
// POST /api/kiosk/{hall}/{role}/members
func (s *Server) handleToggleMember(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("kiosk_toggle_member")
	hall, role, ok := slotParams(r)
	if !ok {
		writeError(w, http.StatusNotFound, "不明なホールまたは役割です")
		return
	}

	var req ToggleMemberRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が不正です")
		return
	}

	entry, err := s.svc.ToggleMember(r.Context(), hall, role, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.board.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, entry)
}

// handleCorrectCheckInTime overwrites the open entry's check-in wall time.
// POST /api/kiosk/{hall}/{role}/checkin-time
func (s *Server) handleCorrectCheckInTime(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("kiosk_checkin_time")
	hall, role, ok := slotParams(r)
	if !ok {
		writeError(w, http.StatusNotFound, "不明なホールまたは役割です")
		return
	}

	var req CorrectTimeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が不正です")
		return
	}
	hour, minute, err := parseHHMM(req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "時刻はHH:MM形式で入力してください")
		return
	}

	entry, err := s.svc.CorrectCheckInTime(r.Context(), hall, role, hour, minute, req.PIN)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.board.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, entry)
}

// handleMembers lists a role's active roster.
// GET /api/members?role=AUDIO
func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("members")
	role, err := model.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "役割を指定してください")
		return
	}

	roster, err := s.svc.Roster(r.Context(), role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if roster == nil {
		roster = []model.Member{}
	}
	writeJSON(w, http.StatusOK, roster)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseHHMM(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time %q out of range", s)
	}
	return hour, minute, nil
}
