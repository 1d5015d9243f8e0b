package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"crewtime/internal/attendance"
	"crewtime/internal/db"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps service errors to the messages the kiosk UI shows.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attendance.ErrAlreadyOpen):
		writeError(w, http.StatusConflict, "この役割は既に出勤中です。退勤してください。")
	case errors.Is(err, attendance.ErrNoMembers):
		writeError(w, http.StatusUnprocessableEntity, "メンバーを1名以上選択・追加してください")
	case errors.Is(err, attendance.ErrNoOpenEntry):
		writeError(w, http.StatusUnprocessableEntity, "出勤中のレコードがありません")
	case errors.Is(err, attendance.ErrWrongPIN):
		writeError(w, http.StatusForbidden, "PINが違います")
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "レコードが見つかりません")
	case errors.Is(err, db.ErrMultipleOpen):
		writeError(w, http.StatusInternalServerError, "出勤中レコードが複数あります。管理者に連絡してください")
	default:
		writeError(w, http.StatusInternalServerError, "エラー: "+err.Error())
	}
}
