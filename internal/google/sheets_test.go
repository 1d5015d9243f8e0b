package google

import (
	"testing"
	"time"

	"crewtime/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryRowValues(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	out := time.Date(2026, 3, 14, 17, 30, 0, 0, loc)
	minutes := 510
	e := &model.Entry{
		ID:          "a",
		Hall:        model.HallA,
		Role:        model.RoleAudio,
		MemberNames: []string{"山田", "鈴木"},
		Date:        "2026-03-14",
		CheckIn:     time.Date(2026, 3, 14, 9, 0, 0, 0, loc),
		CheckOut:    &out,
		Minutes:     &minutes,
		Status:      model.StatusDone,
		Memo:        "リハあり",
	}

	values := entryRowValues(e, loc)
	expected := []interface{}{
		"2026-03-14",
		"ホールA",
		"音響",
		"山田、鈴木",
		2,
		"09:00",
		"17:30",
		"退勤済",
		"リハあり",
	}
	require.Len(t, values, len(expected))
	for i := range expected {
		assert.Equal(t, expected[i], values[i], "index %d", i)
	}
}

func TestEntryRowValues_OpenEntry(t *testing.T) {
	e := &model.Entry{
		Hall:        model.HallB,
		Role:        model.RoleVideo,
		MemberNames: []string{"佐藤"},
		Date:        "2026-03-15",
		CheckIn:     time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
		Status:      model.StatusInProgress,
	}

	values := entryRowValues(e, time.UTC)
	assert.Equal(t, "ホールB", values[1])
	assert.Equal(t, "映像", values[2])
	assert.Equal(t, "", values[6])
	assert.Equal(t, "出勤中", values[7])
}

func TestHeaderRowValues(t *testing.T) {
	values := headerRowValues()
	require.Len(t, values, 9)
	assert.Equal(t, "日付", values[0])
	assert.Equal(t, "メモ", values[8])
}
