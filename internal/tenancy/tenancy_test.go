package tenancy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boarding-house-backend/internal/apperr"
	"boarding-house-backend/internal/model"
	"boarding-house-backend/internal/roomstate"
)

var (
	now   = time.Date(2026, time.October, 19, 10, 30, 0, 0, time.UTC)
	today = time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	staff = roomstate.Actor{ID: "staff-1"}
)

func room(id int64, status model.RoomStatus) *model.Room {
	return &model.Room{ID: id, RoomNumber: "R" + decimal.NewFromInt(id).String(), MonthlyPrice: decimal.NewFromInt(1500000), Status: status}
}

func terms() Terms {
	return Terms{
		TenantRef:   "tenant-7",
		MonthlyRent: decimal.NewFromInt(1500000),
		Deposit:     decimal.NewFromInt(1500000),
		StartDate:   today,
	}
}

func activeTenancy(roomID int64) *model.Tenancy {
	return &model.Tenancy{
		ID:          42,
		RoomID:      roomID,
		TenantRef:   "tenant-7",
		MonthlyRent: decimal.NewFromInt(1000000),
		StartDate:   time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		Status:      model.TenancyActive,
	}
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	e, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %v", err)
	return e.Code
}

func TestOpen(t *testing.T) {
	t.Run("available room", func(t *testing.T) {
		r := room(1, model.RoomAvailable)
		tn, err := Open(nil, r, staff, 0, terms(), now)
		require.NoError(t, err)

		assert.Equal(t, model.TenancyActive, tn.Status)
		assert.Equal(t, int64(1), tn.RoomID)
		assert.True(t, tn.MonthlyRent.Equal(decimal.NewFromInt(1500000)))
		assert.Equal(t, today, tn.StartDate)
		assert.Nil(t, tn.EndDate)
		assert.Equal(t, model.RoomOccupied, r.Status)
	})

	t.Run("reuses moved out record as a fresh period", func(t *testing.T) {
		end := time.Date(2026, time.May, 31, 0, 0, 0, 0, time.UTC)
		prev := &model.Tenancy{ID: 9, RoomID: 3, TenantRef: "tenant-7", Status: model.TenancyMovedOut, EndDate: &end, StatusReason: "left"}
		r := room(1, model.RoomAvailable)

		tn, err := Open(prev, r, staff, 0, terms(), now)
		require.NoError(t, err)
		assert.Equal(t, int64(9), tn.ID)
		assert.Equal(t, int64(1), tn.RoomID)
		assert.Equal(t, today, tn.StartDate)
		assert.Nil(t, tn.EndDate)
		assert.Empty(t, tn.StatusReason)
		assert.Equal(t, model.TenancyActive, tn.Status)
	})

	testCases := []struct {
		name     string
		prev     *model.Tenancy
		room     *model.Room
		terms    func() Terms
		wantCode string
	}{
		{"zero rent", nil, room(1, model.RoomAvailable), func() Terms { tm := terms(); tm.MonthlyRent = decimal.Zero; return tm }, apperr.InvalidRent},
		{"negative rent", nil, room(1, model.RoomAvailable), func() Terms { tm := terms(); tm.MonthlyRent = decimal.NewFromInt(-5); return tm }, apperr.InvalidRent},
		{"negative deposit", nil, room(1, model.RoomAvailable), func() Terms { tm := terms(); tm.Deposit = decimal.NewFromInt(-1); return tm }, apperr.InvalidDeposit},
		{"start in the past", nil, room(1, model.RoomAvailable), func() Terms { tm := terms(); tm.StartDate = today.AddDate(0, 0, -1); return tm }, apperr.InvalidDate},
		{"missing tenant", nil, room(1, model.RoomAvailable), func() Terms { tm := terms(); tm.TenantRef = " "; return tm }, apperr.TenantRequired},
		{"tenant already holds a room", activeTenancy(5), room(1, model.RoomAvailable), terms, apperr.TenantHasTenancy},
		{"room occupied", nil, room(1, model.RoomOccupied), terms, apperr.RoomOccupied},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.room.Status
			tn, err := Open(tc.prev, tc.room, staff, 0, tc.terms(), now)
			assert.Nil(t, tn)
			assert.Equal(t, tc.wantCode, codeOf(t, err))
			assert.Equal(t, before, tc.room.Status)
		})
	}
}

func TestSuspendAndReactivate(t *testing.T) {
	r := room(1, model.RoomOccupied)
	tn := activeTenancy(1)

	assert.Equal(t, apperr.ReasonRequired, codeOf(t, Suspend(tn, r, "")))

	require.NoError(t, Suspend(tn, r, "arrears"))
	assert.Equal(t, model.TenancySuspended, tn.Status)
	assert.Equal(t, "arrears", tn.StatusReason)
	assert.Equal(t, model.RoomOccupied, r.Status)
	assert.True(t, tn.HoldsRoom())

	assert.Equal(t, apperr.TenancyNotActive, codeOf(t, Suspend(tn, r, "again")))
	assert.Equal(t, apperr.TenancyNotActive, codeOf(t, MoveOut(tn, r, today, "", 0, now)))
	assert.Equal(t, apperr.TenancyNotActive, codeOf(t, Transfer(tn, r, room(2, model.RoomAvailable), staff, decimal.NewFromInt(1), 0, now)))

	require.NoError(t, Reactivate(tn, r))
	assert.Equal(t, model.TenancyActive, tn.Status)
	assert.Empty(t, tn.StatusReason)
	assert.Equal(t, model.RoomOccupied, r.Status)

	assert.Equal(t, apperr.TenancyNotSuspended, codeOf(t, Reactivate(tn, r)))
}

func TestMoveOut(t *testing.T) {
	t.Run("frees the room", func(t *testing.T) {
		r := room(1, model.RoomOccupied)
		tn := activeTenancy(1)

		require.NoError(t, MoveOut(tn, r, today, "contract ended", 0, now))
		assert.Equal(t, model.TenancyMovedOut, tn.Status)
		require.NotNil(t, tn.EndDate)
		assert.Equal(t, today, *tn.EndDate)
		assert.Equal(t, model.RoomAvailable, r.Status)
		assert.False(t, tn.HoldsRoom())

		assert.Equal(t, apperr.TenancyClosed, codeOf(t, MoveOut(tn, r, today, "", 0, now)))
		assert.Equal(t, apperr.TenancyNotSuspended, codeOf(t, Reactivate(tn, r)))
	})

	for name, date := range map[string]time.Time{
		"before start": time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC),
		"in future":    today.AddDate(0, 0, 1),
	} {
		t.Run(name, func(t *testing.T) {
			r := room(1, model.RoomOccupied)
			tn := activeTenancy(1)
			assert.Equal(t, apperr.InvalidMoveOutDate, codeOf(t, MoveOut(tn, r, date, "", 0, now)))
			assert.Equal(t, model.TenancyActive, tn.Status)
			assert.Equal(t, model.RoomOccupied, r.Status)
		})
	}

	t.Run("start date itself is allowed", func(t *testing.T) {
		r := room(1, model.RoomOccupied)
		tn := activeTenancy(1)
		require.NoError(t, MoveOut(tn, r, tn.StartDate, "", 0, now))
	})
}

func TestTransfer(t *testing.T) {
	t.Run("moves binding and rent", func(t *testing.T) {
		from, target := room(1, model.RoomOccupied), room(2, model.RoomAvailable)
		tn := activeTenancy(1)

		require.NoError(t, Transfer(tn, from, target, staff, decimal.NewFromInt(1200000), 0, now))
		assert.Equal(t, int64(2), tn.RoomID)
		assert.True(t, tn.MonthlyRent.Equal(decimal.NewFromInt(1200000)))
		assert.Equal(t, model.RoomAvailable, from.Status)
		assert.Equal(t, model.RoomOccupied, target.Status)
	})

	t.Run("target not available leaves everything untouched", func(t *testing.T) {
		from, target := room(1, model.RoomOccupied), room(2, model.RoomMaintenance)
		tn := activeTenancy(1)

		assert.Equal(t, apperr.RoomUnderMaintenance, codeOf(t, Transfer(tn, from, target, staff, decimal.NewFromInt(1200000), 0, now)))
		assert.Equal(t, int64(1), tn.RoomID)
		assert.Equal(t, model.RoomOccupied, from.Status)
		assert.Equal(t, model.RoomMaintenance, target.Status)
	})

	t.Run("same room", func(t *testing.T) {
		from := room(1, model.RoomOccupied)
		tn := activeTenancy(1)
		assert.Equal(t, apperr.SameRoomTransfer, codeOf(t, Transfer(tn, from, from, staff, decimal.NewFromInt(1), 0, now)))
	})
}
