package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"boarding-house-backend/config"
	"boarding-house-backend/internal/auth"
	"boarding-house-backend/internal/clock"
	"boarding-house-backend/internal/db"
	"boarding-house-backend/internal/lifecycle"
	"boarding-house-backend/internal/store"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	router *gin.Engine
	tokens *auth.Service
	clock  *clock.Fixed
}

func newTestServer(t *testing.T, push *webpush.Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb, zap.NewNop()))

	st := store.NewGormStore(gdb)
	clk := clock.NewFixed(time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC))
	svc := lifecycle.NewService(st, clk)
	tokens := auth.New("test-secret", "boarding-house", time.Hour)

	cfg := config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 60}
	router := NewRouter(cfg, NewHandler(svc, st, push, zap.NewNop()), tokens, zap.NewNop())
	return &testServer{router: router, tokens: tokens, clock: clk}
}

func (s *testServer) token(t *testing.T, subject, role string) string {
	t.Helper()
	tok, err := s.tokens.GenerateToken(subject, role)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != xlsxContentType {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode(t *testing.T, env envelope, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w, env := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
}

func TestAccessControl(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodGet, "/api/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	w, _ = s.do(t, http.MethodGet, "/api/rooms", s.token(t, "t-1", auth.RoleTenant), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/rooms", s.token(t, "frontdesk", auth.RoleStaff),
		gin.H{"room_number": "A-101", "monthly_price": 3100000})
	assert.Equal(t, http.StatusForbidden, w.Code, "only admins create rooms")

	w, _ = s.do(t, http.MethodGet, "/api/me/tenancy", s.token(t, "frontdesk", auth.RoleStaff), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTenancyFlow(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.token(t, "root", auth.RoleAdmin)
	staff := s.token(t, "frontdesk", auth.RoleStaff)
	tenant := s.token(t, "t-1", auth.RoleTenant)

	w, env := s.do(t, http.MethodPost, "/api/rooms", admin, gin.H{"room_number": "A-101", "monthly_price": 3100000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var room struct {
		ID     int64  `json:"id"`
		Block  string `json:"block"`
		Floor  int    `json:"floor"`
		Status string `json:"status"`
	}
	decode(t, env, &room)
	assert.Equal(t, "A", room.Block)
	assert.Equal(t, 1, room.Floor)
	assert.Equal(t, "available", room.Status)
	roomPath := "/api/rooms/" + itoa(room.ID)

	w, env = s.do(t, http.MethodPost, roomPath+"/assign", staff, gin.H{"tenant_ref": "t-1", "deposit": 500000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var assigned struct {
		Room       struct{ Status string } `json:"room"`
		Tenancy    struct{ ID int64 }      `json:"tenancy"`
		FirstMonth struct {
			RemainingDays int    `json:"remaining_days"`
			Amount        string `json:"amount"`
		} `json:"first_month"`
	}
	decode(t, env, &assigned)
	assert.Equal(t, "occupied", assigned.Room.Status)
	assert.Equal(t, 22, assigned.FirstMonth.RemainingDays)
	assert.Equal(t, "2200000", assigned.FirstMonth.Amount)
	tenancyPath := "/api/tenancies/" + itoa(assigned.Tenancy.ID)

	t.Run("second tenant is a guard violation", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, roomPath+"/assign", staff, gin.H{"tenant_ref": "t-2"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "RoomOccupied", env.Error.Code)
	})

	t.Run("tenant sees the current tenancy", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, "/api/me/tenancy", tenant, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var cur struct {
			Room struct {
				RoomNumber string `json:"room_number"`
			} `json:"room"`
		}
		decode(t, env, &cur)
		assert.Equal(t, "A-101", cur.Room.RoomNumber)
	})

	t.Run("invoice is issued once per month", func(t *testing.T) {
		body := gin.H{"payment_month": "2026-03", "prorate_from": "2026-03-10"}
		w, env := s.do(t, http.MethodPost, tenancyPath+"/invoices", staff, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var res struct {
			Invoice struct {
				Amount string `json:"amount"`
				Kind   string `json:"kind"`
			} `json:"invoice"`
		}
		decode(t, env, &res)
		assert.Equal(t, "2200000", res.Invoice.Amount)
		assert.Equal(t, "prorated", res.Invoice.Kind)

		w, env = s.do(t, http.MethodPost, tenancyPath+"/invoices", staff, body)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "DuplicateInvoice", env.Error.Code)

		w, env = s.do(t, http.MethodGet, "/api/me/invoices", tenant, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var mine []json.RawMessage
		decode(t, env, &mine)
		assert.Len(t, mine, 1)

		w, _ = s.do(t, http.MethodGet, "/api/admin/invoices/export?month=2026-03", admin, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.NotZero(t, w.Body.Len())
	})

	t.Run("move-out frees the room", func(t *testing.T) {
		w, env := s.do(t, http.MethodPost, tenancyPath+"/move-out", staff, gin.H{"reason": "lease ended"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res struct {
			Tenancy struct {
				Status  string `json:"status"`
				EndDate string `json:"end_date"`
			} `json:"tenancy"`
			Room   struct{ Status string } `json:"room"`
			Refund struct {
				DepositRefund string `json:"deposit_refund"`
			} `json:"refund"`
		}
		decode(t, env, &res)
		assert.Equal(t, "moved_out", res.Tenancy.Status)
		assert.Equal(t, "2026-03-10", res.Tenancy.EndDate)
		assert.Equal(t, "available", res.Room.Status)
		assert.Equal(t, "500000", res.Refund.DepositRefund)

		w, env = s.do(t, http.MethodGet, "/api/me/tenancy", tenant, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "TenancyNotFound", env.Error.Code)
	})

	t.Run("history lists the transitions newest first", func(t *testing.T) {
		w, env := s.do(t, http.MethodGet, roomPath+"/history?limit=2", staff, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var evs []struct{ Event string }
		decode(t, env, &evs)
		require.Len(t, evs, 2)
		assert.Equal(t, lifecycle.EventMovedOut, evs[0].Event)
	})
}

func TestReservationEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.token(t, "root", auth.RoleAdmin)
	alice := s.token(t, "alice", auth.RoleStaff)
	bob := s.token(t, "bob", auth.RoleStaff)

	_, env := s.do(t, http.MethodPost, "/api/rooms", admin, gin.H{"room_number": "B2-05", "monthly_price": 2800000})
	var room struct{ ID int64 }
	decode(t, env, &room)
	roomPath := "/api/rooms/" + itoa(room.ID)

	w, env := s.do(t, http.MethodPost, roomPath+"/reserve", alice, gin.H{"hours": 24, "reason": "viewing"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reserved struct {
		Status          string `json:"status"`
		ReservationInfo struct {
			ReservedBy       string `json:"reserved_by"`
			ExpiresInMinutes int    `json:"expires_in_minutes"`
		} `json:"reservation_info"`
	}
	decode(t, env, &reserved)
	assert.Equal(t, "reserved", reserved.Status)
	assert.Equal(t, "alice", reserved.ReservationInfo.ReservedBy)
	assert.Equal(t, 24*60, reserved.ReservationInfo.ExpiresInMinutes)

	w, env = s.do(t, http.MethodDelete, roomPath+"/reservation", bob, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "NotReservationHolder", env.Error.Code)

	w, env = s.do(t, http.MethodPost, roomPath+"/reserve", bob, gin.H{"hours": 500})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidDuration", env.Error.Code)

	s.clock.Advance(25 * time.Hour)
	w, env = s.do(t, http.MethodGet, "/api/rooms?status=available", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rooms []struct{ Status string }
	decode(t, env, &rooms)
	require.Len(t, rooms, 1, "the lapsed reservation was released")
	assert.Equal(t, "available", rooms[0].Status)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, nil)
	staff := s.token(t, "frontdesk", auth.RoleStaff)

	w, env := s.do(t, http.MethodGet, "/api/rooms/999", staff, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RoomNotFound", env.Error.Code)

	w, env = s.do(t, http.MethodGet, "/api/rooms/abc", staff, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", env.Error.Code)

	w, env = s.do(t, http.MethodGet, "/api/rooms?status=haunted", staff, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/api/tenancies/1/invoices", staff, gin.H{"payment_month": "03/2026"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidPaymentMonth", env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/api/rooms/1/assign", staff, gin.H{"tenant_ref": "t-1", "start_date": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidDate", env.Error.Code)
}

func TestPreviewEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodGet, "/api/billing/proration?amount=2900000&date=2024-02-15&deposit=1000000", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Proration struct {
			Amount string `json:"amount"`
		} `json:"proration"`
		Refund struct {
			TotalRefund string `json:"total_refund"`
		} `json:"refund"`
	}
	decode(t, env, &res)
	assert.Equal(t, "1500000", res.Proration.Amount)
	assert.Equal(t, "2500000", res.Refund.TotalRefund)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w, _ = s.do(t, http.MethodGet, "/api/billing/proration?deposit=1000000.0&date=2024-02-15&amount=2900000.00", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"), "equal amounts share a cache entry")

	w, env = s.do(t, http.MethodGet, "/api/billing/proration?date=2024-02-15", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidRent", env.Error.Code)
}

func TestSubscriptions(t *testing.T) {
	s := newTestServer(t, &webpush.Options{VAPIDPublicKey: "public-key"})
	tenant := s.token(t, "t-1", auth.RoleTenant)
	sub := gin.H{"endpoint": "https://push.example.com/abc", "p256dh": "key", "auth": "secret"}

	w, _ := s.do(t, http.MethodPut, "/api/me/subscriptions", tenant, sub)
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/me/subscriptions", tenant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct{ Endpoints []string }
	decode(t, env, &got)
	assert.Equal(t, []string{"https://push.example.com/abc"}, got.Endpoints)

	w, _ = s.do(t, http.MethodGet, "/api/me/subscriptions?endpoint=https://push.example.com/other", tenant, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/me/subscriptions", s.token(t, "t-2", auth.RoleTenant), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/me/subscriptions", tenant, gin.H{"endpoint": "https://push.example.com/abc"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, env = s.do(t, http.MethodPut, "/api/me/subscriptions", tenant, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)

	w, env = s.do(t, http.MethodGet, "/api/vapid_public_key", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"public-key"}`, string(env.Data))
}

func TestVAPIDKeyMissing(t *testing.T) {
	s := newTestServer(t, nil)
	w, env := s.do(t, http.MethodGet, "/api/vapid_public_key", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "PUSH_DISABLED", env.Error.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
