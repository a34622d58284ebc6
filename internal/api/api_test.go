package api

import (
	"bytes"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"gupio-parking-backend/internal/auth"
	"gupio-parking-backend/internal/parking"
	"gupio-parking-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testDirectory = func() *auth.Directory {
	d, err := auth.NewDirectory(nil)
	if err != nil {
		panic(err)
	}
	return d
}()

type testServer struct {
	router *gin.Engine
	svc    *parking.Service
	store  *store.Store
}

func newTestServer(t *testing.T, db *gorm.DB, webpushOptions *webpush.Options) *testServer {
	t.Helper()
	st := store.New(store.WithRand(rand.New(rand.NewPCG(3, 4))))
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	svc := parking.NewService(st, parking.Deps{
		Directory: testDirectory,
		OTP:       auth.NewCacheOTPIssuer(time.Minute),
		Tokens:    tokens,
	}, parking.Options{RevealOTP: true})
	t.Cleanup(svc.Close)

	router := NewRouter(svc, tokens, db, webpushOptions, RouterOptions{RateLimit: 1000, RateBurst: 1000})
	return &testServer{router: router, svc: svc, store: st}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"employeeId": "EMP001", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	otp := decode(t, w)["otp"].(string)

	w = s.do(t, http.MethodPost, "/api/auth/otp/verify", "", gin.H{"employeeId": "EMP001", "otp": otp})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func (s *testServer) availableSlot(t *testing.T) string {
	t.Helper()
	for _, slot := range s.store.Snapshot().ParkingSlots {
		if slot.IsAvailable() {
			return slot.ID
		}
	}
	t.Fatal("no available slot")
	return ""
}

func TestRegisterValidators(t *testing.T) {
	require.NoError(t, RegisterValidators())
	require.NoError(t, RegisterValidators())

	type code struct {
		OTP string `binding:"digits"`
	}
	assert.NoError(t, binding.Validator.ValidateStruct(code{OTP: "123456"}))
	assert.Error(t, binding.Validator.ValidateStruct(code{OTP: "12a456"}))
}

func TestLoginValidation(t *testing.T) {
	s := newTestServer(t, nil, nil)

	testCases := []struct {
		name        string
		path        string
		body        any
		wantStatus  int
		wantError   string
		wantMessage string
	}{
		{
			name:        "missing employee id",
			path:        "/api/auth/login",
			body:        gin.H{"password": "password123"},
			wantStatus:  http.StatusBadRequest,
			wantError:   "Validation Error",
			wantMessage: "Employee ID is required",
		},
		{
			name:        "short password",
			path:        "/api/auth/login",
			body:        gin.H{"employeeId": "EMP001", "password": "12345"},
			wantStatus:  http.StatusBadRequest,
			wantError:   "Validation Error",
			wantMessage: "Password must be at least 6 characters",
		},
		{
			name:        "wrong password",
			path:        "/api/auth/login",
			body:        gin.H{"employeeId": "EMP001", "password": "password999"},
			wantStatus:  http.StatusUnauthorized,
			wantError:   "Invalid Credentials",
			wantMessage: "Please use EMP001 / password123 for testing",
		},
		{
			name:        "short otp",
			path:        "/api/auth/otp/verify",
			body:        gin.H{"employeeId": "EMP001", "otp": "123"},
			wantStatus:  http.StatusBadRequest,
			wantError:   "Validation Error",
			wantMessage: "OTP must be exactly 6 digits",
		},
		{
			name:        "non numeric otp",
			path:        "/api/auth/otp/verify",
			body:        gin.H{"employeeId": "EMP001", "otp": "12a456"},
			wantStatus:  http.StatusBadRequest,
			wantError:   "Validation Error",
			wantMessage: "OTP must contain only numbers",
		},
		{
			name:        "wrong otp",
			path:        "/api/auth/otp/verify",
			body:        gin.H{"employeeId": "EMP001", "otp": "123456"},
			wantStatus:  http.StatusUnauthorized,
			wantError:   "Invalid OTP",
			wantMessage: "Please enter the correct OTP",
		},
		{
			name:        "malformed json",
			path:        "/api/auth/login",
			body:        "not an object",
			wantStatus:  http.StatusBadRequest,
			wantError:   "Validation Error",
			wantMessage: "Please check your inputs",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, tc.path, "", tc.body)

			assert.Equal(t, tc.wantStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, tc.wantError, body["error"])
			assert.Equal(t, tc.wantMessage, body["message"])
		})
	}
}

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"employeeId": "EMP001", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "OTP Sent", body["title"])
	assert.Contains(t, body["message"], body["otp"])
	assert.True(t, s.store.Snapshot().ShowOTPInput)

	w = s.do(t, http.MethodPost, "/api/auth/otp/back", "", gin.H{"employeeId": "EMP001"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, s.store.Snapshot().ShowOTPInput)

	token := s.login(t)

	w = s.do(t, http.MethodGet, "/api/state", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decode(t, w)
	assert.Equal(t, true, state["isLoggedIn"])
	assert.Equal(t, 30.0, state["availableSpots"])
	assert.Equal(t, 90.0, state["totalSpots"])
	assert.Len(t, state["parkingSlots"], 90)
	assert.NotContains(t, state, "storedOtp")

	w = s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/state", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "tokens stop working after logout")
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, nil, nil)

	for _, path := range []string{"/api/state", "/api/dashboard", "/api/slots", "/api/bookings"} {
		w := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestPasswordReset(t *testing.T) {
	s := newTestServer(t, nil, nil)

	testCases := []struct {
		name       string
		body       gin.H
		wantStatus int
		wantTitle  string
	}{
		{name: "missing email", body: gin.H{"newPassword": "secret1", "confirmPassword": "secret1"}, wantStatus: http.StatusBadRequest, wantTitle: "Email Required"},
		{name: "missing password", body: gin.H{"email": "john@gupio.io"}, wantStatus: http.StatusBadRequest, wantTitle: "Password Required"},
		{name: "short password", body: gin.H{"email": "john@gupio.io", "newPassword": "abc", "confirmPassword": "abc"}, wantStatus: http.StatusBadRequest, wantTitle: "Password Too Short"},
		{name: "mismatch", body: gin.H{"email": "john@gupio.io", "newPassword": "secret1", "confirmPassword": "secret2"}, wantStatus: http.StatusBadRequest, wantTitle: "Passwords Don't Match"},
		{name: "ok", body: gin.H{"email": "john@gupio.io", "newPassword": "secret1", "confirmPassword": "secret1"}, wantStatus: http.StatusOK, wantTitle: "Password Reset Successful"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/auth/password-reset", "", tc.body)
			assert.Equal(t, tc.wantStatus, w.Code)
			body := decode(t, w)
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, tc.wantTitle, body["title"])
			} else {
				assert.Equal(t, tc.wantTitle, body["error"])
			}
		})
	}

	_, err := testDirectory.Authenticate("EMP001", "password123")
	assert.NoError(t, err, "a reset never changes credentials")
}

func TestBookingLifecycle(t *testing.T) {
	s := newTestServer(t, nil, nil)
	token := s.login(t)
	slotID := s.availableSlot(t)

	w := s.do(t, http.MethodPost, "/api/slots/"+slotID+"/select", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "booking", decode(t, w)["modal"])

	w = s.do(t, http.MethodPost, "/api/bookings", token, gin.H{"slotId": slotID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Booking Confirmed", decode(t, w)["title"])

	w = s.do(t, http.MethodPost, "/api/bookings", token, gin.H{"slotId": slotID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Slot Occupied", decode(t, w)["error"])

	w = s.do(t, http.MethodGet, "/api/bookings", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["count"])

	w = s.do(t, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dash := decode(t, w)
	assert.Equal(t, 29.0, dash["availableSpots"])
	assert.Equal(t, "John Doe", dash["userName"])

	w = s.do(t, http.MethodDelete, "/api/bookings/"+slotID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Booking Cancelled", decode(t, w)["title"])

	w = s.do(t, http.MethodDelete, "/api/bookings/"+slotID, token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/dashboard", token, nil)
	assert.Equal(t, 30.0, decode(t, w)["availableSpots"], "writes flush cached reads")
}

func TestBookingErrors(t *testing.T) {
	s := newTestServer(t, nil, nil)
	token := s.login(t)

	testCases := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{name: "malformed slot id", method: http.MethodPost, path: "/api/bookings", body: gin.H{"slotId": "ZZ-99"}, wantStatus: http.StatusBadRequest},
		{name: "missing slot id", method: http.MethodPost, path: "/api/bookings", body: gin.H{}, wantStatus: http.StatusBadRequest},
		{name: "out of range slot", method: http.MethodGet, path: "/api/slots/US-P31", wantStatus: http.StatusBadRequest},
		{name: "unknown section filter", method: http.MethodGet, path: "/api/slots?section=XX", wantStatus: http.StatusBadRequest},
		{name: "unknown status filter", method: http.MethodGet, path: "/api/slots?status=parked", wantStatus: http.StatusBadRequest},
		{name: "bad history limit", method: http.MethodGet, path: "/api/bookings/history?limit=0", wantStatus: http.StatusBadRequest},
		{name: "reminder without answer", method: http.MethodPost, path: "/api/reminder/respond", body: gin.H{}, wantStatus: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, tc.method, tc.path, token, tc.body)
			assert.Equal(t, tc.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestReleaseForeignBooking(t *testing.T) {
	s := newTestServer(t, nil, nil)
	token := s.login(t)
	slotID := s.availableSlot(t)
	s.store.BookSlot(slotID, "EMP002")

	w := s.do(t, http.MethodDelete, "/api/bookings/"+slotID, token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/slots/"+slotID+"/select", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Slot Occupied", decode(t, w)["error"])
}

func TestListAndGetSlots(t *testing.T) {
	s := newTestServer(t, nil, nil)
	token := s.login(t)

	w := s.do(t, http.MethodGet, "/api/slots?section=ls&status=available", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, raw := range decode(t, w)["slots"].([]any) {
		slot := raw.(map[string]any)
		assert.Equal(t, "LS", slot["section"])
		assert.Equal(t, "available", slot["status"])
	}

	w = s.do(t, http.MethodGet, "/api/slots/b3-p7", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "B3-P07", decode(t, w)["id"])
}

func TestUpdateUIAndReminder(t *testing.T) {
	s := newTestServer(t, nil, nil)
	token := s.login(t)
	slotID := s.availableSlot(t)

	w := s.do(t, http.MethodPatch, "/api/ui", token, gin.H{"selectedSlotId": slotID, "showInactivityModal": true})
	require.Equal(t, http.StatusOK, w.Code)
	state := decode(t, w)
	assert.Equal(t, slotID, state["selectedSlot"].(map[string]any)["id"])
	assert.Equal(t, true, state["showInactivityModal"])

	w = s.do(t, http.MethodPost, "/api/bookings", token, gin.H{"slotId": slotID})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, "/api/reminder/respond", token, gin.H{"willBeThere": false})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Bookings Cancelled", body["title"])
	assert.Len(t, body["released"], 1)

	st := s.store.Snapshot()
	assert.False(t, st.ShowInactivityModal)
	assert.Empty(t, st.ActiveBookings)
	assert.Equal(t, 30, st.AvailableSpots)
}

func TestReinitializeAndRecount(t *testing.T) {
	s := newTestServer(t, nil, nil)
	token := s.login(t)

	w := s.do(t, http.MethodPost, "/api/slots/reinitialize", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30.0, decode(t, w)["availableSpots"])

	w = s.do(t, http.MethodPost, "/api/slots/recount", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30.0, decode(t, w)["availableSpots"])
}

func TestGetVAPIDPublicKey(t *testing.T) {
	w := newTestServer(t, nil, nil).do(t, http.MethodGet, "/api/vapid_public_key", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = newTestServer(t, nil, &webpush.Options{VAPIDPublicKey: "pub"}).do(t, http.MethodGet, "/api/vapid_public_key", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"publicKey":"pub"}`, w.Body.String())
}

// Any matches any argument.
type Any struct{}

func (a Any) Match(v interface{}) bool { return true }

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestSubscriptions(t *testing.T) {
	db, mock := newMockDB(t)
	s := newTestServer(t, db, nil)
	token := s.login(t)

	t.Run("put validates body", func(t *testing.T) {
		w := s.do(t, http.MethodPut, "/api/subscriptions", token, gin.H{"endpoint": "https://push.example.com/1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
	})

	t.Run("put upserts for the caller", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "push_subscriptions" .* ON CONFLICT \("endpoint"\) DO UPDATE SET "employee_id"="excluded"."employee_id","p256dh"="excluded"."p256dh","auth"="excluded"."auth"`).
			WithArgs("https://push.example.com/1", "EMP001", "key", "secret", Any{}).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		w := s.do(t, http.MethodPut, "/api/subscriptions", token, gin.H{
			"endpoint": "https://push.example.com/1",
			"p256dh":   "key",
			"auth":     "secret",
		})
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get lists the caller's endpoints", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE employee_id = \$1 ORDER BY created_at`).
			WithArgs("EMP001").
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "employee_id", "p256dh", "auth", "created_at"}).
				AddRow("https://push.example.com/1", "EMP001", "key", "secret", time.Now()))

		w := s.do(t, http.MethodGet, "/api/subscriptions", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"endpoints":["https://push.example.com/1"]}`, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete unknown endpoint", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE endpoint = \$1 AND employee_id = \$2`).
			WithArgs("https://push.example.com/9", "EMP001").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		w := s.do(t, http.MethodDelete, "/api/subscriptions", token, gin.H{"endpoint": "https://push.example.com/9"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE endpoint = \$1 AND employee_id = \$2`).
			WithArgs("https://push.example.com/1", "EMP001").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := s.do(t, http.MethodDelete, "/api/subscriptions", token, gin.H{"endpoint": "https://push.example.com/1"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
