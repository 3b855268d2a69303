package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"alcyxob/gym-scheduler/internal/api"
	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/repository/memory"
	"alcyxob/gym-scheduler/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

type downTx struct{}

func (downTx) WithinTransaction(context.Context, func(context.Context) error) error {
	return errors.New("no primary available")
}

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	repos   service.Repositories
	member  primitive.ObjectID
	trainer primitive.ObjectID
	squat   primitive.ObjectID
	run     primitive.ObjectID
}

func newTestServer(t *testing.T, mutate ...func(*service.Repositories)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	repos := service.Repositories{
		Tx:        store,
		Users:     memory.NewUserRepository(store),
		Workouts:  memory.NewWorkoutRepository(store),
		Requests:  memory.NewScheduleRequestRepository(store),
		Plans:     memory.NewWorkoutPlanRepository(store),
		Scheduled: memory.NewScheduledWorkoutRepository(store),
		Slots:     memory.NewAvailabilityRepository(store),
	}
	s := &testServer{t: t, repos: repos}
	ctx := context.Background()

	var err error
	s.member, err = repos.Users.Create(ctx, &domain.User{Name: "Ana Member", Email: "ana@example.com", Role: domain.RoleMember, Active: true})
	require.NoError(t, err)
	s.trainer, err = repos.Users.Create(ctx, &domain.User{Name: "Tom Trainer", Email: "tom@example.com", Role: domain.RoleTrainer, Specialization: "Strength", Active: true})
	require.NoError(t, err)
	s.squat, err = repos.Workouts.Create(ctx, &domain.Workout{Name: "Back Squat", Category: "Strength", DurationMinutes: 30})
	require.NoError(t, err)
	s.run, err = repos.Workouts.Create(ctx, &domain.Workout{Name: "Interval Run", Category: "Cardio", DurationMinutes: 20})
	require.NoError(t, err)

	for _, m := range mutate {
		m(&repos)
	}

	opts := service.DefaultOptions()
	ledger := service.NewAvailabilityLedger(repos)
	status := service.NewStatusController(repos, ledger, nil, opts)
	s.router = gin.New()
	api.SetupRoutes(s.router, testSecret, api.Services{
		Intake:  service.NewRequestService(repos, nil, opts),
		Builder: service.NewPlanBuilder(repos, nil, opts),
		Booking: service.NewBookingService(repos, ledger, nil),
		Ledger:  ledger,
		Status:  status,
		Query:   service.NewQueryService(repos, nil, time.Minute),
	})
	return s
}

func token(t *testing.T, userID primitive.ObjectID, role domain.Role, ttl time.Duration) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":  userID.Hex(),
		"role": string(role),
		"exp":  time.Now().Add(ttl).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) asMember(method, path string, body any) *httptest.ResponseRecorder {
	return s.do(method, path, token(s.t, s.member, domain.RoleMember, time.Hour), body)
}

func (s *testServer) asTrainer(method, path string, body any) *httptest.ResponseRecorder {
	return s.do(method, path, token(s.t, s.trainer, domain.RoleTrainer, time.Hour), body)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/ping", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get(api.RequestIDHeader))
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/v1/me", token(t, s.member, domain.RoleMember, -time.Minute), nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": s.member.Hex(), "role": "member", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("another-secret"))
	require.NoError(t, err)
	w = s.do(http.MethodGet, "/api/v1/me", other, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.asMember(http.MethodGet, "/api/v1/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]string](t, w)
	require.Equal(t, s.member.Hex(), me["userId"])
	require.Equal(t, "member", me["role"])

	// Members cannot use trainer routes and vice versa.
	require.Equal(t, http.StatusForbidden, s.asMember(http.MethodGet, "/api/v1/trainer/requests/pending", nil).Code)
	require.Equal(t, http.StatusForbidden, s.asTrainer(http.MethodGet, "/api/v1/member/plans", nil).Code)
}

func TestRequestToPlanFlow(t *testing.T) {
	s := newTestServer(t)

	// 1. Member submits a request
	w := s.asMember(http.MethodPost, "/api/v1/member/requests", map[string]any{
		"trainerId": s.trainer.Hex(),
		"age":       31,
		"weightKg":  70.5,
		"goal":      "Run a 10k",
		"startDate": "2024-01-08T00:00:00Z",
		"endDate":   "2024-03-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	requestID := decode[map[string]string](t, w)["id"]

	// 2. Trainer sees it
	w = s.asTrainer(http.MethodGet, "/api/v1/trainer/requests/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[[]api.ScheduleRequestResponse](t, w)
	require.Len(t, pending, 1)
	require.Equal(t, requestID, pending[0].ID)
	require.Equal(t, "Ana Member", pending[0].MemberName)

	// 3. Building without approval is refused, approve+build succeeds
	plan := map[string]any{
		"planName":  "10k block",
		"startDate": "2024-01-08T00:00:00Z",
		"endDate":   "2024-01-10T00:00:00Z",
		"days": []map[string]any{
			{"dayNumber": 1, "workouts": []map[string]any{{"workoutId": s.squat.Hex()}, {"workoutId": s.run.Hex(), "durationMinutes": 25}}},
			{"dayNumber": 2, "workouts": []map[string]any{{"workoutId": s.run.Hex()}}},
		},
	}
	w = s.asTrainer(http.MethodPost, "/api/v1/trainer/requests/"+requestID+"/plan", plan)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	plan["approve"] = true
	w = s.asTrainer(http.MethodPost, "/api/v1/trainer/requests/"+requestID+"/plan", plan)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	planID := decode[map[string]string](t, w)["id"]

	// 4. Member reads the plan
	w = s.asMember(http.MethodGet, "/api/v1/member/plans", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summaries := decode[[]api.PlanSummaryResponse](t, w)
	require.Len(t, summaries, 1)
	require.Equal(t, planID, summaries[0].ID)
	require.Equal(t, 3, summaries[0].WorkoutCount)

	w = s.asMember(http.MethodGet, "/api/v1/member/plans/"+planID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[api.PlanDetailResponse](t, w)
	require.Equal(t, "Tom Trainer", detail.TrainerName)
	require.Len(t, detail.Days, 2)
	require.Equal(t, 55, detail.Days[0].TotalDurationMinutes)

	w = s.asMember(http.MethodGet, "/api/v1/member/plans/"+planID+"/days/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	day := decode[api.PlanDayResponse](t, w)
	require.Len(t, day.Workouts, 1)

	require.Equal(t, http.StatusBadRequest, s.asMember(http.MethodGet, "/api/v1/member/plans/"+planID+"/days/9", nil).Code)
	require.Equal(t, http.StatusBadRequest, s.asMember(http.MethodGet, "/api/v1/member/plans/not-an-id", nil).Code)

	// 5. Completion
	w = s.asMember(http.MethodPut, "/api/v1/member/completions", map[string]any{
		"items": []map[string]any{
			{"scheduledWorkoutId": day.Workouts[0].ID, "completed": true, "notes": "done"},
			{"scheduledWorkoutId": primitive.NewObjectID().Hex(), "completed": true},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.EqualValues(t, 1, decode[map[string]float64](t, w)["updated"])

	// 6. Status: complete, then cancel is refused
	w = s.asTrainer(http.MethodPut, "/api/v1/trainer/plans/"+planID+"/status", map[string]string{"status": "Completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "completed", decode[map[string]string](t, w)["status"])

	w = s.asMember(http.MethodPut, "/api/v1/member/plans/"+planID+"/status", map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusConflict, w.Code)

	w = s.asMember(http.MethodPut, "/api/v1/member/plans/"+planID+"/status", map[string]string{"status": "archived"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelRequest(t *testing.T) {
	s := newTestServer(t)
	w := s.asMember(http.MethodPost, "/api/v1/member/requests", map[string]any{
		"trainerId": s.trainer.Hex(),
		"age":       40,
		"weightKg":  80,
		"startDate": "2024-01-08T00:00:00Z",
		"endDate":   "2024-02-08T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	requestID := decode[map[string]string](t, w)["id"]

	require.Equal(t, http.StatusOK, s.asMember(http.MethodPut, "/api/v1/member/requests/"+requestID+"/cancel", nil).Code)
	require.Equal(t, http.StatusConflict, s.asMember(http.MethodPut, "/api/v1/member/requests/"+requestID+"/cancel", nil).Code)

	w = s.asTrainer(http.MethodPut, "/api/v1/trainer/requests/"+requestID+"/status", map[string]string{"status": "approved"})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitRequest_Validation(t *testing.T) {
	s := newTestServer(t)

	w := s.asMember(http.MethodPost, "/api/v1/member/requests", map[string]any{"trainerId": s.trainer.Hex()})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.asMember(http.MethodPost, "/api/v1/member/requests", map[string]any{
		"trainerId": primitive.NewObjectID().Hex(),
		"age":       30,
		"weightKg":  70,
		"startDate": "2024-01-08T00:00:00Z",
		"endDate":   "2024-02-08T00:00:00Z",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)
	other, err := s.repos.Users.Create(context.Background(), &domain.User{Name: "Ben Member", Role: domain.RoleMember, Active: true})
	require.NoError(t, err)

	w := s.asTrainer(http.MethodPost, "/api/v1/trainer/slots", map[string]string{
		"startTime": "2024-02-05T09:00:00Z",
		"endTime":   "2024-02-05T11:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	slot := decode[api.SlotResponse](t, w)
	require.True(t, slot.IsAvailable)

	w = s.asTrainer(http.MethodPost, "/api/v1/trainer/slots", map[string]string{
		"startTime": "2024-02-05T10:00:00Z",
		"endTime":   "2024-02-05T12:00:00Z",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	booking := map[string]any{
		"trainerId":  s.trainer.Hex(),
		"startTime":  "2024-02-05T09:30:00Z",
		"endTime":    "2024-02-05T10:30:00Z",
		"workoutIds": []string{s.squat.Hex()},
	}
	w = s.asMember(http.MethodPost, "/api/v1/member/bookings", booking)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booked := decode[api.BookingResponse](t, w)
	require.True(t, booked.Success)
	require.Equal(t, slot.ID, booked.SlotID)

	// Same member again: conflicting booking.
	w = s.asMember(http.MethodPost, "/api/v1/member/bookings", booking)
	require.Equal(t, http.StatusConflict, w.Code)
	rejected := decode[api.BookingResponse](t, w)
	require.False(t, rejected.Success)
	require.Equal(t, "conflict", rejected.Reason)
	require.Equal(t, "conflicting_booking", rejected.Code)

	// Another member: the slot is taken.
	w = s.do(http.MethodPost, "/api/v1/member/bookings", token(t, other, domain.RoleMember, time.Hour), booking)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "slot_unavailable", decode[api.BookingResponse](t, w).Code)

	w = s.asTrainer(http.MethodGet, "/api/v1/trainer/slots?date=2024-02-05", nil)
	require.Equal(t, http.StatusOK, w.Code)
	slots := decode[[]api.SlotResponse](t, w)
	require.Len(t, slots, 1)
	require.False(t, slots[0].IsAvailable)
	require.NotNil(t, slots[0].BookedBy)
	require.Equal(t, s.member.Hex(), *slots[0].BookedBy)

	require.Equal(t, http.StatusBadRequest, s.asTrainer(http.MethodGet, "/api/v1/trainer/slots?date=tomorrow", nil).Code)

	// Cancelling the session gives the slot back.
	w = s.asMember(http.MethodPut, "/api/v1/member/plans/"+booked.PlanID+"/status", map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.asTrainer(http.MethodGet, "/api/v1/trainer/slots?date=2024-02-05", nil)
	require.True(t, decode[[]api.SlotResponse](t, w)[0].IsAvailable)

	// Unknown workout is a not-found rejection.
	booking["workoutIds"] = []string{primitive.NewObjectID().Hex()}
	w = s.asMember(http.MethodPost, "/api/v1/member/bookings", booking)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBooking_StoreUnavailable(t *testing.T) {
	s := newTestServer(t, func(r *service.Repositories) { r.Tx = downTx{} })

	w := s.asMember(http.MethodPost, "/api/v1/member/bookings", map[string]any{
		"trainerId": s.trainer.Hex(),
		"startTime": "2024-02-05T09:30:00Z",
		"endTime":   "2024-02-05T10:30:00Z",
	})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t)

	w := s.asMember(http.MethodGet, "/api/v1/workouts?category=cardio", nil)
	require.Equal(t, http.StatusOK, w.Code)
	workouts := decode[[]api.WorkoutResponse](t, w)
	require.Len(t, workouts, 1)
	require.Equal(t, "Interval Run", workouts[0].Name)

	require.Equal(t, http.StatusBadRequest, s.asMember(http.MethodGet, "/api/v1/workouts?maxDuration=abc", nil).Code)
	require.Equal(t, http.StatusBadRequest, s.asMember(http.MethodGet, "/api/v1/workouts?maxDuration=-5", nil).Code)

	w = s.asTrainer(http.MethodGet, "/api/v1/trainers?specialization=str", nil)
	require.Equal(t, http.StatusOK, w.Code)
	trainers := decode[[]api.UserResponse](t, w)
	require.Len(t, trainers, 1)
	require.Equal(t, "Tom Trainer", trainers[0].Name)
}
