package api

import (
	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/service"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanHandler serves the plan endpoints shared by members and trainers.
// Ownership is taken from the token: callers only see plans they take part in.
type PlanHandler struct {
	query  service.QueryFacade
	status service.StatusController
}

func NewPlanHandler(query service.QueryFacade, status service.StatusController) *PlanHandler {
	return &PlanHandler{query: query, status: status}
}

// --- DTOs ---

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type PlanResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	MemberID  string    `json:"memberId"`
	TrainerID string    `json:"trainerId"`
	RequestID *string   `json:"requestId,omitempty"`
	SlotID    *string   `json:"slotId,omitempty"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes,omitempty"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PlanSummaryResponse struct {
	PlanResponse
	WorkoutCount   int `json:"workoutCount"`
	CompletedCount int `json:"completedCount"`
}

type ScheduledWorkoutResponse struct {
	ID              string     `json:"id"`
	WorkoutID       string     `json:"workoutId"`
	WorkoutName     string     `json:"workoutName"`
	Description     string     `json:"description,omitempty"`
	Category        string     `json:"category,omitempty"`
	Difficulty      string     `json:"difficulty,omitempty"`
	EquipmentNeeded string     `json:"equipmentNeeded,omitempty"`
	ImageURL        string     `json:"imageUrl,omitempty"`
	TrainerID       *string    `json:"trainerId,omitempty"`
	TrainerName     string     `json:"trainerName,omitempty"`
	DayNumber       int        `json:"dayNumber"`
	SequenceOrder   int        `json:"sequenceOrder"`
	DurationMinutes int        `json:"durationMinutes"`
	RestMinutes     int        `json:"restMinutes"`
	Completed       bool       `json:"completed"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	ActualStart     *time.Time `json:"actualStart,omitempty"`
	ActualEnd       *time.Time `json:"actualEnd,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

type PlanDayResponse struct {
	DayNumber            int                        `json:"dayNumber"`
	Date                 time.Time                  `json:"date"`
	TotalDurationMinutes int                        `json:"totalDurationMinutes"`
	AllCompleted         bool                       `json:"allCompleted"`
	Workouts             []ScheduledWorkoutResponse `json:"workouts"`
}

type PlanDetailResponse struct {
	Plan              PlanResponse      `json:"plan"`
	MemberName        string            `json:"memberName"`
	TrainerName       string            `json:"trainerName"`
	TotalWorkouts     int               `json:"totalWorkouts"`
	CompletedWorkouts int               `json:"completedWorkouts"`
	Days              []PlanDayResponse `json:"days"`
}

func hexPtr(id *primitive.ObjectID) *string {
	if id == nil || *id == primitive.NilObjectID {
		return nil
	}
	h := id.Hex()
	return &h
}

// MapPlanToResponse converts a domain.WorkoutPlan to PlanResponse DTO.
func MapPlanToResponse(p *domain.WorkoutPlan) PlanResponse {
	if p == nil {
		return PlanResponse{}
	}
	return PlanResponse{
		ID:        p.ID.Hex(),
		Kind:      string(p.Kind),
		MemberID:  p.MemberID.Hex(),
		TrainerID: p.TrainerID.Hex(),
		RequestID: hexPtr(p.RequestID),
		SlotID:    hexPtr(p.SlotID),
		Name:      p.Name,
		Notes:     p.Notes,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func MapScheduledWorkoutToResponse(v *service.ScheduledWorkoutView) ScheduledWorkoutResponse {
	return ScheduledWorkoutResponse{
		ID:              v.ID.Hex(),
		WorkoutID:       v.WorkoutID.Hex(),
		WorkoutName:     v.WorkoutName,
		Description:     v.Description,
		Category:        v.Category,
		Difficulty:      v.Difficulty,
		EquipmentNeeded: v.EquipmentNeeded,
		ImageURL:        v.ImageURL,
		TrainerID:       hexPtr(v.TrainerID),
		TrainerName:     v.TrainerName,
		DayNumber:       v.DayNumber,
		SequenceOrder:   v.SequenceOrder,
		DurationMinutes: v.DurationMinutes,
		RestMinutes:     v.RestMinutes,
		Completed:       v.Completed,
		CompletedAt:     v.CompletedAt,
		ActualStart:     v.ActualStart,
		ActualEnd:       v.ActualEnd,
		Notes:           v.Notes,
	}
}

func MapPlanDayToResponse(d *service.PlanDay) PlanDayResponse {
	workouts := make([]ScheduledWorkoutResponse, len(d.Workouts))
	for i := range d.Workouts {
		workouts[i] = MapScheduledWorkoutToResponse(&d.Workouts[i])
	}
	return PlanDayResponse{
		DayNumber:            d.DayNumber,
		Date:                 d.Date,
		TotalDurationMinutes: d.TotalDurationMinutes,
		AllCompleted:         d.AllCompleted,
		Workouts:             workouts,
	}
}

func MapPlanDetailToResponse(d *service.PlanDetail) PlanDetailResponse {
	days := make([]PlanDayResponse, len(d.Days))
	for i := range d.Days {
		days[i] = MapPlanDayToResponse(&d.Days[i])
	}
	return PlanDetailResponse{
		Plan:              MapPlanToResponse(&d.Plan),
		MemberName:        d.MemberName,
		TrainerName:       d.TrainerName,
		TotalWorkouts:     d.TotalWorkouts,
		CompletedWorkouts: d.CompletedWorkouts,
		Days:              days,
	}
}

// --- Handler Methods ---

// ListPlans godoc
// @Summary List my plans
// @Description Plans of the authenticated member or trainer, newest first, with completion counts.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} PlanSummaryResponse
// @Router /member/plans [get]
// @Router /trainer/plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	role, err := getUserRoleFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}

	summaries, err := h.query.ListPlans(c.Request.Context(), role, userID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	responses := make([]PlanSummaryResponse, len(summaries))
	for i, s := range summaries {
		responses[i] = PlanSummaryResponse{
			PlanResponse:   MapPlanToResponse(&s.Plan),
			WorkoutCount:   s.WorkoutCount,
			CompletedCount: s.CompletedCount,
		}
	}
	c.JSON(http.StatusOK, responses)
}

// GetPlan godoc
// @Summary Get a plan with its workouts grouped by day
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {object} PlanDetailResponse
// @Failure 404 {object} gin.H "Plan not found (or not yours)"
// @Router /member/plans/{planId} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	detail, err := h.query.GetPlan(c.Request.Context(), userID, planID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapPlanDetailToResponse(detail))
}

// GetPlanDay godoc
// @Summary Get the workouts of one plan day
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param day path int true "1-based day number"
// @Success 200 {object} PlanDayResponse
// @Failure 400 {object} gin.H "Day outside the plan"
// @Router /member/plans/{planId}/days/{day} [get]
func (h *PlanHandler) GetPlanDay(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid day format.")
		return
	}

	planDay, err := h.query.GetDailyWorkouts(c.Request.Context(), userID, planID, day)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapPlanDayToResponse(planDay))
}

// UpdatePlanStatus godoc
// @Summary Pause, resume, complete or cancel a plan
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param body body UpdateStatusRequest true "New status"
// @Success 200 {object} gin.H
// @Failure 409 {object} gin.H "Transition not allowed"
// @Router /member/plans/{planId}/status [put]
// @Router /trainer/plans/{planId}/status [put]
func (h *PlanHandler) UpdatePlanStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	planID, ok := pathObjectID(c, "planId")
	if !ok {
		return
	}

	ref := service.EntityRef{Kind: service.EntityPlan, ID: planID, OwnerID: &userID}
	if err := h.status.UpdateStatus(c.Request.Context(), ref, req.Status); err != nil {
		respondWithServiceError(c, err)
		return
	}
	status, _ := domain.ParsePlanStatus(req.Status)
	c.JSON(http.StatusOK, gin.H{"id": planID.Hex(), "status": status})
}
