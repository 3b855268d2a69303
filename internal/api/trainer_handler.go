// internal/api/trainer_handler.go
package api

import (
	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TrainerHandler struct {
	query   service.QueryFacade
	builder service.PlanBuilder
	status  service.StatusController
	ledger  service.AvailabilityLedger
}

func NewTrainerHandler(
	query service.QueryFacade,
	builder service.PlanBuilder,
	status service.StatusController,
	ledger service.AvailabilityLedger,
) *TrainerHandler {
	return &TrainerHandler{
		query:   query,
		builder: builder,
		status:  status,
		ledger:  ledger,
	}
}

// --- DTOs for Request Review ---

// ScheduleRequestResponse is a pending request as the trainer sees it.
type ScheduleRequestResponse struct {
	ID                string    `json:"id"`
	MemberID          string    `json:"memberId"`
	MemberName        string    `json:"memberName"`
	Age               int       `json:"age"`
	Gender            string    `json:"gender,omitempty"`
	HeightCm          *float64  `json:"heightCm,omitempty"`
	WeightKg          float64   `json:"weightKg"`
	Goal              string    `json:"goal,omitempty"`
	FitnessLevel      string    `json:"fitnessLevel,omitempty"`
	TrainingType      string    `json:"trainingType,omitempty"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	MedicalConditions string    `json:"medicalConditions,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	RequestedAt       time.Time `json:"requestedAt"`
	Status            string    `json:"status"`
}

func MapPendingRequestToResponse(p *service.PendingRequest) ScheduleRequestResponse {
	return ScheduleRequestResponse{
		ID:                p.ID.Hex(),
		MemberID:          p.MemberID.Hex(),
		MemberName:        p.MemberName,
		Age:               p.Age,
		Gender:            p.Gender,
		HeightCm:          p.HeightCm,
		WeightKg:          p.WeightKg,
		Goal:              p.Goal,
		FitnessLevel:      p.FitnessLevel,
		TrainingType:      p.TrainingType,
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		MedicalConditions: p.MedicalConditions,
		Notes:             p.Notes,
		RequestedAt:       p.RequestedAt,
		Status:            string(p.Status),
	}
}

// --- DTOs for Plan Building ---

type PlannedWorkoutRequest struct {
	WorkoutID       string  `json:"workoutId" binding:"required"`
	DurationMinutes int     `json:"durationMinutes" binding:"gte=0"` // 0 takes the catalog duration
	RestMinutes     int     `json:"restMinutes" binding:"gte=0"`
	TrainerID       *string `json:"trainerId"` // Optional co-trainer for this entry
	Notes           string  `json:"notes"`
}

type PlanDayRequest struct {
	DayNumber int                     `json:"dayNumber" binding:"required,gte=1"`
	Workouts  []PlannedWorkoutRequest `json:"workouts" binding:"dive"`
}

// BuildPlanRequest materializes a request into a plan. Approve=true approves
// a still pending request in the same step.
type BuildPlanRequest struct {
	PlanName  string           `json:"planName" binding:"required"`
	StartDate time.Time        `json:"startDate" binding:"required"`
	EndDate   time.Time        `json:"endDate" binding:"required"`
	Notes     string           `json:"notes"`
	Approve   bool             `json:"approve"`
	Days      []PlanDayRequest `json:"days" binding:"dive"`
}

// --- DTOs for Availability ---

type OfferSlotRequest struct {
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required"`
}

type SlotResponse struct {
	ID          string     `json:"id"`
	TrainerID   string     `json:"trainerId"`
	Date        time.Time  `json:"date"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
	IsAvailable bool       `json:"isAvailable"`
	BookedBy    *string    `json:"bookedBy,omitempty"`
	BookedAt    *time.Time `json:"bookedAt,omitempty"`
}

func MapSlotToResponse(s *domain.TrainerAvailabilitySlot) SlotResponse {
	if s == nil {
		return SlotResponse{}
	}
	return SlotResponse{
		ID:          s.ID.Hex(),
		TrainerID:   s.TrainerID.Hex(),
		Date:        s.Date,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		IsAvailable: s.IsAvailable,
		BookedBy:    hexPtr(s.BookedBy),
		BookedAt:    s.BookedAt,
	}
}

// --- Handler Methods for Request Review ---

// GetPendingRequests godoc
// @Summary Pending requests addressed to the trainer, oldest first
// @Tags Trainer
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ScheduleRequestResponse
// @Router /trainer/requests/pending [get]
func (h *TrainerHandler) GetPendingRequests(c *gin.Context) {
	trainerID, ok := currentUser(c)
	if !ok {
		return
	}

	pending, err := h.query.ListPendingRequests(c.Request.Context(), trainerID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	responses := make([]ScheduleRequestResponse, len(pending))
	for i := range pending {
		responses[i] = MapPendingRequestToResponse(&pending[i])
	}
	c.JSON(http.StatusOK, responses)
}

// UpdateRequestStatus godoc
// @Summary Approve or reject a request
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param requestId path string true "Request ID"
// @Param body body UpdateStatusRequest true "approved or rejected"
// @Success 200 {object} gin.H
// @Failure 409 {object} gin.H "Request is no longer pending"
// @Router /trainer/requests/{requestId}/status [put]
func (h *TrainerHandler) UpdateRequestStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	trainerID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathObjectID(c, "requestId")
	if !ok {
		return
	}

	ref := service.EntityRef{Kind: service.EntityRequest, ID: requestID, OwnerID: &trainerID}
	if err := h.status.UpdateStatus(c.Request.Context(), ref, req.Status); err != nil {
		respondWithServiceError(c, err)
		return
	}
	status, _ := domain.ParseRequestStatus(req.Status)
	c.JSON(http.StatusOK, gin.H{"id": requestID.Hex(), "status": status})
}

// BuildPlan godoc
// @Summary Build a multi-day plan from a request
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param requestId path string true "Request ID"
// @Param plan body BuildPlanRequest true "Plan layout"
// @Success 201 {object} gin.H "Plan id"
// @Failure 400 {object} gin.H "Invalid plan layout"
// @Failure 404 {object} gin.H "Request or workout not found"
// @Failure 409 {object} gin.H "Request not approvable"
// @Router /trainer/requests/{requestId}/plan [post]
func (h *TrainerHandler) BuildPlan(c *gin.Context) {
	var req BuildPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	trainerID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathObjectID(c, "requestId")
	if !ok {
		return
	}

	input := service.BuildPlanInput{
		RequestID: requestID,
		TrainerID: &trainerID,
		PlanName:  req.PlanName,
		Window:    domain.Interval{Start: req.StartDate, End: req.EndDate},
		Notes:     req.Notes,
		Days:      make([]service.DayWorkouts, 0, len(req.Days)),
	}
	for _, d := range req.Days {
		day := service.DayWorkouts{DayNumber: d.DayNumber, Workouts: make([]service.PlannedWorkout, 0, len(d.Workouts))}
		for _, w := range d.Workouts {
			workoutID, err := primitive.ObjectIDFromHex(w.WorkoutID)
			if err != nil {
				abortWithError(c, http.StatusBadRequest, "Invalid workoutId format.")
				return
			}
			planned := service.PlannedWorkout{
				WorkoutID:       workoutID,
				DurationMinutes: w.DurationMinutes,
				RestMinutes:     w.RestMinutes,
				Notes:           w.Notes,
			}
			if w.TrainerID != nil {
				coTrainer, err := primitive.ObjectIDFromHex(*w.TrainerID)
				if err != nil {
					abortWithError(c, http.StatusBadRequest, "Invalid trainerId format.")
					return
				}
				planned.TrainerID = &coTrainer
			}
			day.Workouts = append(day.Workouts, planned)
		}
		input.Days = append(input.Days, day)
	}

	build := h.builder.BuildPlan
	if req.Approve {
		build = h.builder.ApproveAndBuildPlan
	}
	planID, err := build(c.Request.Context(), input)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": planID.Hex()})
}

// --- Handler Methods for Availability ---

// OfferSlot godoc
// @Summary Offer a bookable time window
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slot body OfferSlotRequest true "Window within one day"
// @Success 201 {object} SlotResponse
// @Failure 409 {object} gin.H "Overlaps an existing slot"
// @Router /trainer/slots [post]
func (h *TrainerHandler) OfferSlot(c *gin.Context) {
	var req OfferSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	trainerID, ok := currentUser(c)
	if !ok {
		return
	}

	window := domain.Interval{Start: req.StartTime, End: req.EndTime}
	slot, err := h.ledger.OfferSlot(c.Request.Context(), trainerID, req.StartTime, window)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapSlotToResponse(slot))
}

// GetSlots godoc
// @Summary List the trainer's slots of a day
// @Tags Trainer
// @Produce json
// @Security BearerAuth
// @Param date query string true "Day as YYYY-MM-DD"
// @Success 200 {array} SlotResponse
// @Router /trainer/slots [get]
func (h *TrainerHandler) GetSlots(c *gin.Context) {
	trainerID, ok := currentUser(c)
	if !ok {
		return
	}
	date, err := time.Parse(time.DateOnly, c.Query("date"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Query parameter date must be YYYY-MM-DD.")
		return
	}

	slots, err := h.ledger.ListSlots(c.Request.Context(), trainerID, date)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	responses := make([]SlotResponse, len(slots))
	for i := range slots {
		responses[i] = MapSlotToResponse(&slots[i])
	}
	c.JSON(http.StatusOK, responses)
}
