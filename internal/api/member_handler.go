package api

import (
	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MemberHandler struct {
	intake  service.RequestIntake
	booking service.SlotBookingEngine
	status  service.StatusController
}

func NewMemberHandler(intake service.RequestIntake, booking service.SlotBookingEngine, status service.StatusController) *MemberHandler {
	return &MemberHandler{intake: intake, booking: booking, status: status}
}

// --- DTOs ---

// SubmitRequestRequest is the member's training profile.
type SubmitRequestRequest struct {
	TrainerID         string    `json:"trainerId" binding:"required"`
	Age               int       `json:"age" binding:"required,gt=0"`
	Gender            string    `json:"gender"`
	HeightCm          *float64  `json:"heightCm"`
	WeightKg          float64   `json:"weightKg" binding:"required,gt=0"`
	Goal              string    `json:"goal"`
	FitnessLevel      string    `json:"fitnessLevel"` // e.g., "Beginner"
	TrainingType      string    `json:"trainingType"` // e.g., "Strength"
	StartDate         time.Time `json:"startDate" binding:"required"`
	EndDate           time.Time `json:"endDate" binding:"required"`
	MedicalConditions string    `json:"medicalConditions"`
	Notes             string    `json:"notes"`
}

// BookSessionRequest books a trainer's time directly.
type BookSessionRequest struct {
	TrainerID  string    `json:"trainerId" binding:"required"`
	StartTime  time.Time `json:"startTime" binding:"required"`
	EndTime    time.Time `json:"endTime" binding:"required"`
	WorkoutIDs []string  `json:"workoutIds"`
	PlanName   string    `json:"planName"`
	Notes      string    `json:"notes"`
}

type BookingResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"` // Error kind when the booking was rejected
	Code    string `json:"code,omitempty"`   // Stable rejection code, e.g. slot_unavailable
	PlanID  string `json:"planId,omitempty"`
	SlotID  string `json:"slotId,omitempty"`
}

type CompletionItem struct {
	ScheduledWorkoutID string     `json:"scheduledWorkoutId" binding:"required"`
	Completed          bool       `json:"completed"`
	Notes              string     `json:"notes"`
	ActualStart        *time.Time `json:"actualStart"`
	ActualEnd          *time.Time `json:"actualEnd"`
	Correction         bool       `json:"correction"` // Required to un-complete a workout
}

type UpdateCompletionRequest struct {
	Items []CompletionItem `json:"items" binding:"required,dive"`
}

// --- Handler Methods ---

// SubmitRequest godoc
// @Summary Ask a trainer for a training plan
// @Tags Member
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SubmitRequestRequest true "Training profile"
// @Success 201 {object} gin.H "Request id"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Trainer not found"
// @Router /member/requests [post]
func (h *MemberHandler) SubmitRequest(c *gin.Context) {
	var req SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	memberID, ok := currentUser(c)
	if !ok {
		return
	}
	trainerID, err := primitive.ObjectIDFromHex(req.TrainerID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid trainerId format.")
		return
	}

	id, err := h.intake.Submit(c.Request.Context(), service.SubmitRequestInput{
		MemberID:          memberID,
		TrainerID:         trainerID,
		Age:               req.Age,
		Gender:            req.Gender,
		HeightCm:          req.HeightCm,
		WeightKg:          req.WeightKg,
		Goal:              req.Goal,
		FitnessLevel:      req.FitnessLevel,
		TrainingType:      req.TrainingType,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		MedicalConditions: req.MedicalConditions,
		Notes:             req.Notes,
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id.Hex(), "status": domain.RequestPending})
}

// CancelRequest godoc
// @Summary Withdraw a pending request
// @Tags Member
// @Produce json
// @Security BearerAuth
// @Param requestId path string true "Request ID"
// @Success 200 {object} gin.H
// @Failure 409 {object} gin.H "Request is no longer pending"
// @Router /member/requests/{requestId}/cancel [put]
func (h *MemberHandler) CancelRequest(c *gin.Context) {
	memberID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathObjectID(c, "requestId")
	if !ok {
		return
	}

	ref := service.EntityRef{Kind: service.EntityRequest, ID: requestID, OwnerID: &memberID}
	if err := h.status.UpdateStatus(c.Request.Context(), ref, string(domain.RequestCancelled)); err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": requestID.Hex(), "status": domain.RequestCancelled})
}

// BookSession godoc
// @Summary Book a session inside a trainer's offered slot
// @Tags Member
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param booking body BookSessionRequest true "Session window and workouts"
// @Success 201 {object} BookingResponse
// @Failure 409 {object} BookingResponse "Conflicting booking or no free slot"
// @Failure 503 {object} gin.H "Storage failure, safe to retry"
// @Router /member/bookings [post]
func (h *MemberHandler) BookSession(c *gin.Context) {
	var req BookSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	memberID, ok := currentUser(c)
	if !ok {
		return
	}
	trainerID, err := primitive.ObjectIDFromHex(req.TrainerID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid trainerId format.")
		return
	}
	workoutIDs, err := parseObjectIDs("workoutId", req.WorkoutIDs)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.booking.BookSlot(c.Request.Context(), service.BookSlotInput{
		MemberID:   memberID,
		TrainerID:  trainerID,
		Date:       req.StartTime,
		Window:     domain.Interval{Start: req.StartTime, End: req.EndTime},
		WorkoutIDs: workoutIDs,
		PlanName:   req.PlanName,
		Notes:      req.Notes,
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	if !result.Success {
		code := http.StatusConflict
		switch service.KindOf(result.Reason) {
		case service.KindValidation:
			code = http.StatusBadRequest
		case service.KindNotFound:
			code = http.StatusNotFound
		}
		c.JSON(code, BookingResponse{
			Message: result.Message,
			Reason:  service.KindOf(result.Reason).String(),
			Code:    service.CodeOf(result.Reason),
		})
		return
	}
	c.JSON(http.StatusCreated, BookingResponse{
		Success: true,
		Message: result.Message,
		PlanID:  result.PlanID.Hex(),
		SlotID:  result.SlotID.Hex(),
	})
}

// UpdateCompletion godoc
// @Summary Record completion of scheduled workouts
// @Description Items that do not belong to the member's plans are skipped.
// @Tags Member
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateCompletionRequest true "Completion items"
// @Success 200 {object} gin.H "Number of rows changed"
// @Router /member/completions [put]
func (h *MemberHandler) UpdateCompletion(c *gin.Context) {
	var req UpdateCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	memberID, ok := currentUser(c)
	if !ok {
		return
	}

	items := make([]service.CompletionUpdate, 0, len(req.Items))
	for _, it := range req.Items {
		id, err := primitive.ObjectIDFromHex(it.ScheduledWorkoutID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid scheduledWorkoutId format.")
			return
		}
		items = append(items, service.CompletionUpdate{
			ScheduledWorkoutID: id,
			Completed:          it.Completed,
			Notes:              it.Notes,
			ActualStart:        it.ActualStart,
			ActualEnd:          it.ActualEnd,
			Correction:         it.Correction,
		})
	}

	updated, err := h.status.UpdateCompletion(c.Request.Context(), memberID, items)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
