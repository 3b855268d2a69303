package api

import (
	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/service"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the read-only workout catalog and trainer directory.
type CatalogHandler struct {
	query service.QueryFacade
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(query service.QueryFacade) *CatalogHandler {
	return &CatalogHandler{query: query}
}

// --- DTOs for API (Data Transfer Objects) ---

// WorkoutResponse is the DTO for returning catalog entries.
type WorkoutResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category"`
	DurationMinutes int       `json:"durationMinutes"`
	Difficulty      string    `json:"difficulty,omitempty"`
	EquipmentNeeded string    `json:"equipmentNeeded,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// UserResponse excludes contact details of other users
type UserResponse struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Role           domain.Role `json:"role"`
	Specialization string      `json:"specialization,omitempty"`
	Active         bool        `json:"active"`
}

// MapWorkoutToResponse converts a domain.Workout to WorkoutResponse DTO.
func MapWorkoutToResponse(w *domain.Workout) WorkoutResponse {
	if w == nil {
		return WorkoutResponse{}
	}
	return WorkoutResponse{
		ID:              w.ID.Hex(),
		Name:            w.Name,
		Description:     w.Description,
		Category:        w.Category,
		DurationMinutes: w.DurationMinutes,
		Difficulty:      w.Difficulty,
		EquipmentNeeded: w.EquipmentNeeded,
		CreatedAt:       w.CreatedAt,
	}
}

// MapWorkoutsToResponse converts a slice of domain.Workout to a slice of WorkoutResponse DTO.
func MapWorkoutsToResponse(workouts []domain.Workout) []WorkoutResponse {
	responses := make([]WorkoutResponse, len(workouts))
	for i, w := range workouts {
		responses[i] = MapWorkoutToResponse(&w)
	}
	return responses
}

func MapUserToResponse(u *domain.User) UserResponse {
	if u == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:             u.ID.Hex(),
		Name:           u.Name,
		Role:           u.Role,
		Specialization: u.Specialization,
		Active:         u.Active,
	}
}

// MapUsersToResponse converts a slice of domain.User to UserResponse DTOs.
func MapUsersToResponse(users []domain.User) []UserResponse {
	responses := make([]UserResponse, len(users))
	for i, u := range users {
		responses[i] = MapUserToResponse(&u)
	}
	return responses
}

// --- Handler Methods ---

// ListWorkouts godoc
// @Summary Browse the workout catalog
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param category query string false "Category, case-insensitive"
// @Param difficulty query string false "Difficulty, case-insensitive"
// @Param maxDuration query int false "Maximum duration in minutes"
// @Success 200 {array} WorkoutResponse
// @Failure 400 {object} gin.H "Invalid filter"
// @Router /workouts [get]
func (h *CatalogHandler) ListWorkouts(c *gin.Context) {
	filter := domain.WorkoutFilter{
		Category:   c.Query("category"),
		Difficulty: c.Query("difficulty"),
	}
	if raw := c.Query("maxDuration"); raw != "" {
		maxDuration, err := strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "maxDuration must be a number of minutes.")
			return
		}
		filter.MaxDurationMinutes = maxDuration
	}

	workouts, err := h.query.ListWorkouts(c.Request.Context(), filter)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapWorkoutsToResponse(workouts))
}

// ListTrainers godoc
// @Summary List trainers
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param specialization query string false "Substring of the specialization"
// @Param includeInactive query bool false "Also list inactive trainers"
// @Success 200 {array} UserResponse
// @Router /trainers [get]
func (h *CatalogHandler) ListTrainers(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("includeInactive"))

	trainers, err := h.query.ListTrainers(c.Request.Context(), !includeInactive, c.Query("specialization"))
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUsersToResponse(trainers))
}
