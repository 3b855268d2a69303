package api

import (
	"alcyxob/gym-scheduler/internal/domain" // Needed for RoleMiddleware
	"alcyxob/gym-scheduler/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Services bundles the scheduling services the HTTP layer exposes.
type Services struct {
	Intake  service.RequestIntake
	Builder service.PlanBuilder
	Booking service.SlotBookingEngine
	Ledger  service.AvailabilityLedger
	Status  service.StatusController
	Query   service.QueryFacade
}

func SetupRoutes(router *gin.Engine, jwtSecret string, svc Services) {
	memberHandler := NewMemberHandler(svc.Intake, svc.Booking, svc.Status)
	trainerHandler := NewTrainerHandler(svc.Query, svc.Builder, svc.Status, svc.Ledger)
	planHandler := NewPlanHandler(svc.Query, svc.Status)
	catalogHandler := NewCatalogHandler(svc.Query)

	router.Use(RequestIDMiddleware())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", func(c *gin.Context) {
			userID, ok := currentUser(c)
			if !ok {
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userID.Hex(), "role": role})
		})

		// --- Catalog (any authenticated user) ---
		protected.GET("/workouts", catalogHandler.ListWorkouts)
		protected.GET("/trainers", catalogHandler.ListTrainers)

		// --- Member Routes ---
		memberGroup := protected.Group("/member")
		memberGroup.Use(RoleMiddleware(domain.RoleMember))
		{
			memberGroup.POST("/requests", memberHandler.SubmitRequest)
			memberGroup.PUT("/requests/:requestId/cancel", memberHandler.CancelRequest)
			memberGroup.POST("/bookings", memberHandler.BookSession)

			memberGroup.GET("/plans", planHandler.ListPlans)
			memberGroup.GET("/plans/:planId", planHandler.GetPlan)
			memberGroup.GET("/plans/:planId/days/:day", planHandler.GetPlanDay)
			memberGroup.PUT("/plans/:planId/status", planHandler.UpdatePlanStatus)

			memberGroup.PUT("/completions", memberHandler.UpdateCompletion)
		}

		// --- Trainer Routes ---
		trainerGroup := protected.Group("/trainer")
		trainerGroup.Use(RoleMiddleware(domain.RoleTrainer))
		{
			trainerGroup.GET("/requests/pending", trainerHandler.GetPendingRequests)
			trainerGroup.PUT("/requests/:requestId/status", trainerHandler.UpdateRequestStatus)
			trainerGroup.POST("/requests/:requestId/plan", trainerHandler.BuildPlan)

			trainerGroup.GET("/plans", planHandler.ListPlans)
			trainerGroup.GET("/plans/:planId", planHandler.GetPlan)
			trainerGroup.PUT("/plans/:planId/status", planHandler.UpdatePlanStatus)

			trainerGroup.POST("/slots", trainerHandler.OfferSlot)
			trainerGroup.GET("/slots", trainerHandler.GetSlots)
		}
	}
}
