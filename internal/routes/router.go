package routes

import (
	"taskpulse/internal/controller"
	"taskpulse/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers bundles everything the router mounts.
type Controllers struct {
	Auth          *controller.Auth
	Users         *controller.Users
	Tasks         *controller.Tasks
	Notifications *controller.Notifications
	Events        *controller.Events
	Audit         *controller.Audit
}

// Router builds the gin engine with all routes mounted.
func Router(ctrl Controllers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Health for load balancers and K8s probes
	router.GET("/health", controller.Health)
	router.GET("/ready", controller.Ready)

	// Public: no auth
	router.POST("/auth/register", ctrl.Auth.Register)
	router.POST("/auth/login", ctrl.Auth.Login)
	router.POST("/auth/logout", ctrl.Auth.Logout)

	// Protected: JWT required
	api := router.Group("")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/users", ctrl.Users.List)
		api.GET("/users/me", ctrl.Users.Me)
		api.PUT("/users/me", ctrl.Users.UpdateMe)

		api.GET("/tasks", ctrl.Tasks.List)
		api.GET("/tasks/assigned", ctrl.Tasks.ListAssigned)
		api.GET("/tasks/created", ctrl.Tasks.ListCreated)
		api.GET("/tasks/filter", ctrl.Tasks.ListFiltered)
		api.GET("/tasks/:id", ctrl.Tasks.Get)
		api.POST("/tasks", ctrl.Tasks.Create)
		api.PUT("/tasks/:id", ctrl.Tasks.Update)
		api.DELETE("/tasks/:id", ctrl.Tasks.Delete)

		api.GET("/notifications", ctrl.Notifications.List)
		api.PATCH("/notifications/:id/read", ctrl.Notifications.MarkRead)

		api.GET("/events", ctrl.Events.Stream)
		api.GET("/audit", ctrl.Audit.List)
	}

	return router
}
