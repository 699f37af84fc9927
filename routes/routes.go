package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/formlite/formlite-server/controllers"
	"github.com/formlite/formlite-server/middleware"
)

func SetupRoutes(r *gin.Engine, rc *controllers.ResponseController) {
	r.GET("/health", controllers.HealthCheck)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", controllers.Register)
			auth.POST("/login", controllers.Login)
		}
		api.GET("/me", middleware.AuthJWT(), controllers.Me)

		api.GET("/categories", controllers.ListCategories)
		api.POST("/categories", middleware.AuthJWT(), middleware.RequireAdmin(), controllers.CreateCategory)

		forms := api.Group("/forms")
		{
			forms.GET("", controllers.ListForms)
			forms.POST("", middleware.AuthJWT(), middleware.RateLimitFormsCreate(), controllers.CreateForm)
			forms.GET("/my", middleware.AuthJWT(), controllers.GetMyForms)
			forms.GET("/:id", controllers.GetFormDetail)
			forms.PUT("/:id", middleware.AuthJWT(), middleware.CheckFormOwner(), controllers.UpdateForm)
			forms.DELETE("/:id", middleware.AuthJWT(), middleware.CheckFormOwner(), controllers.DeleteForm)
			forms.POST("/:id/questions", middleware.AuthJWT(), middleware.CheckFormOwner(), controllers.AddQuestion)

			// Public submission path; anonymous allowed.
			forms.POST("/:id/responses", middleware.OptionalAuth(), middleware.RateLimitSubmissions(), rc.SubmitResponse)
			forms.GET("/:id/responses", middleware.AuthJWT(), rc.GetResponses)

			forms.POST("/:id/export", middleware.AuthJWT(), middleware.CheckFormOwner(), controllers.CreateExport)
		}

		api.PUT("/questions/:id", middleware.AuthJWT(), controllers.UpdateQuestion)
		api.DELETE("/questions/:id", middleware.AuthJWT(), controllers.DeleteQuestion)

		api.GET("/exports/:job_id", middleware.AuthJWT(), controllers.GetExport)
	}
}
