package routes

import (
	"os"
	"strings"

	"hydrapair-backend/config"
	"hydrapair-backend/controllers"
	"hydrapair-backend/services"
	"hydrapair-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries the explicitly constructed handles the routes wire into
// controllers.
type Deps struct {
	DB       *gorm.DB
	Push     *services.PushService
	Broker   *services.Broker
	Notifier services.NotificationCapability
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	authController := &controllers.AuthController{DB: deps.DB}
	pairingController := &controllers.PairingController{DB: deps.DB}
	reminderController := &controllers.ReminderController{DB: deps.DB, Push: deps.Push, Broker: deps.Broker}
	notificationController := &controllers.NotificationController{DB: deps.DB, Push: deps.Push}
	streamController := &controllers.StreamController{DB: deps.DB, Broker: deps.Broker, Notifier: deps.Notifier}

	auth := r.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", authController.Me)
	}

	// The relay is an internal hop for the dispatcher and carries no user
	// session of its own.
	r.POST("/api/notifications/send", notificationController.Send)

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		api.POST("/pair", pairingController.Pair)

		reminders := api.Group("/reminders")
		{
			reminders.POST("", reminderController.Send)
			reminders.GET("", reminderController.List)
			reminders.PUT("/:id/acknowledge", reminderController.Acknowledge)
			reminders.GET("/stream", streamController.Stream)
		}

		push := api.Group("/push")
		{
			push.POST("/subscribe", notificationController.Subscribe)
			push.DELETE("/subscribe", notificationController.Unsubscribe)
			push.GET("/vapid-public-key", notificationController.VAPIDPublicKey)
		}
	}

	return r
}

func allowedOrigins() []string {
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		parts := strings.Split(env, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return []string{"http://localhost:3000"}
}
