package main

import (
	"fmt"
	"log"
	"os"

	"hydrapair-backend/config"
	"hydrapair-backend/models"
	"hydrapair-backend/routes"
	"hydrapair-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	db, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Profile{},
		&models.WaterReminder{},
		&models.DeliveryLog{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	push := services.NewPushService(db, config.LoadPushConfig())
	broker := services.NewBroker()

	notifier := &services.LogNotifier{}
	notifier.RequestPermission()

	if os.Getenv("NUDGE_ENABLED") != "false" {
		nudges := services.NewNudgeService(db, push)
		nudges.StartScheduler()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	r := routes.SetupRouter(routes.Deps{
		DB:       db,
		Push:     push,
		Broker:   broker,
		Notifier: notifier,
	})
	printRoutes(r)
	r.Run(":" + port)
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
