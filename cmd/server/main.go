package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/kisanmitra/farm-assistant-backend/internal/database"
	"github.com/kisanmitra/farm-assistant-backend/internal/handlers"
	"github.com/kisanmitra/farm-assistant-backend/internal/services"
	"github.com/kisanmitra/farm-assistant-backend/internal/store"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize database
	if err := database.Connect(); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Disconnect()

	// Reference tables load once; missing files just leave them empty.
	cropPath := envOr("CROP_DATA_PATH", "data/crop_recommendation.csv")
	pricePath := envOr("MARKET_DATA_PATH", "data/market_prices.csv")
	refData := services.LoadRefData(cropPath, pricePath)

	gemini, err := services.NewGeminiService(context.Background())
	if err != nil {
		log.Fatal("Failed to init Gemini client:", err)
	}
	tts := services.NewTTSService(gemini)

	turns := store.NewTurnStore(database.GetCollection("turns"))
	assembler := services.NewAssembler(turns, refData)
	h := handlers.New(gemini, tts, turns, assembler, refData)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    16 * 1024 * 1024, // image uploads
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: os.Getenv("FRONTEND_URL"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	// Routes
	api := app.Group("/api/v1")
	api.Use(handlers.AuthMiddleware)

	api.Post("/chat", h.Chat)
	api.Post("/voice", h.Voice)
	api.Post("/diagnose", h.Diagnose)
	api.Post("/extract-soil", h.ExtractSoil)
	api.Post("/recommend", h.Recommend)
	api.Get("/history", h.History)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("GEMINI_API_KEY present: %v", os.Getenv("GEMINI_API_KEY") != "")
	log.Printf("GEMINI_MODEL: %s", os.Getenv("GEMINI_MODEL"))

	log.Printf("Server starting on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
