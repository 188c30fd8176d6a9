package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"

	config "github.com/ndegwakip/huduma_hub/configs"
	"github.com/ndegwakip/huduma_hub/database"
	"github.com/ndegwakip/huduma_hub/handlers"
	"github.com/ndegwakip/huduma_hub/jobs"
	"github.com/ndegwakip/huduma_hub/notifications"
	"github.com/ndegwakip/huduma_hub/payments"
	"github.com/ndegwakip/huduma_hub/routes"
	"github.com/ndegwakip/huduma_hub/services"
	"github.com/ndegwakip/huduma_hub/websocket"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()
	notifications.InitEmailService()

	store := database.NewStore(database.DB)
	gateway := payments.NewRazorpayClient()

	bookingCfg := services.BookingConfig{
		ServiceFeeRate:        config.ConfigFloat("SERVICE_FEE_RATE", 0.10),
		ProfessionalShareRate: config.ConfigFloat("PROFESSIONAL_SHARE_RATE", 0.80),
		Currency:              "KES",
	}
	if currency := config.Config("CURRENCY"); currency != "" {
		bookingCfg.Currency = currency
	}

	assignmentService := services.NewAssignmentService(store)
	bookingService := services.NewBookingService(store, assignmentService, bookingCfg)
	paymentService := services.NewPaymentService(store, gateway, bookingCfg.Currency)

	handlers.Init(bookingService, paymentService, assignmentService)
	jobs.Init(bookingService)

	c := cron.New()
	c.AddFunc("*/5 * * * *", jobs.ExpireStaleBookings)
	c.AddFunc("*/5 * * * *", jobs.SendBookingReminders)
	go c.Start()
	log.Println("✅ Cron jobs scheduled successfully.")

	app := fiber.New(fiber.Config{
		Prefork:           false,
		AppName:           "Huduma Hub",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: true,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization, Content-Disposition",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Africa/Nairobi",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Huduma Hub API",
		})
	})

	routes.PublicRoutes(app)
	routes.AuthRoutes(app)
	routes.BookingRoutes(app)
	routes.PaymentRoutes(app)
	routes.ProfessionalRoutes(app)
	routes.AdminRoutes(app)
	routes.UploadRoutes(app)
	routes.WsRoutes(app)

	go websocket.RunHub()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	port := config.Config("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("✅ Server is running on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
