package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ndegwakip/huduma_hub/handlers"
	"github.com/ndegwakip/huduma_hub/middleware"
)

func AdminRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())

	admin.Get("/applications/pending", handlers.ListPendingApplications)
	admin.Put("/applications/:professionalId", handlers.ManageApplication)
	admin.Get("/dashboard-analytics", handlers.GetDashboardAnalytics)

	bookings := admin.Group("/bookings")
	bookings.Get("", handlers.AdminGetAllBookings)
	bookings.Post("/:bookingId/assign", handlers.AdminAssignProfessional)
	bookings.Post("/:bookingId/transition", handlers.AdminForceTransition)
	bookings.Post("/:bookingId/cancel", handlers.AdminCancelBooking)

	admin.Get("/payments", handlers.AdminGetPayments)
	admin.Get("/refund-queue", handlers.ListRefundQueue)
	admin.Post("/payments/:paymentId/refund", handlers.AdminIssueRefund)

	admin.Get("/payout-requests", handlers.ListPayoutRequests)
	admin.Post("/payout-requests/:requestId/process", handlers.ProcessPayout)

	services := admin.Group("/services")
	services.Post("", handlers.AdminCreateService)
	services.Put("/:serviceId", handlers.AdminUpdateService)
	services.Delete("/:serviceId", handlers.AdminDeactivateService)

	users := admin.Group("/users")
	users.Get("", handlers.GetAllUsers)
	users.Put("/:userId/status", handlers.SetUserStatus)

	admin.Get("/audit-log", handlers.ListAuditLog)

	reports := admin.Group("/reports")
	reports.Get("/transactions", handlers.GenerateTransactionReport)
}
