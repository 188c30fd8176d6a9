package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ndegwakip/huduma_hub/database"
	"github.com/ndegwakip/huduma_hub/models"
	"github.com/ndegwakip/huduma_hub/notifications"
	ws "github.com/ndegwakip/huduma_hub/websocket"
)

type AssignProfessionalRequest struct {
	ProfessionalID string `json:"professional_id" validate:"required,uuid"`
}

// AdminAssignProfessional attaches a professional to an unassigned pending
// booking. If the booking was already paid it confirms in the same step.
func AdminAssignProfessional(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	var req AssignProfessionalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	professionalID, _ := uuid.Parse(req.ProfessionalID)

	booking, err := bookingEngine.AssignProfessional(c.Context(), bookingID, professionalID, actor)
	if err != nil {
		return serviceError(c, err)
	}

	ws.PublishBookingStatus(booking)
	if booking.Status == models.BookingConfirmed {
		go notifyBookingConfirmed(booking.ID)
	}
	return c.JSON(booking)
}

type ForceTransitionRequest struct {
	Target string `json:"target" validate:"required,oneof=confirmed in_progress completed"`
}

// AdminForceTransition drives one legal edge on behalf of an admin.
// Cancellation and refund have their own endpoints because they carry
// extra required data.
func AdminForceTransition(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking ID"})
	}

	var req ForceTransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	booking, err := bookingEngine.Transition(c.Context(), bookingID, models.BookingStatus(req.Target), actor)
	if err != nil {
		return serviceError(c, err)
	}

	ws.PublishBookingStatus(booking)
	return c.JSON(booking)
}

// AdminCancelBooking cancels on behalf of the platform, reason required.
func AdminCancelBooking(c *fiber.Ctx) error {
	return CancelBooking(c)
}

func ListPendingApplications(c *fiber.Ctx) error {
	var applications []models.Professional
	if err := database.DB.Where("status = ?", "pending").Preload("User").Order("created_at asc").Find(&applications).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch applications"})
	}
	return c.JSON(applications)
}

type ManageApplicationRequest struct {
	Status string `json:"status" validate:"required,oneof=active rejected"`
	Notes  string `json:"notes"`
}

// ManageApplication approves or rejects a provider application. Approval
// flips the account role to professional and marks the profile verified.
func ManageApplication(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req ManageApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	professionalUserID, err := uuid.Parse(c.Params("professionalId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid professional ID"})
	}

	var application models.Professional
	if err := database.DB.Where("user_id = ?", professionalUserID).First(&application).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Application not found"})
	}
	if application.Status != "pending" {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Application already processed"})
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", professionalUserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Associated user not found"})
	}

	actionType := models.ActionRejectProfessional
	if req.Status == "active" {
		actionType = models.ActionApproveProfessional
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		application.Status = req.Status
		application.IsVerified = req.Status == "active"
		if err := tx.Save(&application).Error; err != nil {
			return err
		}
		if req.Status == "active" {
			user.Role = models.RoleProfessional
			if err := tx.Save(&user).Error; err != nil {
				return err
			}
		}
		return tx.Create(&models.AdminAction{
			ActorID:     actor.ID,
			ActionType:  actionType,
			TargetType:  "professional",
			TargetID:    professionalUserID,
			Description: req.Notes,
		}).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process application"})
	}

	subject := "Your Huduma Hub application"
	body := "<h1>Application Update</h1><p>Unfortunately your provider application was not approved at this time.</p>"
	if req.Status == "active" {
		body = "<h1>Welcome aboard!</h1><p>Your provider application has been approved. Set up your service offerings to start receiving jobs.</p>"
	}
	go notifications.SendEmail(user.FullName, user.Email, subject, body)

	return c.JSON(fiber.Map{"message": "Application processed", "status": req.Status})
}

type UserStatusRequest struct {
	IsActive bool   `json:"is_active"`
	Reason   string `json:"reason"`
}

// SetUserStatus suspends or reactivates an account, with an audit record.
func SetUserStatus(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var req UserStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	actionType := models.ActionSuspendUser
	if req.IsActive {
		actionType = models.ActionActivateUser
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", userID).Update("is_active", req.IsActive)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(&models.AdminAction{
			ActorID:     actor.ID,
			ActionType:  actionType,
			TargetType:  "user",
			TargetID:    userID,
			Description: req.Reason,
		}).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update user status"})
	}

	return c.JSON(fiber.Map{"message": "User status updated successfully."})
}

func GetAllUsers(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset := (page - 1) * limit

	var users []models.User
	var total int64

	query := database.DB.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	query.Count(&total)
	query.Order("created_at desc").Offset(offset).Limit(limit).Find(&users)

	return c.JSON(fiber.Map{
		"data": users,
		"meta": fiber.Map{
			"total":     total,
			"page":      page,
			"last_page": int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// ListRefundQueue returns completed payments whose bookings were cancelled,
// waiting on an admin to push the money back.
func ListRefundQueue(c *fiber.Ctx) error {
	var payments []models.Payment
	err := database.DB.
		Preload("Booking").
		Preload("Booking.Customer").
		Where("refund_eligible = ? AND status = ?", true, models.PaymentCompleted).
		Order("created_at asc").
		Find(&payments).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch refund queue"})
	}
	return c.JSON(payments)
}

type RefundRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,min=1"`
	Reason      string `json:"reason" validate:"required,min=3"`
}

// AdminIssueRefund pushes a full or partial refund through the gateway and
// settles the payment and booking.
func AdminIssueRefund(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	paymentID, err := uuid.Parse(c.Params("paymentId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID"})
	}

	var req RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payment, err := paymentEngine.IssueRefund(c.Context(), paymentID, req.AmountCents, req.Reason, actor)
	if err != nil {
		return serviceError(c, err)
	}

	var booking models.Booking
	if err := database.DB.Preload("Customer").First(&booking, "id = ?", payment.BookingID).Error; err == nil {
		ws.PublishBookingStatus(&booking)
		go notifications.SendEmail(
			booking.Customer.FullName, booking.Customer.Email,
			"Your refund has been processed",
			fmt.Sprintf("<h1>Refund Processed</h1><p>A refund of %s %.2f for booking <b>%s</b> is on its way back to your payment method.</p>",
				payment.Currency, float64(payment.RefundAmountCents)/100, booking.Reference),
		)
	}

	return c.JSON(payment)
}

func ListPayoutRequests(c *fiber.Ctx) error {
	var requests []models.PayoutRequest
	query := database.DB.Preload("Professional").Preload("Professional.User").Order("requested_at asc")
	if status := c.Query("status", "pending"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&requests).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch payout requests"})
	}
	return c.JSON(requests)
}

type ProcessPayoutRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Notes    string `json:"notes"`
}

// ProcessPayout approves or rejects a withdrawal. Rejection restores the
// balance that was debited when the request was made.
func ProcessPayout(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	requestID, err := uuid.Parse(c.Params("requestId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request ID"})
	}

	var req ProcessPayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var payout models.PayoutRequest
	if err := database.DB.First(&payout, "id = ?", requestID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payout request not found"})
	}
	if payout.Status != "pending" {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Payout request already processed"})
	}

	newStatus := "rejected"
	if req.Decision == "approve" {
		newStatus = "paid"
	}
	now := time.Now()

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PayoutRequest{}).
			Where("id = ? AND status = ?", requestID, "pending").
			Updates(map[string]interface{}{
				"status":       newStatus,
				"admin_notes":  req.Notes,
				"processed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if req.Decision == "reject" {
			if err := tx.Model(&models.Professional{}).
				Where("user_id = ?", payout.ProfessionalID).
				Update("current_balance_cents", gorm.Expr("current_balance_cents + ?", payout.AmountCents)).Error; err != nil {
				return err
			}
		}

		return tx.Create(&models.AdminAction{
			ActorID:     actor.ID,
			ActionType:  models.ActionProcessPayout,
			TargetType:  "payout_request",
			TargetID:    requestID,
			Description: fmt.Sprintf("%s: %s", req.Decision, req.Notes),
		}).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Payout request already processed"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process payout"})
	}

	return c.JSON(fiber.Map{"message": "Payout request processed", "status": newStatus})
}

func AdminGetAllBookings(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	status := c.Query("status")
	offset := (page - 1) * limit

	var bookings []models.Booking
	var totalBookings int64

	query := database.DB.Model(&models.Booking{})
	countQuery := database.DB.Model(&models.Booking{})

	if status != "" {
		query = query.Where("status = ?", status)
		countQuery = countQuery.Where("status = ?", status)
	}
	if c.Query("unassigned") == "true" {
		query = query.Where("professional_id IS NULL")
		countQuery = countQuery.Where("professional_id IS NULL")
	}

	countQuery.Count(&totalBookings)
	query.Order("created_at desc").Offset(offset).Limit(limit).
		Preload("Customer").Preload("Professional").Preload("Service").
		Find(&bookings)

	return c.JSON(fiber.Map{
		"data": bookings,
		"meta": fiber.Map{
			"total":     totalBookings,
			"page":      page,
			"last_page": int(math.Ceil(float64(totalBookings) / float64(limit))),
		},
	})
}

func AdminGetPayments(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	offset := (page - 1) * limit

	var payments []models.Payment
	var total int64

	query := database.DB.Model(&models.Payment{})
	countQuery := database.DB.Model(&models.Payment{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
		countQuery = countQuery.Where("status = ?", status)
	}

	countQuery.Count(&total)
	query.Order("created_at desc").Offset(offset).Limit(limit).
		Preload("Booking").Preload("Booking.Customer").
		Find(&payments)

	return c.JSON(fiber.Map{
		"data": payments,
		"meta": fiber.Map{
			"total":     total,
			"page":      page,
			"last_page": int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// ListAuditLog pages through the append-only admin action trail.
func ListAuditLog(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset := (page - 1) * limit

	var actions []models.AdminAction
	var total int64

	query := database.DB.Model(&models.AdminAction{})
	countQuery := database.DB.Model(&models.AdminAction{})
	if actionType := c.Query("action_type"); actionType != "" {
		query = query.Where("action_type = ?", actionType)
		countQuery = countQuery.Where("action_type = ?", actionType)
	}
	if actorID := c.Query("actor_id"); actorID != "" {
		query = query.Where("actor_id = ?", actorID)
		countQuery = countQuery.Where("actor_id = ?", actorID)
	}

	countQuery.Count(&total)
	query.Order("created_at desc").Offset(offset).Limit(limit).Find(&actions)

	return c.JSON(fiber.Map{
		"data": actions,
		"meta": fiber.Map{
			"total":     total,
			"page":      page,
			"last_page": int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

type DashboardAnalyticsResponse struct {
	TotalCustomers          int64            `json:"total_customers"`
	TotalActiveProfessional int64            `json:"total_active_professionals"`
	TotalRevenueCents       int64            `json:"total_revenue_cents"`
	BookingsLast30Days      int64            `json:"bookings_last_30_days"`
	PendingApplications     int64            `json:"pending_applications"`
	RefundQueueSize         int64            `json:"refund_queue_size"`
	RecentBookings          []models.Booking `json:"recent_bookings"`
}

func GetDashboardAnalytics(c *fiber.Ctx) error {
	var response DashboardAnalyticsResponse

	database.DB.Model(&models.User{}).Where("role = ?", models.RoleCustomer).Count(&response.TotalCustomers)

	database.DB.Model(&models.Professional{}).Where("status = ?", "active").Count(&response.TotalActiveProfessional)

	database.DB.Model(&models.Payment{}).Where("status = ?", models.PaymentCompleted).
		Select("COALESCE(SUM(amount_cents - refund_amount_cents), 0)").Row().Scan(&response.TotalRevenueCents)

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	database.DB.Model(&models.Booking{}).Where("created_at > ?", thirtyDaysAgo).Count(&response.BookingsLast30Days)

	database.DB.Model(&models.Professional{}).Where("status = ?", "pending").Count(&response.PendingApplications)

	database.DB.Model(&models.Payment{}).
		Where("refund_eligible = ? AND status = ?", true, models.PaymentCompleted).
		Count(&response.RefundQueueSize)

	database.DB.Order("created_at desc").Limit(5).Preload("Customer").Preload("Professional").Preload("Service").Find(&response.RecentBookings)

	return c.JSON(response)
}

func GenerateTransactionReport(c *fiber.Ctx) error {
	startDateStr := c.Query("start_date", time.Now().AddDate(0, -1, 0).Format("2006-01-02"))
	endDateStr := c.Query("end_date", time.Now().Format("2006-01-02"))

	startDate, err := time.Parse("2006-01-02", startDateStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start_date format. Use YYYY-MM-DD."})
	}
	endDate, err := time.Parse("2006-01-02", endDateStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end_date format. Use YYYY-MM-DD."})
	}
	endDate = endDate.Add(23*time.Hour + 59*time.Minute + 59*time.Second)

	var payments []models.Payment
	database.DB.
		Preload("Booking").
		Preload("Booking.Customer").
		Preload("Booking.Service").
		Where("status IN ? AND created_at BETWEEN ? AND ?",
			[]models.PaymentStatus{models.PaymentCompleted, models.PaymentRefunded}, startDate, endDate).
		Order("created_at desc").
		Find(&payments)

	b := new(bytes.Buffer)
	w := csv.NewWriter(b)

	headers := []string{"Payment ID", "Date", "Customer", "Service", "Booking Ref", "Status", "Amount", "Refunded", "Currency", "Gateway Order ID"}
	if err := w.Write(headers); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to write CSV header"})
	}

	for _, p := range payments {
		row := []string{
			p.ID.String(),
			p.CreatedAt.Format("2006-01-02 15:04"),
			p.Booking.Customer.FullName,
			p.Booking.Service.Name,
			p.Booking.Reference,
			string(p.Status),
			fmt.Sprintf("%.2f", float64(p.AmountCents)/100),
			fmt.Sprintf("%.2f", float64(p.RefundAmountCents)/100),
			p.Currency,
			p.GatewayOrderID,
		}
		if err := w.Write(row); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to write CSV row"})
		}
	}
	w.Flush()

	filename := fmt.Sprintf("transactions_%s_to_%s.csv", startDateStr, endDateStr)
	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	return c.Send(b.Bytes())
}
