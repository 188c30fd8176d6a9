package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ndegwakip/huduma_hub/database"
	"github.com/ndegwakip/huduma_hub/models"
)

func ListServices(c *fiber.Ctx) error {
	var services []models.Service
	query := database.DB.Where("is_active = ?", true)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Order("name asc").Find(&services).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch services"})
	}
	return c.JSON(services)
}

func GetService(c *fiber.Ctx) error {
	serviceID, err := uuid.Parse(c.Params("serviceId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid service ID"})
	}

	var service models.Service
	if err := database.DB.First(&service, "id = ? AND is_active = ?", serviceID, true).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Service not found"})
	}
	return c.JSON(service)
}

// ListProfessionalsForService returns active, verified professionals
// currently offering a service, so customers can pick one at booking time.
func ListProfessionalsForService(c *fiber.Ctx) error {
	serviceID, err := uuid.Parse(c.Params("serviceId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid service ID"})
	}

	var offerings []models.ProfessionalService
	err = database.DB.
		Joins("JOIN professionals ON professionals.user_id = professional_services.professional_id").
		Where("professional_services.service_id = ? AND professional_services.is_available = ?", serviceID, true).
		Where("professionals.status = ? AND professionals.is_verified = ?", "active", true).
		Preload("Professional").
		Preload("Professional.User").
		Find(&offerings).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch professionals"})
	}

	type entry struct {
		ProfessionalID  uuid.UUID `json:"professional_id"`
		FullName        string    `json:"full_name"`
		Headline        *string   `json:"headline"`
		AvgRating       float32   `json:"avg_rating"`
		PriceCents      *int64    `json:"price_cents"`
		DurationMinutes *int      `json:"duration_minutes"`
	}
	results := make([]entry, 0, len(offerings))
	for _, o := range offerings {
		results = append(results, entry{
			ProfessionalID:  o.ProfessionalID,
			FullName:        o.Professional.User.FullName,
			Headline:        o.Professional.Headline,
			AvgRating:       o.Professional.AvgRating,
			PriceCents:      o.PriceCents,
			DurationMinutes: o.DurationMinutes,
		})
	}
	return c.JSON(results)
}

type ServiceRequest struct {
	Name                string  `json:"name" validate:"required,max=255"`
	Description         *string `json:"description,omitempty"`
	Category            *string `json:"category,omitempty"`
	BasePriceCents      int64   `json:"base_price_cents" validate:"required,min=1"`
	BaseDurationMinutes int     `json:"base_duration_minutes" validate:"required,min=15"`
}

func AdminCreateService(c *fiber.Ctx) error {
	var req ServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	service := models.Service{
		Name:                req.Name,
		Description:         req.Description,
		Category:            req.Category,
		BasePriceCents:      req.BasePriceCents,
		BaseDurationMinutes: req.BaseDurationMinutes,
		IsActive:            true,
	}
	if err := database.DB.Create(&service).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create service"})
	}
	return c.Status(fiber.StatusCreated).JSON(service)
}

func AdminUpdateService(c *fiber.Ctx) error {
	serviceID, err := uuid.Parse(c.Params("serviceId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid service ID"})
	}

	var req ServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var service models.Service
	if err := database.DB.First(&service, "id = ?", serviceID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Service not found"})
	}

	service.Name = req.Name
	service.Description = req.Description
	service.Category = req.Category
	service.BasePriceCents = req.BasePriceCents
	service.BaseDurationMinutes = req.BaseDurationMinutes

	if err := database.DB.Save(&service).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update service"})
	}
	return c.JSON(service)
}

// AdminDeactivateService hides a service from the catalog. Existing
// bookings keep their price snapshots and are unaffected.
func AdminDeactivateService(c *fiber.Ctx) error {
	serviceID, err := uuid.Parse(c.Params("serviceId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid service ID"})
	}

	res := database.DB.Model(&models.Service{}).Where("id = ?", serviceID).Update("is_active", false)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to deactivate service"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Service not found"})
	}
	return c.JSON(fiber.Map{"message": "Service deactivated"})
}

type AddressRequest struct {
	Label string  `json:"label" validate:"required,max=50"`
	Line1 string  `json:"line1" validate:"required,max=255"`
	Line2 *string `json:"line2,omitempty"`
	City  string  `json:"city" validate:"required,max=100"`
	Notes *string `json:"notes,omitempty"`
}

func CreateAddress(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req AddressRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	address := models.Address{
		UserID: userID,
		Label:  req.Label,
		Line1:  req.Line1,
		Line2:  req.Line2,
		City:   req.City,
		Notes:  req.Notes,
	}
	if err := database.DB.Create(&address).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save address"})
	}
	return c.Status(fiber.StatusCreated).JSON(address)
}

func ListMyAddresses(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var addresses []models.Address
	if err := database.DB.Where("user_id = ?", userID).Order("created_at desc").Find(&addresses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch addresses"})
	}
	return c.JSON(addresses)
}

func DeleteAddress(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	addressID, err := uuid.Parse(c.Params("addressId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid address ID"})
	}

	res := database.DB.Where("id = ? AND user_id = ?", addressID, userID).Delete(&models.Address{})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete address"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Address not found"})
	}
	return c.JSON(fiber.Map{"message": "Address deleted"})
}
