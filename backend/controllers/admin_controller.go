package controllers

import (
	"sangha/backend/config"
	"sangha/backend/models"
	"sangha/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AdminController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAdminController(db *gorm.DB, cfg *config.Config) *AdminController {
	return &AdminController{DB: db, Cfg: cfg}
}

// GetConfig godoc
// @Summary Get global configuration
// @Description Returns all admin-controlled config records and quotas,
// @Description replicated to every client
// @Tags config
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /config [get]
func (ac *AdminController) GetConfig(c *fiber.Ctx) error {
	var configs []models.GlobalConfig
	if err := ac.DB.Find(&configs).Error; err != nil {
		return utils.InternalServerError(c, "Could not load config")
	}

	entries := make(map[string]string, len(configs))
	for _, cfg := range configs {
		entries[cfg.Key] = cfg.Content
	}

	var quotas []models.ActivityQuota
	if err := ac.DB.Order("activity").Find(&quotas).Error; err != nil {
		return utils.InternalServerError(c, "Could not load quotas")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"config": entries,
		"quotas": quotas,
	})
}

// SetConfig godoc
// @Summary Upsert a global config record
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/config/{key} [put]
func (ac *AdminController) SetConfig(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return utils.BadRequest(c, "Config key is required")
	}

	var input struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	record := models.GlobalConfig{Key: key, Content: input.Content}
	err := ac.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return utils.InternalServerError(c, "Could not save config")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"key": key})
}

// SetQuota godoc
// @Summary Upsert a daily activity quota
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/quotas [put]
func (ac *AdminController) SetQuota(c *fiber.Ctx) error {
	var input struct {
		Activity     models.ActivityKind `json:"activity"`
		DailyMinutes int                 `json:"daily_minutes"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if !input.Activity.Valid() {
		return utils.BadRequest(c, "Unknown activity")
	}
	if input.DailyMinutes < 0 {
		return utils.BadRequest(c, "Daily minutes must not be negative")
	}

	quota := models.ActivityQuota{Activity: input.Activity, DailyMinutes: input.DailyMinutes}
	err := ac.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "activity"}},
		DoUpdates: clause.AssignmentColumns([]string{"daily_minutes", "updated_at"}),
	}).Create(&quota).Error
	if err != nil {
		return utils.InternalServerError(c, "Could not save quota")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"quota": quota})
}
