package controllers

import (
	"errors"

	"sangha/backend/config"
	"sangha/backend/models"
	"sangha/backend/services"
	"sangha/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type WeeklyController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Weekly *services.WeeklyTracker
	Clock  services.Clock
}

func NewWeeklyController(db *gorm.DB, cfg *config.Config, weekly *services.WeeklyTracker, clock services.Clock) *WeeklyController {
	return &WeeklyController{DB: db, Cfg: cfg, Weekly: weekly, Clock: clock}
}

// actor resolves the authenticated user and whether they act elevated.
func (wc *WeeklyController) actor(c *fiber.Ctx) (*models.User, bool, error) {
	userID, err := utils.ExtractUserIDFromToken(c, wc.Cfg)
	if err != nil {
		return nil, false, err
	}

	var user models.User
	if err := wc.DB.First(&user, userID).Error; err != nil {
		return nil, false, err
	}
	return &user, user.Role == "admin", nil
}

// State godoc
// @Summary Get weekly state
// @Description Returns leave and check-in state for the current week
// @Tags weekly
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /weekly/state [get]
func (wc *WeeklyController) State(c *fiber.Ctx) error {
	user, _, err := wc.actor(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	weekRange := services.WeekRange(wc.Clock)
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"week_range": weekRange,
		"state":      wc.Weekly.State(user.ID, weekRange),
	})
}

// RequestLeave godoc
// @Summary Request weekly leave
// @Description Puts the member on leave for the current week
// @Tags weekly
// @Accept json
// @Produce json
// @Param input body map[string]interface{} true "Leave reason"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /weekly/leave [post]
func (wc *WeeklyController) RequestLeave(c *fiber.Ctx) error {
	user, elevated, err := wc.actor(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	name := user.DisplayName
	if name == "" {
		name = user.Username
	}

	state, err := wc.Weekly.RequestLeave(user.ID, name, services.WeekRange(wc.Clock), input.Reason, elevated)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"state": state})
}

// RevokeLeave godoc
// @Summary Revoke weekly leave
// @Description Cancels the active leave; allowed once per week
// @Tags weekly
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /weekly/leave/revoke [post]
func (wc *WeeklyController) RevokeLeave(c *fiber.Ctx) error {
	user, elevated, err := wc.actor(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	state, err := wc.Weekly.RevokeLeave(user.ID, services.WeekRange(wc.Clock), elevated)
	if err != nil {
		if errors.Is(err, services.ErrRevokeUsed) {
			return utils.Conflict(c, err.Error())
		}
		return utils.BadRequest(c, err.Error())
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"state": state})
}

// CheckIn godoc
// @Summary Check in for a session
// @Description Records online or offline attendance for the current week
// @Tags weekly
// @Accept json
// @Produce json
// @Param input body map[string]interface{} true "Check-in mode"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /weekly/checkin [post]
func (wc *WeeklyController) CheckIn(c *fiber.Ctx) error {
	user, elevated, err := wc.actor(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Mode models.CheckInStatus `json:"mode"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	name := user.DisplayName
	if name == "" {
		name = user.Username
	}

	state, err := wc.Weekly.CheckIn(user.ID, name, services.WeekRange(wc.Clock), input.Mode, elevated)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"state": state})
}
