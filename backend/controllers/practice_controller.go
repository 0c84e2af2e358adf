package controllers

import (
	"sangha/backend/config"
	"sangha/backend/models"
	"sangha/backend/services"
	"sangha/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type PracticeController struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Stats   *services.StatsAggregator
	Ledger  *services.HistoryLedger
	Ranking *services.RankingCalculator
	Clock   services.Clock
}

func NewPracticeController(db *gorm.DB, cfg *config.Config, stats *services.StatsAggregator, ledger *services.HistoryLedger, ranking *services.RankingCalculator, clock services.Clock) *PracticeController {
	return &PracticeController{DB: db, Cfg: cfg, Stats: stats, Ledger: ledger, Ranking: ranking, Clock: clock}
}

// AddMinutes godoc
// @Summary Log practice minutes
// @Description Adds minutes to one activity for the current day
// @Tags practice
// @Accept json
// @Produce json
// @Param input body map[string]interface{} true "Activity and minutes"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /practice/minutes [post]
func (pc *PracticeController) AddMinutes(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Activity models.ActivityKind `json:"activity"`
		Minutes  int                 `json:"minutes"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if !input.Activity.Valid() {
		return utils.BadRequest(c, "Unknown activity")
	}
	if input.Minutes <= 0 {
		return utils.BadRequest(c, "Minutes must be positive")
	}

	pc.Stats.AddMinutes(userID, input.Activity, input.Minutes)

	minutes, total := pc.Stats.Totals(userID)
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"date":    services.Today(pc.Clock),
		"minutes": minutes,
		"total":   total,
	})
}

// Today godoc
// @Summary Get today's stats
// @Description Returns the member's per-activity minutes for the current day
// @Tags practice
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /practice/today [get]
func (pc *PracticeController) Today(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	minutes, total := pc.Stats.Totals(userID)
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"date":    services.Today(pc.Clock),
		"minutes": minutes,
		"total":   total,
	})
}

// History godoc
// @Summary Get 7-day history
// @Description Returns the member's daily totals for the trailing week
// @Tags practice
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /practice/history [get]
func (pc *PracticeController) History(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"history": pc.Ledger.Load(userID),
	})
}

// Rank godoc
// @Summary Get today's rank percentile
// @Description Returns the member's percentile among all members today
// @Tags practice
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /practice/rank [get]
func (pc *PracticeController) Rank(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"date":       services.Today(pc.Clock),
		"percentile": pc.Ranking.RankPercentile(userID),
	})
}
