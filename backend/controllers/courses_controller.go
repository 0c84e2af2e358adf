package controllers

import (
	"sangha/backend/config"
	"sangha/backend/models"
	"sangha/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CoursesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewCoursesController(db *gorm.DB, cfg *config.Config) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg}
}

// GetCourses godoc
// @Summary List published courses
// @Description Returns course titles and summaries visible to members
// @Tags courses
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses [get]
func (cc *CoursesController) GetCourses(c *fiber.Ctx) error {
	var courses []models.Course
	if err := cc.DB.Where("published = ?", true).Order("created_at DESC").Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Could not load courses")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"courses": courses})
}

// GetCourse godoc
// @Summary Get course content
// @Tags courses
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id} [get]
func (cc *CoursesController) GetCourse(c *fiber.Ctx) error {
	var course models.Course
	if err := cc.DB.Where("published = ?", true).First(&course, c.Params("id")).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"course": course})
}

// CreateCourse godoc
// @Summary Create a course
// @Tags admin
// @Accept json
// @Produce json
// @Param course body models.Course true "Course data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/courses [post]
func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var course models.Course
	if err := c.BodyParser(&course); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if course.Title == "" {
		return utils.BadRequest(c, "Title is required")
	}
	course.AuthorID = userID

	if err := cc.DB.Create(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not create course")
	}
	return utils.Created(c, fiber.Map{"course": course})
}

// UpdateCourse godoc
// @Summary Update a course
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/courses/{id} [put]
func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	var course models.Course
	if err := cc.DB.First(&course, c.Params("id")).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	var input struct {
		Title     *string `json:"title"`
		ShortDesc *string `json:"short_desc"`
		Body      *string `json:"body"`
		Published *bool   `json:"published"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if input.Title != nil {
		course.Title = *input.Title
	}
	if input.ShortDesc != nil {
		course.ShortDesc = *input.ShortDesc
	}
	if input.Body != nil {
		course.Body = *input.Body
	}
	if input.Published != nil {
		course.Published = *input.Published
	}

	if err := cc.DB.Save(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not update course")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"course": course})
}
