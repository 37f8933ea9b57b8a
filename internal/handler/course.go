package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-marketplace/internal/cache"
	"github.com/iliyamo/course-marketplace/internal/media"
	"github.com/iliyamo/course-marketplace/internal/middleware"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/repository"
)

// CourseHandler covers the catalog: admin create/edit, public read-through
// cached reads, purchaser content access, questions and reviews.  The cache
// holds sanitized snapshots (what public reads serve); every catalog
// mutation rewrites the per-course entry and drops the all-courses
// aggregate so neither can silently diverge from storage.
type CourseHandler struct {
	Courses repository.CourseStore
	Catalog *cache.Store
	Media   media.Uploader
}

func NewCourseHandler(courses repository.CourseStore, catalog *cache.Store, m media.Uploader) *CourseHandler {
	return &CourseHandler{Courses: courses, Catalog: catalog, Media: m}
}

type courseReq struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Price          float64           `json:"price"`
	EstimatedPrice float64           `json:"estimatedPrice"`
	Thumbnail      string            `json:"thumbnail"`
	Tags           string            `json:"tags"`
	Level          string            `json:"level"`
	DemoURL        string            `json:"demoUrl"`
	Benefits       []model.TitleItem `json:"benefits"`
	Prerequisites  []model.TitleItem `json:"prerequisites"`
	Sections       []model.Section   `json:"courseData"`
}

type addQuestionReq struct {
	CourseID  string `json:"courseId"`
	ContentID string `json:"contentId"`
	Question  string `json:"question"`
}
type addAnswerReq struct {
	CourseID   string `json:"courseId"`
	ContentID  string `json:"contentId"`
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}
type addReviewReq struct {
	Rating  float64 `json:"rating"`
	Comment string  `json:"review"`
}
type addReviewReplyReq struct {
	CourseID string `json:"courseId"`
	ReviewID string `json:"reviewId"`
	Comment  string `json:"comment"`
}

// Create uploads the thumbnail (if any) and inserts the course.
func (h *CourseHandler) Create(c echo.Context) error {
	var req courseReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Description == "" || req.Price <= 0 || req.Tags == "" || req.Level == "" || req.DemoURL == "" {
		return fail(c, http.StatusBadRequest, "name, description, price, tags, level and demoUrl are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	course := model.Course{
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		EstimatedPrice: req.EstimatedPrice,
		Tags:           req.Tags,
		Level:          req.Level,
		DemoURL:        req.DemoURL,
		Benefits:       req.Benefits,
		Prerequisites:  req.Prerequisites,
		Reviews:        []model.Review{},
		Sections:       req.Sections,
	}
	if req.Thumbnail != "" {
		asset, err := h.Media.Upload(ctx, req.Thumbnail, "courses")
		if err != nil {
			return fail(c, http.StatusInternalServerError, "thumbnail upload failed")
		}
		course.Thumbnail = model.Avatar{PublicID: asset.PublicID, URL: asset.URL}
	}

	if err := h.Courses.Create(ctx, &course); err != nil {
		return fail(c, http.StatusInternalServerError, "create course failed")
	}
	// A new course invalidates the catalog aggregate.
	if err := h.Catalog.DeleteAllCourses(ctx); err != nil {
		return fail(c, http.StatusInternalServerError, "cache invalidation failed")
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "course": course})
}

// Edit patches the provided fields of an existing course, replacing the
// thumbnail when a new one is posted.
func (h *CourseHandler) Edit(c echo.Context) error {
	id := c.Param("id")
	var req courseReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	course, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "course not found")
		}
		return fail(c, http.StatusInternalServerError, "load course failed")
	}

	if req.Thumbnail != "" {
		if course.Thumbnail.PublicID != "" {
			_ = h.Media.Destroy(ctx, course.Thumbnail.PublicID)
		}
		asset, err := h.Media.Upload(ctx, req.Thumbnail, "courses")
		if err != nil {
			return fail(c, http.StatusInternalServerError, "thumbnail upload failed")
		}
		course.Thumbnail = model.Avatar{PublicID: asset.PublicID, URL: asset.URL}
	}
	if req.Name != "" {
		course.Name = req.Name
	}
	if req.Description != "" {
		course.Description = req.Description
	}
	if req.Price > 0 {
		course.Price = req.Price
	}
	if req.EstimatedPrice > 0 {
		course.EstimatedPrice = req.EstimatedPrice
	}
	if req.Tags != "" {
		course.Tags = req.Tags
	}
	if req.Level != "" {
		course.Level = req.Level
	}
	if req.DemoURL != "" {
		course.DemoURL = req.DemoURL
	}
	if req.Benefits != nil {
		course.Benefits = req.Benefits
	}
	if req.Prerequisites != nil {
		course.Prerequisites = req.Prerequisites
	}
	if req.Sections != nil {
		course.Sections = req.Sections
	}

	if err := h.Courses.Save(ctx, &course); err != nil {
		return fail(c, http.StatusInternalServerError, "update course failed")
	}
	if err := h.refreshCourseCache(ctx, course); err != nil {
		return fail(c, http.StatusInternalServerError, "cache update failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "course": course})
}

// GetOne serves a sanitized course through the read-through cache.
func (h *CourseHandler) GetOne(c echo.Context) error {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if cached, ok, err := h.Catalog.GetCourse(ctx, id); err == nil && ok {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "course": cached})
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "cache lookup failed")
	}

	course, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "course not found")
		}
		return fail(c, http.StatusInternalServerError, "load course failed")
	}
	sanitized := course.Sanitized()
	if err := h.Catalog.PutCourse(ctx, sanitized); err != nil {
		return fail(c, http.StatusInternalServerError, "cache update failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "course": sanitized})
}

// GetAll serves the sanitized catalog through the aggregate cache entry.
func (h *CourseHandler) GetAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if cached, ok, err := h.Catalog.GetAllCourses(ctx); err == nil && ok {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "courses": cached})
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "cache lookup failed")
	}

	courses, err := h.Courses.GetAll(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "load courses failed")
	}
	sanitized := make([]model.Course, len(courses))
	for i, course := range courses {
		sanitized[i] = course.Sanitized()
	}
	if err := h.Catalog.PutAllCourses(ctx, sanitized); err != nil {
		return fail(c, http.StatusInternalServerError, "cache update failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "courses": sanitized})
}

// GetContent serves the full section list, purchasers only.
func (h *CourseHandler) GetContent(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}
	id := c.Param("id")
	if !u.HasCourse(id) {
		return fail(c, http.StatusNotFound, "you are not eligible to access this course")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	course, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "course not found")
		}
		return fail(c, http.StatusInternalServerError, "load course failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "content": course.Sections})
}

// AddQuestion appends a learner question to a course section.
func (h *CourseHandler) AddQuestion(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}
	var req addQuestionReq
	if err := c.Bind(&req); err != nil || req.CourseID == "" || req.ContentID == "" || req.Question == "" {
		return fail(c, http.StatusBadRequest, "courseId, contentId and question are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	course, err := h.Courses.GetByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusBadRequest, "invalid course id")
		}
		return fail(c, http.StatusInternalServerError, "load course failed")
	}

	section := findSection(&course, req.ContentID)
	if section == nil {
		return fail(c, http.StatusBadRequest, "invalid content id")
	}
	section.Questions = append(section.Questions, model.Question{
		ID:       uuid.NewString(),
		UserID:   u.ID,
		UserName: u.Name,
		Text:     req.Question,
		Replies:  []model.Reply{},
		AskedAt:  time.Now().UTC(),
	})

	if err := h.Courses.Save(ctx, &course); err != nil {
		return fail(c, http.StatusInternalServerError, "update course failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "course": course})
}

// AddAnswer appends a reply to an existing question.
func (h *CourseHandler) AddAnswer(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}
	var req addAnswerReq
	if err := c.Bind(&req); err != nil || req.CourseID == "" || req.ContentID == "" || req.QuestionID == "" || req.Answer == "" {
		return fail(c, http.StatusBadRequest, "courseId, contentId, questionId and answer are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	course, err := h.Courses.GetByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusBadRequest, "invalid course id")
		}
		return fail(c, http.StatusInternalServerError, "load course failed")
	}

	section := findSection(&course, req.ContentID)
	if section == nil {
		return fail(c, http.StatusBadRequest, "invalid content id")
	}
	var question *model.Question
	for i := range section.Questions {
		if section.Questions[i].ID == req.QuestionID {
			question = &section.Questions[i]
			break
		}
	}
	if question == nil {
		return fail(c, http.StatusBadRequest, "invalid question id")
	}
	question.Replies = append(question.Replies, model.Reply{
		UserID:    u.ID,
		UserName:  u.Name,
		Text:      req.Answer,
		RepliedAt: time.Now().UTC(),
	})

	if err := h.Courses.Save(ctx, &course); err != nil {
		return fail(c, http.StatusInternalServerError, "update course failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "course": course})
}

// AddReview appends a purchaser review and recomputes the ratings average
// exactly (sum over count, never incremental).
func (h *CourseHandler) AddReview(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}
	id := c.Param("id")
	if !u.HasCourse(id) {
		return fail(c, http.StatusNotFound, "you are not eligible to review this course")
	}
	var req addReviewReq
	if err := c.Bind(&req); err != nil || req.Comment == "" {
		return fail(c, http.StatusBadRequest, "review and rating are required")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return fail(c, http.StatusBadRequest, "rating must be between 1 and 5")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	course, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "course not found")
		}
		return fail(c, http.StatusInternalServerError, "load course failed")
	}

	course.Reviews = append(course.Reviews, model.Review{
		ID:       uuid.NewString(),
		UserID:   u.ID,
		UserName: u.Name,
		Rating:   req.Rating,
		Comment:  req.Comment,
		Replies:  []model.Reply{},
		PostedAt: time.Now().UTC(),
	})
	course.RecomputeRatings()

	if err := h.Courses.Save(ctx, &course); err != nil {
		return fail(c, http.StatusInternalServerError, "update course failed")
	}
	if err := h.refreshCourseCache(ctx, course); err != nil {
		return fail(c, http.StatusInternalServerError, "cache update failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "course": course})
}

// AddReviewReply appends a staff reply to a review.
func (h *CourseHandler) AddReviewReply(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}
	var req addReviewReplyReq
	if err := c.Bind(&req); err != nil || req.CourseID == "" || req.ReviewID == "" || req.Comment == "" {
		return fail(c, http.StatusBadRequest, "courseId, reviewId and comment are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	course, err := h.Courses.GetByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "course not found")
		}
		return fail(c, http.StatusInternalServerError, "load course failed")
	}

	var review *model.Review
	for i := range course.Reviews {
		if course.Reviews[i].ID == req.ReviewID {
			review = &course.Reviews[i]
			break
		}
	}
	if review == nil {
		return fail(c, http.StatusBadRequest, "invalid review id")
	}
	review.Replies = append(review.Replies, model.Reply{
		UserID:    u.ID,
		UserName:  u.Name,
		Text:      req.Comment,
		RepliedAt: time.Now().UTC(),
	})

	if err := h.Courses.Save(ctx, &course); err != nil {
		return fail(c, http.StatusInternalServerError, "update course failed")
	}
	if err := h.refreshCourseCache(ctx, course); err != nil {
		return fail(c, http.StatusInternalServerError, "cache update failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "course": course})
}

// refreshCourseCache overwrites the per-course snapshot and drops the
// aggregate entry after any course mutation.
func (h *CourseHandler) refreshCourseCache(ctx context.Context, course model.Course) error {
	if err := h.Catalog.PutCourse(ctx, course.Sanitized()); err != nil {
		return err
	}
	return h.Catalog.DeleteAllCourses(ctx)
}

func findSection(course *model.Course, contentID string) *model.Section {
	for i := range course.Sections {
		if course.Sections[i].ID == contentID {
			return &course.Sections[i]
		}
	}
	return nil
}
