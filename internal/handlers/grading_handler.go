package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizforge/quiz-service/internal/repositories"
	"github.com/quizforge/quiz-service/internal/services"
	"github.com/quizforge/quiz-service/internal/utils"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
}

func NewGradingHandler(gradingService services.GradingService, logger utils.Logger) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger),
		gradingService: gradingService,
	}
}

// GetSubmission returns a scored submission with per-question results
func (h *GradingHandler) GetSubmission(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	submission, err := h.gradingService.GetSubmission(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

// ListMySubmissions lists the authenticated student's submissions
func (h *GradingHandler) ListMySubmissions(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	limit, offset := parsePagination(c)
	filters := repositories.SubmissionFilters{Limit: limit, Offset: offset}

	submissions, total, err := h.gradingService.GetByStudent(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: submissions, Total: total})
}

// ListQuizSubmissions lists every submission of a quiz for its creator
func (h *GradingHandler) ListQuizSubmissions(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	limit, offset := parsePagination(c)
	filters := repositories.SubmissionFilters{Limit: limit, Offset: offset}
	if pending := c.Query("pending_review"); pending != "" {
		value := pending == "true"
		filters.PendingReview = &value
	}

	submissions, total, err := h.gradingService.GetByQuiz(c.Request.Context(), quizID, filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: submissions, Total: total})
}

// ListPendingReview lists submissions with ungraded essay answers
func (h *GradingHandler) ListPendingReview(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	submissions, err := h.gradingService.GetPendingReview(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: submissions, Total: int64(len(submissions))})
}

// GradeEssay records a manual grade for one essay answer
func (h *GradingHandler) GradeEssay(c *gin.Context) {
	submissionID := h.parseIDParam(c, "id")
	if submissionID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req services.GradeEssayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Grading essay",
		"submission_id", submissionID,
		"question_id", questionID)

	submission, err := h.gradingService.GradeEssay(c.Request.Context(), submissionID, questionID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}
