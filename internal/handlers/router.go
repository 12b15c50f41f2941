package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"github.com/quizforge/quiz-service/internal/services"
	"github.com/quizforge/quiz-service/internal/utils"
)

type HandlerManager struct {
	quizHandler    *QuizHandler
	sessionHandler *SessionHandler
	gradingHandler *GradingHandler

	tokenParser TokenParser
	repo        repositories.Repository
	logger      utils.Logger
}

func NewHandlerManager(
	quizService services.QuizService,
	sessionService services.SessionService,
	gradingService services.GradingService,
	exportService services.ExportService,
	tokenParser TokenParser,
	repo repositories.Repository,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		quizHandler:    NewQuizHandler(quizService, exportService, logger),
		sessionHandler: NewSessionHandler(sessionService, logger),
		gradingHandler: NewGradingHandler(gradingService, logger),
		tokenParser:    tokenParser,
		repo:           repo,
		logger:         logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "quiz-service",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(hm.tokenParser, hm.repo, hm.logger))
	{
		instructor := RequireRole(models.RoleInstructor, models.RoleAdmin)

		// Quiz authoring and lifecycle
		quizzes := v1.Group("/quizzes")
		{
			quizzes.POST("", instructor, hm.quizHandler.CreateQuiz)
			quizzes.GET("", hm.quizHandler.ListQuizzes)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.PUT("/:id", instructor, hm.quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", instructor, hm.quizHandler.DeleteQuiz)
			quizzes.POST("/:id/publish", instructor, hm.quizHandler.PublishQuiz)
			quizzes.POST("/:id/archive", instructor, hm.quizHandler.ArchiveQuiz)
			quizzes.GET("/:id/stats", instructor, hm.quizHandler.GetQuizStats)

			// Submission review
			quizzes.GET("/:id/submissions", instructor, hm.gradingHandler.ListQuizSubmissions)
			quizzes.GET("/:id/submissions/pending", instructor, hm.gradingHandler.ListPendingReview)
			quizzes.GET("/:id/submissions/export", instructor, hm.quizHandler.ExportSubmissions)
		}

		// Attempt sessions
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.StartSession)
			sessions.GET("", hm.sessionHandler.ListMySessions)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.POST("/:id/answers", hm.sessionHandler.SubmitAnswer)
			sessions.POST("/:id/submit", hm.sessionHandler.SubmitSession)
			sessions.GET("/:id/time-remaining", hm.sessionHandler.GetTimeRemaining)
		}

		// Scored submissions
		submissions := v1.Group("/submissions")
		{
			submissions.GET("", hm.gradingHandler.ListMySubmissions)
			submissions.GET("/:id", hm.gradingHandler.GetSubmission)
			submissions.POST("/:id/answers/:question_id/grade", instructor, hm.gradingHandler.GradeEssay)
		}
	}
}
