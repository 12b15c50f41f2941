package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/quizforge/quiz-service/internal/events"
	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newSessionServiceForTest(repo *MockRepository) (SessionService, *events.MockEventPublisher) {
	publisher := events.NewMockEventPublisher(testLogger())
	service := NewSessionService(repo, testLogger(), validator.New(), publisher)
	return service, publisher
}

func publishedQuiz() *models.Quiz {
	return &models.Quiz{
		ID:        1,
		Title:     "Geography Basics",
		Status:    models.QuizStatusPublished,
		CreatedBy: "instructor-1",
		Settings: models.QuizSettings{
			QuizID:       1,
			TimeLimit:    30,
			MaxAttempts:  1,
			PassingScore: 70,
		},
	}
}

func quizWithQuestions() *models.Quiz {
	quiz := publishedQuiz()
	quiz.Questions = []models.Question{
		{
			ID:      10,
			QuizID:  quiz.ID,
			Type:    models.MultipleChoice,
			Text:    "What is the capital of France?",
			Points:  2,
			Content: datatypes.JSON(`{"options":[{"id":"a","text":"Paris"},{"id":"b","text":"Lyon"}],"correct_answer":"a"}`),
		},
		{
			ID:      11,
			QuizID:  quiz.ID,
			Type:    models.TrueFalse,
			Text:    "The Seine flows through Paris.",
			Points:  1,
			Content: datatypes.JSON(`{"correct_answer":true}`),
		},
	}
	return quiz
}

func TestSessionService_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a new session with the time budget in seconds", func(t *testing.T) {
		repo := &MockRepository{}
		service, publisher := newSessionServiceForTest(repo)
		quiz := publishedQuiz()

		repo.QuizRepo.On("GetByID", ctx, uint(1)).Return(quiz, nil)
		repo.SessionRepo.On("GetActive", ctx, uint(1), "student-1").Return(nil, gorm.ErrRecordNotFound)
		repo.SubmissionRepo.On("CountByQuizAndStudent", ctx, uint(1), "student-1").Return(0, nil)
		repo.SessionRepo.On("Create", ctx, mock.AnythingOfType("*models.QuizSession")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.QuizSession).ID = 42
			}).
			Return(nil)

		resp, err := service.Start(ctx, 1, "student-1")
		require.NoError(t, err)

		assert.False(t, resp.Resumed)
		assert.Equal(t, models.SessionInProgress, resp.Session.Status)
		assert.Equal(t, 30*60, resp.Session.TimeLimit)
		require.NotNil(t, resp.Session.EndTime)
		assert.Greater(t, resp.TimeRemaining, 0)

		require.Len(t, publisher.Events, 1)
		assert.Equal(t, events.EventSessionStarted, publisher.Events[0].Type)
		repo.AssertExpectations(t)
	})

	t.Run("resumes the active session instead of creating a second one", func(t *testing.T) {
		repo := &MockRepository{}
		service, publisher := newSessionServiceForTest(repo)
		quiz := publishedQuiz()
		active := &models.QuizSession{
			ID:        7,
			QuizID:    1,
			StudentID: "student-1",
			Status:    models.SessionInProgress,
			StartedAt: time.Now().Add(-5 * time.Minute),
		}

		repo.QuizRepo.On("GetByID", ctx, uint(1)).Return(quiz, nil)
		repo.SessionRepo.On("GetActive", ctx, uint(1), "student-1").Return(active, nil)

		resp, err := service.Start(ctx, 1, "student-1")
		require.NoError(t, err)

		assert.True(t, resp.Resumed)
		assert.Equal(t, uint(7), resp.Session.ID)
		assert.Empty(t, publisher.Events)
		repo.SessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		repo.SubmissionRepo.AssertNotCalled(t, "CountByQuizAndStudent", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects when the attempt limit is exhausted", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		quiz := publishedQuiz()

		repo.QuizRepo.On("GetByID", ctx, uint(1)).Return(quiz, nil)
		repo.SessionRepo.On("GetActive", ctx, uint(1), "student-1").Return(nil, gorm.ErrRecordNotFound)
		repo.SubmissionRepo.On("CountByQuizAndStudent", ctx, uint(1), "student-1").Return(1, nil)

		_, err := service.Start(ctx, 1, "student-1")
		require.Error(t, err)

		var limitErr *AttemptLimitError
		require.ErrorAs(t, err, &limitErr)
		assert.Equal(t, 1, limitErr.Used)
		assert.Equal(t, 1, limitErr.Limit)
		repo.SessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects a draft quiz", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		quiz := publishedQuiz()
		quiz.Status = models.QuizStatusDraft

		repo.QuizRepo.On("GetByID", ctx, uint(1)).Return(quiz, nil)

		_, err := service.Start(ctx, 1, "student-1")
		assert.ErrorIs(t, err, ErrQuizNotPublished)
	})

	t.Run("untimed quiz has no end time", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		quiz := publishedQuiz()
		quiz.Settings.TimeLimit = 0

		repo.QuizRepo.On("GetByID", ctx, uint(1)).Return(quiz, nil)
		repo.SessionRepo.On("GetActive", ctx, uint(1), "student-1").Return(nil, gorm.ErrRecordNotFound)
		repo.SubmissionRepo.On("CountByQuizAndStudent", ctx, uint(1), "student-1").Return(0, nil)
		repo.SessionRepo.On("Create", ctx, mock.AnythingOfType("*models.QuizSession")).Return(nil)

		resp, err := service.Start(ctx, 1, "student-1")
		require.NoError(t, err)
		assert.Zero(t, resp.Session.TimeLimit)
		assert.Nil(t, resp.Session.EndTime)
		assert.Zero(t, resp.TimeRemaining)
	})
}

func TestSessionService_GetByID(t *testing.T) {
	ctx := context.Background()

	sessionForStudent := func() *models.QuizSession {
		quiz := quizWithQuestions()
		return &models.QuizSession{
			ID:        5,
			QuizID:    quiz.ID,
			StudentID: "student-1",
			Status:    models.SessionInProgress,
			StartedAt: time.Now().Add(-time.Minute),
			Quiz:      *quiz,
		}
	}

	t.Run("student never receives answer keys", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := sessionForStudent()

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)

		resp, err := service.GetByID(ctx, 5, "student-1")
		require.NoError(t, err)

		payload, err := json.Marshal(resp)
		require.NoError(t, err)
		body := string(payload)

		assert.NotContains(t, body, "correct_answer")
		assert.NotContains(t, body, "keywords")
		assert.NotContains(t, body, "correct_pairs")
		assert.NotContains(t, body, "correct_order")

		// Display material survives the stripping.
		assert.True(t, strings.Contains(body, "Paris") && strings.Contains(body, "Lyon"))
	})

	t.Run("quiz creator keeps the full authoring view", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := sessionForStudent()

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)

		resp, err := service.GetByID(ctx, 5, "instructor-1")
		require.NoError(t, err)

		payload, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.Contains(t, string(payload), "correct_answer")
	})

	t.Run("rejects a stranger", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := sessionForStudent()

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)

		_, err := service.GetByID(ctx, 5, "someone-else")
		var permErr *PermissionError
		assert.ErrorAs(t, err, &permErr)
	})
}

func TestSessionService_SubmitAnswer(t *testing.T) {
	ctx := context.Background()
	answer := datatypes.JSON(`{"selected":"a"}`)

	inProgressSession := func() *models.QuizSession {
		quiz := quizWithQuestions()
		return &models.QuizSession{
			ID:        5,
			QuizID:    quiz.ID,
			StudentID: "student-1",
			Status:    models.SessionInProgress,
			StartedAt: time.Now().Add(-time.Minute),
			Quiz:      *quiz,
		}
	}

	t.Run("saves the answer", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := inProgressSession()

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)
		repo.SessionRepo.On("UpsertAnswer", ctx, uint(5), uint(10), answer).Return(nil)

		err := service.SubmitAnswer(ctx, 5, &SubmitAnswerRequest{QuestionID: 10, AnswerData: answer}, "student-1")
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("rejects a non-owner", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := inProgressSession()

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)

		err := service.SubmitAnswer(ctx, 5, &SubmitAnswerRequest{QuestionID: 10, AnswerData: answer}, "someone-else")
		var permErr *PermissionError
		assert.ErrorAs(t, err, &permErr)
	})

	t.Run("rejects a completed session", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := inProgressSession()
		session.Status = models.SessionCompleted

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)

		err := service.SubmitAnswer(ctx, 5, &SubmitAnswerRequest{QuestionID: 10, AnswerData: answer}, "student-1")
		assert.ErrorIs(t, err, ErrSessionClosed)
	})

	t.Run("rejects an expired session", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := inProgressSession()
		past := time.Now().Add(-time.Second)
		session.EndTime = &past

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)

		err := service.SubmitAnswer(ctx, 5, &SubmitAnswerRequest{QuestionID: 10, AnswerData: answer}, "student-1")
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("rejects a question from another quiz", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := inProgressSession()

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)

		err := service.SubmitAnswer(ctx, 5, &SubmitAnswerRequest{QuestionID: 999, AnswerData: answer}, "student-1")
		assert.ErrorIs(t, err, ErrQuestionNotInQuiz)
	})
}

func TestSessionService_Submit(t *testing.T) {
	ctx := context.Background()

	sessionWithAnswers := func() *models.QuizSession {
		quiz := quizWithQuestions()
		return &models.QuizSession{
			ID:        5,
			QuizID:    quiz.ID,
			StudentID: "student-1",
			Status:    models.SessionInProgress,
			StartedAt: time.Now().Add(-10 * time.Minute),
			Quiz:      *quiz,
			Answers: []models.SessionAnswer{
				{SessionID: 5, QuestionID: 10, AnswerData: datatypes.JSON(`{"selected":"a"}`)},
				{SessionID: 5, QuestionID: 11, AnswerData: datatypes.JSON(`{"selected":"false"}`)},
			},
		}
	}

	t.Run("scores the attempt and persists the submission", func(t *testing.T) {
		repo := &MockRepository{}
		service, publisher := newSessionServiceForTest(repo)
		session := sessionWithAnswers()

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)
		repo.QuizRepo.On("GetByIDWithDetails", ctx, uint(1)).Return(quizWithQuestions(), nil)
		repo.SessionRepo.On("MarkSubmitted", ctx, uint(5), mock.AnythingOfType("time.Time")).Return(true, nil)
		repo.SubmissionRepo.On("Create", ctx, mock.AnythingOfType("*models.QuizSubmission")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.QuizSubmission).ID = 99
			}).
			Return(nil)

		submission, err := service.Submit(ctx, 5, nil, "student-1")
		require.NoError(t, err)

		// 2 of 3 points: the multiple choice is right, the true/false wrong.
		assert.Equal(t, 2, submission.EarnedPoints)
		assert.Equal(t, 3, submission.GradablePoints)
		assert.Equal(t, 67, submission.Percentage)
		assert.False(t, submission.Passed)
		assert.False(t, submission.PendingReview)
		assert.Len(t, submission.Answers, 2)

		require.Len(t, publisher.Events, 1)
		assert.Equal(t, events.EventSubmissionScored, publisher.Events[0].Type)
		repo.AssertExpectations(t)
	})

	t.Run("loser of a concurrent submit gets ErrAlreadySubmitted", func(t *testing.T) {
		repo := &MockRepository{}
		service, publisher := newSessionServiceForTest(repo)
		session := sessionWithAnswers()

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)
		repo.QuizRepo.On("GetByIDWithDetails", ctx, uint(1)).Return(quizWithQuestions(), nil)
		repo.SessionRepo.On("MarkSubmitted", ctx, uint(5), mock.AnythingOfType("time.Time")).Return(false, nil)

		_, err := service.Submit(ctx, 5, nil, "student-1")
		assert.ErrorIs(t, err, ErrAlreadySubmitted)
		assert.Empty(t, publisher.Events)
		repo.SubmissionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects a non-owner", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := sessionWithAnswers()

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)

		_, err := service.Submit(ctx, 5, nil, "someone-else")
		var permErr *PermissionError
		assert.ErrorAs(t, err, &permErr)
	})

	t.Run("answers carried on submit override stored rows", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := sessionWithAnswers()
		// Only the wrong true/false answer ever reached the server.
		session.Answers = []models.SessionAnswer{
			{SessionID: 5, QuestionID: 11, AnswerData: datatypes.JSON(`{"selected":"false"}`)},
		}

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)
		repo.QuizRepo.On("GetByIDWithDetails", ctx, uint(1)).Return(quizWithQuestions(), nil)
		repo.SessionRepo.On("MarkSubmitted", ctx, uint(5), mock.AnythingOfType("time.Time")).Return(true, nil)
		repo.SubmissionRepo.On("Create", ctx, mock.AnythingOfType("*models.QuizSubmission")).Return(nil)

		req := &SubmitSessionRequest{Answers: []SubmitAnswerRequest{
			{QuestionID: 10, AnswerData: datatypes.JSON(`{"selected":"a"}`)},
			{QuestionID: 11, AnswerData: datatypes.JSON(`{"selected":"true"}`)},
		}}

		submission, err := service.Submit(ctx, 5, req, "student-1")
		require.NoError(t, err)

		// The carried multiple choice fills the gap and the carried
		// true/false corrects the stale stored row.
		assert.Equal(t, 3, submission.EarnedPoints)
		assert.Equal(t, 100, submission.Percentage)
		assert.True(t, submission.Passed)
		repo.AssertExpectations(t)
	})

	t.Run("rejects carried answers for foreign questions", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := sessionWithAnswers()

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)

		req := &SubmitSessionRequest{Answers: []SubmitAnswerRequest{
			{QuestionID: 999, AnswerData: datatypes.JSON(`{"selected":"a"}`)},
		}}

		_, err := service.Submit(ctx, 5, req, "student-1")
		assert.ErrorIs(t, err, ErrQuestionNotInQuiz)
		repo.SessionRepo.AssertNotCalled(t, "MarkSubmitted", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unanswered questions score zero without error", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := sessionWithAnswers()
		session.Answers = nil

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)
		repo.QuizRepo.On("GetByIDWithDetails", ctx, uint(1)).Return(quizWithQuestions(), nil)
		repo.SessionRepo.On("MarkSubmitted", ctx, uint(5), mock.AnythingOfType("time.Time")).Return(true, nil)
		repo.SubmissionRepo.On("Create", ctx, mock.AnythingOfType("*models.QuizSubmission")).Return(nil)

		submission, err := service.Submit(ctx, 5, nil, "student-1")
		require.NoError(t, err)
		assert.Zero(t, submission.EarnedPoints)
		assert.Equal(t, 3, submission.GradablePoints)
		assert.Zero(t, submission.Percentage)
	})
}

func TestSessionService_HandleTimeout(t *testing.T) {
	ctx := context.Background()

	expiredSession := func(autoSubmit bool) *models.QuizSession {
		quiz := quizWithQuestions()
		quiz.Settings.AutoSubmitOnTimeout = autoSubmit
		endTime := time.Now().Add(-time.Minute)
		return &models.QuizSession{
			ID:        5,
			QuizID:    quiz.ID,
			StudentID: "student-1",
			Status:    models.SessionInProgress,
			StartedAt: endTime.Add(-30 * time.Minute),
			TimeLimit: 30 * 60,
			EndTime:   &endTime,
			Quiz:      *quiz,
		}
	}

	t.Run("auto-submits when the quiz opted in", func(t *testing.T) {
		repo := &MockRepository{}
		service, publisher := newSessionServiceForTest(repo)
		session := expiredSession(true)
		quiz := quizWithQuestions()
		quiz.Settings.AutoSubmitOnTimeout = true

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)
		repo.QuizRepo.On("GetByIDWithDetails", ctx, uint(1)).Return(quiz, nil)
		repo.SessionRepo.On("MarkSubmitted", ctx, uint(5), *session.EndTime).Return(true, nil)
		repo.SubmissionRepo.On("Create", ctx, mock.AnythingOfType("*models.QuizSubmission")).Return(nil)

		err := service.HandleTimeout(ctx, 5)
		require.NoError(t, err)
		require.Len(t, publisher.Events, 1)
		assert.Equal(t, events.EventSubmissionScored, publisher.Events[0].Type)
		repo.AssertExpectations(t)
	})

	t.Run("leaves the session open without the opt-in", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := expiredSession(false)

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)

		err := service.HandleTimeout(ctx, 5)
		require.NoError(t, err)
		repo.SessionRepo.AssertNotCalled(t, "MarkSubmitted", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ignores a session that already completed", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := expiredSession(true)
		session.Status = models.SessionCompleted

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)

		err := service.HandleTimeout(ctx, 5)
		require.NoError(t, err)
		repo.SessionRepo.AssertNotCalled(t, "MarkSubmitted", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("tolerates losing the race to a manual submit", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)
		session := expiredSession(true)

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(session, nil)
		repo.QuizRepo.On("GetByIDWithDetails", ctx, uint(1)).Return(quizWithQuestions(), nil)
		repo.SessionRepo.On("MarkSubmitted", ctx, uint(5), *session.EndTime).Return(false, nil)

		err := service.HandleTimeout(ctx, 5)
		assert.NoError(t, err)
	})

	t.Run("missing session", func(t *testing.T) {
		repo := &MockRepository{}
		service, _ := newSessionServiceForTest(repo)

		repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(nil, gorm.ErrRecordNotFound)

		err := service.HandleTimeout(ctx, 5)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestSessionService_SweepExpired(t *testing.T) {
	ctx := context.Background()

	repo := &MockRepository{}
	service, _ := newSessionServiceForTest(repo)

	endTime := time.Now().Add(-time.Minute)
	quiz := quizWithQuestions()
	quiz.Settings.AutoSubmitOnTimeout = true
	expired := &models.QuizSession{
		ID:        5,
		QuizID:    quiz.ID,
		StudentID: "student-1",
		Status:    models.SessionInProgress,
		EndTime:   &endTime,
		Quiz:      *quiz,
	}

	repo.SessionRepo.On("GetExpired", ctx, mock.AnythingOfType("time.Time")).Return([]*models.QuizSession{expired}, nil)
	repo.SessionRepo.On("GetByIDWithDetails", ctx, uint(5)).Return(expired, nil)
	repo.QuizRepo.On("GetByIDWithDetails", ctx, uint(1)).Return(quiz, nil)
	repo.SessionRepo.On("MarkSubmitted", ctx, uint(5), endTime).Return(true, nil)
	repo.SubmissionRepo.On("Create", ctx, mock.AnythingOfType("*models.QuizSubmission")).Return(nil)

	submitted, err := service.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, submitted)
	repo.AssertExpectations(t)
}
