package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quizforge/quiz-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

// ExportService produces downloadable reports for instructors.
type ExportService interface {
	// ExportSubmissionsToExcel renders every submission of a quiz as an
	// xlsx workbook. Only the quiz creator may export.
	ExportSubmissionsToExcel(ctx context.Context, quizID uint, userID string) ([]byte, error)
}

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

func (s *exportService) ExportSubmissionsToExcel(ctx context.Context, quizID uint, userID string) ([]byte, error) {
	s.logger.Info("Exporting quiz submissions", "quiz_id", quizID, "user_id", userID)

	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.CreatedBy != userID {
		return nil, NewPermissionError(userID, quizID, "quiz", "export_results", "not the quiz creator")
	}

	// The repository caps page size, so export in batches.
	filters := repositories.SubmissionFilters{Limit: 100}
	f := excelize.NewFile()
	sheetName := "Submissions"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Student ID", "Submitted At", "Earned Points", "Gradable Points",
		"Percentage", "Passed", "Pending Review",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	rowIndex := 0
	for {
		submissions, total, err := s.repo.Submission().GetByQuiz(ctx, quizID, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to get quiz submissions: %w", err)
		}

		for _, submission := range submissions {
			row := []interface{}{
				submission.StudentID,
				submission.SubmittedAt.Format("2006-01-02 15:04:05"),
				submission.EarnedPoints,
				submission.GradablePoints,
				submission.Percentage,
				passLabel(submission.Passed),
				submission.PendingReview,
			}
			for colIndex, value := range row {
				cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
				f.SetCellValue(sheetName, cell, value)
			}
			rowIndex++
		}

		filters.Offset += len(submissions)
		if len(submissions) == 0 || int64(filters.Offset) >= total {
			break
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Quiz submissions exported", "quiz_id", quizID, "rows", rowIndex)
	return buf.Bytes(), nil
}

func passLabel(passed bool) string {
	if passed {
		return "Pass"
	}
	return "Fail"
}
