package postgres

import (
	"context"

	"github.com/quizforge/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db         *gorm.DB
	quiz       *quizRepository
	session    *sessionRepository
	submission *submissionRepository
	user       *userRepository
}

// New creates the postgres-backed repository aggregate.
func New(db *gorm.DB) repositories.Repository {
	return &repository{
		db:         db,
		quiz:       &quizRepository{db: db},
		session:    &sessionRepository{db: db},
		submission: &submissionRepository{db: db},
		user:       &userRepository{db: db},
	}
}

func (r *repository) Quiz() repositories.QuizRepository             { return r.quiz }
func (r *repository) Session() repositories.SessionRepository       { return r.session }
func (r *repository) Submission() repositories.SubmissionRepository { return r.submission }
func (r *repository) User() repositories.UserRepository             { return r.user }

func (r *repository) Transaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
