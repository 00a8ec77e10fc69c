package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS interviews (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id TEXT NOT NULL,
		company TEXT NOT NULL,
		role TEXT NOT NULL,
		technologies JSONB NOT NULL DEFAULT '[]',
		difficulty TEXT NOT NULL,
		duration_minutes DOUBLE PRECISION NOT NULL,
		questions JSONB NOT NULL DEFAULT '[]',
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interviews_created_at ON interviews (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS interview_progress (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id TEXT NOT NULL,
		interview_id UUID NOT NULL REFERENCES interviews(id) ON DELETE CASCADE,
		session_id TEXT NOT NULL,
		time_remaining INTEGER NOT NULL,
		transcript JSONB NOT NULL DEFAULT '[]',
		total_duration DOUBLE PRECISION NOT NULL,
		is_completed BOOLEAN NOT NULL DEFAULT FALSE,
		last_saved TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(user_id, interview_id)
	)`,
	`CREATE TABLE IF NOT EXISTS interview_feedback (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id TEXT NOT NULL,
		interview_id UUID NOT NULL REFERENCES interviews(id) ON DELETE CASCADE,
		overall_score INTEGER NOT NULL,
		summary TEXT NOT NULL,
		strengths JSONB NOT NULL DEFAULT '[]',
		improvements JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interview_feedback_lookup ON interview_feedback (user_id, interview_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS bookmarks (
		user_id TEXT NOT NULL,
		interview_id UUID NOT NULL REFERENCES interviews(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, interview_id)
	)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
