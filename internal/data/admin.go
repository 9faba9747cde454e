package data

import (
	"context"
	"fmt"
)

// AdminSummary is the aggregate snapshot served on the admin endpoint.
type AdminSummary struct {
	TotalUsers      int     `json:"total_users"`
	TotalCheckIns   int     `json:"total_check_ins"`
	TotalChats      int     `json:"total_chats"`
	CrisisFlagged   int     `json:"crisis_flagged_chats"`
	AverageMood     float64 `json:"average_mood"`
	CheckInsLast7d  int     `json:"check_ins_last_7d"`
}

// GetAdminSummary computes service-wide counters for the admin endpoint.
func (s *Store) GetAdminSummary(ctx context.Context) (*AdminSummary, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM mood_checkins),
			(SELECT COUNT(*) FROM ai_chats),
			(SELECT COUNT(*) FROM ai_chats WHERE crisis_flag = 1),
			(SELECT COALESCE(AVG(level), 0) FROM mood_checkins),
			(SELECT COUNT(*) FROM mood_checkins WHERE timestamp >= datetime('now', '-7 days'))
	`

	var summary AdminSummary
	err := s.db.QueryRowContext(ctx, query).Scan(
		&summary.TotalUsers, &summary.TotalCheckIns, &summary.TotalChats,
		&summary.CrisisFlagged, &summary.AverageMood, &summary.CheckInsLast7d,
	)
	if err != nil {
		return nil, fmt.Errorf("query admin summary: %w", err)
	}

	return &summary, nil
}
