package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveConnection upserts teamID as connected.
func (r *Repository) SaveConnection(ctx context.Context, teamID, teamName string) error {
	now := time.Now().UTC()
	conn := TeamConnection{
		TeamID:      teamID,
		TeamName:    teamName,
		Connected:   true,
		ConnectedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"team_name", "connected", "connected_at", "updated_at"}),
	}).Create(&conn).Error
	if err != nil {
		return fmt.Errorf("SaveConnection: team %s: %w", teamID, err)
	}
	return nil
}

func (r *Repository) GetConnection(ctx context.Context, teamID string) (*TeamConnection, error) {
	var conn TeamConnection
	err := r.db.WithContext(ctx).Where("team_id = ?", teamID).First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetConnection: team %s: %w", teamID, err)
	}
	return &conn, nil
}

func (r *Repository) ListConnected(ctx context.Context) ([]TeamConnection, error) {
	var conns []TeamConnection
	if err := r.db.WithContext(ctx).Where("connected = ?", true).Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("ListConnected: %w", err)
	}
	return conns, nil
}

func (r *Repository) MarkDisconnected(ctx context.Context, teamID string) error {
	return r.update(ctx, teamID, map[string]any{
		"connected":  false,
		"updated_at": time.Now().UTC(),
	})
}

func (r *Repository) MarkValidated(ctx context.Context, teamID string, at time.Time) error {
	return r.update(ctx, teamID, map[string]any{
		"last_validated_at": at.UTC(),
		"updated_at":        time.Now().UTC(),
	})
}

func (r *Repository) update(ctx context.Context, teamID string, fields map[string]any) error {
	err := r.db.WithContext(ctx).Model(&TeamConnection{}).
		Where("team_id = ?", teamID).
		Updates(fields).Error
	if err != nil {
		return fmt.Errorf("update team %s: %w", teamID, err)
	}
	return nil
}
