package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/skycast/skycast-be/internal/models"
)

// defaultHistoryLimit caps how many records a history query returns.
const defaultHistoryLimit = 10

// HistoryServiceProvider defines the interface for the history recorder.
type HistoryServiceProvider interface {
	Record(userID, city string, snapshot json.RawMessage)
	Append(ctx context.Context, userID, city string, snapshot json.RawMessage) error
	Recent(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// HistoryService logs weather lookups per user.
type HistoryService struct {
	db *sql.DB
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(db *sql.DB) *HistoryService {
	return &HistoryService{db: db}
}

// Record appends a history entry without blocking the caller. The write
// runs on its own goroutine with a detached context; a failure is logged
// and can never affect the response the caller is already sending.
func (s *HistoryService) Record(userID, city string, snapshot json.RawMessage) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.Append(ctx, userID, city, snapshot); err != nil {
			log.Error().Err(err).Str("user_id", userID).Str("city", city).
				Msg("Failed to save weather history")
		}
	}()
}

// Append persists one lookup with a server-assigned timestamp.
func (s *HistoryService) Append(ctx context.Context, userID, city string, snapshot json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO weather_history(id, user_id, city, weather, date) VALUES(?, ?, ?, ?, ?)",
		uuid.New().String(), userID, city, string(snapshot), time.Now().UTC())
	return err
}

// Recent returns the user's lookups, newest first, capped at limit.
// A user with no history gets an empty slice, not an error.
func (s *HistoryService) Recent(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, city, weather, date FROM weather_history WHERE user_id = ? ORDER BY date DESC, rowid DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.HistoryEntry, 0, limit)
	for rows.Next() {
		var entry models.HistoryEntry
		var weather string
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.City, &weather, &entry.Date); err != nil {
			return nil, err
		}
		entry.Weather = json.RawMessage(weather)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Prune deletes history entries older than the cutoff and reports how
// many were removed.
func (s *HistoryService) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM weather_history WHERE date < ?", olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
