package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Interaction is one processed message: what the user asked, how it
// was classified, what ran, and what came back.
type Interaction struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	ChannelID string    `db:"channel_id"`
	Message   string    `db:"user_message"`
	Intent    string    `db:"intent"`
	SQLQuery  string    `db:"-"`
	Reply     string    `db:"reply"`
	RowCount  int       `db:"row_count"`
	CreatedAt time.Time `db:"created_at"`
}

type interactionRow struct {
	Interaction
	SQLQuery sql.NullString `db:"sql_query"`
}

// InteractionRepository handles interaction log database operations.
type InteractionRepository struct {
	db *sqlx.DB
}

// NewInteractionRepository creates a new interaction repository.
func NewInteractionRepository(db *sqlx.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Record inserts one interaction.
func (r *InteractionRepository) Record(ctx context.Context, rec Interaction) error {
	row := interactionRow{Interaction: rec}
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if rec.SQLQuery != "" {
		row.SQLQuery = sql.NullString{String: rec.SQLQuery, Valid: true}
	}

	query := `
		INSERT INTO interactions (id, user_id, channel_id, user_message, intent, sql_query, reply, row_count, created_at)
		VALUES (:id, :user_id, :channel_id, :user_message, :intent, :sql_query, :reply, :row_count, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}
	return nil
}

// RecentByConversation retrieves the latest interactions for one
// (user, channel) pair within the time window, oldest first.
func (r *InteractionRepository) RecentByConversation(ctx context.Context, userID, channelID string, limit int, since time.Duration) ([]Interaction, error) {
	var rows []interactionRow
	query := `
		SELECT * FROM interactions
		WHERE user_id = $1 AND channel_id = $2 AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT $4`

	cutoff := time.Now().Add(-since)
	if err := r.db.SelectContext(ctx, &rows, query, userID, channelID, cutoff, limit); err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}

	// Reverse into send order
	out := make([]Interaction, len(rows))
	for i, row := range rows {
		rec := row.Interaction
		if row.SQLQuery.Valid {
			rec.SQLQuery = row.SQLQuery.String
		}
		out[len(rows)-1-i] = rec
	}
	return out, nil
}
