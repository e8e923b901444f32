package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"relaychat-backend/internal/models"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Record stores one transcript entry. Re-recording the same id is a no-op, which
// lets queue workers retry safely.
func (r *MessageRepo) Record(ctx context.Context, e models.TranscriptEntry) error {
	query := `INSERT INTO chat_messages (id, session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query, e.ID, e.SessionID, e.Role, e.Content, e.CreatedAt)
	return err
}

// ListBySession returns the latest limit messages of a session, oldest first.
func (r *MessageRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	query := `SELECT id, session_id, role, content, created_at FROM (
			SELECT id, session_id, role, content, created_at
			FROM chat_messages WHERE session_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var (
			id  uuid.UUID
			sid *uuid.UUID
			m   models.ChatMessage
		)
		if err := rows.Scan(&id, &sid, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		m.ID = id.String()
		m.SessionID = sid
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *MessageRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM chat_messages WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
