package postgres

import (
	"context"
	"fmt"

	"github.com/taskpilot/taskpilot/internal/domain/conversation"
)

const messageColumns = `id, conversation_id, owner_id, role, content, created_at`

func scanMessage(row scannable) (conversation.Message, error) {
	var m conversation.Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.Owner, &m.Role, &m.Content, &m.CreatedAt)
	return m, err
}

func (s *Store) CreateConversation(ctx context.Context, owner string) (*conversation.Conversation, error) {
	var created conversation.Conversation
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO conversations (owner_id)
			 VALUES ($1)
			 RETURNING id, owner_id, created_at, updated_at`,
			owner,
		).Scan(&created.ID, &created.Owner, &created.CreatedAt, &created.UpdatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &created, nil
}

// GetConversation returns NotFound both for a missing id and for a
// conversation owned by a different caller, so foreign conversations are
// never observable.
func (s *Store) GetConversation(ctx context.Context, id, owner string) (*conversation.Conversation, error) {
	var c conversation.Conversation
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, created_at, updated_at
		 FROM conversations WHERE id = $1 AND owner_id = $2`,
		id, owner,
	).Scan(&c.ID, &c.Owner, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get conversation %s", id)
	}
	return &c, nil
}

// AppendMessage inserts a message and bumps the conversation's updated_at
// in a single transaction. The ownership check rides on the bump: zero
// rows updated means the conversation is missing or foreign.
func (s *Store) AppendMessage(ctx context.Context, conversationID, owner, role, content string) (*conversation.Message, error) {
	var created conversation.Message
	err := withRetry(ctx, func(ctx context.Context) error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		tag, err := tx.Exec(ctx,
			`UPDATE conversations SET updated_at = now()
			 WHERE id = $1 AND owner_id = $2`,
			conversationID, owner)
		if err := execExpectOne(tag, err, "conversation %s", conversationID); err != nil {
			return err
		}

		row := tx.QueryRow(ctx,
			`INSERT INTO messages (conversation_id, owner_id, role, content)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+messageColumns,
			conversationID, owner, role, content)
		if created, err = scanMessage(row); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return &created, nil
}

// ListRecentMessages returns up to limit most recent messages in ascending
// created_at order, enforcing the same ownership check as GetConversation.
func (s *Store) ListRecentMessages(ctx context.Context, conversationID, owner string, limit int) ([]conversation.Message, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1 AND owner_id = $2)`,
		conversationID, owner,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check conversation %s: %w", conversationID, err)
	}
	if !exists {
		return nil, notFoundWrapMissing("conversation %s", conversationID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM (
		     SELECT `+messageColumns+` FROM messages
		     WHERE conversation_id = $1 AND owner_id = $2
		     ORDER BY created_at DESC, id DESC
		     LIMIT $3
		 ) recent
		 ORDER BY created_at ASC, id ASC`,
		conversationID, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var result []conversation.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
