package store

import (
	"context"
	"fmt"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const messageTableName = "volunteerhub.messages"

var messageColumns = utils.StructTagValues(types.Message{})

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) CreateMessage(ctx context.Context, msg *types.Message) error {
	query, args, err := psql().
		Insert(messageTableName).
		SetMap(utils.StructToMap(msg)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create message query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return storageError("create message", err)
	}

	return nil
}

// Conversation returns both directions of a thread, oldest first.
func (r *MessageRepository) Conversation(ctx context.Context, userID, otherID string) ([]*types.Message, error) {
	query, args, err := psql().
		Select(messageColumns...).
		From(messageTableName).
		Where(sq.Or{
			sq.Eq{"sender_id": userID, "receiver_id": otherID},
			sq.Eq{"sender_id": otherID, "receiver_id": userID},
		}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate conversation query: %w", err)
	}

	var msgs []*types.Message
	err = pgxscan.Select(ctx, r.pool, &msgs, query, args...)
	if err != nil {
		return nil, storageError("fetch conversation", err)
	}

	return msgs, nil
}

func (r *MessageRepository) MarkConversationRead(ctx context.Context, receiverID, senderID string) error {
	query, args, err := psql().
		Update(messageTableName).
		Set("is_read", true).
		Where(sq.Eq{"receiver_id": receiverID, "sender_id": senderID, "is_read": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate mark read query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return storageError("mark conversation read", err)
	}

	return nil
}

func (r *MessageRepository) Inbox(ctx context.Context, userID string, limit uint64) ([]*types.Message, error) {
	builder := psql().
		Select(messageColumns...).
		From(messageTableName).
		Where(sq.Or{
			sq.Eq{"receiver_id": userID},
			sq.Eq{"sender_id": userID},
		}).
		OrderBy("created_at DESC")

	if limit > 0 {
		builder = builder.Limit(limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate inbox query: %w", err)
	}

	var msgs []*types.Message
	err = pgxscan.Select(ctx, r.pool, &msgs, query, args...)
	if err != nil {
		return nil, storageError("fetch inbox", err)
	}

	return msgs, nil
}
