package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"groupme-archiver/internal/storage/zapadapter"
)

var (
	ErrChatArchived    = errors.New("chat already archived")
	ErrChatNotArchived = errors.New("chat is not archived")
	ErrMessageArchived = errors.New("message already archived")
)

// Store defines fields used in archive database interaction
type Store struct {
	logger *zap.SugaredLogger
	db     *pgxpool.Pool
}

// New sets provided zap.Logger via zapadapter to pgxpool.Pool and returns instance of Store struct
func New(ctx context.Context, logger *zap.SugaredLogger, cfg Config, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	config.ConnConfig.Logger = zapadapter.NewLogger(logger.Desugar())

	for _, opt := range opts {
		opt.apply(config)
	}

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Store{
		logger: logger,
		db:     pool,
	}, nil
}

// Close closes the underlying connection pool
func (s *Store) Close() {
	s.db.Close()
}

// SaveChat inserts one chat record.
// Archiving the same chat twice returns ErrChatArchived.
func (s *Store) SaveChat(ctx context.Context, chat ArchivedChat) error {
	s.logger.Debugf("Archiving chat (%s, id %s)", chat.Name, chat.ID)

	sql := "insert into chats (id, name, kind, created_at, last_used_at, archived_at) values ($1, $2, $3, $4, $5, $6)"
	_, err := s.db.Exec(ctx, sql, chat.ID, chat.Name, chat.Kind, chat.CreatedAt, chat.LastUsedAt, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.UniqueViolation {
				return ErrChatArchived
			}
		}
		return err
	}

	s.logger.Debugf("Archived chat (%s)", chat.Name)

	return nil
}

// SaveMessages bulk inserts message records for already archived chats.
// A message id seen before returns ErrMessageArchived, an unknown chat id
// returns ErrChatNotArchived.
func (s *Store) SaveMessages(ctx context.Context, messages []ArchivedMessage) error {
	s.logger.Debugf("Archiving %d messages", len(messages))

	columns := []string{"id", "chat_id", "author", "avatar_url", "text", "sent_at", "image_urls"}
	_, err := s.db.CopyFrom(ctx, pgx.Identifier{"messages"}, columns, copyFromMessages(messages))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return ErrMessageArchived
			case pgerrcode.ForeignKeyViolation:
				return ErrChatNotArchived
			}
		}
		return err
	}

	s.logger.Debugf("Archived %d messages", len(messages))

	return nil
}

// MessagesByChat returns all archived messages of a chat with all fields,
// sorted by send time (from earliest to latest)
func (s *Store) MessagesByChat(ctx context.Context, chatID string) ([]ArchivedMessage, error) {
	s.logger.Debugf("Retrieving archived messages for chat (id: %s)", chatID)

	// check if chat is archived
	var i int8
	sql := "select 1 from chats where id = $1"
	err := s.db.QueryRow(ctx, sql, chatID).Scan(&i)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChatNotArchived
		}
		return nil, err
	}

	sql = `select messages.id,
				  messages.chat_id,
				  messages.author,
				  messages.avatar_url,
				  messages.text,
				  messages.sent_at,
				  messages.image_urls
			 from messages
			where chat_id = $1
			order by sent_at asc`

	rows, err := s.db.Query(ctx, sql, chatID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var messages []ArchivedMessage
	for rows.Next() {
		var m ArchivedMessage
		var imageURLs pgtype.TextArray
		err = rows.Scan(&m.ID, &m.ChatID, &m.Author, &m.AvatarURL, &m.Text, &m.SentAt, &imageURLs)
		if err != nil {
			return nil, err
		}

		if len(imageURLs.Elements) > 0 {
			err = imageURLs.AssignTo(&m.ImageURLs)
			if err != nil {
				return nil, err
			}
		}

		messages = append(messages, m)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	s.logger.Debugf("Retrieved %d archived messages", len(messages))

	return messages, nil
}
