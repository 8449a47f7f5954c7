package storage

import "github.com/jackc/pgx/v4"

type messageBulk struct {
	rows []ArchivedMessage
	idx  int
}

func (m ArchivedMessage) toInterface() []interface{} {
	return []interface{}{m.ID, m.ChatID, m.Author, m.AvatarURL, m.Text, m.SentAt, m.ImageURLs}
}

func copyFromMessages(rows []ArchivedMessage) pgx.CopyFromSource {
	return &messageBulk{
		rows: rows,
		idx:  -1,
	}
}

func (mb *messageBulk) Next() bool {
	mb.idx++
	return mb.idx < len(mb.rows)
}

func (mb *messageBulk) Values() ([]interface{}, error) {
	return mb.rows[mb.idx].toInterface(), nil
}

func (mb *messageBulk) Err() error {
	return nil
}
