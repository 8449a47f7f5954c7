package storage

import "time"

// ArchivedChat is one archived GroupMe conversation.
// Kind is "group" or "direct"; ID is the remote chat id (the other user's id
// for direct message threads).
type ArchivedChat struct {
	ID         string
	Name       string
	Kind       string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// ArchivedMessage is one archived message belonging to an archived chat
type ArchivedMessage struct {
	ID        string
	ChatID    string
	Author    string
	AvatarURL string
	Text      string
	SentAt    time.Time
	ImageURLs []string
}
