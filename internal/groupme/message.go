package groupme

import (
	"context"
	"net/url"
	"strconv"

	"github.com/valyala/fastjson"
)

// EmojiRef records a powerup emoji attachment: the placeholder character used
// inside the message text and the charmap resolving it to pack/index pairs
type EmojiRef struct {
	Placeholder string
	Charmap     [][2]int
}

// Message represents one sent GroupMe message. Instances are constructed
// read-only from a fetched API page and are not modified afterwards.
// TimeEpoch and Time denote the same instant in two encodings.
type Message struct {
	client *Client

	Chat           string
	ID             string
	Author         string
	AvatarURL      string
	TimeEpoch      int64
	Time           string
	Text           string
	IsGroup        bool
	ImageURLs      []string
	Emoji          *EmojiRef
	ReplyMessageID string
}

// newMessage builds a Message from one entry of a message page
func newMessage(c *Client, chatName string, isGroup bool, v *fastjson.Value) *Message {
	epoch := v.GetInt64("created_at")

	m := &Message{
		client:    c,
		Chat:      chatName,
		ID:        jsonString(v.Get("id")),
		Author:    string(v.GetStringBytes("name")),
		AvatarURL: string(v.GetStringBytes("avatar_url")),
		TimeEpoch: epoch,
		Time:      epochToString(epoch),
		Text:      string(v.GetStringBytes("text")),
		IsGroup:   isGroup,
	}

	for _, attachment := range v.GetArray("attachments") {
		switch string(attachment.GetStringBytes("type")) {
		case "image":
			m.ImageURLs = append(m.ImageURLs, string(attachment.GetStringBytes("url")))
		case "emoji":
			ref := &EmojiRef{
				Placeholder: string(attachment.GetStringBytes("placeholder")),
			}
			for _, pair := range attachment.GetArray("charmap") {
				entries := pair.GetArray()
				if len(entries) != 2 {
					continue
				}
				ref.Charmap = append(ref.Charmap, [2]int{entries[0].GetInt(), entries[1].GetInt()})
			}
			m.Emoji = ref
		case "reply":
			m.ReplyMessageID = jsonString(attachment.Get("reply_id"))
		}
	}

	return m
}

// RepliedMessage returns the message this one replies to.
// It re-walks the chat's history backward from this message until the target
// is found. The result is nil without error when the message is not a reply
// or when the target was deleted from the chat.
func (m *Message) RepliedMessage(ctx context.Context) (*Message, error) {
	if m.ReplyMessageID == "" {
		return nil, nil
	}

	chatID, err := m.chatID(ctx)
	if err != nil {
		return nil, err
	}
	if chatID == "" {
		return nil, nil
	}

	endpoint := "direct_messages"
	pageField := "direct_messages"
	if m.IsGroup {
		endpoint = "groups/" + chatID + "/messages"
		pageField = "messages"
	}

	beforeID := m.ID
	for {
		params := url.Values{}
		params.Set("before_id", beforeID)
		if m.IsGroup {
			params.Set("limit", "100")
		} else {
			params.Set("other_user_id", chatID)
		}

		v, err := m.client.get(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}

		page := v.GetArray(pageField)
		if len(page) == 0 {
			return nil, nil
		}

		for _, entry := range page {
			id := jsonString(entry.Get("id"))
			if id == m.ReplyMessageID {
				return newMessage(m.client, m.Chat, m.IsGroup, entry), nil
			}
			beforeID = id
		}
	}
}

// chatID resolves the id of the chat this message was sent in by walking the
// matching listing until the chat name is found
func (m *Message) chatID(ctx context.Context) (string, error) {
	endpoint := "chats"
	if m.IsGroup {
		endpoint = "groups"
	}

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("per_page", strconv.Itoa(listPageSize))
		if m.IsGroup {
			params.Set("omit", "memberships")
		}

		v, err := m.client.get(ctx, endpoint, params)
		if err != nil {
			return "", err
		}

		entries := v.GetArray()
		if len(entries) == 0 {
			return "", nil
		}

		for _, entry := range entries {
			if m.IsGroup {
				if string(entry.GetStringBytes("name")) == m.Chat {
					return jsonString(entry.Get("id")), nil
				}
			} else {
				if string(entry.GetStringBytes("other_user", "name")) == m.Chat {
					return jsonString(entry.Get("other_user", "id")), nil
				}
			}
		}
	}
}
