package groupme

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"
)

const (
	// listPageSize is the page size used when walking group and DM listings
	listPageSize = 10
	// groupPageSize is the largest message page the API serves for groups
	groupPageSize = 100
)

// ChatInfo holds the metadata shared by both chat kinds
type ChatInfo struct {
	ID            string
	Name          string
	Description   string
	CreatedEpoch  int64
	Created       string
	LastUsedEpoch int64
	LastUsed      string
}

// MessageQuery bounds a message history walk.
// SentBefore and SentAfter are date strings formatted as "MM/dd/yyyy" or
// "MM/dd/yyyy hh:mm:ss"; a bare date means end-of-day for SentBefore and
// start-of-day for SentAfter. Keyword keeps only messages containing the
// text. Limit caps the number of selected messages, 0 meaning no cap.
type MessageQuery struct {
	SentBefore string
	SentAfter  string
	Keyword    string
	Limit      int
	Verbose    bool
}

// Chat is a GroupMe conversation, either a Group or a DirectMessage
type Chat interface {
	// Info returns the chat metadata
	Info() ChatInfo
	// IsGroup reports whether the chat is a group (as opposed to a direct message)
	IsGroup() bool
	// Messages walks the chat history backward from the most recent message
	// and returns the messages matching the query, newest first
	Messages(ctx context.Context, q MessageQuery) ([]*Message, error)
}

// Group represents a GroupMe group
type Group struct {
	ChatInfo
	client *Client
}

// Info returns the chat metadata
func (g *Group) Info() ChatInfo { return g.ChatInfo }

// IsGroup reports whether the chat is a group; always true for Group
func (g *Group) IsGroup() bool { return true }

// Messages returns the group messages matching q, newest first
func (g *Group) Messages(ctx context.Context, q MessageQuery) ([]*Message, error) {
	return pageThroughMessages(ctx, g.client, g.ID, g.Name, true, q)
}

// Owner returns the name of the group member holding the owner role,
// or "Unknown" if the membership list does not include one
func (g *Group) Owner(ctx context.Context) (string, error) {
	v, err := g.client.get(ctx, "groups/"+g.ID, nil)
	if err != nil {
		return "", err
	}

	for _, member := range v.GetArray("members") {
		for _, role := range member.GetArray("roles") {
			if string(role.GetStringBytes()) == "owner" {
				return string(member.GetStringBytes("name")), nil
			}
		}
	}

	return "Unknown", nil
}

// Members returns the nicknames of all current group members
func (g *Group) Members(ctx context.Context) ([]string, error) {
	v, err := g.client.get(ctx, "groups/"+g.ID, nil)
	if err != nil {
		return nil, err
	}

	var members []string
	for _, member := range v.GetArray("members") {
		members = append(members, string(member.GetStringBytes("nickname")))
	}

	return members, nil
}

// newGroup builds a Group from one entry of the groups listing
func newGroup(c *Client, v *fastjson.Value) *Group {
	created := v.GetInt64("created_at")
	lastUsed := v.GetInt64("messages", "last_message_created_at")

	return &Group{
		ChatInfo: ChatInfo{
			ID:            jsonString(v.Get("id")),
			Name:          string(v.GetStringBytes("name")),
			Description:   string(v.GetStringBytes("description")),
			CreatedEpoch:  created,
			Created:       epochToString(created),
			LastUsedEpoch: lastUsed,
			LastUsed:      epochToString(lastUsed),
		},
		client: c,
	}
}

// DirectMessage represents a GroupMe direct message thread.
// Its id is the other user's id, which is how the direct_messages endpoint
// addresses the conversation.
type DirectMessage struct {
	ChatInfo
	client *Client
}

// Info returns the chat metadata
func (d *DirectMessage) Info() ChatInfo { return d.ChatInfo }

// IsGroup reports whether the chat is a group; always false for DirectMessage
func (d *DirectMessage) IsGroup() bool { return false }

// Messages returns the direct messages matching q, newest first
func (d *DirectMessage) Messages(ctx context.Context, q MessageQuery) ([]*Message, error) {
	return pageThroughMessages(ctx, d.client, d.ID, d.Name, false, q)
}

// newDirectMessage builds a DirectMessage from one entry of the chats listing
func newDirectMessage(c *Client, v *fastjson.Value) *DirectMessage {
	created := v.GetInt64("created_at")
	lastUsed := v.GetInt64("last_message", "created_at")

	return &DirectMessage{
		ChatInfo: ChatInfo{
			ID:            jsonString(v.Get("other_user", "id")),
			Name:          string(v.GetStringBytes("other_user", "name")),
			CreatedEpoch:  created,
			Created:       epochToString(created),
			LastUsedEpoch: lastUsed,
			LastUsed:      epochToString(lastUsed),
		},
		client: c,
	}
}

// pageThroughMessages walks a chat's message history backward from the most
// recent message, selecting messages matching the query. The walk stops at
// history exhaustion, at the SentAfter bound, or once Limit messages are
// selected. Messages newer than SentBefore or missing the keyword are skipped
// but paging continues past them.
func pageThroughMessages(ctx context.Context, c *Client, chatID, chatName string, isGroup bool, q MessageQuery) ([]*Message, error) {
	before, after, err := queryBounds(q)
	if err != nil {
		return nil, err
	}

	endpoint := "direct_messages"
	pageField := "direct_messages"
	if isGroup {
		endpoint = "groups/" + chatID + "/messages"
		pageField = "messages"
	}

	var messages []*Message
	var beforeID string
	numSkipped := 0
	totalMessages := int64(-1)
	inRange := true

	for inRange {
		params := url.Values{}
		if isGroup {
			params.Set("limit", strconv.Itoa(groupPageSize))
		} else {
			params.Set("other_user_id", chatID)
		}
		if beforeID != "" {
			params.Set("before_id", beforeID)
		}

		v, err := c.get(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}

		if totalMessages < 0 {
			totalMessages = v.GetInt64("count")
		}

		page := v.GetArray(pageField)
		if len(page) == 0 {
			break
		}

		for _, entry := range page {
			createdAt := entry.GetInt64("created_at")
			if after > 0 && createdAt < after {
				inRange = false
				break
			}

			text := string(entry.GetStringBytes("text"))
			if (before > 0 && createdAt > before) || (q.Keyword != "" && !strings.Contains(text, q.Keyword)) {
				numSkipped++
			} else {
				messages = append(messages, newMessage(c, chatName, isGroup, entry))
			}

			beforeID = jsonString(entry.Get("id"))

			if q.Limit > 0 && len(messages) >= q.Limit {
				inRange = false
				break
			}
		}

		if q.Verbose {
			c.logger.Debugf("fetching messages from %s (searched %d of %d, selected %d)",
				chatName, len(messages)+numSkipped, totalMessages, len(messages))
		}
	}

	if q.Verbose {
		c.logger.Infof("selected %d of %d messages from %s", len(messages), totalMessages, chatName)
	}

	return messages, nil
}

// queryBounds converts the query date strings to epoch bounds, widening bare
// dates to end-of-day (before) and start-of-day (after)
func queryBounds(q MessageQuery) (before, after int64, err error) {
	if q.SentBefore != "" {
		s := q.SentBefore
		if len(strings.Split(s, " ")) == 1 {
			s = s + " 23:59:59"
		}
		before, err = stringToEpoch(s)
		if err != nil {
			return 0, 0, err
		}
	}

	if q.SentAfter != "" {
		s := q.SentAfter
		if len(strings.Split(s, " ")) == 1 {
			s = s + " 00:00:00"
		}
		after, err = stringToEpoch(s)
		if err != nil {
			return 0, 0, err
		}
	}

	return before, after, nil
}
