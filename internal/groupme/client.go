package groupme

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"
)

// ErrInvalidToken is returned by New when the users/me probe is rejected
var ErrInvalidToken = errors.New("invalid access token")

// Client is the account handle for the GroupMe API. It holds the access
// token and exposes the profile fields of the authenticated user.
type Client struct {
	logger *zap.SugaredLogger
	token  string
	cfg    config

	Name        string
	Email       string
	PhoneNumber string
}

// New validates the provided access token with a blocking users/me call and
// returns a Client carrying the user's profile fields
func New(ctx context.Context, logger *zap.SugaredLogger, token string, opts ...Option) (*Client, error) {
	cfg := config{
		baseURL:    defaultBaseURL,
		powerupURL: defaultPowerupURL,
		httpClient: &http.Client{},
		retryWait:  defaultRetryWait,
	}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	c := &Client{
		logger: logger,
		token:  token,
		cfg:    cfg,
	}

	v, err := c.get(ctx, "users/me", nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	c.Name = string(v.GetStringBytes("name"))
	c.Email = string(v.GetStringBytes("email"))
	c.PhoneNumber = string(v.GetStringBytes("phone_number"))

	return c, nil
}

// ChatQuery bounds a chat listing.
// UsedAfter accepts a date ("MM/dd/yyyy") or a duration shorthand
// ("30min", "12h", "7d", "2w", "3m", "1y") and keeps only chats whose last
// message is at least that recent. CreatedBefore is a date string keeping
// only chats created before it.
type ChatQuery struct {
	UsedAfter     string
	CreatedBefore string
	Verbose       bool
}

// GetChat returns the chat with the given name.
// Groups are searched first, then direct messages; isDM skips the group
// search for users with many groups. The result is nil without error when
// no chat matches.
func (c *Client) GetChat(ctx context.Context, name string, isDM bool) (Chat, error) {
	if !isDM {
		group, err := c.findGroup(ctx, name)
		if err != nil {
			return nil, err
		}
		if group != nil {
			return group, nil
		}
	}

	dm, err := c.findDM(ctx, name)
	if err != nil {
		return nil, err
	}
	if dm == nil {
		return nil, nil
	}

	return dm, nil
}

// GetChats returns all the user's chats satisfying the query bounds, groups
// and direct messages merged, ordered by last use from latest to oldest
func (c *Client) GetChats(ctx context.Context, q ChatQuery) ([]Chat, error) {
	var usedCutoff, createdCutoff int64
	var err error

	if q.UsedAfter != "" {
		usedCutoff, err = cutoffEpoch(q.UsedAfter)
		if err != nil {
			return nil, err
		}
	}

	if q.CreatedBefore != "" {
		s := q.CreatedBefore
		if len(strings.Split(s, " ")) == 1 {
			s = s + " 23:59:59"
		}
		createdCutoff, err = stringToEpoch(s)
		if err != nil {
			return nil, err
		}
	}

	var groups []Chat
	err = c.walkListing(ctx, "groups", func(entry *fastjson.Value) bool {
		lastUsed := entry.GetInt64("messages", "last_message_created_at")
		if usedCutoff > 0 && lastUsed < usedCutoff {
			return false
		}

		group := newGroup(c, entry)
		if createdCutoff > 0 && group.CreatedEpoch >= createdCutoff {
			return true
		}

		groups = append(groups, group)
		if q.Verbose {
			c.logger.Debugf("fetching groups (%d retrieved)", len(groups))
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	if q.Verbose {
		c.logger.Infof("fetched %d groups", len(groups))
	}

	var directMessages []Chat
	err = c.walkListing(ctx, "chats", func(entry *fastjson.Value) bool {
		lastUsed := entry.GetInt64("last_message", "created_at")
		if usedCutoff > 0 && lastUsed < usedCutoff {
			return false
		}

		dm := newDirectMessage(c, entry)
		if createdCutoff > 0 && dm.CreatedEpoch >= createdCutoff {
			return true
		}

		directMessages = append(directMessages, dm)
		if q.Verbose {
			c.logger.Debugf("fetching direct messages (%d retrieved)", len(directMessages))
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	if q.Verbose {
		c.logger.Infof("fetched %d direct messages", len(directMessages))
	}

	return mergeByLastUsed(groups, directMessages), nil
}

// MessageSearch bounds a cross-chat message search.
// SentBefore, SentAfter and Keyword filter like MessageQuery does. Limit
// caps the total number of matched messages, 0 meaning no cap. Before and
// After expand every keyword match with up to that many surrounding
// messages from the same chat.
type MessageSearch struct {
	SentBefore string
	SentAfter  string
	Keyword    string
	Limit      int
	Before     int
	After      int
	Verbose    bool
}

// GetMessages searches for messages matching the given criteria across all
// the user's chats. Results are grouped per chat in chronological order,
// chats ordered by last use from latest to oldest.
func (c *Client) GetMessages(ctx context.Context, q MessageSearch) ([]*Message, error) {
	_, afterBound, err := queryBounds(MessageQuery{SentBefore: q.SentBefore, SentAfter: q.SentAfter})
	if err != nil {
		return nil, err
	}

	chats, err := c.GetChats(ctx, ChatQuery{Verbose: q.Verbose})
	if err != nil {
		return nil, err
	}

	var results []*Message
	matched := 0

	for _, chat := range chats {
		// a chat whose last message predates the lower bound cannot match
		if afterBound > 0 && chat.Info().LastUsedEpoch < afterBound {
			continue
		}

		// fetched without the keyword so that context around matches is available
		history, err := chat.Messages(ctx, MessageQuery{
			SentBefore: q.SentBefore,
			SentAfter:  q.SentAfter,
			Verbose:    q.Verbose,
		})
		if err != nil {
			return nil, err
		}

		// history is newest first, results are reported chronologically
		chronological := make([]*Message, len(history))
		for i, m := range history {
			chronological[len(history)-1-i] = m
		}

		if q.Keyword == "" {
			for _, m := range chronological {
				if q.Limit > 0 && matched >= q.Limit {
					return results, nil
				}
				results = append(results, m)
				matched++
			}
			continue
		}

		selected := expandMatches(chronological, q.Keyword, q.Before, q.After, q.Limit, &matched)
		results = append(results, selected...)

		if q.Limit > 0 && matched >= q.Limit {
			break
		}
	}

	return results, nil
}

// expandMatches selects keyword matches from a chronological message slice
// and includes up to before/after surrounding messages around each match.
// matched is advanced per keyword match, not per context message, and limit
// caps it across chats.
func expandMatches(messages []*Message, keyword string, before, after, limit int, matched *int) []*Message {
	include := make([]bool, len(messages))

	for i, m := range messages {
		if !strings.Contains(m.Text, keyword) {
			continue
		}
		if limit > 0 && *matched >= limit {
			break
		}
		*matched++

		lo := i - before
		if lo < 0 {
			lo = 0
		}
		hi := i + after
		if hi > len(messages)-1 {
			hi = len(messages) - 1
		}
		for j := lo; j <= hi; j++ {
			include[j] = true
		}
	}

	var selected []*Message
	for i, ok := range include {
		if ok {
			selected = append(selected, messages[i])
		}
	}

	return selected
}

// findGroup walks the groups listing until a group with the given name is
// found; nil without error when there is none
func (c *Client) findGroup(ctx context.Context, name string) (*Group, error) {
	var found *Group
	err := c.walkListing(ctx, "groups", func(entry *fastjson.Value) bool {
		if string(entry.GetStringBytes("name")) == name {
			found = newGroup(c, entry)
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

// findDM walks the chats listing until a conversation with the given user is
// found; nil without error when there is none
func (c *Client) findDM(ctx context.Context, name string) (*DirectMessage, error) {
	var found *DirectMessage
	err := c.walkListing(ctx, "chats", func(entry *fastjson.Value) bool {
		if string(entry.GetStringBytes("other_user", "name")) == name {
			found = newDirectMessage(c, entry)
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

// walkListing pages through the groups or chats listing, invoking visit for
// each entry until the listing is exhausted or visit returns false
func (c *Client) walkListing(ctx context.Context, endpoint string, visit func(entry *fastjson.Value) bool) error {
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("per_page", strconv.Itoa(listPageSize))
		if endpoint == "groups" {
			params.Set("omit", "memberships")
		}

		v, err := c.get(ctx, endpoint, params)
		if err != nil {
			return err
		}

		entries := v.GetArray()
		if len(entries) == 0 {
			return nil
		}

		for _, entry := range entries {
			if !visit(entry) {
				return nil
			}
		}
	}
}

// mergeByLastUsed merges two slices already ordered by last use descending
// into one slice with the same ordering
func mergeByLastUsed(a, b []Chat) []Chat {
	merged := make([]Chat, 0, len(a)+len(b))

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Info().LastUsedEpoch > b[j].Info().LastUsedEpoch {
			merged = append(merged, a[i])
			i++
		} else {
			merged = append(merged, b[j])
			j++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)

	return merged
}
