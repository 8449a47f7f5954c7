package groupme

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"

	mytesting "groupme-archiver/internal/testing"
)

func TestNewMessageAttachments(t *testing.T) {
	t.Parallel()

	epoch := time.Date(2024, 5, 10, 14, 30, 0, 0, time.Local).Unix()
	entry := mytesting.MessageEntry("m1", "Alice", epoch, "look at this",
		mytesting.ImageAttachment("https://i.groupme.com/photo.jpg"),
		mytesting.EmojiAttachment("?", 3, 7),
		mytesting.ReplyAttachment("m0"),
	)

	v, err := fastjson.Parse(entry)
	require.NoError(t, err)

	m := newMessage(nil, "Some Group", true, v)

	require.Equal(t, "m1", m.ID)
	require.Equal(t, "Alice", m.Author)
	require.Equal(t, "Some Group", m.Chat)
	require.True(t, m.IsGroup)
	require.Equal(t, "look at this", m.Text)
	require.Equal(t, epoch, m.TimeEpoch)
	require.Equal(t, epochToString(epoch), m.Time)
	require.Equal(t, []string{"https://i.groupme.com/photo.jpg"}, m.ImageURLs)
	require.NotNil(t, m.Emoji)
	require.Equal(t, "?", m.Emoji.Placeholder)
	require.Equal(t, [][2]int{{3, 7}}, m.Emoji.Charmap)
	require.Equal(t, "m0", m.ReplyMessageID)
}

func TestNewMessagePlain(t *testing.T) {
	t.Parallel()

	entry := mytesting.MessageEntry("m1", "Bob", time.Now().Unix(), "no frills")

	v, err := fastjson.Parse(entry)
	require.NoError(t, err)

	m := newMessage(nil, "Alice", false, v)

	require.False(t, m.IsGroup)
	require.Empty(t, m.ImageURLs)
	require.Nil(t, m.Emoji)
	require.Empty(t, m.ReplyMessageID)
}

func TestRepliedMessageNotAReply(t *testing.T) {
	t.Parallel()

	m := &Message{ID: "m1", Text: "just a message"}

	replied, err := m.RepliedMessage(context.Background())
	require.NoError(t, err)
	require.Nil(t, replied)
}

func TestRepliedMessageGroup(t *testing.T) {
	t.Parallel()

	mux, srv := newFakeAPI(t)

	now := time.Now()
	f := &fakeHistory{
		ids:     []string{"m3", "m2", "m1"},
		isGroup: true,
		entries: []string{
			mytesting.MessageEntry("m3", "Alice", now.Unix(), "answering you", mytesting.ReplyAttachment("m1")),
			mytesting.MessageEntry("m2", "Bob", now.Add(-time.Minute).Unix(), "noise"),
			mytesting.MessageEntry("m1", "Carol", now.Add(-2*time.Minute).Unix(), "the question"),
		},
	}
	mux.HandleFunc("/groups/g1/messages", f.handler())
	mux.HandleFunc("/groups", listingHandler([]string{
		mytesting.GroupEntry("g1", "Replies", now.Unix()-500000, now.Unix()),
	}))

	c := bootstrapClient(t, srv)

	chat, err := c.GetChat(context.Background(), "Replies", false)
	require.NoError(t, err)

	messages, err := chat.Messages(context.Background(), MessageQuery{})
	require.NoError(t, err)
	require.Len(t, messages, 3)
	require.Equal(t, "m1", messages[0].ReplyMessageID)

	replied, err := messages[0].RepliedMessage(context.Background())
	require.NoError(t, err)
	require.NotNil(t, replied)
	require.Equal(t, "m1", replied.ID)
	require.Equal(t, "the question", replied.Text)
}

func TestRepliedMessageDirect(t *testing.T) {
	t.Parallel()

	mux, srv := newFakeAPI(t)

	now := time.Now()
	f := &fakeHistory{
		ids: []string{"d2", "d1"},
		entries: []string{
			mytesting.MessageEntry("d2", "Alice", now.Unix(), "yes it was", mytesting.ReplyAttachment("d1")),
			mytesting.MessageEntry("d1", "Me", now.Add(-time.Minute).Unix(), "was it good"),
		},
	}
	mux.HandleFunc("/direct_messages", f.handler())
	mux.HandleFunc("/chats", listingHandler([]string{
		mytesting.DirectEntry("u7", "Alice", now.Unix()-500000, now.Unix()),
	}))

	c := bootstrapClient(t, srv)

	chat, err := c.GetChat(context.Background(), "Alice", true)
	require.NoError(t, err)

	messages, err := chat.Messages(context.Background(), MessageQuery{})
	require.NoError(t, err)
	require.Len(t, messages, 2)

	replied, err := messages[0].RepliedMessage(context.Background())
	require.NoError(t, err)
	require.NotNil(t, replied)
	require.Equal(t, "d1", replied.ID)
}

// a reply whose target was deleted resolves to nil once the history runs out
func TestRepliedMessageDeletedTarget(t *testing.T) {
	t.Parallel()

	mux, srv := newFakeAPI(t)

	now := time.Now()
	f := &fakeHistory{
		ids:     []string{"m2", "m1"},
		isGroup: true,
		entries: []string{
			mytesting.MessageEntry("m2", "Alice", now.Unix(), "answering a ghost", mytesting.ReplyAttachment("gone")),
			mytesting.MessageEntry("m1", "Bob", now.Add(-time.Minute).Unix(), "unrelated"),
		},
	}
	mux.HandleFunc("/groups/g1/messages", f.handler())
	mux.HandleFunc("/groups", listingHandler([]string{
		mytesting.GroupEntry("g1", "Replies", now.Unix()-500000, now.Unix()),
	}))

	c := bootstrapClient(t, srv)

	chat, err := c.GetChat(context.Background(), "Replies", false)
	require.NoError(t, err)

	messages, err := chat.Messages(context.Background(), MessageQuery{})
	require.NoError(t, err)

	replied, err := messages[0].RepliedMessage(context.Background())
	require.NoError(t, err)
	require.Nil(t, replied)
}
