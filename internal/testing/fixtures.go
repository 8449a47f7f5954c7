package testing

import (
	"fmt"
	"strings"
)

// Builders for canned GroupMe API JSON used by httptest fakes.

// Envelope wraps a payload the way the GroupMe API renders every response
func Envelope(inner string) string {
	return `{"meta":{"code":200},"response":` + inner + `}`
}

// ListPage joins listing entries into one page array
func ListPage(entries ...string) string {
	return "[" + strings.Join(entries, ",") + "]"
}

// GroupEntry returns one groups listing entry
func GroupEntry(id, name string, created, lastUsed int64) string {
	return fmt.Sprintf(`{"id":"%s","name":"%s","description":"","created_at":%d,"messages":{"last_message_created_at":%d}}`,
		id, name, created, lastUsed)
}

// DirectEntry returns one chats listing entry
func DirectEntry(userID, name string, created, lastUsed int64) string {
	return fmt.Sprintf(`{"created_at":%d,"last_message":{"created_at":%d},"other_user":{"id":"%s","name":"%s"}}`,
		created, lastUsed, userID, name)
}

// MessageEntry returns one message page entry; attachments are appended as given
func MessageEntry(id, author string, created int64, text string, attachments ...string) string {
	return fmt.Sprintf(`{"id":"%s","name":"%s","avatar_url":"https://i.groupme.com/%s.avatar","created_at":%d,"text":"%s","attachments":[%s]}`,
		id, author, author, created, text, strings.Join(attachments, ","))
}

// GroupMessagePage wraps message entries into a groups/{id}/messages response
func GroupMessagePage(count int, entries ...string) string {
	return fmt.Sprintf(`{"count":%d,"messages":[%s]}`, count, strings.Join(entries, ","))
}

// DirectMessagePage wraps message entries into a direct_messages response
func DirectMessagePage(count int, entries ...string) string {
	return fmt.Sprintf(`{"count":%d,"direct_messages":[%s]}`, count, strings.Join(entries, ","))
}

// ImageAttachment returns an image attachment entry
func ImageAttachment(url string) string {
	return fmt.Sprintf(`{"type":"image","url":"%s"}`, url)
}

// EmojiAttachment returns a powerup emoji attachment entry with one charmap pair
func EmojiAttachment(placeholder string, packID, index int) string {
	return fmt.Sprintf(`{"type":"emoji","placeholder":"%s","charmap":[[%d,%d]]}`, placeholder, packID, index)
}

// ReplyAttachment returns a reply attachment entry
func ReplyAttachment(replyID string) string {
	return fmt.Sprintf(`{"type":"reply","reply_id":"%s","base_reply_id":"%s"}`, replyID, replyID)
}
