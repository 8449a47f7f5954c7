package groupme

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// powerupIndex renders a fake powerup index with a single pack (id 1) holding
// two emoji and zip archives at resolutions 1 and 2
func powerupIndex(baseURL string) string {
	return fmt.Sprintf(`{"powerups":[{"meta":{"pack_id":1,"transliterations":["smile","wink"],"inline":[{"zip_url":"%s/pack1-160.zip"},{"zip_url":"%s/pack1-240.zip"}]}}]}`,
		baseURL, baseURL)
}

func emojiZip(t *testing.T, names ...string) []byte {
	var buf bytes.Buffer

	w := zip.NewWriter(&buf)
	for _, name := range names {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte("png bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func emojiMessage(c *Client, charmap [][2]int) *Message {
	return &Message{
		client: c,
		Text:   "?",
		Emoji:  &EmojiRef{Placeholder: "?", Charmap: charmap},
	}
}

// not parallel: downloads land in the working directory, which is switched to
// a temporary one for the duration of the test
func TestEmojiLinksDownloads(t *testing.T) {
	mux, srv := newFakeAPI(t)

	mux.HandleFunc("/powerups", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, powerupIndex(srv.URL))
	})
	archive := emojiZip(t, "pack1/wink.png")
	mux.HandleFunc("/pack1-240.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})

	c := bootstrapClient(t, srv)

	dir, err := ioutil.TempDir("", "emoji")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	m := emojiMessage(c, [][2]int{{1, 1}})

	// resolution 0 selects the default, which is the second inline entry
	links, err := m.EmojiLinks(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, links, 1)

	content, err := ioutil.ReadFile(links[0])
	require.NoError(t, err)
	require.Equal(t, []byte("png bytes"), content)

	require.NoError(t, RemoveEmojiFiles(links))
	_, err = os.Stat(links[0])
	require.True(t, os.IsNotExist(err))
}

func TestEmojiLinksNoEmoji(t *testing.T) {
	t.Parallel()

	m := &Message{Text: "plain"}

	links, err := m.EmojiLinks(context.Background(), 0)
	require.NoError(t, err)
	require.Nil(t, links)
}

func TestEmojiLinksBadResolution(t *testing.T) {
	t.Parallel()

	m := emojiMessage(nil, [][2]int{{1, 0}})

	_, err := m.EmojiLinks(context.Background(), 6)
	require.Error(t, err)
}

func TestEmojiLinksUnknownPack(t *testing.T) {
	t.Parallel()

	mux, srv := newFakeAPI(t)
	mux.HandleFunc("/powerups", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, powerupIndex(srv.URL))
	})

	c := bootstrapClient(t, srv)

	m := emojiMessage(c, [][2]int{{99, 0}})

	links, err := m.EmojiLinks(context.Background(), 0)
	require.NoError(t, err)
	require.Nil(t, links)
}

func TestEmojiLinksUnknownIndex(t *testing.T) {
	t.Parallel()

	mux, srv := newFakeAPI(t)
	mux.HandleFunc("/powerups", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, powerupIndex(srv.URL))
	})

	c := bootstrapClient(t, srv)

	m := emojiMessage(c, [][2]int{{1, 5}})

	links, err := m.EmojiLinks(context.Background(), 0)
	require.NoError(t, err)
	require.Nil(t, links)
}

func TestEmojiLinksMissingResolution(t *testing.T) {
	t.Parallel()

	mux, srv := newFakeAPI(t)
	mux.HandleFunc("/powerups", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, powerupIndex(srv.URL))
	})

	c := bootstrapClient(t, srv)

	m := emojiMessage(c, [][2]int{{1, 0}})

	// the fake pack only carries resolutions 1 and 2
	_, err := m.EmojiLinks(context.Background(), 4)
	require.Error(t, err)
}
