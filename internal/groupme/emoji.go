package groupme

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/valyala/fastjson"
)

// Emoji image resolutions accepted by EmojiLinks, per the powerup index:
// 1 = 160dpi, 2 = 240dpi (default), 3 = 320dpi, 4 = 480dpi, 5 = 640dpi.
const (
	minEmojiResolution     = 1
	maxEmojiResolution     = 5
	defaultEmojiResolution = 2
)

// EmojiLinks downloads the powerup emoji images referenced by the message's
// charmap into the current working directory and returns the local file
// paths. A resolution of 0 selects the default. The result is nil without
// error when the message has no emoji attachment or when the charmap points
// at an unknown pack or index.
func (m *Message) EmojiLinks(ctx context.Context, resolution int) ([]string, error) {
	if m.Emoji == nil {
		return nil, nil
	}

	if resolution == 0 {
		resolution = defaultEmojiResolution
	}
	if resolution < minEmojiResolution || resolution > maxEmojiResolution {
		return nil, fmt.Errorf("emoji resolution must be between %d and %d, got %d", minEmojiResolution, maxEmojiResolution, resolution)
	}

	body, err := m.client.getRaw(ctx, m.client.cfg.powerupURL)
	if err != nil {
		return nil, fmt.Errorf("could not fetch powerup emoji data: %w", err)
	}

	index, err := fastjson.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("malformed powerup emoji data: %w", err)
	}
	packs := index.GetArray("powerups")

	var links []string
	for _, entry := range m.Emoji.Charmap {
		packID, emojiIndex := entry[0], entry[1]

		pack := findPack(packs, packID)
		if pack == nil {
			return nil, nil
		}

		transliterations := pack.GetArray("meta", "transliterations")
		if emojiIndex < 0 || emojiIndex >= len(transliterations) {
			return nil, nil
		}

		inline := pack.GetArray("meta", "inline")
		if resolution > len(inline) {
			return nil, fmt.Errorf("emoji pack %d has no images at resolution %d", packID, resolution)
		}
		zipURL := string(inline[resolution-1].GetStringBytes("zip_url"))

		archive, err := m.client.getRaw(ctx, zipURL)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve emoji images: %w", err)
		}

		extracted, err := extractEmojiArchive(archive)
		if err != nil {
			return nil, err
		}
		links = append(links, extracted...)
	}

	return links, nil
}

// RemoveEmojiFiles deletes emoji image files previously downloaded by
// EmojiLinks
func RemoveEmojiFiles(paths []string) error {
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}

	return nil
}

// findPack locates the powerup pack with the given pack id
func findPack(packs []*fastjson.Value, packID int) *fastjson.Value {
	for _, pack := range packs {
		if pack.GetInt("meta", "pack_id") == packID {
			return pack
		}
	}

	return nil
}

// extractEmojiArchive unpacks a downloaded emoji zip into the working
// directory and returns the written file paths. Entries escaping the
// directory are rejected.
func extractEmojiArchive(archive []byte) ([]string, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("malformed emoji archive: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		name := filepath.Clean(file.Name)
		if strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return nil, fmt.Errorf("emoji archive entry %q escapes the working directory", file.Name)
		}

		src, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("reading emoji archive entry %q: %w", file.Name, err)
		}

		content, err := ioutil.ReadAll(io.LimitReader(src, int64(file.UncompressedSize64)))
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("reading emoji archive entry %q: %w", file.Name, err)
		}

		path := filepath.Join(cwd, name)
		if dir := filepath.Dir(path); dir != cwd {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}

		if err := ioutil.WriteFile(path, content, 0644); err != nil {
			return nil, fmt.Errorf("writing emoji image %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}
