package downloader

import (
	"path/filepath"
	"strings"

	id3v2 "github.com/bogem/id3v2/v2"
)

// EmbedAudioTags writes ID3v2 title and artist frames into an mp3.
// Non-mp3 files are skipped without error; tagging is best effort and
// never blocks a finished download.
func EmbedAudioTags(path, title, artist string) error {
	if strings.ToLower(filepath.Ext(path)) != ".mp3" {
		return nil
	}
	if title == "" && artist == "" {
		return nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	if title != "" {
		tag.SetTitle(title)
	}
	if artist != "" {
		tag.SetArtist(artist)
	}
	return tag.Save()
}
