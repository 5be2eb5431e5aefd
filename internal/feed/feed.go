// Package feed parses WebSub push payloads: Atom feeds carrying YouTube's
// yt-namespaced video metadata.
package feed

import (
	"encoding/xml"
	"fmt"
)

// Video is the content a push delivery refers to.
type Video struct {
	ID    string
	Title string
	URL   string
}

// MalformedFeedError indicates the payload is not a usable feed. Deliveries
// are already authenticated when parsed, so this surfaces as an internal
// error rather than a client error.
type MalformedFeedError struct {
	Reason string
}

func (e *MalformedFeedError) Error() string {
	return "malformed feed: " + e.Reason
}

type atomFeed struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []atomEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type atomEntry struct {
	VideoID string `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	Title   string `xml:"http://www.w3.org/2005/Atom title"`
}

// Parse extracts the video reference from an Atom push payload. When the
// feed carries multiple entries the first one is used.
func Parse(body []byte) (Video, error) {
	var f atomFeed
	if err := xml.Unmarshal(body, &f); err != nil {
		return Video{}, &MalformedFeedError{Reason: fmt.Sprintf("invalid XML: %v", err)}
	}

	if len(f.Entries) == 0 {
		return Video{}, &MalformedFeedError{Reason: "no entry found"}
	}

	entry := f.Entries[0]
	if entry.VideoID == "" {
		return Video{}, &MalformedFeedError{Reason: "no videoId found"}
	}
	if entry.Title == "" {
		return Video{}, &MalformedFeedError{Reason: "no title found"}
	}

	return Video{
		ID:    entry.VideoID,
		Title: entry.Title,
		URL:   WatchURL(entry.VideoID),
	}, nil
}

// WatchURL derives the canonical video URL from its id.
func WatchURL(videoID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
}
