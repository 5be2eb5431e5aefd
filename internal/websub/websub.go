// Package websub implements the subscriber half of the WebSub
// (PubSubHubbub) protocol: HMAC verification of hub push deliveries,
// the GET verification handshake, and periodic subscription renewal with
// secret rotation.
package websub

import "fmt"

// LeaseSeconds is the subscription lease requested from the hub (~9.58 days).
const LeaseSeconds = 828000

// TopicURL returns the feed topic URL for a channel.
func TopicURL(channelID string) string {
	return fmt.Sprintf("https://www.youtube.com/xml/feeds/videos.xml?channel_id=%s", channelID)
}
