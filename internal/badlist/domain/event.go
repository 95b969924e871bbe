package domain

import (
	"fmt"
	"strings"
)

// Matrix message types the screener cares about. Anything else passes
// through unexamined.
const (
	EventTypeMessage = "m.room.message"

	MsgTypeText  = "m.text"
	MsgTypeFile  = "m.file"
	MsgTypeImage = "m.image"
	MsgTypeVideo = "m.video"
	MsgTypeAudio = "m.audio"
)

// Event is the slice of a Matrix room event the screener inspects.
type Event struct {
	Type    string       `json:"type"`
	Content EventContent `json:"content"`
}

// EventContent carries the message fields relevant to screening.
// Body and FormattedBody are scanned for links; URL references uploaded
// media for the hash pipeline.
type EventContent struct {
	MsgType       string `json:"msgtype"`
	Body          string `json:"body"`
	Format        string `json:"format,omitempty"`
	FormattedBody string `json:"formatted_body,omitempty"`
	URL           string `json:"url,omitempty"`
}

// IsMedia reports whether the content references an uploaded file that
// should go through the hash pipeline.
func (c EventContent) IsMedia() bool {
	switch c.MsgType {
	case MsgTypeFile, MsgTypeImage, MsgTypeVideo, MsgTypeAudio:
		return c.URL != ""
	default:
		return false
	}
}

// MXC is a parsed mxc:// content URI.
type MXC struct {
	ServerName string
	MediaID    string
}

// ParseMXC parses an mxc://server/mediaID content URI.
func ParseMXC(uri string) (MXC, error) {
	rest, ok := strings.CutPrefix(uri, "mxc://")
	if !ok {
		return MXC{}, fmt.Errorf("not an mxc URI: %q", uri)
	}
	server, mediaID, ok := strings.Cut(rest, "/")
	if !ok || server == "" || mediaID == "" {
		return MXC{}, fmt.Errorf("malformed mxc URI: %q", uri)
	}
	return MXC{ServerName: server, MediaID: mediaID}, nil
}
