package domain

import "strings"

// TorrentSource is a tagged variant: exactly one of Magnet or Metainfo is
// populated. MaxMetainfoBytes bounds the accepted .torrent payload size.
const MaxMetainfoBytes = 5 << 20 // 5 MiB

type TorrentSource struct {
	Magnet   string `json:"magnet,omitempty"`
	Metainfo []byte `json:"-"`
}

// Validate enforces the tagged-variant shape and the metainfo size cap.
func (s TorrentSource) Validate() error {
	hasMagnet := strings.TrimSpace(s.Magnet) != ""
	hasMetainfo := len(s.Metainfo) > 0
	if hasMagnet == hasMetainfo {
		return ErrInvalidSource
	}
	if hasMetainfo && len(s.Metainfo) > MaxMetainfoBytes {
		return ErrMetainfoTooLarge
	}
	return nil
}

func (s TorrentSource) IsMagnet() bool {
	return strings.TrimSpace(s.Magnet) != ""
}
