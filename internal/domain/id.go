package domain

import "github.com/google/uuid"

// TorrentID is an opaque UUID, stable for the lifetime of the admitted
// torrent. Clients never construct one; NewTorrentID is called exactly
// once, at admission.
type TorrentID string

// NewTorrentID mints a fresh random TorrentID.
func NewTorrentID() TorrentID {
	return TorrentID(uuid.NewString())
}

// Compact renders the id in its hyphenless hex form, used by the qB
// compatibility layer as the torrent "hash".
func (id TorrentID) Compact() string {
	parsed, err := uuid.Parse(string(id))
	if err != nil {
		return string(id)
	}
	var buf [32]byte
	hexEncode(buf[:], parsed[:])
	return string(buf[:])
}

const hexDigits = "0123456789abcdef"

func hexEncode(dst []byte, src []byte) {
	j := 0
	for _, b := range src {
		dst[j] = hexDigits[b>>4]
		dst[j+1] = hexDigits[b&0x0f]
		j += 2
	}
}

// ParseCompactID resolves a qB-style hex hash back to a TorrentID by
// reinserting UUID hyphens. Returns false if the input isn't a 32-char hex
// string.
func ParseCompactID(hash string) (TorrentID, bool) {
	if len(hash) != 32 {
		return "", false
	}
	for _, r := range hash {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return "", false
		}
	}
	formatted := hash[0:8] + "-" + hash[8:12] + "-" + hash[12:16] + "-" + hash[16:20] + "-" + hash[20:32]
	parsed, err := uuid.Parse(formatted)
	if err != nil {
		return "", false
	}
	return TorrentID(parsed.String()), true
}
