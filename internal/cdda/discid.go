package cdda

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
)

// maxTracks is the number of track slots hashed into a disc ID
const maxTracks = 99

// discIDEncoding is base64 with the MusicBrainz substitutions
// ("+" to ".", "/" to "_" and "=" to "-").
var discIDEncoding = base64.NewEncoding("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789._").WithPadding('-')

// DiscID computes the 28 character MusicBrainz disc ID of a TOC. The SHA-1
// input is the first and last track numbers as two hex digits each followed
// by 100 offsets as eight hex digits each: the lead-out, then tracks 1 to 99
// with 0 for missing tracks. The TOC holds drive LBAs; offsets are hashed
// as absolute frames, PregapFrames further on.
func DiscID(toc TOC) string {
	var offsets [maxTracks + 1]int
	offsets[0] = toc.LeadoutLBA + PregapFrames
	for _, t := range toc.Tracks {
		if t.Num >= 1 && t.Num <= maxTracks {
			offsets[t.Num] = t.LBA + PregapFrames
		}
	}

	h := sha1.New()
	fmt.Fprintf(h, "%02X%02X", toc.FirstTrack, toc.LastTrack)
	for _, o := range offsets {
		fmt.Fprintf(h, "%08X", o)
	}
	return discIDEncoding.EncodeToString(h.Sum(nil))
}
