// Package musicbrainz looks up the release of a disc by its MusicBrainz
// disc ID so checksum listings can name their tracks.
package musicbrainz

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uploadedlobster.com/mbtypes"
	"go.uploadedlobster.com/musicbrainzws2"
)

// requestInterval is the MusicBrainz rate limit for anonymous clients
const requestInterval = time.Second

const (
	unknownArtist  = "Unknown Artist"
	variousArtists = "Various Artists"
)

var ErrNoRelease = errors.New("musicbrainz: no release matches the disc ID")

// Release is the metadata of one release of a disc
type Release struct {
	MBID        mbtypes.MBID
	Title       string
	Artist      string
	Year        int
	Country     string
	TrackCount  int // tracks on the medium matching the disc
	Compilation bool
	Tracks      []Track
}

// Track is one track of the matched medium
type Track struct {
	Num    int
	Title  string
	Artist string
}

// TrackTitle returns the title of track num, or "" when unknown. On
// compilations the title is prefixed with the track artist.
func (r Release) TrackTitle(num int) string {
	for _, t := range r.Tracks {
		if t.Num != num {
			continue
		}
		if r.Compilation && t.Artist != "" {
			return t.Artist + " - " + t.Title
		}
		return t.Title
	}
	return ""
}

// Client wraps the MusicBrainz web service. Requests are spaced by the
// service rate limit.
type Client struct {
	client *musicbrainzws2.Client
	last   time.Time
	m      sync.Mutex
}

// NewClient creates a new MusicBrainz API client
func NewClient(appName, version, contact string) *Client {
	return &Client{client: musicbrainzws2.NewClient(musicbrainzws2.AppInfo{
		Name:    appName,
		Version: version,
		URL:     contact,
	})}
}

// Close releases client resources
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) throttle(ctx context.Context) error {
	c.m.Lock()
	defer c.m.Unlock()

	if wait := requestInterval - time.Since(c.last); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	c.last = time.Now()
	return nil
}

// LookupDisc returns the releases containing the disc, best match first.
// trackCount is the number of tracks in the disc's TOC; it picks the medium
// of multi-disc releases and ranks releases.
func (c *Client) LookupDisc(ctx context.Context, discID string, trackCount int) ([]Release, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	disc, err := c.client.LookupDiscID(ctx, discID, musicbrainzws2.DiscIDFilter{
		Includes: []string{"recordings", "artists", "release-groups"},
	})
	if err != nil {
		return nil, fmt.Errorf("musicbrainz: disc lookup of %s failed: %w", discID, err)
	}
	if len(disc.Releases) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRelease, discID)
	}

	releases := make([]Release, 0, len(disc.Releases))
	for _, r := range disc.Releases {
		rel := Release{
			MBID:        mbtypes.MBID(r.ID),
			Title:       r.Title,
			Artist:      artistName(r.ArtistCredit),
			Year:        r.Date.Year,
			Country:     string(r.CountryCode),
			Compilation: isCompilation(r.ArtistCredit),
		}
		if m, ok := matchMedium(r.Media, trackCount); ok {
			rel.TrackCount = m.TrackCount
			for _, t := range m.Tracks {
				rel.Tracks = append(rel.Tracks, Track{
					Num:    t.Position,
					Title:  t.Title,
					Artist: trackArtist(t, r.ArtistCredit),
				})
			}
		}
		releases = append(releases, rel)
	}
	return SortByTrackMatch(releases, trackCount), nil
}

// matchMedium returns the first medium with trackCount tracks, falling back
// to the first medium.
func matchMedium(media []musicbrainzws2.Medium, trackCount int) (musicbrainzws2.Medium, bool) {
	if len(media) == 0 {
		return musicbrainzws2.Medium{}, false
	}
	for _, m := range media {
		if m.TrackCount == trackCount {
			return m, true
		}
	}
	return media[0], true
}

// SortByTrackMatch orders releases with trackCount tracks first, newest
// first within each group. The input is not modified.
func SortByTrackMatch(releases []Release, trackCount int) []Release {
	sorted := slices.Clone(releases)
	slices.SortStableFunc(sorted, func(a, b Release) int {
		am, bm := a.TrackCount == trackCount, b.TrackCount == trackCount
		if am != bm {
			if am {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.Year, a.Year)
	})
	return sorted
}

func artistName(credit musicbrainzws2.ArtistCredit) string {
	if len(credit) == 0 {
		return unknownArtist
	}
	return credit.String()
}

// trackArtist prefers the track credit, then the recording credit, then the
// release artist.
func trackArtist(t musicbrainzws2.Track, release musicbrainzws2.ArtistCredit) string {
	if len(t.ArtistCredit) > 0 {
		return t.ArtistCredit.String()
	}
	if len(t.Recording.ArtistCredit) > 0 {
		return t.Recording.ArtistCredit.String()
	}
	return artistName(release)
}

func isCompilation(credit musicbrainzws2.ArtistCredit) bool {
	return len(credit) > 0 && artistName(credit) == variousArtists
}
