package musicbrainz

import (
	"context"
	"testing"
	"time"

	"go.uploadedlobster.com/musicbrainzws2"
)

func TestNewClient(t *testing.T) {
	c := NewClient("test-app", "1.0", "test@example.com")
	if c.client == nil {
		t.Fatal("inner client is nil")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestArtistName(t *testing.T) {
	for _, test := range []struct {
		credit musicbrainzws2.ArtistCredit
		want   string
	}{
		{musicbrainzws2.ArtistCredit{{Name: "The Beatles"}}, "The Beatles"},
		{musicbrainzws2.ArtistCredit{{Name: "Queen", JoinPhrase: " & "}, {Name: "David Bowie"}}, "Queen & David Bowie"},
		{musicbrainzws2.ArtistCredit{}, unknownArtist},
	} {
		if got := artistName(test.credit); got != test.want {
			t.Errorf("artistName() = %q, want %q", got, test.want)
		}
	}
}

func TestIsCompilation(t *testing.T) {
	if !isCompilation(musicbrainzws2.ArtistCredit{{Name: variousArtists}}) {
		t.Error("isCompilation(Various Artists) = false, want true")
	}
	if isCompilation(musicbrainzws2.ArtistCredit{{Name: "Pink Floyd"}}) {
		t.Error("isCompilation(Pink Floyd) = true, want false")
	}
	if isCompilation(musicbrainzws2.ArtistCredit{}) {
		t.Error("isCompilation(empty) = true, want false")
	}
}

func TestTrackArtist(t *testing.T) {
	album := musicbrainzws2.ArtistCredit{{Name: variousArtists}}

	got := trackArtist(musicbrainzws2.Track{ArtistCredit: musicbrainzws2.ArtistCredit{{Name: "Nico"}}}, album)
	if got != "Nico" {
		t.Errorf("trackArtist() = %q, want %q", got, "Nico")
	}
	if got = trackArtist(musicbrainzws2.Track{}, album); got != variousArtists {
		t.Errorf("trackArtist() = %q, want %q", got, variousArtists)
	}
}

func TestMatchMedium(t *testing.T) {
	media := []musicbrainzws2.Medium{
		{TrackCount: 12},
		{TrackCount: 10},
	}
	if m, ok := matchMedium(media, 10); !ok || m.TrackCount != 10 {
		t.Errorf("matchMedium(10) = %d, %v, want 10, true", m.TrackCount, ok)
	}
	if m, ok := matchMedium(media, 7); !ok || m.TrackCount != 12 {
		t.Errorf("matchMedium(7) = %d, %v, want 12, true", m.TrackCount, ok)
	}
	if _, ok := matchMedium(nil, 7); ok {
		t.Error("matchMedium(nil) ok = true, want false")
	}
}

func TestSortByTrackMatch(t *testing.T) {
	releases := []Release{
		{Title: "Box Set", TrackCount: 38, Year: 2017},
		{Title: "Vol 2", TrackCount: 12, Year: 1994},
		{Title: "Vol 1 GB", TrackCount: 12, Year: 1992},
		{Title: "Vol 1 US", TrackCount: 12, Year: 1992},
		{Title: "Best Of", TrackCount: 13, Year: 2001},
	}

	sorted := SortByTrackMatch(releases, 12)

	var titles []string
	for _, r := range sorted {
		titles = append(titles, r.Title)
	}
	want := []string{"Vol 2", "Vol 1 GB", "Vol 1 US", "Box Set", "Best Of"}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("SortByTrackMatch titles = %v, want %v", titles, want)
		}
	}
	if releases[0].Title != "Box Set" {
		t.Error("SortByTrackMatch modified its input")
	}
}

func TestSortByTrackMatch_NoMatches(t *testing.T) {
	sorted := SortByTrackMatch([]Release{
		{Title: "B", TrackCount: 15, Year: 2019},
		{Title: "A", TrackCount: 10, Year: 2020},
	}, 12)
	if sorted[0].Year != 2020 {
		t.Errorf("sorted[0].Year = %d, want 2020", sorted[0].Year)
	}
}

func TestReleaseTrackTitle(t *testing.T) {
	r := Release{Tracks: []Track{{Num: 1, Title: "One"}, {Num: 2, Title: "Two"}}}
	if got := r.TrackTitle(2); got != "Two" {
		t.Errorf("TrackTitle(2) = %q, want %q", got, "Two")
	}
	if got := r.TrackTitle(3); got != "" {
		t.Errorf("TrackTitle(3) = %q, want empty", got)
	}

	r = Release{Compilation: true, Tracks: []Track{{Num: 1, Title: "Song", Artist: "Someone"}, {Num: 2, Title: "Other"}}}
	if got, want := r.TrackTitle(1), "Someone - Song"; got != want {
		t.Errorf("TrackTitle(1) = %q, want %q", got, want)
	}
	if got, want := r.TrackTitle(2), "Other"; got != want {
		t.Errorf("TrackTitle(2) = %q, want %q", got, want)
	}
}

func TestThrottle_Canceled(t *testing.T) {
	c := &Client{last: time.Now()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := c.throttle(ctx); err != context.Canceled {
		t.Errorf("throttle error = %v, want %v", err, context.Canceled)
	}
	if time.Since(start) > requestInterval/2 {
		t.Error("throttle waited despite a canceled context")
	}
}
