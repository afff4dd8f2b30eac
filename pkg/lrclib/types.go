package lrclib

// SearchResult is one record of the /api/search response. Lyrics fields are
// nil when the API sends null or omits them.
type SearchResult struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  *string `json:"plainLyrics"`
	SyncedLyrics *string `json:"syncedLyrics"`
}

// HasSyncedLyrics reports whether the record carries non-empty timed lyrics.
func (r SearchResult) HasSyncedLyrics() bool {
	return r.SyncedLyrics != nil && *r.SyncedLyrics != ""
}

// Synced returns the timed lyrics, or "" when there are none.
func (r SearchResult) Synced() string {
	if r.SyncedLyrics == nil {
		return ""
	}
	return *r.SyncedLyrics
}
