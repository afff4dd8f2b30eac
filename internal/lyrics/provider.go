package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"lrcplay/pkg/ai"
	"lrcplay/pkg/ai/gemini"
	"lrcplay/pkg/ai/openai"
	"lrcplay/pkg/fileutil"
	"lrcplay/pkg/lrclib"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	resolveTimeout = 20 * time.Second
	resolveRetries = 3
)

// Searcher runs one lrclib search.
type Searcher interface {
	Search(ctx context.Context, params map[string]string) ([]lrclib.SearchResult, error)
}

// Provider turns user input into lrclib search results and exports chosen
// lyrics.
type Provider struct {
	client     Searcher
	aiClient   ai.AiInterface
	exportDir  string
	retryDelay time.Duration
	sleep      func(context.Context, time.Duration) error
	logger     zerolog.Logger
}

// SongInfo is the structured answer expected from the AI resolver.
type SongInfo struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	IsSong bool   `json:"is_song"`
}

func formatQuerySong(text string) string {
	return fmt.Sprintf(`Extract the song from the following search text and answer with exactly this JSON: {"is_song": true, "title": "song title", "artist": "performer"}. If the text does not name a song, answer {"is_song": false}. Use the exact title and artist spelling, no markdown. Search text: %s`, text)
}

// NewAIClient builds the configured language model backend. It returns nil
// when no API key is set.
func NewAIClient(moduleName, apiKey, baseURL string) (ai.AiInterface, error) {
	if apiKey == "" {
		return nil, nil
	}
	if moduleName == "" || moduleName == "gemini" {
		client, err := gemini.NewGemini(apiKey, "")
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return openai.NewOpenAi(apiKey, moduleName, baseURL), nil
}

// NewProvider wires a search client with an optional AI resolver. An empty
// exportDir disables .lrc export.
func NewProvider(client Searcher, aiClient ai.AiInterface, exportDir string) *Provider {
	return &Provider{
		client:     client,
		aiClient:   aiClient,
		exportDir:  exportDir,
		retryDelay: time.Second,
		sleep:      sleepContext,
		logger:     log.With().Str("component", "lyrics-provider").Logger(),
	}
}

// Search passes structured parameters straight to the client.
func (p *Provider) Search(ctx context.Context, params map[string]string) ([]lrclib.SearchResult, error) {
	p.logger.Info().Interface("params", params).Msg("Searching")
	return p.client.Search(ctx, params)
}

// SearchText searches for free text. With an AI resolver the text is first
// turned into a title/artist search; when that yields nothing the plain
// keyword search runs instead.
func (p *Provider) SearchText(ctx context.Context, text string) ([]lrclib.SearchResult, error) {
	text = strings.TrimSpace(text)

	if p.aiClient != nil && text != "" {
		info, err := p.resolve(ctx, text)
		switch {
		case err != nil:
			p.logger.Warn().Err(err).Msg("AI resolver failed, using keyword search")
		case !info.IsSong || info.Title == "":
			p.logger.Info().Str("text", text).Msg("AI resolver found no song, using keyword search")
		default:
			params := map[string]string{lrclib.ParamTrack: info.Title, lrclib.ParamArtist: info.Artist}
			results, err := p.Search(ctx, params)
			if err == nil && len(results) > 0 {
				return results, nil
			}
			p.logger.Info().Err(err).Str("title", info.Title).Str("artist", info.Artist).Msg("Resolved search found nothing, using keyword search")
		}
	}

	return p.Search(ctx, map[string]string{lrclib.ParamQuery: text})
}

func (p *Provider) resolve(ctx context.Context, text string) (SongInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	var (
		raw      string
		err      error
		attempts int
	)
	for attempts < resolveRetries {
		if attempts > 0 {
			if serr := p.sleep(ctx, p.retryDelay); serr != nil {
				break
			}
		}
		attempts++
		raw, err = p.aiClient.HandleText(ctx, formatQuerySong(text))
		if err == nil {
			break
		}
		p.logger.Warn().Err(err).Str("backend", p.aiClient.Name()).Int("attempt", attempts).Msg("AI query failed")
	}
	if err != nil {
		return SongInfo{}, fmt.Errorf("failed to query %s after %d attempts: %w", p.aiClient.Name(), attempts, err)
	}

	var info SongInfo
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &info); err != nil {
		return SongInfo{}, fmt.Errorf("failed to parse %s response: %w", p.aiClient.Name(), err)
	}
	p.logger.Info().Str("title", info.Title).Str("artist", info.Artist).Bool("is_song", info.IsSong).Msg("AI resolver answered")
	return info, nil
}

// stripCodeFence removes a surrounding ``` block that models add despite
// being asked not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Export writes the song's synced lyrics to <exportDir>/<artist>-<title>.lrc
// and returns the path. It does nothing when export is disabled.
func (p *Provider) Export(song lrclib.SearchResult) (string, error) {
	if p.exportDir == "" || !song.HasSyncedLyrics() {
		return "", nil
	}
	path := filepath.Join(p.exportDir, sanitizeFilename(song.ArtistName+"-"+song.TrackName)+".lrc")
	if err := fileutil.WriteFileOverwrite(path, []byte(song.Synced()), 0644); err != nil {
		return "", err
	}
	p.logger.Info().Str("path", path).Msg("Saved lyrics")
	return path, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

func sanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "-")
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
