package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Score is a rating that the REST API encodes as a string ("8.52") and
// older payloads encode as a number.
type Score float64

func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str == "" {
			*s = 0
			return nil
		}
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return fmt.Errorf("score %q: %w", str, err)
		}
		*s = Score(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*s = Score(f)
	return nil
}

// Image holds poster URLs in several sizes.
type Image struct {
	Original string `json:"original,omitempty"`
	Preview  string `json:"preview,omitempty"`
	X96      string `json:"x96,omitempty"`
	X48      string `json:"x48,omitempty"`
}

// Genre is a catalog genre.
type Genre struct {
	Name    string `json:"name"`
	Russian string `json:"russian"`
	Kind    string `json:"kind"`
	ID      int    `json:"id"`
}

// Anime is a metadata record. List endpoints fill the short fields only.
type Anime struct {
	Image         Image   `json:"image"`
	Name          string  `json:"name"`
	Russian       string  `json:"russian"`
	Kind          string  `json:"kind"`
	Status        string  `json:"status,omitempty"`
	AiredOn       string  `json:"aired_on,omitempty"`
	ReleasedOn    string  `json:"released_on,omitempty"`
	URL           string  `json:"url,omitempty"`
	Description   string  `json:"description,omitempty"`
	Franchise     string  `json:"franchise,omitempty"`
	Genres        []Genre `json:"genres,omitempty"`
	Score         Score   `json:"score"`
	ID            int     `json:"id"`
	Episodes      int     `json:"episodes,omitempty"`
	EpisodesAired int     `json:"episodes_aired,omitempty"`
}

// Kinds that are never listed: music videos, ONAs and TV specials.
var hiddenKinds = []string{"music", "ona", "tv_special"}

// CanShow reports whether the title belongs in lists and search results.
func (a Anime) CanShow() bool {
	return !slices.Contains(hiddenKinds, a.Kind)
}

// CanOpen reports whether the title has enough data for a details page.
func (a Anime) CanOpen() bool {
	return a.Score != 0
}

// Poster returns the largest poster URL.
func (a Anime) Poster() string {
	return a.Image.Original
}

// Visible filters list to titles that CanShow.
func Visible(list []Anime) []Anime {
	out := make([]Anime, 0, len(list))
	for _, a := range list {
		if a.CanShow() {
			out = append(out, a)
		}
	}
	return out
}

// Translation is a dub or subtitle track.
type Translation struct {
	Title string `json:"title"`
	Type  string `json:"type,omitempty"`
	ID    int    `json:"id,omitempty"`
}

// MaterialData is descriptive data Kodik attaches to a source.
type MaterialData struct {
	Description    string   `json:"description,omitempty"`
	PosterURL      string   `json:"poster_url,omitempty"`
	AnimePosterURL string   `json:"anime_poster_url,omitempty"`
	Screenshots    []string `json:"screenshots,omitempty"`
}

// Source is one playable release of a title.
type Source struct {
	MaterialData  *MaterialData `json:"material_data,omitempty"`
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Link          string        `json:"link"`
	Quality       string        `json:"quality,omitempty"`
	Translation   Translation   `json:"translation"`
	Screenshots   []string      `json:"screenshots,omitempty"`
	EpisodesCount int           `json:"episodes_count,omitempty"`
	LastEpisode   int           `json:"last_episode,omitempty"`
}

// Relation links a title to a related title.
type Relation struct {
	Anime           *Anime `json:"anime"`
	Relation        string `json:"relation"`
	RelationRussian string `json:"relation_russian"`
}

// ListQuery filters the catalog listing. Zero fields are omitted.
type ListQuery struct {
	Order  string
	Kind   string
	Status string
	Season string
	Page   int
	Limit  int
	Score  int
}
