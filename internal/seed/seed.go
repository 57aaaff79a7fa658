// Package seed loads YAML fixtures into the store and blob store. It is used
// for local development and by the end-to-end tests.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/gdps-dev/gdps/internal/model"
)

// Store is the write side needed to apply a fixture. *store.Store satisfies it.
type Store interface {
	InsertAccount(ctx context.Context, a model.Account) error
	InsertUser(ctx context.Context, u model.User) error
	InsertSong(ctx context.Context, s model.Song) error
	InsertLevel(ctx context.Context, l model.Level) (int, error)
	InsertDailyFeature(ctx context.Context, levelID, featureType int, ts int64) error
	InsertEvent(ctx context.Context, levelID int, ts int64, duration int) error
	InsertSuggestion(ctx context.Context, levelID, by, stars, featured int, ts int64) error
	InsertAccountComment(ctx context.Context, c model.AccountComment) (int, error)
}

// Fixture is the YAML document shape. Times are given as a duration before
// the moment the fixture is applied ("ago").
type Fixture struct {
	Accounts    []Account    `yaml:"accounts"`
	Users       []User       `yaml:"users"`
	Songs       []Song       `yaml:"songs"`
	Levels      []Level      `yaml:"levels"`
	Daily       []Feature    `yaml:"daily"`
	Events      []Event      `yaml:"events"`
	Suggestions []Suggestion `yaml:"suggestions"`
	Comments    []Comment    `yaml:"comments"`
}

type Account struct {
	ID       int    `yaml:"id"`
	Username string `yaml:"username"`
	GJP2     string `yaml:"gjp2"`
}

type User struct {
	UserID        int     `yaml:"user_id"`
	AccountID     int     `yaml:"account_id"`
	Username      string  `yaml:"username"`
	Stars         int     `yaml:"stars"`
	Moons         int     `yaml:"moons"`
	Demons        int     `yaml:"demons"`
	Diamonds      int     `yaml:"diamonds"`
	Coins         int     `yaml:"coins"`
	UserCoins     int     `yaml:"user_coins"`
	CreatorPoints float64 `yaml:"creator_points"`
	Icon          int     `yaml:"icon"`
	IconType      int     `yaml:"icon_type"`
	Color1        int     `yaml:"color1"`
	Color2        int     `yaml:"color2"`
	Color3        int     `yaml:"color3"`
	Special       int     `yaml:"special"`
	Banned        bool    `yaml:"banned"`
}

type Song struct {
	ID         int    `yaml:"id"`
	Name       string `yaml:"name"`
	AuthorID   int    `yaml:"author_id"`
	AuthorName string `yaml:"author_name"`
	Size       string `yaml:"size"`
	Download   string `yaml:"download"`
	Disabled   bool   `yaml:"disabled"`
}

type Level struct {
	ID             int           `yaml:"id"`
	Name           string        `yaml:"name"`
	Description    string        `yaml:"description"`
	Version        int           `yaml:"version"`
	UserID         int           `yaml:"user_id"`
	GameVersion    int           `yaml:"game_version"`
	Length         int           `yaml:"length"`
	AudioTrack     int           `yaml:"audio_track"`
	SongID         int           `yaml:"song_id"`
	Objects        int           `yaml:"objects"`
	Coins          int           `yaml:"coins"`
	RequestedStars int           `yaml:"requested_stars"`
	Original       int           `yaml:"original"`
	TwoPlayer      bool          `yaml:"two_player"`
	Password       int           `yaml:"password"`
	Stars          int           `yaml:"stars"`
	Difficulty     *int          `yaml:"difficulty"` // overrides the star-derived face
	DemonTier      int           `yaml:"demon_tier"`
	Featured       int           `yaml:"featured"`
	Epic           int           `yaml:"epic"`
	VerifiedCoins  bool          `yaml:"verified_coins"`
	Downloads      int           `yaml:"downloads"`
	Likes          int           `yaml:"likes"`
	Unlisted       bool          `yaml:"unlisted"`
	Unlisted2      bool          `yaml:"unlisted2"`
	Deleted        bool          `yaml:"deleted"`
	Ago            time.Duration `yaml:"ago"`
	RatedAgo       time.Duration `yaml:"rated_ago"`
	Payload        string        `yaml:"payload"`
}

type Feature struct {
	LevelID int           `yaml:"level_id"`
	Weekly  bool          `yaml:"weekly"`
	Ago     time.Duration `yaml:"ago"`
}

type Event struct {
	LevelID  int           `yaml:"level_id"`
	Ago      time.Duration `yaml:"ago"`
	Duration int           `yaml:"duration"`
}

type Suggestion struct {
	LevelID  int           `yaml:"level_id"`
	By       int           `yaml:"by"`
	Stars    int           `yaml:"stars"`
	Featured int           `yaml:"featured"`
	Ago      time.Duration `yaml:"ago"`
}

type Comment struct {
	UserID  int           `yaml:"user_id"`
	Comment string        `yaml:"comment"`
	Likes   int           `yaml:"likes"`
	Spam    bool          `yaml:"spam"`
	Ago     time.Duration `yaml:"ago"`
}

// Stats counts what Apply wrote.
type Stats struct {
	Accounts, Users, Songs, Levels, Payloads, Schedules, Comments int
}

// Parse decodes a fixture. Unknown keys are rejected.
func Parse(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	return &f, nil
}

// Load reads and parses the fixture at path.
func Load(path string) (*Fixture, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	defer fh.Close()
	return Parse(fh)
}

// Apply writes f into st and blobs. blobs may be nil when no level carries a
// payload.
func (f *Fixture) Apply(ctx context.Context, st Store, blobs model.BlobStore, now time.Time, logger zerolog.Logger) (Stats, error) {
	log := logger.With().Str("component", "seed").Logger()
	var stats Stats
	at := func(ago time.Duration) int64 { return now.Add(-ago).Unix() }

	for _, a := range f.Accounts {
		if err := st.InsertAccount(ctx, model.Account{ID: a.ID, Username: a.Username, GJP2: a.GJP2}); err != nil {
			return stats, fmt.Errorf("seed: account %d: %w", a.ID, err)
		}
		stats.Accounts++
	}

	usersByID := make(map[int]User, len(f.Users))
	for _, u := range f.Users {
		usersByID[u.UserID] = u
		if err := st.InsertUser(ctx, u.model()); err != nil {
			return stats, fmt.Errorf("seed: user %d: %w", u.UserID, err)
		}
		stats.Users++
	}

	for _, s := range f.Songs {
		song := model.Song{
			ID: s.ID, Name: s.Name, AuthorID: s.AuthorID, AuthorName: s.AuthorName,
			Size: s.Size, Download: s.Download, IsDisabled: s.Disabled,
		}
		if err := st.InsertSong(ctx, song); err != nil {
			return stats, fmt.Errorf("seed: song %d: %w", s.ID, err)
		}
		stats.Songs++
	}

	for _, l := range f.Levels {
		owner, ok := usersByID[l.UserID]
		if !ok {
			return stats, fmt.Errorf("seed: level %q references unknown user %d", l.Name, l.UserID)
		}
		id, err := st.InsertLevel(ctx, l.model(owner, now))
		if err != nil {
			return stats, fmt.Errorf("seed: level %q: %w", l.Name, err)
		}
		stats.Levels++

		if l.Payload == "" {
			continue
		}
		if blobs == nil {
			return stats, fmt.Errorf("seed: level %d has a payload but no blob store is configured", id)
		}
		if err := blobs.Put(ctx, id, bytes.NewReader([]byte(l.Payload)), int64(len(l.Payload))); err != nil {
			return stats, fmt.Errorf("seed: level %d payload: %w", id, err)
		}
		stats.Payloads++
	}

	for _, d := range f.Daily {
		kind := 0
		if d.Weekly {
			kind = 1
		}
		if err := st.InsertDailyFeature(ctx, d.LevelID, kind, at(d.Ago)); err != nil {
			return stats, fmt.Errorf("seed: daily %d: %w", d.LevelID, err)
		}
		stats.Schedules++
	}
	for _, e := range f.Events {
		if err := st.InsertEvent(ctx, e.LevelID, at(e.Ago), e.Duration); err != nil {
			return stats, fmt.Errorf("seed: event %d: %w", e.LevelID, err)
		}
		stats.Schedules++
	}
	for _, s := range f.Suggestions {
		if err := st.InsertSuggestion(ctx, s.LevelID, s.By, s.Stars, s.Featured, at(s.Ago)); err != nil {
			return stats, fmt.Errorf("seed: suggestion %d: %w", s.LevelID, err)
		}
		stats.Schedules++
	}

	for _, c := range f.Comments {
		spam := 0
		if c.Spam {
			spam = 1
		}
		_, err := st.InsertAccountComment(ctx, model.AccountComment{
			UserID:    c.UserID,
			Username:  usersByID[c.UserID].Username,
			Comment:   c.Comment,
			Likes:     c.Likes,
			IsSpam:    spam,
			Timestamp: at(c.Ago),
		})
		if err != nil {
			return stats, fmt.Errorf("seed: comment for user %d: %w", c.UserID, err)
		}
		stats.Comments++
	}

	log.Info().
		Int("accounts", stats.Accounts).
		Int("users", stats.Users).
		Int("songs", stats.Songs).
		Int("levels", stats.Levels).
		Int("payloads", stats.Payloads).
		Int("schedules", stats.Schedules).
		Int("comments", stats.Comments).
		Msg("fixture applied")
	return stats, nil
}

func (u User) model() model.User {
	return model.User{
		UserID:        u.UserID,
		ExtID:         extID(u.AccountID),
		Username:      u.Username,
		Stars:         u.Stars,
		Moons:         u.Moons,
		Demons:        u.Demons,
		Diamonds:      u.Diamonds,
		Coins:         u.Coins,
		UserCoins:     u.UserCoins,
		CreatorPoints: u.CreatorPoints,
		Icon:          u.Icon,
		IconType:      u.IconType,
		Color1:        u.Color1,
		Color2:        u.Color2,
		Color3:        u.Color3,
		Special:       u.Special,
		IsBanned:      u.Banned,
	}
}

// model fills the derived rating columns from Stars unless Difficulty is set.
func (l Level) model(owner User, now time.Time) model.Level {
	uploaded := now.Add(-l.Ago).Unix()
	out := model.Level{
		ID:             l.ID,
		Name:           l.Name,
		Description:    l.Description,
		Version:        max(l.Version, 1),
		UserID:         l.UserID,
		ExtID:          extID(owner.AccountID),
		Username:       owner.Username,
		GameVersion:    l.GameVersion,
		BinaryVersion:  l.GameVersion,
		Length:         l.Length,
		AudioTrack:     l.AudioTrack,
		SongID:         l.SongID,
		Objects:        l.Objects,
		Coins:          l.Coins,
		RequestedStars: l.RequestedStars,
		Original:       l.Original,
		Password:       l.Password,
		StarStars:      l.Stars,
		StarFeatured:   l.Featured,
		StarEpic:       l.Epic,
		Downloads:      l.Downloads,
		Likes:          l.Likes,
		Unlisted:       l.Unlisted,
		Unlisted2:      l.Unlisted2,
		IsDeleted:      l.Deleted,
		UploadDate:     uploaded,
		UpdateDate:     uploaded,
	}
	if out.GameVersion == 0 {
		out.GameVersion, out.BinaryVersion = 22, 22
	}
	if l.TwoPlayer {
		out.TwoPlayer = 1
	}
	if l.VerifiedCoins {
		out.StarCoins = 1
	}
	if l.Stars > 0 {
		d := model.DifficultyForStars(l.Stars)
		out.StarDifficulty = d.Value
		if d.Auto {
			out.StarAuto = 1
		}
		if d.Demon {
			out.StarDemon = 1
			out.StarDemonDiff = l.DemonTier
		}
		out.RateDate = now.Add(-l.RatedAgo).Unix()
	}
	if l.Difficulty != nil {
		out.StarDifficulty = *l.Difficulty
	}
	return out
}

func extID(accountID int) string {
	if accountID == 0 {
		return ""
	}
	return strconv.Itoa(accountID)
}
