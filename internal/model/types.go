package model

// Level is one row of the levels table.
// Numeric flags are kept as integers because the wire format prints them verbatim.
type Level struct {
	ID             int
	Name           string
	Description    string // plain text; encoders base64 it on the way out
	Version        int
	UserID         int
	ExtID          string // owning account id as text
	Username       string
	GameVersion    int
	BinaryVersion  int
	Length         int
	AudioTrack     int
	SongID         int // 0 = built-in audio track
	Objects        int
	Coins          int
	RequestedStars int
	Original       int
	TwoPlayer      int
	IsLDM          int
	WT             int
	WT2            int
	Password       int
	ExtraString    string

	StarDifficulty int
	StarDemon      int
	StarDemonDiff  int
	StarAuto       int
	StarStars      int
	StarFeatured   int
	StarEpic       int
	StarCoins      int

	Downloads int
	Likes     int

	Unlisted  bool
	Unlisted2 bool
	IsDeleted bool

	UploadDate int64 // unix seconds
	UpdateDate int64
	RateDate   int64
}

// Stats extracts the integrity-hash inputs for this level.
func (l Level) Stats() LevelStats {
	return LevelStats{LevelID: l.ID, Stars: l.StarStars, Coins: l.StarCoins}
}

// LevelStats is the (id, stars, coins) tuple that feeds the list integrity hash.
type LevelStats struct {
	LevelID int
	Stars   int
	Coins   int
}

// Song is a custom song's metadata, keyed by id.
type Song struct {
	ID         int
	Name       string
	AuthorID   int
	AuthorName string
	Size       string // megabytes, already formatted
	Download   string
	IsDisabled bool
}

// User is the player profile attached to an account.
type User struct {
	UserID        int
	ExtID         string
	Username      string
	Stars         int
	Moons         int
	Demons        int
	Diamonds      int
	Coins         int
	UserCoins     int
	CreatorPoints float64
	Icon          int
	IconType      int
	Color1        int
	Color2        int
	Color3        int
	Special       int
	IsBanned      bool
}

// Account holds the fields the read path needs from the accounts table.
type Account struct {
	ID       int
	Username string
	GJP2     string
}

// AccountComment is a profile post.
type AccountComment struct {
	ID        int
	UserID    int
	Username  string
	Comment   string // plain text
	Likes     int
	IsSpam    int
	Timestamp int64
}
