package model

// BrowseRequest carries the getGJLevels form fields the filter builder reads.
// It is built per request and never persisted.
type BrowseRequest struct {
	GameVersion   int
	BinaryVersion int
	UUID          int // player (user) id; 0 means unauthenticated
	AccountID     int
	GJP2          string

	Type  QueryType
	Query string
	Page  int

	// Raw list fields exactly as sent; the builder parses them.
	Difficulty      []string // diff, possibly repeated or comma separated
	Length          string   // len
	Followed        string   // comma separated account ids
	CompletedLevels string   // "(1,2,3)" or "1,2,3"

	DemonFilter   int
	Uncompleted   bool
	OnlyCompleted bool
	Featured      bool
	Original      bool
	TwoPlayer     bool
	Coins         bool
	Epic          bool
	Mythic        bool
	Legendary     bool
	Star          bool
	NoStar        bool
	Song          int
	CustomSong    bool
}

// Offset is the row offset for the requested page.
func (r BrowseRequest) Offset() int {
	if r.Page < 0 {
		return 0
	}
	return r.Page * PageSize
}

// DownloadRequest carries the downloadGJLevel form fields.
type DownloadRequest struct {
	GameVersion int
	AccountID   int
	GJP2        string
	LevelID     int
	Inc         bool
}

// UserSearchRequest carries the getGJUsers form fields.
type UserSearchRequest struct {
	Query  string
	Page   int
	Secret string
}

// AccountCommentsRequest carries the getGJAccountComments form fields.
type AccountCommentsRequest struct {
	AccountID int
	Page      int
}
