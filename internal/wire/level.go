package wire

import (
	"strconv"
	"strings"

	"github.com/gdps-dev/gdps/internal/model"
)

// EncodeLevel renders one level for a browse list.
func EncodeLevel(l model.Level) string {
	r := newRecord(":")
	r.int(1, l.ID).
		str(2, l.Name).
		int(5, l.Version).
		int(6, l.UserID).
		int(8, 10).
		int(9, l.StarDifficulty).
		int(10, l.Downloads).
		int(12, l.AudioTrack).
		int(13, l.GameVersion).
		int(14, l.Likes).
		optInt(17, l.StarDemon).
		int(43, l.StarDemonDiff).
		optInt(25, l.StarAuto).
		int(18, l.StarStars).
		int(19, l.StarFeatured).
		int(42, l.StarEpic).
		int(45, l.Objects).
		str(3, Base64(l.Description)).
		int(15, l.Length).
		int(30, l.Original).
		int(31, l.TwoPlayer).
		int(37, l.Coins).
		int(38, l.StarCoins).
		int(39, l.RequestedStars).
		int(46, l.WT).
		int(47, l.WT2).
		int(35, l.SongID)
	return r.String()
}

// EncodeCreator renders the creator entry that accompanies a level.
func EncodeCreator(l model.Level) string {
	return strconv.Itoa(l.UserID) + ":" + l.Username + ":" + l.ExtID
}

// EncodeSong renders one custom song record.
func EncodeSong(s model.Song) string {
	r := newRecord("~|~")
	r.int(1, s.ID).
		str(2, s.Name).
		int(3, s.AuthorID).
		str(4, s.AuthorName).
		str(5, s.Size).
		str(6, "").
		str(10, s.Download)
	return r.String()
}

// LevelList is everything the browse response needs.
type LevelList struct {
	Levels []model.Level
	// Songs are the custom songs referenced by Levels, in first-use order.
	Songs  []model.Song
	Total  int
	Offset int
	// IDSearch suppresses integrity stats for the looked-up level.
	IDSearch bool
}

// EncodeLevelList assembles levels#creators#songs#total:offset:10#hash.
func EncodeLevelList(list LevelList) string {
	levels := make([]string, 0, len(list.Levels))
	creators := make([]string, 0, len(list.Levels))
	var stats []model.LevelStats

	for i, l := range list.Levels {
		if list.IDSearch && i > 0 {
			break
		}
		levels = append(levels, EncodeLevel(l))
		creators = append(creators, EncodeCreator(l))
		if !list.IDSearch {
			stats = append(stats, l.Stats())
		}
	}

	songs := make([]string, 0, len(list.Songs))
	seen := make(map[int]struct{}, len(list.Songs))
	for _, s := range list.Songs {
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		songs = append(songs, EncodeSong(s))
	}

	var b strings.Builder
	b.WriteString(strings.Join(levels, "|"))
	b.WriteByte('#')
	b.WriteString(strings.Join(creators, "|"))
	b.WriteByte('#')
	b.WriteString(strings.Join(songs, "~:~"))
	b.WriteByte('#')
	b.WriteString(PageInfo(list.Total, list.Offset))
	b.WriteByte('#')
	b.WriteString(IntegrityHash(stats))
	return b.String()
}

// PageInfo renders the total:offset:pagesize trailer.
func PageInfo(total, offset int) string {
	return strconv.Itoa(total) + ":" + strconv.Itoa(offset) + ":" + strconv.Itoa(model.PageSize)
}
