package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/gdps-dev/gdps/internal/model"
)

const (
	orderFeatured = "levels.star_featured DESC, levels.rate_date DESC, levels.upload_date"
	orderAwarded  = "levels.rate_date DESC, levels.upload_date"

	joinDaily = "INNER JOIN daily_features ON levels.level_id = daily_features.level_id"
	joinEvent = "INNER JOIN events ON levels.level_id = events.level_id"
	joinSent  = "INNER JOIN (SELECT suggest_level_id AS level_id, MAX(timestamp) AS timestamp FROM suggest GROUP BY suggest_level_id) suggest ON levels.level_id = suggest.level_id"
)

// baseline is the visibility and version filter every browse starts from.
func baseline(gameVersion int) []Predicate {
	return []Predicate{
		And(Eq("levels.unlisted", 0), Eq("levels.unlisted2", 0)),
		Le("levels.game_version", gameVersion),
	}
}

// visibleTo lets unlisted levels through only for their owner.
func visibleTo(accountID int) Predicate {
	return Or(
		Ne("levels.unlisted", 1),
		And(Eq("levels.unlisted", 1), Eq("levels.ext_id", strconv.Itoa(accountID))),
	)
}

// Build translates a browse request into a FilterSet. now bounds the
// daily/weekly/event schedules.
func Build(req model.BrowseRequest, now time.Time) FilterSet {
	fs := FilterSet{
		Filters:   baseline(req.GameVersion),
		Order:     Raw("levels.upload_date"),
		Direction: "DESC",
		Offset:    req.Offset(),
	}
	fs.Filters = append(fs.Filters, optionalFilters(req)...)
	applyStrategy(&fs, req, now.Unix())
	return fs
}

// optionalFilters covers the per-flag filters that apply to every strategy.
func optionalFilters(req model.BrowseRequest) []Predicate {
	var fs []Predicate

	if req.Original {
		fs = append(fs, Eq("levels.original", 0))
	}
	if req.Coins {
		fs = append(fs, And(Eq("levels.star_coins", 1), Ne("levels.coins", 0)))
	}
	if req.Uncompleted || req.OnlyCompleted {
		if ids := parseInts(req.CompletedLevels); len(ids) > 0 {
			p := In("levels.level_id", ids)
			if req.Uncompleted {
				p = Not(p)
			}
			fs = append(fs, p)
		}
	}
	if req.Song > 0 {
		if req.CustomSong {
			fs = append(fs, Eq("levels.song_id", req.Song))
		} else {
			fs = append(fs, And(Eq("levels.audio_track", req.Song-1), Eq("levels.song_id", 0)))
		}
	}
	if req.TwoPlayer {
		fs = append(fs, Eq("levels.two_player", 1))
	}
	if req.Star {
		fs = append(fs, Ne("levels.star_stars", 0))
	}
	if req.NoStar {
		fs = append(fs, Eq("levels.star_stars", 0))
	}
	if lens := splitList(req.Length); len(lens) > 0 && !contains(lens, model.DiffAny) {
		if ids := parseInts(req.Length); len(ids) > 0 {
			fs = append(fs, In("levels.level_length", ids))
		}
	}

	var rating []Predicate
	if req.Featured {
		rating = append(rating, Gt("levels.star_featured", 0))
	}
	if req.Epic {
		rating = append(rating, Eq("levels.star_epic", 1))
	}
	if req.Mythic {
		rating = append(rating, Eq("levels.star_epic", 2))
	}
	if req.Legendary {
		rating = append(rating, Eq("levels.star_epic", 3))
	}
	if len(rating) > 0 {
		fs = append(fs, Or(rating...))
	}

	if p, ok := difficultyFilter(req); ok {
		fs = append(fs, p...)
	}
	return fs
}

// difficultyFilter applies the special diff values in precedence order
// (demon, unrated, auto) before the general whitelist.
func difficultyFilter(req model.BrowseRequest) ([]Predicate, bool) {
	diff := flattenDiff(req.Difficulty)
	switch {
	case contains(diff, model.DiffDemon):
		fs := []Predicate{Eq("levels.star_demon", 1)}
		if tier, ok := model.DemonTier(req.DemonFilter); ok {
			fs = append(fs, Eq("levels.star_demon_diff", tier))
		}
		return fs, true
	case contains(diff, model.DiffUnrated):
		return []Predicate{Eq("levels.star_difficulty", 0)}, true
	case contains(diff, model.DiffAuto):
		return []Predicate{Eq("levels.star_auto", 1)}, true
	case len(diff) > 0 && !contains(diff, model.DiffAny):
		var vals []int
		for _, d := range diff {
			if n, err := strconv.Atoi(d); err == nil {
				vals = append(vals, n*10)
			}
		}
		if len(vals) == 0 {
			return nil, false
		}
		return []Predicate{And(
			In("levels.star_difficulty", vals),
			Eq("levels.star_auto", 0),
			Eq("levels.star_demon", 0),
		)}, true
	}
	return nil, false
}

func applyStrategy(fs *FilterSet, req model.BrowseRequest, now int64) {
	q := strings.TrimSpace(req.Query)

	switch req.Type.Effective() {
	case model.QuerySearch, model.QueryMostLikedGDW:
		fs.Order = Raw("levels.likes")
		if q == "" {
			return
		}
		if id, ok := positiveInt(q); ok {
			fs.Filters = []Predicate{And(Eq("levels.level_id", id), visibleTo(req.AccountID))}
			fs.IsIDSearch = true
			return
		}
		fs.Filters = append(fs.Filters, searchFilter(q))

	case model.QueryMostDownloaded:
		fs.Order = Raw("levels.downloads")

	case model.QueryMostLiked:
		fs.Order = Raw("levels.likes")

	case model.QueryTrending:
		// Keeps the default upload_date ordering.

	case model.QueryLevelsPerUser:
		userID, err := strconv.Atoi(q)
		if err != nil {
			fs.Filters = append(fs.Filters, False)
			return
		}
		if req.UUID == userID {
			fs.Filters = baseline(req.GameVersion)
		}
		fs.Filters = append(fs.Filters, Eq("levels.user_id", userID))

	case model.QueryFeatured, model.QueryFeaturedGDW:
		if req.GameVersion > 21 {
			fs.Filters = append(fs.Filters, Or(Ne("levels.star_featured", 0), Ne("levels.star_epic", 0)))
		} else {
			fs.Filters = append(fs.Filters, Ne("levels.star_featured", 0))
		}
		fs.Order = Raw(orderFeatured)

	case model.QueryHallOfFame:
		fs.Filters = append(fs.Filters, Ne("levels.star_epic", 0))
		fs.Order = Raw(orderFeatured)

	case model.QueryMagic:
		fs.Filters = append(fs.Filters, ILike("levels.level_desc", "%#magic%"), Gt("levels.objects", 9999))

	case model.QueryMapPacks, model.QueryUnknown:
		if q == "" {
			return
		}
		ids := parseInts(q)
		fs.NoLimit = true
		if len(ids) == 0 {
			fs.Filters = append(fs.Filters, False)
			return
		}
		fs.Filters = append(fs.Filters, And(In("levels.level_id", ids), visibleTo(req.AccountID)))
		fs.Order = listOrder(ids)
		fs.Direction = "ASC"

	case model.QueryAwarded:
		fs.Filters = append(fs.Filters, Ne("levels.star_stars", 0))
		fs.Order = Raw(orderAwarded)

	case model.QueryFollowed:
		// An empty followed list must never fall through to an unfiltered browse.
		fs.Filters = append(fs.Filters, In("levels.ext_id", intsToStrings(parseInts(req.Followed))))

	case model.QueryFriends:
		fs.Filters = append(fs.Filters, Eq("levels.ext_id", strconv.Itoa(req.AccountID)))

	case model.QueryDailySafe, model.QueryWeeklySafe:
		kind := 0
		if req.Type == model.QueryWeeklySafe {
			kind = 1
		}
		fs.Join = joinDaily
		fs.Filters = append(fs.Filters, And(Eq("daily_features.feature_type", kind), Lt("daily_features.timestamp", now)))
		fs.Order = Raw("daily_features.fea_id")

	case model.QueryEventSafe:
		fs.Join = joinEvent
		fs.Filters = append(fs.Filters, Lt("events.timestamp", now))
		fs.Order = Raw("events.fea_id")

	case model.QueryListLevels:
		if q == "" {
			return
		}
		fs.NoLimit = true
		ids := parseInts(q)
		if len(ids) == 0 {
			fs.Filters = []Predicate{False}
			return
		}
		fs.Filters = []Predicate{And(In("levels.level_id", ids), visibleTo(req.AccountID))}

	case model.QuerySentLevels:
		fs.Join = joinSent
		fs.Filters = append(fs.Filters, Gt("suggest.level_id", 0))
		fs.Order = Raw("suggest.timestamp")
	}
}

// searchFilter handles the u<id> / a<id> prefixes, falling back to a name match.
func searchFilter(q string) Predicate {
	if len(q) > 1 {
		if id, err := strconv.Atoi(q[1:]); err == nil {
			switch q[0] {
			case 'u':
				return Eq("levels.user_id", id)
			case 'a':
				return Eq("levels.ext_id", strconv.Itoa(id))
			}
		}
	}
	return ILike("levels.level_name", "%"+q+"%")
}

// listOrder sorts rows by their position in ids.
func listOrder(ids []int) Predicate {
	var b strings.Builder
	args := make([]any, 0, len(ids))
	b.WriteString("CASE")
	for i, id := range ids {
		b.WriteString(" WHEN levels.level_id = ? THEN ")
		b.WriteString(strconv.Itoa(i + 1))
		args = append(args, id)
	}
	b.WriteString(" END")
	return Predicate{SQL: b.String(), Args: args}
}
