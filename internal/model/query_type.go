package model

import "strconv"

// QueryType is the raw browse strategy code sent by the client ("type" form field).
// Codes outside the known set are kept as-is; Effective maps them to Search.
type QueryType int

const (
	QuerySearch         QueryType = 0
	QueryMostDownloaded QueryType = 1
	QueryMostLiked      QueryType = 2
	QueryTrending       QueryType = 3
	QueryLevelsPerUser  QueryType = 5
	QueryFeatured       QueryType = 6
	QueryMagic          QueryType = 7
	QueryMapPacks       QueryType = 10
	QueryAwarded        QueryType = 11
	QueryFollowed       QueryType = 12
	QueryFriends        QueryType = 13
	QueryMostLikedGDW   QueryType = 15
	QueryHallOfFame     QueryType = 16
	QueryFeaturedGDW    QueryType = 17
	QueryUnknown        QueryType = 19
	QueryDailySafe      QueryType = 21
	QueryWeeklySafe     QueryType = 22
	QueryEventSafe      QueryType = 23
	QueryListLevels     QueryType = 25
	QuerySentLevels     QueryType = 27
)

var queryTypeNames = map[QueryType]string{
	QuerySearch:         "search",
	QueryMostDownloaded: "most_downloaded",
	QueryMostLiked:      "most_liked",
	QueryTrending:       "trending",
	QueryLevelsPerUser:  "levels_per_user",
	QueryFeatured:       "featured",
	QueryMagic:          "magic",
	QueryMapPacks:       "map_packs",
	QueryAwarded:        "awarded",
	QueryFollowed:       "followed",
	QueryFriends:        "friends",
	QueryMostLikedGDW:   "most_liked_gdw",
	QueryHallOfFame:     "hall_of_fame",
	QueryFeaturedGDW:    "featured_gdw",
	QueryUnknown:        "unknown",
	QueryDailySafe:      "daily_safe",
	QueryWeeklySafe:     "weekly_safe",
	QueryEventSafe:      "event_safe",
	QueryListLevels:     "list_levels",
	QuerySentLevels:     "sent_levels",
}

// Known reports whether q is one of the recognized strategy codes.
func (q QueryType) Known() bool {
	_, ok := queryTypeNames[q]
	return ok
}

// Effective returns the strategy to run for q. Unrecognized codes browse like Search.
func (q QueryType) Effective() QueryType {
	if q.Known() {
		return q
	}
	return QuerySearch
}

func (q QueryType) String() string {
	if name, ok := queryTypeNames[q]; ok {
		return name
	}
	return "unrecognized(" + strconv.Itoa(int(q)) + ")"
}
