package model

import "testing"

func TestQueryTypeEffective(t *testing.T) {
	tests := []struct {
		in    QueryType
		known bool
		want  QueryType
	}{
		{QuerySearch, true, QuerySearch},
		{QueryMapPacks, true, QueryMapPacks},
		{QuerySentLevels, true, QuerySentLevels},
		{QueryType(4), false, QuerySearch},
		{QueryType(99), false, QuerySearch},
		{QueryType(-1), false, QuerySearch},
	}
	for _, tt := range tests {
		if got := tt.in.Known(); got != tt.known {
			t.Errorf("QueryType(%d).Known() = %v, want %v", int(tt.in), got, tt.known)
		}
		if got := tt.in.Effective(); got != tt.want {
			t.Errorf("QueryType(%d).Effective() = %v, want %v", int(tt.in), got, tt.want)
		}
	}
}

func TestQueryTypeString(t *testing.T) {
	if got := QueryHallOfFame.String(); got != "hall_of_fame" {
		t.Errorf("String() = %q", got)
	}
	if got := QueryType(42).String(); got != "unrecognized(42)" {
		t.Errorf("String() = %q", got)
	}
}

func TestDemonTier(t *testing.T) {
	want := map[int]int{1: 3, 2: 4, 3: 0, 4: 5, 5: 6}
	for idx, tier := range want {
		got, ok := DemonTier(idx)
		if !ok || got != tier {
			t.Errorf("DemonTier(%d) = %d,%v want %d,true", idx, got, ok, tier)
		}
	}
	for _, idx := range []int{0, 6, -1} {
		if _, ok := DemonTier(idx); ok {
			t.Errorf("DemonTier(%d) should not be ok", idx)
		}
	}
}

func TestDifficultyForStars(t *testing.T) {
	tests := []struct {
		stars int
		want  Difficulty
	}{
		{0, Difficulty{Name: "N/A"}},
		{1, Difficulty{Name: "Auto", Value: 50, Auto: true}},
		{5, Difficulty{Name: "Hard", Value: 30}},
		{9, Difficulty{Name: "Insane", Value: 50}},
		{10, Difficulty{Name: "Demon", Value: 50, Demon: true}},
		{11, Difficulty{Name: "N/A"}},
	}
	for _, tt := range tests {
		if got := DifficultyForStars(tt.stars); got != tt.want {
			t.Errorf("DifficultyForStars(%d) = %+v, want %+v", tt.stars, got, tt.want)
		}
	}
}

func TestBrowseRequestOffset(t *testing.T) {
	if got := (BrowseRequest{Page: 3}).Offset(); got != 30 {
		t.Errorf("Offset() = %d, want 30", got)
	}
	if got := (BrowseRequest{Page: -2}).Offset(); got != 0 {
		t.Errorf("Offset() = %d, want 0", got)
	}
}
