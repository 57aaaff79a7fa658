package model

// DemonTier maps the client's demonFilter index (1-5) to the stored
// star_demon_diff value. ok is false for indexes outside that range.
func DemonTier(index int) (tier int, ok bool) {
	switch index {
	case 1:
		return 3, true // easy
	case 2:
		return 4, true // medium
	case 3:
		return 0, true // hard
	case 4:
		return 5, true // insane
	case 5:
		return 6, true // extreme
	}
	return 0, false
}

// Special values of the diff filter.
const (
	DiffAny     = "-"
	DiffUnrated = "-1"
	DiffDemon   = "-2"
	DiffAuto    = "-3"
)

// Difficulty is the face a rated level shows, derived from its star count.
type Difficulty struct {
	Name  string
	Value int // star_difficulty
	Auto  bool
	Demon bool
}

// DifficultyForStars returns the difficulty face used when a level is rated
// with the given number of stars.
func DifficultyForStars(stars int) Difficulty {
	switch stars {
	case 1:
		return Difficulty{Name: "Auto", Value: 50, Auto: true}
	case 2:
		return Difficulty{Name: "Easy", Value: 10}
	case 3:
		return Difficulty{Name: "Normal", Value: 20}
	case 4, 5:
		return Difficulty{Name: "Hard", Value: 30}
	case 6, 7:
		return Difficulty{Name: "Harder", Value: 40}
	case 8, 9:
		return Difficulty{Name: "Insane", Value: 50}
	case 10:
		return Difficulty{Name: "Demon", Value: 50, Demon: true}
	}
	return Difficulty{Name: "N/A"}
}
