package wire

import (
	"math"
	"strings"

	"github.com/gdps-dev/gdps/internal/model"
)

// EncodeUser renders one user search result.
func EncodeUser(u model.User) string {
	r := newRecord(":")
	r.str(1, u.Username).
		int(2, u.UserID).
		int(13, u.Coins).
		int(17, u.UserCoins).
		int(9, u.Icon).
		int(10, u.Color1).
		int(11, u.Color2).
		int(51, u.Color3).
		int(14, u.IconType).
		int(15, u.Special).
		str(16, u.ExtID).
		int(3, u.Stars).
		int(8, int(math.Floor(u.CreatorPoints))).
		int(4, u.Demons).
		int(46, u.Diamonds).
		int(52, u.Moons)
	return r.String()
}

// EncodeUserList renders users#total:offset:10. An empty list is the
// failure sentinel, which is what the client expects for "no match".
func EncodeUserList(users []model.User, total, offset int) string {
	if len(users) == 0 {
		return model.RespFailure
	}
	parts := make([]string, len(users))
	for i, u := range users {
		parts[i] = EncodeUser(u)
	}
	return strings.Join(parts, "|") + "#" + PageInfo(total, offset)
}
