package wire

import (
	"strings"
	"time"

	"github.com/gdps-dev/gdps/internal/model"
)

// EncodeAccountComment renders one profile post.
func EncodeAccountComment(c model.AccountComment, now time.Time) string {
	r := newRecord("~")
	r.str(2, Base64(c.Comment)).
		int(3, c.UserID).
		int(4, c.Likes).
		int(5, 0).
		int(7, c.IsSpam).
		str(9, RelativeTime(time.Unix(c.Timestamp, 0), now)).
		int(6, c.ID)
	return r.String()
}

// EncodeAccountComments renders comments#total:offset:10, or the empty-list
// sentinel when there is nothing to show.
func EncodeAccountComments(comments []model.AccountComment, total, offset int, now time.Time) string {
	if len(comments) == 0 {
		return model.RespEmptyComments
	}
	parts := make([]string, len(comments))
	for i, c := range comments {
		parts[i] = EncodeAccountComment(c, now)
	}
	return strings.Join(parts, "|") + "#" + PageInfo(total, offset)
}
