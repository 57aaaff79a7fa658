package wire

import (
	"time"

	"github.com/gdps-dev/gdps/internal/model"
)

// EncodeDownload renders the downloadGJLevel response: the level record with
// its payload, then the payload hash and the level checksum.
func EncodeDownload(l model.Level, payload string, now time.Time) string {
	r := newRecord(":")
	r.int(1, l.ID).
		str(2, l.Name).
		str(3, Base64(l.Description)).
		str(4, payload).
		int(5, l.Version).
		int(6, l.UserID).
		int(8, 10).
		int(9, l.StarDifficulty).
		int(10, l.Downloads).
		int(12, l.AudioTrack).
		int(13, l.GameVersion).
		int(14, l.Likes).
		int(17, l.StarDemon).
		int(43, l.StarDemonDiff).
		int(25, l.StarAuto).
		int(18, l.StarStars).
		int(19, l.StarFeatured).
		int(42, l.StarEpic).
		int(45, l.Objects).
		int(15, l.Length).
		int(30, l.Original).
		int(31, l.TwoPlayer).
		str(28, RelativeTime(time.Unix(l.UploadDate, 0), now)).
		str(29, RelativeTime(time.Unix(l.UpdateDate, 0), now)).
		int(35, l.SongID).
		str(36, l.ExtraString).
		int(37, l.Coins).
		int(38, l.StarCoins).
		int(39, l.RequestedStars).
		int(46, l.WT).
		int(47, l.WT2).
		int(40, l.IsLDM).
		str(27, "")
	return r.String() + "#" + LevelStringHash(payload) + "#" + DownloadChecksum(l)
}
