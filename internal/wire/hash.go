package wire

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/gdps-dev/gdps/internal/model"
)

// SHA1Salt returns hex(sha1(base + salt)).
func SHA1Salt(base, salt string) string {
	h := sha1.New()
	h.Write([]byte(base))
	h.Write([]byte(salt))
	return hex.EncodeToString(h.Sum(nil))
}

// IntegrityInput is the unsalted hash input for a list of level stats: for
// each level the first and last digit of its id, then stars and coins.
func IntegrityInput(stats []model.LevelStats) string {
	var b strings.Builder
	for _, s := range stats {
		id := strconv.Itoa(s.LevelID)
		b.WriteByte(id[0])
		b.WriteByte(id[len(id)-1])
		b.WriteString(strconv.Itoa(s.Stars))
		b.WriteString(strconv.Itoa(s.Coins))
	}
	return b.String()
}

// IntegrityHash is the list checksum the client verifies.
func IntegrityHash(stats []model.LevelStats) string {
	return SHA1Salt(IntegrityInput(stats), model.LevelSalt)
}

const levelHashSamples = 40

// LevelStringHash hashes 40 characters sampled evenly from the level
// payload. Payloads too short to sample are hashed whole.
func LevelStringHash(payload string) string {
	n := len(payload)
	if n < levelHashSamples {
		return SHA1Salt(payload, model.LevelSalt)
	}
	stride := n / levelHashSamples
	sample := make([]byte, 0, levelHashSamples)
	for i := 0; i < n && len(sample) < levelHashSamples; i += stride {
		sample = append(sample, payload[i])
	}
	return SHA1Salt(string(sample), model.LevelSalt)
}

// DownloadChecksum covers the level fields the client re-checks after a download.
func DownloadChecksum(l model.Level) string {
	fields := []int{
		l.UserID,
		l.StarStars,
		boolInt(l.StarDemon != 0),
		l.ID,
		boolInt(l.StarCoins != 0),
		l.StarFeatured,
		l.Password,
		0,
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = strconv.Itoa(f)
	}
	return SHA1Salt(strings.Join(parts, ","), model.LevelSalt)
}
