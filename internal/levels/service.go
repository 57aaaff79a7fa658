// Package levels serves the browse and download endpoints: it checks the
// caller, builds the filter set, runs the queries and hands rows to the wire
// encoders.
package levels

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gdps-dev/gdps/internal/model"
	"github.com/gdps-dev/gdps/internal/query"
	"github.com/gdps-dev/gdps/internal/wire"
)

// ErrAuth reports a missing or mismatched account credential.
var ErrAuth = errors.New("levels: authentication failed")

// LevelQuerier is the narrow store contract needed by the level endpoints.
type LevelQuerier interface {
	QueryLevels(ctx context.Context, fs query.FilterSet) ([]model.Level, error)
	CountLevels(ctx context.Context, fs query.FilterSet) (int, error)
	LevelByID(ctx context.Context, id int) (model.Level, error)
}

// DownloadRecorder accepts one download hit. store.DownloadCounter satisfies it.
type DownloadRecorder interface {
	Add(levelID int)
}

// Config wires a Service.
type Config struct {
	Levels    LevelQuerier
	Songs     model.SongQuerier
	Accounts  model.AccountQuerier
	Blobs     model.BlobStore
	Downloads DownloadRecorder // optional

	// SongLookupConcurrency bounds in-flight song lookups per request.
	SongLookupConcurrency int
	Logger                zerolog.Logger

	// OnBrowse and OnSongMiss are optional metric hooks.
	OnBrowse   func(qt model.QueryType)
	OnSongMiss func()

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service implements BrowseLevels and DownloadLevel.
type Service struct {
	levels    LevelQuerier
	songs     model.SongQuerier
	accounts  model.AccountQuerier
	blobs     model.BlobStore
	downloads DownloadRecorder

	songLimit  int
	log        zerolog.Logger
	onBrowse   func(model.QueryType)
	onSongMiss func()
	now        func() time.Time
}

// NewService validates cfg and builds a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Levels == nil {
		return nil, fmt.Errorf("levels: nil level querier")
	}
	if cfg.Songs == nil {
		return nil, fmt.Errorf("levels: nil song querier")
	}
	if cfg.Accounts == nil {
		return nil, fmt.Errorf("levels: nil account querier")
	}
	if cfg.Blobs == nil {
		return nil, fmt.Errorf("levels: nil blob store")
	}
	if cfg.SongLookupConcurrency <= 0 {
		cfg.SongLookupConcurrency = model.DefaultSongLookupConcurrency
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		levels:     cfg.Levels,
		songs:      cfg.Songs,
		accounts:   cfg.Accounts,
		blobs:      cfg.Blobs,
		downloads:  cfg.Downloads,
		songLimit:  cfg.SongLookupConcurrency,
		log:        cfg.Logger.With().Str("component", "levels").Logger(),
		onBrowse:   cfg.OnBrowse,
		onSongMiss: cfg.OnSongMiss,
		now:        cfg.Now,
	}, nil
}

// checkAccount verifies gjp2 against the stored account credential.
func (s *Service) checkAccount(ctx context.Context, accountID int, gjp2 string) error {
	if accountID <= 0 || gjp2 == "" {
		return ErrAuth
	}
	acc, err := s.accounts.AccountByID(ctx, accountID)
	if errors.Is(err, model.ErrNotFound) {
		return ErrAuth
	}
	if err != nil {
		return fmt.Errorf("account lookup: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(acc.GJP2), []byte(gjp2)) != 1 {
		return ErrAuth
	}
	return nil
}

// BrowseLevels answers getGJLevels. Auth failures come back as the "-11"
// body with a nil error; only persistence failures return an error.
func (s *Service) BrowseLevels(ctx context.Context, req model.BrowseRequest) (string, error) {
	if req.UUID == 0 {
		return model.RespAuthFailure, nil
	}
	if req.AccountID > 0 {
		if err := s.checkAccount(ctx, req.AccountID, req.GJP2); err != nil {
			if errors.Is(err, ErrAuth) {
				return model.RespAuthFailure, nil
			}
			return "", err
		}
	}

	if s.onBrowse != nil {
		s.onBrowse(req.Type.Effective())
	}

	fs := query.Build(req, s.now())

	var (
		rows  []model.Level
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.levels.QueryLevels(gctx, fs)
		if err != nil {
			return fmt.Errorf("query levels: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		total, err = s.levels.CountLevels(gctx, fs)
		if err != nil {
			return fmt.Errorf("count levels: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	if fs.IsIDSearch && len(rows) > 1 {
		rows = rows[:1]
	}

	s.log.Debug().
		Str("query_type", req.Type.String()).
		Int("rows", len(rows)).
		Int("total", total).
		Bool("id_search", fs.IsIDSearch).
		Msg("browse")

	return wire.EncodeLevelList(wire.LevelList{
		Levels:   rows,
		Songs:    s.lookupSongs(ctx, rows),
		Total:    total,
		Offset:   fs.Offset,
		IDSearch: fs.IsIDSearch,
	}), nil
}

// lookupSongs resolves custom songs for rows concurrently. The result keeps
// row order; misses and failures are logged and dropped.
func (s *Service) lookupSongs(ctx context.Context, rows []model.Level) []model.Song {
	found := make([]*model.Song, len(rows))

	var g errgroup.Group
	g.SetLimit(s.songLimit)
	for i, l := range rows {
		if l.SongID == 0 {
			continue
		}
		g.Go(func() error {
			song, err := s.songs.SongByID(ctx, l.SongID)
			switch {
			case errors.Is(err, model.ErrNotFound):
				s.log.Debug().Int("level_id", l.ID).Int("song_id", l.SongID).Msg("song not found")
				s.songMiss()
			case err != nil:
				s.log.Warn().Err(err).Int("level_id", l.ID).Int("song_id", l.SongID).Msg("song lookup failed")
				s.songMiss()
			default:
				found[i] = &song
			}
			return nil
		})
	}
	_ = g.Wait()

	songs := make([]model.Song, 0, len(rows))
	for _, song := range found {
		if song != nil {
			songs = append(songs, *song)
		}
	}
	return songs
}

func (s *Service) songMiss() {
	if s.onSongMiss != nil {
		s.onSongMiss()
	}
}

// DownloadLevel answers downloadGJLevel.
func (s *Service) DownloadLevel(ctx context.Context, req model.DownloadRequest) (string, error) {
	if err := s.checkAccount(ctx, req.AccountID, req.GJP2); err != nil {
		if errors.Is(err, ErrAuth) {
			return model.RespAuthFailure, nil
		}
		return "", err
	}

	level, err := s.levels.LevelByID(ctx, req.LevelID)
	if errors.Is(err, model.ErrNotFound) {
		return model.RespFailure, nil
	}
	if err != nil {
		return "", fmt.Errorf("level %d: %w", req.LevelID, err)
	}

	payload, err := s.blobs.Get(ctx, level.ID)
	if errors.Is(err, model.ErrNotFound) {
		s.log.Warn().Int("level_id", level.ID).Msg("level payload missing")
		return model.RespFailure, nil
	}
	if err != nil {
		return "", fmt.Errorf("level %d payload: %w", level.ID, err)
	}

	if req.Inc && s.downloads != nil {
		s.downloads.Add(level.ID)
	}

	return wire.EncodeDownload(level, string(payload), s.now()), nil
}
