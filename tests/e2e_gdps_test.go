package tests

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdps-dev/gdps/internal/blob"
	"github.com/gdps-dev/gdps/internal/httpserver"
	"github.com/gdps-dev/gdps/internal/levels"
	"github.com/gdps-dev/gdps/internal/metrics"
	"github.com/gdps-dev/gdps/internal/model"
	"github.com/gdps-dev/gdps/internal/seed"
	"github.com/gdps-dev/gdps/internal/store"
	"github.com/gdps-dev/gdps/internal/users"
	"github.com/gdps-dev/gdps/internal/wire"
)

const (
	robtopGJP2 = "5f3a6d1c0e9b"
	viprinGJP2 = "9c0d2e4f6a8b"
)

type e2eStack struct {
	store     *store.Store
	blobs     *blob.Dir
	downloads *store.DownloadCounter
	api       *httpserver.Server
	baseURL   string
}

func startE2EStack(t *testing.T) *e2eStack {
	t.Helper()

	st, err := store.NewStore(store.Config{QueryTimeout: 5 * time.Second, MaxConcurrentQueries: 16})
	require.NoError(t, err)

	blobs, err := blob.NewDir(t.TempDir())
	require.NoError(t, err)

	fixture, err := seed.Load("../internal/seed/testdata/fixture.yml")
	require.NoError(t, err)
	_, err = fixture.Apply(context.Background(), st, blobs, time.Now(), zerolog.Nop())
	require.NoError(t, err)

	m := metrics.New()
	downloads := store.NewDownloadCounter(st, store.DownloadCounterConfig{
		FlushInterval: 20 * time.Millisecond,
		OnFlush:       m.RecordDownloadFlush,
	})

	levelService, err := levels.NewService(levels.Config{
		Levels:     st,
		Songs:      st,
		Accounts:   st,
		Blobs:      blobs,
		Downloads:  downloads,
		OnBrowse:   m.RecordBrowse,
		OnSongMiss: m.RecordSongMiss,
	})
	require.NoError(t, err)

	api := httpserver.NewServer(httpserver.Config{
		Addr:    "127.0.0.1:0",
		Levels:  levelService,
		Users:   users.NewService(st, st, zerolog.Nop(), nil),
		Health:  st,
		Metrics: m,
	})
	require.NoError(t, api.Start())

	stack := &e2eStack{
		store:     st,
		blobs:     blobs,
		downloads: downloads,
		api:       api,
		baseURL:   "http://" + api.Addr(),
	}
	t.Cleanup(func() {
		_ = api.Stop()
		downloads.Stop()
		_ = st.Close()
	})

	waitEventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		resp, err := http.Get(stack.baseURL + "/api/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, "api health endpoint did not become ready")

	return stack
}

func (s *e2eStack) post(t *testing.T, endpoint string, form url.Values) (int, string) {
	t.Helper()
	resp, err := http.PostForm(s.baseURL+"/database/"+endpoint, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func waitEventually(t *testing.T, timeout, interval time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(interval)
	}
	t.Fatal(msg)
}

func levelIDs(t *testing.T, body string) []string {
	t.Helper()
	sections := strings.Split(body, "#")
	require.Len(t, sections, 5, "body %q", body)
	if sections[0] == "" {
		return nil
	}
	var ids []string
	for _, rec := range strings.Split(sections[0], "|") {
		parts := strings.SplitN(rec, ":", 3)
		require.GreaterOrEqual(t, len(parts), 2)
		ids = append(ids, parts[1])
	}
	return ids
}

func TestE2E_BrowseMostLiked(t *testing.T) {
	s := startE2EStack(t)

	code, body := s.post(t, "getGJLevels21.php", url.Values{
		"gameVersion": {"22"}, "uuid": {"1"}, "type": {"2"}, "secret": {model.CommonSecret},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"2", "1", "3", "5"}, levelIDs(t, body), "unlisted and deleted levels stay hidden")

	sections := strings.Split(body, "#")
	assert.Equal(t, "1:robtop:71|1:robtop:71|2:viprin:72|2:viprin:72", sections[1])

	song, err := s.store.SongByID(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, wire.EncodeSong(song), sections[2], "disabled song 501 is omitted")
	assert.Equal(t, "4:0:10", sections[3])
	assert.Equal(t, wire.IntegrityHash([]model.LevelStats{
		{LevelID: 2, Stars: 10}, {LevelID: 1, Stars: 2, Coins: 1}, {LevelID: 3}, {LevelID: 5},
	}), sections[4])
}

func TestE2E_AuthFailures(t *testing.T) {
	s := startE2EStack(t)

	_, body := s.post(t, "getGJLevels21.php", url.Values{"gameVersion": {"22"}})
	assert.Equal(t, model.RespAuthFailure, body, "missing uuid")

	_, body = s.post(t, "getGJLevels21.php", url.Values{"uuid": {"1"}, "accountID": {"71"}, "gjp2": {"nope"}})
	assert.Equal(t, model.RespAuthFailure, body)

	_, body = s.post(t, "downloadGJLevel22.php", url.Values{"accountID": {"71"}, "gjp2": {viprinGJP2}, "levelID": {"1"}})
	assert.Equal(t, model.RespAuthFailure, body)
}

func TestE2E_IDSearchRespectsOwnership(t *testing.T) {
	s := startE2EStack(t)

	_, body := s.post(t, "getGJLevels21.php", url.Values{
		"gameVersion": {"22"}, "uuid": {"2"}, "accountID": {"72"}, "gjp2": {viprinGJP2}, "str": {"4"},
	})
	assert.Equal(t, []string{"4"}, levelIDs(t, body), "owner sees their unlisted level")
	assert.True(t, strings.HasSuffix(body, "#"+wire.IntegrityHash(nil)), "id search hashes no stats")

	_, body = s.post(t, "getGJLevels21.php", url.Values{
		"gameVersion": {"22"}, "uuid": {"1"}, "accountID": {"71"}, "gjp2": {robtopGJP2}, "str": {"4"},
	})
	assert.Empty(t, levelIDs(t, body), "other accounts do not")
}

func TestE2E_Strategies(t *testing.T) {
	s := startE2EStack(t)

	tests := []struct {
		name     string
		form     url.Values
		want     []string
		anyOrder bool
	}{
		{"magic", url.Values{"type": {"7"}}, []string{"5"}, false},
		{"awarded", url.Values{"type": {"11"}}, []string{"2", "1"}, false},
		{"featured", url.Values{"type": {"6"}}, []string{"2", "1"}, false},
		{"map pack order", url.Values{"type": {"10"}, "str": {"3,1,2"}}, []string{"3", "1", "2"}, false},
		{"daily", url.Values{"type": {"21"}}, []string{"1"}, false},
		{"weekly", url.Values{"type": {"22"}}, []string{"2"}, false},
		{"event", url.Values{"type": {"23"}}, []string{"3"}, false},
		{"sent", url.Values{"type": {"27"}}, []string{"3"}, false},
		{"user prefix", url.Values{"str": {"u2"}}, []string{"3", "5"}, true},
		{"name search", url.Values{"str": {"stereo"}}, []string{"1"}, false},
		{"demon medium", url.Values{"diff": {"-2"}, "demonFilter": {"2"}}, []string{"2"}, false},
		{"unrated", url.Values{"diff": {"-1"}}, []string{"3", "5"}, true},
		{"followed empty", url.Values{"type": {"12"}}, nil, false},
		{"followed", url.Values{"type": {"12"}, "followed": {"72"}}, []string{"5", "3"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.form.Set("uuid", "1")
			tt.form.Set("gameVersion", "22")
			_, body := s.post(t, "getGJLevels21.php", tt.form)
			ids := levelIDs(t, body)
			if tt.anyOrder {
				assert.ElementsMatch(t, tt.want, ids)
				return
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestE2E_DownloadLevel(t *testing.T) {
	s := startE2EStack(t)
	ctx := context.Background()

	code, body := s.post(t, "downloadGJLevel22.php", url.Values{
		"gameVersion": {"22"}, "accountID": {"71"}, "gjp2": {robtopGJP2}, "levelID": {"1"}, "inc": {"1"},
	})
	require.Equal(t, http.StatusOK, code)

	payload, err := s.blobs.Get(ctx, 1)
	require.NoError(t, err)
	l, err := s.store.LevelByID(ctx, 1)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(body, "1:1:2:Stereo Remix:3:"+wire.Base64("first level")+":4:"+string(payload)+":"))
	assert.True(t, strings.HasSuffix(body, "#"+wire.LevelStringHash(string(payload))+"#"+wire.DownloadChecksum(l)))

	waitEventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		got, err := s.store.LevelByID(ctx, 1)
		return err == nil && got.Downloads == 121
	}, "download counter was not flushed")

	auth := url.Values{"accountID": {"71"}, "gjp2": {robtopGJP2}}
	for _, id := range []string{"99", "6"} {
		form := url.Values{"levelID": {id}}
		for k, v := range auth {
			form[k] = v
		}
		_, body := s.post(t, "downloadGJLevel22.php", form)
		assert.Equal(t, model.RespFailure, body, "level %s", id)
	}

	_, body = s.post(t, "downloadGJLevel22.php", url.Values{"accountID": {"71"}, "gjp2": {robtopGJP2}, "levelID": {"3"}})
	assert.Equal(t, model.RespFailure, body, "level without payload")
}

func TestE2E_Users(t *testing.T) {
	s := startE2EStack(t)

	_, body := s.post(t, "getGJUsers20.php", url.Values{"str": {"ROB"}, "secret": {model.CommonSecret}})
	assert.True(t, strings.HasPrefix(body, "1:robtop:2:1:13:149:17:220:"), body)
	assert.Contains(t, body, ":8:12:")
	assert.True(t, strings.HasSuffix(body, "#1:0:10"), body)

	_, body = s.post(t, "getGJUsers20.php", url.Values{"str": {"banned"}, "secret": {model.CommonSecret}})
	assert.Equal(t, model.RespFailure, body, "banned users are not listed")

	_, body = s.post(t, "getGJUsers20.php", url.Values{"str": {"rob"}})
	assert.Equal(t, model.RespFailure, body, "secret required")

	_, body = s.post(t, "getGJAccountComments20.php", url.Values{"accountID": {"71"}, "page": {"0"}})
	records, trailer, ok := strings.Cut(body, "#")
	require.True(t, ok, body)
	assert.Equal(t, "2:0:10", trailer)
	first := strings.Split(records, "|")[0]
	assert.True(t, strings.HasPrefix(first, "2~"+wire.Base64("update soon")+"~3~1~4~0~5~0~7~0~9~1 hour~6~"), first)

	_, body = s.post(t, "getGJAccountComments20.php", url.Values{"accountID": {"72"}})
	assert.Equal(t, model.RespEmptyComments, body)
}

func TestE2E_HealthAndMetrics(t *testing.T) {
	s := startE2EStack(t)

	resp, err := http.Get(s.baseURL + "/api/health")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, float64(5), health["level_count"])

	s.post(t, "getGJLevels21.php", url.Values{"uuid": {"1"}, "type": {"16"}})

	resp, err = http.Get(s.baseURL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `gdps_browse_requests_total{query_type="hall_of_fame"} 1`)
	assert.Contains(t, string(body), `gdps_http_requests_total{route="/database/getGJLevels21.php",status="200"} 1`)
}
