package archive

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.grimoire/internal/catalog"
	"sudooom.grimoire/internal/model"
)

func finishedRoom() *model.Room {
	now := time.Now()
	r := model.NewRoom("ABCD", "trouble_brewing", "st", "Storyteller", 6, now)
	roles := []string{"chef", "imp", "drunk", "poisoner", "monk"}
	for i, id := range roles {
		r.Seats[i].Occupant = &model.Occupant{Kind: model.OccupantHuman, UserID: id, DisplayName: strings.ToUpper(id)}
		r.Seats[i].TrueRoleID = id
		r.Seats[i].PresentedRoleID = id
	}
	r.Seats[2].PresentedRoleID = "empath"
	r.Seats[1].IsAlive = false
	r.NightNumber = 3
	r.Messages = append(r.Messages, model.Message{ID: "m1", Kind: model.MessageChat, Text: "gg"})
	r.GameOver = &model.GameOver{Winner: model.TeamGood, Reason: "demon is dead", At: now}
	return r
}

func TestBuild(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	rec := Build(finishedRoom(), c, "arch-1", time.Now())

	assert.Equal(t, model.TeamGood, rec.Winner)
	assert.Equal(t, "demon is dead", rec.Reason)
	assert.Equal(t, 3, rec.Nights)
	require.Len(t, rec.Seats, 5, "空座位不应归档")
	assert.Equal(t, model.TeamEvil, rec.Seats[1].Team)
	assert.False(t, rec.Seats[1].IsAlive)
	assert.Equal(t, "drunk", rec.Seats[2].TrueRoleID)
	assert.Equal(t, "empath", rec.Seats[2].PresentedRoleID)
	assert.Len(t, rec.Transcript, 1)
}

func TestBuildClosedBeforeEnd(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	r := finishedRoom()
	r.GameOver = nil

	rec := Build(r, c, "arch-2", time.Now())
	assert.Empty(t, rec.Winner)
	assert.Equal(t, "room closed", rec.Reason)
}

type fakeExec struct {
	mu   sync.Mutex
	sqls []string
	args [][]any
	fail error
}

func (f *fakeExec) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	f.sqls = append(f.sqls, sql)
	f.args = append(f.args, args)
	f.mu.Unlock()
	return pgconn.NewCommandTag("INSERT 0 1"), f.fail
}

func TestPostgresSinkArchive(t *testing.T) {
	db := &fakeExec{}
	sink := NewPostgresSink(db)
	c, _ := catalog.Default()
	rec := Build(finishedRoom(), c, "arch-3", time.Now())

	require.NoError(t, sink.EnsureSchema(context.Background()))
	require.NoError(t, sink.Archive(context.Background(), rec))

	require.Len(t, db.sqls, 2)
	assert.Contains(t, db.sqls[0], "CREATE TABLE IF NOT EXISTS game_archives")
	assert.Contains(t, db.sqls[1], "INSERT INTO game_archives")

	args := db.args[1]
	assert.Equal(t, "arch-3", args[0])
	assert.Equal(t, "ABCD", args[1])
	assert.Equal(t, "good", args[3])

	var decoded Record
	require.NoError(t, json.Unmarshal(args[5].([]byte), &decoded))
	assert.Equal(t, rec.ID, decoded.ID)
	assert.Len(t, decoded.Seats, 5)

	db.fail = errors.New("connection refused")
	assert.Error(t, sink.Archive(context.Background(), rec))
}

func TestAsyncSinkDrainsOnClose(t *testing.T) {
	mem := NewMemorySink()
	async := NewAsyncSink(mem, 2, 8)

	for i := 0; i < 5; i++ {
		async.Emit(Record{ID: string(rune('a' + i)), RoomID: "ABCD"})
	}
	async.Close()

	assert.Len(t, mem.Records(), 5)
}

// TestPostgresSinkIntegration 需要本地 PostgreSQL，设置 INTEGRATION_TEST=1 与 DATABASE_URL 运行
func TestPostgresSinkIntegration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if os.Getenv("INTEGRATION_TEST") == "" || dsn == "" {
		t.Skip("Skipping PostgreSQL integration test (set INTEGRATION_TEST=1 and DATABASE_URL)")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	sink := NewPostgresSink(pool)
	require.NoError(t, sink.EnsureSchema(ctx))

	c, _ := catalog.Default()
	rec := Build(finishedRoom(), c, "it-"+time.Now().Format("150405.000000"), time.Now())
	require.NoError(t, sink.Archive(ctx, rec))
	// 重复写入被忽略
	require.NoError(t, sink.Archive(ctx, rec))

	var winner string
	require.NoError(t, pool.QueryRow(ctx, `SELECT winner FROM game_archives WHERE id = $1`, rec.ID).Scan(&winner))
	assert.Equal(t, "good", winner)
}
