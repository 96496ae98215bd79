package directory

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resourceshare-ph/apiserver/internal/kv"
	"github.com/resourceshare-ph/apiserver/internal/tabular"
	"github.com/resourceshare-ph/apiserver/types"
)

type fakeFetcher struct {
	files map[string]string
}

func (f *fakeFetcher) Get(_ context.Context, key string) (io.ReadCloser, error) {
	text, ok := f.files[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(text)), nil
}

func newDirectory(t *testing.T, bulk string) *Directory {
	t.Helper()
	store, err := kv.Open(t.TempDir())
	require.NoError(t, err)

	files := map[string]string{}
	if bulk != "" {
		files["Users.csv"] = bulk
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	loader := tabular.NewLoader(&fakeFetcher{files: files}, log)
	return New(loader, store, log)
}

const bulkUsers = "ID,Username,PasswordHash,Role,Full Name,Barangay,Phone,PhoneVerified,Date Registered\n" +
	"1,maria,abc123,admin,Maria Cruz,Brgy1,09170000001,true,1/1/2025\n" +
	"2,juan,def456,user,Juan Reyes,Brgy2,09170000002,false,1/2/2025"

func TestLoadBulkOnly(t *testing.T) {
	dir := newDirectory(t, bulkUsers)

	users := dir.Load(context.Background())
	require.Len(t, users, 2)
	assert.Equal(t, "maria", users[0].Username)
	assert.Equal(t, "Maria Cruz", users[0].FullName)
	assert.True(t, users[0].PhoneVerified)
	assert.Equal(t, "juan", users[1].Username)
	assert.False(t, users[1].PhoneVerified)
}

func TestLocalWinsOverBulk(t *testing.T) {
	dir := newDirectory(t, bulkUsers)

	local := types.User{
		ID:       "99",
		Username: "juan",
		FullName: "Juan R. Reyes",
		Role:     types.RoleVolunteer,
	}
	require.NoError(t, dir.AddRegistered(context.Background(), local))

	users := dir.Load(context.Background())
	require.Len(t, users, 2)

	var juan types.User
	count := 0
	for _, u := range users {
		if u.Username == "juan" {
			juan = u
			count++
		}
	}
	assert.Equal(t, 1, count, "merge must keep a single entry per username")
	assert.Equal(t, "Juan R. Reyes", juan.FullName)
	assert.Equal(t, types.RoleVolunteer, juan.Role)
}

func TestBulkFailureFallsBackToLocal(t *testing.T) {
	dir := newDirectory(t, "")

	require.NoError(t, dir.AddRegistered(context.Background(), types.User{
		ID:       "1",
		Username: "alice",
		FullName: "Alice A",
	}))

	users := dir.Load(context.Background())
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

func TestAddRegisteredDuplicate(t *testing.T) {
	dir := newDirectory(t, "")
	ctx := context.Background()

	require.NoError(t, dir.AddRegistered(ctx, types.User{ID: "1", Username: "alice"}))
	err := dir.AddRegistered(ctx, types.User{ID: "2", Username: "alice"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Len(t, dir.Registered(), 1)
}

func TestRegisteredPersistsPasswordHash(t *testing.T) {
	dir := newDirectory(t, "")
	ctx := context.Background()

	require.NoError(t, dir.AddRegistered(ctx, types.User{
		ID:           "1",
		Username:     "alice",
		PasswordHash: "deadbeef",
	}))

	users := dir.Registered()
	require.Len(t, users, 1)
	assert.Equal(t, "deadbeef", users[0].PasswordHash)
}

func TestUpdateRegistered(t *testing.T) {
	dir := newDirectory(t, "")
	ctx := context.Background()

	require.NoError(t, dir.AddRegistered(ctx, types.User{ID: "1", Username: "alice", Barangay: "Brgy1"}))

	found, err := dir.UpdateRegistered(ctx, "alice", func(u *types.User) {
		u.Barangay = "Brgy7"
	})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Brgy7", dir.Registered()[0].Barangay)

	found, err = dir.UpdateRegistered(ctx, "nobody", func(u *types.User) {})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFieldAliasNormalization(t *testing.T) {
	bulk := "id,username,fullName,barangay\n7,rosa,Rosa Santos,Brgy3"
	dir := newDirectory(t, bulk)

	users := dir.Load(context.Background())
	require.Len(t, users, 1)
	assert.Equal(t, "7", users[0].ID)
	assert.Equal(t, "Rosa Santos", users[0].FullName)
	assert.Equal(t, "Brgy3", users[0].Barangay)
	assert.Equal(t, types.RoleUser, users[0].Role, "missing role defaults to user")
}
