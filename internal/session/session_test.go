package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mvp/internal/models"
)

func newPersistedStore(t *testing.T, kv KV) (*Store, *Persister) {
	t.Helper()
	store := NewStore(kv, State{})
	p := NewPersister(kv)
	p.Attach(store)
	return store, p
}

func TestReduce(t *testing.T) {
	t.Parallel()

	onboarded := func(id string) bool { return id == "a" }
	event := &models.Event{ID: "e1", Title: "Party"}

	tests := []struct {
		name   string
		start  State
		action Action
		want   State
	}{
		{
			name:   "sign in loads onboarding flag",
			action: SignedIn{UserID: "a", Username: "alice"},
			want:   State{LoggedIn: true, UserID: "a", Username: "alice", Onboarded: true},
		},
		{
			name:   "sign in as new user",
			action: SignedIn{UserID: "b", Username: "bob"},
			want:   State{LoggedIn: true, UserID: "b", Username: "bob"},
		},
		{
			name:   "sign out clears login and navigation",
			start:  State{LoggedIn: true, UserID: "a", Username: "alice", Onboarded: true, ShowCreatePost: true, SelectedEvent: event},
			action: SignedOut{},
			want:   State{},
		},
		{
			name:   "user change reloads flag",
			start:  State{LoggedIn: true, UserID: "b"},
			action: UserChanged{UserID: "a"},
			want:   State{LoggedIn: true, UserID: "a", Onboarded: true},
		},
		{
			name:   "empty user is never onboarded",
			start:  State{UserID: "a", Onboarded: true},
			action: UserChanged{UserID: ""},
			want:   State{},
		},
		{
			name:   "onboarding without user is ignored",
			action: OnboardingCompleted{},
			want:   State{},
		},
		{
			name:   "onboarding completed",
			start:  State{UserID: "b"},
			action: OnboardingCompleted{},
			want:   State{UserID: "b", Onboarded: true},
		},
		{
			name:   "username change",
			start:  State{UserID: "a"},
			action: UsernameChanged{Username: "al"},
			want:   State{UserID: "a", Username: "al"},
		},
		{
			name:   "select event",
			action: SelectEvent{Event: event},
			want:   State{SelectedEvent: event},
		},
		{
			name:   "toggle create screens",
			start:  State{ShowCreateEvent: true},
			action: ShowCreatePost{Visible: true},
			want:   State{ShowCreatePost: true, ShowCreateEvent: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Reduce(tt.start, tt.action, onboarded))
		})
	}
}

func TestStore_OnboardingIsolatedPerUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := NewMemoryKV()
	store, p := newPersistedStore(t, kv)

	store.Dispatch(ctx, UserChanged{UserID: "A"})
	store.Dispatch(ctx, OnboardingCompleted{})
	require.True(t, store.State().Onboarded)

	store.Dispatch(ctx, UserChanged{UserID: "B"})
	assert.False(t, store.State().Onboarded)

	store.Dispatch(ctx, UserChanged{UserID: "A"})
	assert.True(t, store.State().Onboarded)
	assert.NoError(t, p.Err())
}

func TestStore_SignOutKeepsOnboardingEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := NewMemoryKV()
	store, _ := newPersistedStore(t, kv)

	store.Dispatch(ctx, SignedIn{UserID: "u1", Username: "alice"})
	store.Dispatch(ctx, OnboardingCompleted{})
	store.Dispatch(ctx, SignedOut{})

	s := store.State()
	assert.False(t, s.LoggedIn)
	assert.Empty(t, s.UserID)
	assert.Empty(t, s.Username)

	v, ok, err := kv.Get(ctx, OnboardedKey("u1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	loggedIn, _, _ := kv.Get(ctx, KeyLoggedIn)
	assert.Equal(t, "false", loggedIn)
	_, ok, _ = kv.Get(ctx, KeyUserID)
	assert.False(t, ok)
	_, ok, _ = kv.Get(ctx, KeyUsername)
	assert.False(t, ok)

	store.Dispatch(ctx, SignedIn{UserID: "u1", Username: "alice"})
	assert.True(t, store.State().Onboarded)
}

func TestStore_ObserversAndUnsubscribe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore(NewMemoryKV(), State{})

	var seen []string
	unsubscribe := store.Subscribe(func(_ context.Context, prev, next State, action Action) {
		seen = append(seen, action.Name())
		if action.Name() == "username_changed" {
			assert.Empty(t, prev.Username)
			assert.Equal(t, "neo", next.Username)
		}
	})

	store.Dispatch(ctx, UsernameChanged{Username: "neo"})
	store.Dispatch(ctx, ShowCreatePost{Visible: true})
	unsubscribe()
	store.Dispatch(ctx, ShowCreatePost{Visible: false})

	assert.Equal(t, []string{"username_changed", "show_create_post"}, seen)
}

func TestRestore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := NewMemoryKV()
	store, _ := newPersistedStore(t, kv)
	store.Dispatch(ctx, SignedIn{UserID: "u1", Username: "alice"})
	store.Dispatch(ctx, OnboardingCompleted{})
	store.Dispatch(ctx, ShowCreateEvent{Visible: true})

	restored, err := Restore(ctx, kv)
	require.NoError(t, err)
	assert.Equal(t, State{LoggedIn: true, UserID: "u1", Username: "alice", Onboarded: true}, restored)

	empty, err := Restore(ctx, NewMemoryKV())
	require.NoError(t, err)
	assert.Equal(t, State{}, empty)
}

type failingKV struct {
	MemoryKV
	err error
}

func (f *failingKV) Get(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f *failingKV) Set(context.Context, string, string) error        { return f.err }

func TestPersister_RecordsWriteErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	kv := &failingKV{err: boom}
	store, p := newPersistedStore(t, kv)

	s := store.Dispatch(context.Background(), SignedIn{UserID: "u1", Username: "alice"})
	assert.True(t, s.LoggedIn)
	assert.False(t, s.Onboarded)
	assert.ErrorIs(t, p.Err(), boom)

	_, err := Restore(context.Background(), kv)
	assert.ErrorIs(t, err, boom)
}

func TestFileKV_PersistsAcrossOpens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	kv, err := OpenFileKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "userId", "u1"))
	require.NoError(t, kv.Set(ctx, "isLoggedIn", "true"))
	require.NoError(t, kv.Delete(ctx, "isLoggedIn"))
	require.NoError(t, kv.Delete(ctx, "missing"))

	reopened, err := OpenFileKV(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, "userId")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u1", v)
	_, ok, _ = reopened.Get(ctx, "isLoggedIn")
	assert.False(t, ok)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileKV_FailedWriteKeepsPreviousValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	kv, err := OpenFileKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "userId", "u1"))

	// a non-empty directory in place of the file makes every replace fail
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocker"), 0o700))

	assert.Error(t, kv.Set(ctx, "userId", "u2"))
	assert.Error(t, kv.Set(ctx, "isLoggedIn", "true"))
	assert.Error(t, kv.Delete(ctx, "userId"))

	v, ok, err := kv.Get(ctx, "userId")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u1", v)
	_, ok, _ = kv.Get(ctx, "isLoggedIn")
	assert.False(t, ok)
}

func TestOpenFileKV_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o600))
	kv, err := OpenFileKV(empty)
	require.NoError(t, err)
	_, ok, _ := kv.Get(context.Background(), "x")
	assert.False(t, ok)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o600))
	_, err = OpenFileKV(corrupt)
	assert.Error(t, err)
}

func TestRedisKV(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	ctx := context.Background()

	kv, err := OpenRedisKV(ctx, mr.Addr(), "mvp:state:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	_, ok, err := kv.Get(ctx, "userId")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "userId", "u1"))
	got, err := mr.Get("mvp:state:userId")
	require.NoError(t, err)
	assert.Equal(t, "u1", got)

	v, ok, err := kv.Get(ctx, "userId")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u1", v)

	require.NoError(t, kv.Delete(ctx, "userId"))
	assert.False(t, mr.Exists("mvp:state:userId"))
}

func TestRedisKV_BacksStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	ctx := context.Background()
	kv := NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "p:")
	t.Cleanup(func() { _ = kv.Close() })

	store, p := newPersistedStore(t, kv)
	store.Dispatch(ctx, SignedIn{UserID: "A", Username: "a"})
	store.Dispatch(ctx, OnboardingCompleted{})
	require.NoError(t, p.Err())
	assert.True(t, mr.Exists("p:isOnboarded-A"))

	restored, err := Restore(ctx, kv)
	require.NoError(t, err)
	assert.True(t, restored.Onboarded)
}

func TestOpenRedisKV_Errors(t *testing.T) {
	t.Parallel()

	_, err := OpenRedisKV(context.Background(), "redis://%zz", "p:")
	assert.Error(t, err)
}

func TestTokenVault(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	vault := NewTokenVault(NewMemoryKV())

	token, err := vault.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, vault.Save(ctx, "jwt"))
	token, _ = vault.Load(ctx)
	assert.Equal(t, "jwt", token)

	require.NoError(t, vault.Clear(ctx))
	token, _ = vault.Load(ctx)
	assert.Empty(t, token)
}
