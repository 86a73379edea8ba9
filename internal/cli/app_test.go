package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/credvault/internal/accounts"
	"github.com/dmitrijs2005/credvault/internal/config"
	"github.com/dmitrijs2005/credvault/internal/netx"
	"github.com/dmitrijs2005/credvault/internal/remote"
	"github.com/dmitrijs2005/credvault/internal/vault"
)

type fakeStorage struct {
	files   map[string][]byte
	listErr error
	links   []time.Duration
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: map[string][]byte{}}
}

func (f *fakeStorage) List(context.Context) ([]remote.Object, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []remote.Object
	for k, v := range f.files {
		out = append(out, remote.Object{Key: k, Size: int64(len(v))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeStorage) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := "uploads/" + name
	f.files[key] = b
	return key, nil
}

func (f *fakeStorage) Download(_ context.Context, key string, w io.Writer) (int64, error) {
	b, ok := f.files[key]
	if !ok {
		return 0, remote.ErrNotFound
	}
	n, err := w.Write(b)
	return int64(n), err
}

func (f *fakeStorage) Link(_ context.Context, key string, ttl time.Duration) (string, error) {
	if _, ok := f.files[key]; !ok {
		return "", remote.ErrNotFound
	}
	f.links = append(f.links, ttl)
	return "https://files.example/" + key, nil
}

type harness struct {
	app     *App
	store   *accounts.Store
	storage *fakeStorage
	out     *bytes.Buffer
	creds   []remote.Credentials
}

// newHarness builds an App over a temp vault. Only the secret "good" is
// accepted by the fake connect.
func newHarness(t *testing.T, input string) *harness {
	t.Helper()
	stubTerminal(t, false, nil, errors.New("no tty"))

	var c config.Config
	c.LoadDefaults()

	h := &harness{
		store:   vault.Open(t.TempDir(), nil).Accounts,
		storage: newFakeStorage(),
		out:     &bytes.Buffer{},
	}
	h.app = NewApp(&c, h.store, nil, strings.NewReader(input), h.out)
	h.app.connect = func(_ context.Context, _ config.Remote, creds remote.Credentials) (remote.Storage, error) {
		h.creds = append(h.creds, creds)
		if creds.SecretAccessKey != "good" {
			return nil, remote.ErrUnauthorized
		}
		return h.storage, nil
	}
	return h
}

func (h *harness) login(t *testing.T, id string) {
	t.Helper()
	h.app.storage = h.storage
	h.app.current = id
}

func TestLogin_SavesAccountWhenConfirmed(t *testing.T) {
	h := newHarness(t, "AKIA1\ngood\ny\n")

	require.NoError(t, h.app.Login(context.Background()))

	assert.True(t, h.app.isLoggedIn())
	assert.Equal(t, "AKIA1", h.app.status())
	assert.Equal(t, []remote.Credentials{{AccessKeyID: "AKIA1", SecretAccessKey: "good"}}, h.creds)

	acc, ok := h.store.Get("AKIA1")
	require.True(t, ok)
	assert.Equal(t, "good", acc.Password)
	assert.Equal(t, "login_1", acc.AccountName)
}

func TestLogin_NotSavedWhenDeclined(t *testing.T) {
	h := newHarness(t, "AKIA1\ngood\nn\n")

	require.NoError(t, h.app.Login(context.Background()))

	assert.True(t, h.app.isLoggedIn())
	assert.Equal(t, 0, h.store.Len())
}

func TestLogin_Rejected(t *testing.T) {
	h := newHarness(t, "AKIA1\nbad\n")

	err := h.app.Login(context.Background())
	assert.ErrorIs(t, err, remote.ErrUnauthorized)
	assert.False(t, h.app.isLoggedIn())
	assert.Equal(t, "offline", h.app.status())
	assert.Equal(t, 0, h.store.Len())
	assert.Contains(t, h.out.String(), "Error: login failed: unauthorized")
}

func TestLogin_MissingInput(t *testing.T) {
	h := newHarness(t, "\n\n")

	err := h.app.Login(context.Background())
	assert.ErrorIs(t, err, errMissingCredentials)
	assert.Empty(t, h.creds)
}

func TestUse_ByNameAndIdentifier(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.store.Save("AKIA1", "good"))
	require.NoError(t, h.store.Save("AKIA2", "good"))

	require.NoError(t, h.app.Use(context.Background(), "login_1"))
	assert.Equal(t, "AKIA1", h.app.current)

	require.NoError(t, h.app.Use(context.Background(), "AKIA2"))
	assert.Equal(t, "AKIA2", h.app.current)
	assert.Len(t, h.creds, 2)
}

func TestUse_Unknown(t *testing.T) {
	h := newHarness(t, "")

	err := h.app.Use(context.Background(), "nobody")
	assert.ErrorIs(t, err, errUnknownAccount)
	assert.Empty(t, h.creds)
}

func TestUse_RejectedKeepsAccount(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.store.Save("AKIA1", "stale"))

	err := h.app.Use(context.Background(), "AKIA1")
	assert.ErrorIs(t, err, remote.ErrUnauthorized)
	assert.Equal(t, 1, h.store.Len())
}

func TestForget_LogsOutCurrentAccount(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.store.Save("AKIA1", "good"))
	require.NoError(t, h.app.Use(context.Background(), "AKIA1"))

	require.NoError(t, h.app.Forget(context.Background(), "login_1"))

	assert.Equal(t, 0, h.store.Len())
	assert.False(t, h.app.isLoggedIn())
	assert.Contains(t, h.out.String(), "Forgot login_1.")

	assert.ErrorIs(t, h.app.Forget(context.Background(), "login_1"), errUnknownAccount)
}

func TestAccounts_ListsWithoutSecrets(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.app.Accounts(context.Background()))
	assert.Contains(t, h.out.String(), "No saved accounts.")

	h.out.Reset()
	require.NoError(t, h.store.Save("AKIA1", "topsecret"))
	require.NoError(t, h.app.Accounts(context.Background()))

	s := h.out.String()
	assert.Contains(t, s, "NAME")
	assert.Contains(t, s, "login_1")
	assert.Contains(t, s, "AKIA1")
	assert.NotContains(t, s, "topsecret")
}

func TestRemoteCommands_RequireLogin(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	assert.ErrorIs(t, h.app.Files(ctx), errNotLoggedIn)
	assert.ErrorIs(t, h.app.Put(ctx, "x"), errNotLoggedIn)
	assert.ErrorIs(t, h.app.Get(ctx, "x", ""), errNotLoggedIn)
	assert.ErrorIs(t, h.app.Link(ctx, "x"), errNotLoggedIn)
}

func TestPutListGetLink(t *testing.T) {
	h := newHarness(t, "")
	h.login(t, "AKIA1")
	ctx := context.Background()

	dir := t.TempDir()
	src := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o600))

	require.NoError(t, h.app.Put(ctx, src))
	assert.Contains(t, h.out.String(), "Uploaded report.txt as uploads/report.txt")

	h.out.Reset()
	require.NoError(t, h.app.Files(ctx))
	assert.Contains(t, h.out.String(), "uploads/report.txt")
	assert.Contains(t, h.out.String(), "5 B")

	dest := filepath.Join(dir, "copy.txt")
	require.NoError(t, h.app.Get(ctx, "uploads/report.txt", dest))
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	h.out.Reset()
	require.NoError(t, h.app.Link(ctx, "uploads/report.txt"))
	assert.Equal(t, "https://files.example/uploads/report.txt\n", h.out.String())
	assert.Equal(t, []time.Duration{15 * time.Minute}, h.storage.links)
}

func TestGet_MissingKeyLeavesNoFile(t *testing.T) {
	h := newHarness(t, "")
	h.login(t, "AKIA1")

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	err := h.app.Get(context.Background(), "uploads/none", dest)
	assert.ErrorIs(t, err, remote.ErrNotFound)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFiles_Empty(t *testing.T) {
	h := newHarness(t, "")
	h.login(t, "AKIA1")

	require.NoError(t, h.app.Files(context.Background()))
	assert.Contains(t, h.out.String(), "No files.")
}

func TestPut_MissingFile(t *testing.T) {
	h := newHarness(t, "")
	h.login(t, "AKIA1")

	err := h.app.Put(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLogout(t *testing.T) {
	h := newHarness(t, "")
	h.login(t, "AKIA1")

	require.NoError(t, h.app.Logout(context.Background()))
	assert.False(t, h.app.isLoggedIn())
	assert.Equal(t, "offline", h.app.status())
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", formatSize(0))
	assert.Equal(t, "1023 B", formatSize(1023))
	assert.Equal(t, "1.0 KiB", formatSize(1024))
	assert.Equal(t, "1.5 MiB", formatSize(1536*1024))
}

func TestRemoteCtx_UsesTimeout(t *testing.T) {
	h := newHarness(t, "")

	ctx, cancel := h.app.remoteCtx(context.Background())
	defer cancel()
	_, ok := ctx.Deadline()
	assert.True(t, ok)

	h.app.config.Remote.Timeout = 0
	ctx2, cancel2 := h.app.remoteCtx(context.Background())
	defer cancel2()
	_, ok = ctx2.Deadline()
	assert.False(t, ok)
}

func TestFetch_SavesLinkedFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/uploads/report.txt", r.URL.Path)
		_, _ = w.Write([]byte("shared"))
	}))
	defer ts.Close()

	h := newHarness(t, "")
	dest := filepath.Join(t.TempDir(), "report.txt")

	require.NoError(t, h.app.Fetch(context.Background(), ts.URL+"/files/uploads/report.txt?X-Amz-Expires=900", dest))

	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "shared", string(b))
	assert.Contains(t, h.out.String(), "Fetched "+dest+" (6 B)")
}

func TestFetch_DefaultDestFromURLPath(t *testing.T) {
	var gotURL string
	orig := fetchURL
	fetchURL = func(_ context.Context, _ *http.Client, u string, w io.Writer) (int64, error) {
		gotURL = u
		n, err := w.Write([]byte("x"))
		return int64(n), err
	}
	t.Cleanup(func() { fetchURL = orig })

	tmp := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	h := newHarness(t, "")
	require.NoError(t, h.app.Fetch(context.Background(), "https://files.example/files/a/b.bin?sig=1", ""))

	assert.Equal(t, "https://files.example/files/a/b.bin?sig=1", gotURL)
	_, err = os.Stat("b.bin")
	assert.NoError(t, err)
}

func TestFetch_RejectedLinkLeavesNoFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	h := newHarness(t, "")
	dir := t.TempDir()

	err := h.app.Fetch(context.Background(), ts.URL+"/k", filepath.Join(dir, "k"))
	assert.ErrorIs(t, err, netx.ErrLinkRejected)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
