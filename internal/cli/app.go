package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/credvault/internal/accounts"
	"github.com/dmitrijs2005/credvault/internal/config"
	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/netx"
	"github.com/dmitrijs2005/credvault/internal/remote"
)

var (
	errNotLoggedIn        = errors.New("not logged in, use 'login' or 'use <account>'")
	errUnknownAccount     = errors.New("no saved account with that name or identifier")
	errMissingCredentials = errors.New("please enter both identifier and secret")
)

// connectFunc opens a remote store; swapped out in tests.
type connectFunc func(ctx context.Context, cfg config.Remote, creds remote.Credentials) (remote.Storage, error)

// fetchURL is a test seam for netx.FetchPresignedURL.
var fetchURL = netx.FetchPresignedURL

func connectS3(ctx context.Context, cfg config.Remote, creds remote.Credentials) (remote.Storage, error) {
	st, err := remote.Connect(ctx, cfg, creds)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// App holds the CLI session: the saved accounts and, once logged in, the
// remote store.
type App struct {
	config     *config.Config
	log        logging.Logger
	accounts   *accounts.Store
	connect    connectFunc
	httpClient *http.Client

	storage remote.Storage
	current string

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config, store *accounts.Store, log logging.Logger, in io.Reader, out io.Writer) *App {
	if log == nil {
		log = logging.Nop()
	}
	return &App{
		config:   c,
		log:      log,
		accounts: store,
		connect:  connectS3,
		reader:   bufio.NewReader(in),
		out:      out,
	}
}

func (a *App) isLoggedIn() bool {
	return a.storage != nil
}

func (a *App) status() string {
	if a.current == "" {
		return "offline"
	}
	return a.current
}

// remoteCtx bounds a remote call by the configured timeout.
func (a *App) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.Remote.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.Remote.Timeout)
}

// Accounts prints the saved accounts, most recently used first.
func (a *App) Accounts(ctx context.Context) error {
	list := a.accounts.List()
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No saved accounts.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tIDENTIFIER\tLAST USED")
	for _, acc := range list {
		id := acc.Email
		if id == "" {
			id = "<unreadable>"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", acc.AccountName, id, acc.LastUsed.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

// Login asks for credentials, connects and optionally saves the account.
func (a *App) Login(ctx context.Context) error {
	id, err := GetSimpleText(a.reader, "Access key ID", a.out)
	if err != nil {
		return fmt.Errorf("read identifier: %w", err)
	}
	secret, err := GetSecret(a.reader, "Secret access key", a.out)
	if err != nil {
		return fmt.Errorf("read secret: %w", err)
	}
	if id == "" || secret == "" {
		fmt.Fprintln(a.out, errMissingCredentials)
		return errMissingCredentials
	}

	if err := a.open(ctx, remote.Credentials{AccessKeyID: id, SecretAccessKey: secret}); err != nil {
		return err
	}

	save, err := GetConfirm(a.reader, "Save this account?", a.out)
	if err != nil {
		return fmt.Errorf("read answer: %w", err)
	}
	if save {
		err = a.accounts.Save(id, secret)
	} else {
		err = a.accounts.Touch(id)
	}
	if err != nil {
		fmt.Fprintf(a.out, "Warning: account list not saved: %v\n", err)
	}
	return nil
}

// Use logs in with a saved account chosen by name or identifier.
func (a *App) Use(ctx context.Context, ref string) error {
	acc, ok := a.findSaved(ref)
	if !ok {
		fmt.Fprintln(a.out, errUnknownAccount)
		return errUnknownAccount
	}

	if err := a.open(ctx, remote.FromAccount(acc)); err != nil {
		return err
	}
	if err := a.accounts.Touch(acc.Email); err != nil {
		fmt.Fprintf(a.out, "Warning: account list not saved: %v\n", err)
	}
	return nil
}

// Forget deletes a saved account. The current session is closed if it
// belonged to that account.
func (a *App) Forget(ctx context.Context, ref string) error {
	acc, ok := a.findSaved(ref)
	if !ok {
		fmt.Fprintln(a.out, errUnknownAccount)
		return errUnknownAccount
	}
	if err := a.accounts.Delete(acc.Email); err != nil {
		fmt.Fprintf(a.out, "Warning: account list not saved: %v\n", err)
	}
	if a.current == acc.Email {
		a.Logout(ctx)
	}
	fmt.Fprintf(a.out, "Forgot %s.\n", acc.AccountName)
	return nil
}

// Files lists the remote files.
func (a *App) Files(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, errNotLoggedIn)
		return errNotLoggedIn
	}
	ctx, cancel := a.remoteCtx(ctx)
	defer cancel()

	objects, err := a.storage.List(ctx)
	if err != nil {
		return a.fail(ctx, "list failed", err)
	}
	if len(objects) == 0 {
		fmt.Fprintln(a.out, "No files.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
	for _, o := range objects {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Key, formatSize(o.Size), o.Modified.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

// Put uploads a local file.
func (a *App) Put(ctx context.Context, file string) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, errNotLoggedIn)
		return errNotLoggedIn
	}
	f, err := os.Open(file)
	if err != nil {
		return a.fail(ctx, "upload failed", err)
	}
	defer f.Close()

	ctx, cancel := a.remoteCtx(ctx)
	defer cancel()

	key, err := a.storage.Upload(ctx, filepath.Base(file), f)
	if err != nil {
		return a.fail(ctx, "upload failed", err)
	}
	fmt.Fprintf(a.out, "Uploaded %s as %s\n", filepath.Base(file), key)
	return nil
}

// Get downloads key into dest, or into the current directory under the
// key's base name when dest is empty.
func (a *App) Get(ctx context.Context, key, dest string) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, errNotLoggedIn)
		return errNotLoggedIn
	}
	if dest == "" {
		dest = filepath.Base(key)
	}

	ctx, cancel := a.remoteCtx(ctx)
	defer cancel()

	n, err := saveTo(dest, func(w io.Writer) (int64, error) {
		return a.storage.Download(ctx, key, w)
	})
	if err != nil {
		return a.fail(ctx, "download failed", err)
	}
	fmt.Fprintf(a.out, "Downloaded %s to %s (%s)\n", key, dest, formatSize(n))
	return nil
}

// Fetch downloads a shared link. No login is needed; the link carries its
// own authorization.
func (a *App) Fetch(ctx context.Context, link, dest string) error {
	if dest == "" {
		u, err := url.Parse(link)
		if err != nil {
			return a.fail(ctx, "fetch failed", err)
		}
		dest = path.Base(u.Path)
		if dest == "/" || dest == "." {
			dest = "download"
		}
	}

	ctx, cancel := a.remoteCtx(ctx)
	defer cancel()

	n, err := saveTo(dest, func(w io.Writer) (int64, error) {
		return fetchURL(ctx, a.httpClient, link, w)
	})
	if err != nil {
		return a.fail(ctx, "fetch failed", err)
	}
	fmt.Fprintf(a.out, "Fetched %s (%s)\n", dest, formatSize(n))
	return nil
}

// saveTo writes through a temp file next to dest and renames it into
// place only when fill succeeds.
func saveTo(dest string, fill func(io.Writer) (int64, error)) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".part-*")
	if err != nil {
		return 0, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := fill(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dest)
	}
	return n, err
}

// Link prints a temporary download URL for key.
func (a *App) Link(ctx context.Context, key string) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, errNotLoggedIn)
		return errNotLoggedIn
	}
	ctx, cancel := a.remoteCtx(ctx)
	defer cancel()

	url, err := a.storage.Link(ctx, key, a.config.Remote.LinkTTL)
	if err != nil {
		return a.fail(ctx, "link failed", err)
	}
	fmt.Fprintln(a.out, url)
	return nil
}

// Logout drops the remote session.
func (a *App) Logout(ctx context.Context) error {
	if a.current != "" {
		a.log.Info(ctx, "logged out", "account", a.current)
	}
	a.storage = nil
	a.current = ""
	return nil
}

func (a *App) open(ctx context.Context, creds remote.Credentials) error {
	rctx, cancel := a.remoteCtx(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "Connecting...")
	st, err := a.connect(rctx, a.config.Remote, creds)
	if err != nil {
		return a.fail(ctx, "login failed", err)
	}

	a.storage = st
	a.current = creds.AccessKeyID
	a.log.Info(ctx, "logged in", "account", a.current)
	fmt.Fprintf(a.out, "Connected as %s\n", a.current)
	return nil
}

func (a *App) findSaved(ref string) (accounts.Account, bool) {
	if acc, ok := a.accounts.Get(ref); ok {
		return acc, true
	}
	for _, acc := range a.accounts.List() {
		if acc.AccountName == ref && acc.Email != "" {
			return acc, true
		}
	}
	return accounts.Account{}, false
}

func (a *App) fail(ctx context.Context, what string, err error) error {
	a.log.Error(ctx, what, "error", err)
	fmt.Fprintf(a.out, "Error: %s: %v\n", what, err)
	return err
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
