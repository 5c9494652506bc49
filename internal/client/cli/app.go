package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophvault/internal/client/client"
	"github.com/dmitrijs2005/gophvault/internal/client/config"
	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/dmitrijs2005/gophvault/internal/client/services"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"golang.org/x/term"
)

// ErrUsage marks command-line mistakes, as opposed to failed operations.
var ErrUsage = errors.New("usage error")

type Uploader interface {
	Upload(ctx context.Context, path, title string, progress services.ProgressFunc) (*client.CompleteUploadResponse, error)
	Resume(ctx context.Context, token string, progress services.ProgressFunc) (*client.CompleteUploadResponse, error)
	Status(ctx context.Context, token string) (*client.StatusResponse, error)
	Cancel(ctx context.Context, token string) error
	Pending(ctx context.Context) ([]*models.PendingUpload, error)
}

type Files interface {
	Download(ctx context.Context, fileID, out string) (string, error)
	List(ctx context.Context) ([]client.FileInfo, error)
	AccountStats(ctx context.Context) (*client.AccountStats, error)
}

type App struct {
	uploads Uploader
	files   Files
	out     io.Writer
	errOut  io.Writer
	in      io.Reader

	// interactive is set when errOut is a terminal
	interactive bool
	width       func() int

	closer io.Closer
}

// NewApp opens the local state database and wires the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	repos, err := client.InitDatabase(ctx, c.StateDB)
	if err != nil {
		return nil, fmt.Errorf("state database: %w", err)
	}

	api := client.NewHTTPClient(c.ServerURL, c.Token, c.RequestTimeout)
	logger := logging.NewTextLogger(os.Stderr, "warn")

	uploads := services.NewUploadService(api, repos.Uploads, services.UploadOptions{
		ChunkSize:   c.ChunkSize,
		Parallelism: c.Parallelism,
		MaxRetries:  c.MaxRetries,
		RetryDelay:  c.RetryDelay,
	}, logger)

	fd := int(os.Stderr.Fd())
	app := newApp(uploads, services.NewFileService(api), os.Stdin, os.Stdout, os.Stderr)
	app.interactive = term.IsTerminal(fd)
	app.width = func() int {
		w, _, err := term.GetSize(fd)
		if err != nil || w <= 0 {
			return defaultWidth
		}
		return w
	}
	app.closer = repos
	return app, nil
}

func newApp(uploads Uploader, files Files, in io.Reader, out, errOut io.Writer) *App {
	return &App{
		uploads: uploads,
		files:   files,
		in:      in,
		out:     out,
		errOut:  errOut,
		width:   func() int { return defaultWidth },
	}
}

func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Run executes one command. args must not contain the configuration flags.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return fmt.Errorf("%w: no command given", ErrUsage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "upload":
		return a.upload(ctx, rest)
	case "resume":
		return a.resume(ctx, rest)
	case "status":
		return a.status(ctx, rest)
	case "cancel":
		return a.cancel(ctx, rest)
	case "download":
		return a.download(ctx, rest)
	case "list", "ls":
		return a.list(ctx, rest)
	case "pending":
		return a.pending(ctx, rest)
	case "stats":
		return a.stats(ctx, rest)
	case "shell":
		return a.shell(ctx)
	case "help", "-h", "--help":
		a.usage()
		return nil
	default:
		a.usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) usage() {
	fmt.Fprint(a.errOut, `Usage: gophvault [config flags] <command> [args]

Commands:
  upload <path> [-t title]       upload a file in chunks
  resume <token>                 finish an interrupted upload
  status <token>                 show upload progress on the server
  cancel <token>                 abort an upload
  download <file_id> [-o out]    download a file
  list                           list uploaded files
  pending                        list unfinished uploads started here
  stats                          show account usage
  shell                          read commands from standard input

Config flags:
  -a url  -k token  -b chunk-bytes  -j parallel  -r retries  -db state.db  -c config.json
`)
}
