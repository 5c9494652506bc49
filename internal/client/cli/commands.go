package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

func (a *App) upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	title := fs.String("t", "", "file title (defaults to the file name)")
	pos, err := parseArgs(fs, args, 1, a.errOut)
	if err != nil {
		return err
	}

	done, err := a.uploads.Upload(ctx, pos[0], *title, a.progress("upload"))
	a.endProgress()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded %s as file %s (%s bytes)\n", pos[0], done.FileID, done.FileSize)
	return nil
}

func (a *App) resume(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resume", flag.ContinueOnError)
	pos, err := parseArgs(fs, args, 1, a.errOut)
	if err != nil {
		return err
	}

	done, err := a.uploads.Resume(ctx, pos[0], a.progress("resume"))
	a.endProgress()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Upload %s completed as file %s (%s bytes)\n", pos[0], done.FileID, done.FileSize)
	return nil
}

func (a *App) status(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	pos, err := parseArgs(fs, args, 1, a.errOut)
	if err != nil {
		return err
	}

	st, err := a.uploads.Status(ctx, pos[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Upload %s (%s): %d/%d chunks, %.2f%%\n",
		st.UploadID, st.FileTitle, st.UploadedChunks, st.TotalChunks, st.ProgressPercentage)
	if len(st.MissingChunks) == 0 {
		fmt.Fprintln(a.out, "All chunks received")
	} else {
		fmt.Fprintf(a.out, "Missing chunks: %s\n", common.JoinInts(st.MissingChunks))
	}
	return nil
}

func (a *App) cancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	pos, err := parseArgs(fs, args, 1, a.errOut)
	if err != nil {
		return err
	}

	if err := a.uploads.Cancel(ctx, pos[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Upload %s cancelled\n", pos[0])
	return nil
}

func (a *App) download(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	out := fs.String("o", "", "output file or directory (defaults to the stored name in the current directory)")
	pos, err := parseArgs(fs, args, 1, a.errOut)
	if err != nil {
		return err
	}

	path, err := a.files.Download(ctx, pos[0], *out)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s\n", path)
	return nil
}

func (a *App) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	if _, err := parseArgs(fs, args, 0, a.errOut); err != nil {
		return err
	}

	files, err := a.files.List(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No files")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tNAME\tSIZE\tUPLOADED")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.ID, f.FileTitle, f.FileName, f.FileSize, f.UploadedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (a *App) pending(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pending", flag.ContinueOnError)
	if _, err := parseArgs(fs, args, 0, a.errOut); err != nil {
		return err
	}

	list, err := a.uploads.Pending(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No pending uploads")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tTITLE\tPATH\tCHUNKS\tSTARTED")
	for _, u := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", u.Token, u.Title, u.Path, u.TotalChunks, u.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (a *App) stats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	if _, err := parseArgs(fs, args, 0, a.errOut); err != nil {
		return err
	}

	s, err := a.files.AccountStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Files: %d\nTotal size: %d bytes\nDownloads: %d\n", s.TotalFiles, s.TotalFileSize, s.TotalDownloads)
	return nil
}
