package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/impulsenest/teacherpanel/internal/api"
	"github.com/impulsenest/teacherpanel/internal/errors"
	"github.com/impulsenest/teacherpanel/internal/tui"
	"github.com/impulsenest/teacherpanel/internal/ux"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload teaching material",
		Long: `Upload one or more files. Several files are sent in a single request.

Each file's BLAKE3 digest is printed so uploads can be checked against the
local copy.`,
		Args:        cobra.MinimumNArgs(1),
		Annotations: protected(),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			files, closeAll, err := openUploads(args)
			if err != nil {
				return err
			}
			defer closeAll()

			fileType, _ := cmd.Flags().GetString("type")
			meta, _ := cmd.Flags().GetStringToString("meta")
			noProgress, _ := cmd.Flags().GetBool("no-progress")

			var result *api.UploadResult
			send := func(ctx context.Context, onProgress api.ProgressFunc) error {
				opts := api.UploadOptions{Type: fileType, Metadata: meta, OnProgress: onProgress}
				var err error
				if len(files) == 1 {
					result, err = app.Client.Upload(ctx, files[0], opts)
				} else {
					result, err = app.Client.UploadMultiple(ctx, files, opts)
				}
				return err
			}

			if !noProgress && tui.ShouldPrompt() {
				err = tui.RunUpload(cmd.Context(), app.ErrOut, "Uploading", args, send)
			} else {
				err = send(cmd.Context(), nil)
			}
			if err != nil {
				return err
			}
			return app.Print(newUploadReport(result))
		},
	}

	cmd.Flags().String("type", "", `file category (default "general")`)
	cmd.Flags().StringToString("meta", nil, "extra form fields, e.g. --meta lesson=12")
	cmd.Flags().Bool("no-progress", false, "do not show a progress bar")
	return cmd
}

// openUploads opens every path. The returned func closes what was opened.
func openUploads(paths []string) ([]api.UploadFile, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	files := make([]api.UploadFile, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, errors.NewUploadFileMissingError(p, err)
		}
		opened = append(opened, f)
		if info, err := f.Stat(); err == nil && info.IsDir() {
			closeAll()
			return nil, nil, errors.NewUploadFileMissingError(p, fmt.Errorf("is a directory"))
		}
		files = append(files, api.UploadFile{Name: filepath.Base(p), Content: f})
	}
	return files, closeAll, nil
}

// uploadReport is the digests of the sent files and the backend reply.
type uploadReport struct {
	Files    []api.FileDigest `json:"files" yaml:"files"`
	Response any              `json:"response,omitempty" yaml:"response,omitempty"`
}

func newUploadReport(result *api.UploadResult) uploadReport {
	r := uploadReport{Files: result.Files}
	if v, err := result.Response.Value(); err == nil {
		r.Response = v
	}
	return r
}

func (r uploadReport) RenderText(w io.Writer, styles ux.Styles) error {
	t := ux.Table{Headers: []string{"file", "size", "blake3"}}
	for _, f := range r.Files {
		t.Rows = append(t.Rows, []string{f.Name, fmt.Sprintf("%d", f.Size), f.BLAKE3})
	}
	if err := t.RenderText(w, styles); err != nil {
		return err
	}

	stored := map[string]any{}
	if m, ok := r.Response.(map[string]any); ok {
		stored = m
	}
	for _, key := range []string{"url", "id"} {
		if v, ok := stored[key]; ok {
			if _, err := fmt.Fprintln(w, styles.Key.Render(key+":")+" "+styles.Value.Render(cell(v))); err != nil {
				return err
			}
		}
	}
	return nil
}

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "files",
		Short:       "Inspect and remove uploaded files",
		Annotations: protected(),
	}

	info := &cobra.Command{
		Use:   "info <id>",
		Short: "Show an uploaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			file, err := app.Client.Files().Info(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.Print(file)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List uploaded files of one category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			fileType, _ := cmd.Flags().GetString("type")
			files, err := app.Client.Files().ListByType(cmd.Context(), fileType)
			if err != nil {
				return err
			}
			return app.Print(entityTable(files, "name", "size", "url"))
		},
	}
	list.Flags().String("type", "general", "file category")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an uploaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			ok, err := confirmDelete(cmd, "file "+args[0])
			if err != nil || !ok {
				return err
			}
			if err := app.Client.Files().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return app.Print(deleted{Deleted: "file " + args[0]})
		},
	}
	addYesFlag(del)

	cmd.AddCommand(info, list, del)
	return cmd
}
