package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/impulsenest/teacherpanel/internal/ux"
	"github.com/impulsenest/teacherpanel/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoApp: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			flags, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			f, err := ux.NewFormatter(flags.Format, &ux.FormatterOptions{
				Writer:  cmd.OutOrStdout(),
				NoColor: flags.NoColor,
			})
			if err != nil {
				return err
			}
			return f.Format(versionInfo(version.GetInfo()))
		},
	}
}

// versionInfo renders as a single line in text mode.
type versionInfo version.Info

func (v versionInfo) RenderText(w io.Writer, _ ux.Styles) error {
	_, err := io.WriteString(w, version.Info(v).String()+"\n")
	return err
}
