package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/impulsenest/teacherpanel/internal/api"
	"github.com/impulsenest/teacherpanel/internal/errors"
	"github.com/impulsenest/teacherpanel/internal/tui"
	"github.com/impulsenest/teacherpanel/internal/ux"
)

// entityTable renders records with an id column followed by columns.
// Records missing a column show an empty cell.
func entityTable(entities []api.Entity, columns ...string) ux.Table {
	headers := append([]string{"id"}, columns...)
	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		row := []string{e.ID()}
		for _, c := range columns {
			row = append(row, cell(e[c]))
		}
		rows = append(rows, row)
	}
	return ux.Table{Headers: headers, Rows: rows}
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case bool:
		return fmt.Sprint(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// readPayload parses --data: inline JSON, @path to read a file, or - for
// stdin.
func readPayload(cmd *cobra.Command, raw string) (any, error) {
	data := []byte(raw)

	switch {
	case raw == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, errors.NewInvalidPayloadError(err)
		}
		data = b
	case strings.HasPrefix(raw, "@"):
		b, err := os.ReadFile(strings.TrimPrefix(raw, "@"))
		if err != nil {
			return nil, errors.NewInvalidPayloadError(err)
		}
		data = b
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.NewInvalidPayloadError(err)
	}
	return payload, nil
}

func addDataFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().StringP("data", "d", "", usage+` (JSON, @file.json or - for stdin)`)
	_ = cmd.MarkFlagRequired("data")
}

func payloadFlag(cmd *cobra.Command) (any, error) {
	raw, err := cmd.Flags().GetString("data")
	if err != nil {
		return nil, err
	}
	return readPayload(cmd, raw)
}

// confirmDelete asks before a delete unless --yes was given. Without a
// terminal the flag is mandatory.
func confirmDelete(cmd *cobra.Command, what string) (bool, error) {
	yes, _ := cmd.Flags().GetBool("yes")
	if yes {
		return true, nil
	}
	if !tui.ShouldPrompt() {
		return false, errors.New(errors.ErrCodeInvalidPayload, "refusing to delete without confirmation").
			WithSuggestion("Pass --yes to delete non-interactively")
	}
	return tui.PromptForConfirmation(cmd.Context(), fmt.Sprintf("Delete %s?", what), false)
}

func addYesFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

// deleted is the output of a successful delete.
type deleted struct {
	Deleted string `json:"deleted" yaml:"deleted"`
}

func (d deleted) String() string {
	return "Deleted " + d.Deleted
}
