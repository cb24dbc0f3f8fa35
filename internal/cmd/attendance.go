package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/impulsenest/teacherpanel/internal/errors"
)

const dateLayout = "2006-01-02"

func newAttendanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "attendance",
		Short:       "Track group attendance",
		Annotations: protected(),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List attendance records of a group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			group, _ := cmd.Flags().GetString("group")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")

			if from == "" && to == "" {
				records, err := app.Client.Attendance().ListByGroup(cmd.Context(), group)
				if err != nil {
					return err
				}
				return app.Print(entityTable(records, "date", "student_id", "status"))
			}

			start, end, err := dateRange(from, to)
			if err != nil {
				return err
			}
			records, err := app.Client.Attendance().ListByDateRange(cmd.Context(), group, start, end)
			if err != nil {
				return err
			}
			return app.Print(entityTable(records, "date", "student_id", "status"))
		},
	}
	list.Flags().String("group", "", "group whose attendance to list")
	list.Flags().String("from", "", "first day, YYYY-MM-DD")
	list.Flags().String("to", "", "last day, YYYY-MM-DD (default today)")
	_ = list.MarkFlagRequired("group")

	mark := &cobra.Command{
		Use:   "mark",
		Short: "Record attendance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			payload, err := payloadFlag(cmd)
			if err != nil {
				return err
			}
			record, err := app.Client.Attendance().Mark(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return app.Print(record)
		},
	}
	addDataFlag(mark, `record, e.g. {"groupId": 3, "studentId": 12, "status": "present"}`)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Correct an attendance record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			payload, err := payloadFlag(cmd)
			if err != nil {
				return err
			}
			record, err := app.Client.Attendance().Update(cmd.Context(), args[0], payload)
			if err != nil {
				return err
			}
			return app.Print(record)
		},
	}
	addDataFlag(update, "fields to change")

	stats := &cobra.Command{
		Use:   "stats <group-id>",
		Short: "Show attendance statistics of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			s, err := app.Client.Attendance().Stats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.Print(s)
		},
	}

	cmd.AddCommand(list, mark, update, stats)
	return cmd
}

// dateRange parses --from/--to. A missing end means today; a missing start
// is a usage error.
func dateRange(from, to string) (time.Time, time.Time, error) {
	if from == "" {
		return time.Time{}, time.Time{}, usageError("--to requires --from")
	}
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, usageError(fmt.Sprintf("invalid --from date %q", from))
	}
	end := time.Now()
	if to != "" {
		end, err = time.Parse(dateLayout, to)
		if err != nil {
			return time.Time{}, time.Time{}, usageError(fmt.Sprintf("invalid --to date %q", to))
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, usageError("--to is before --from")
	}
	return start, end, nil
}

func usageError(msg string) *errors.PanelError {
	return errors.New(errors.ErrCodeInvalidPayload, msg).
		WithSuggestion("Dates use the YYYY-MM-DD format")
}
