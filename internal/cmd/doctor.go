package cmd

import (
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/impulsenest/teacherpanel/internal/errors"
	"github.com/impulsenest/teacherpanel/internal/health"
	"github.com/impulsenest/teacherpanel/internal/ux"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the backend, the session store and the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			hc := app.httpClient
			if hc == nil {
				hc = &http.Client{Timeout: app.Config.API.Timeout}
			}

			m := health.NewManager()
			m.AddChecker(health.NewBackendChecker(app.Config.API.BaseURL, hc))
			m.AddChecker(health.NewStoreChecker(app.Store))
			m.AddChecker(health.NewSessionChecker(app.Session.IsAuthenticated, app.Session.CheckAuth))

			results := m.Check(cmd.Context())
			if err := app.Print(doctorReport(results)); err != nil {
				return err
			}

			if health.OverallStatus(results) == health.StatusUnhealthy {
				return errors.New(errors.ErrCodeAPIStatus, "one or more checks failed").
					WithSuggestion("Run with --log-level debug for details")
			}
			return nil
		},
	}
}

// doctorReport renders check results as a table.
type doctorReport []*health.Result

func (d doctorReport) RenderText(w io.Writer, styles ux.Styles) error {
	t := ux.Table{Headers: []string{"check", "status", "message", "latency"}}
	for _, r := range d {
		status := r.Status.String()
		switch r.Status {
		case health.StatusHealthy:
			status = styles.Success.Render(status)
		case health.StatusDegraded:
			status = styles.Warning.Render(status)
		default:
			status = styles.Error.Render(status)
		}
		t.Rows = append(t.Rows, []string{r.Name, status, r.Message, r.Latency.Round(time.Millisecond).String()})
	}
	return t.RenderText(w, styles)
}
