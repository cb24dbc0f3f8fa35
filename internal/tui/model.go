package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/impulsenest/teacherpanel/internal/api"
	"github.com/impulsenest/teacherpanel/internal/ux"
)

const maxBarWidth = 60

// ProgressMsg reports bytes of the upload body sent so far.
type ProgressMsg struct {
	Sent  int64
	Total int64
}

// DoneMsg ends the upload view.
type DoneMsg struct {
	Err error
}

// UploadModel renders a progress bar for a running upload.
type UploadModel struct {
	title string
	files []string

	bar   progress.Model
	sent  int64
	total int64

	done      bool
	cancelled bool
	err       error

	styles ux.Styles
}

// NewUploadModel creates the progress view for files.
func NewUploadModel(title string, files []string) UploadModel {
	return UploadModel{
		title:  title,
		files:  files,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		styles: ux.DefaultStyles(),
	}
}

// Init initializes the model (required by Bubble Tea)
func (m UploadModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m UploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "esc" {
			m.cancelled = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, maxBarWidth)

	case ProgressMsg:
		m.sent = msg.Sent
		m.total = msg.Total

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		if msg.Err == nil && m.total > 0 {
			m.sent = m.total
		}
		return m, tea.Quit
	}

	return m, nil
}

// Percent is the fraction of the body sent, in [0, 1].
func (m UploadModel) Percent() float64 {
	if m.total <= 0 {
		if m.done && m.err == nil {
			return 1
		}
		return 0
	}
	return min(float64(m.sent)/float64(m.total), 1)
}

// Cancelled reports whether the user interrupted the upload.
func (m UploadModel) Cancelled() bool {
	return m.cancelled
}

// View renders the TUI (required by Bubble Tea)
func (m UploadModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(m.title))
	b.WriteString("\n")
	for _, f := range m.files {
		b.WriteString(m.styles.Muted.Render("  " + f))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString("  ")
	b.WriteString(m.styles.Muted.Render(formatBytes(m.sent) + " / " + formatBytes(m.total)))
	b.WriteString("\n")

	switch {
	case m.cancelled:
		b.WriteString(m.styles.Warning.Render("Cancelled"))
		b.WriteString("\n")
	case m.done && m.err != nil:
		b.WriteString(m.styles.Error.Render("Upload failed: " + m.err.Error()))
		b.WriteString("\n")
	case m.done:
		b.WriteString(m.styles.Success.Render("Upload complete"))
		b.WriteString("\n")
	}
	return b.String()
}

// UploadFunc performs the upload, reporting progress through onProgress.
type UploadFunc func(ctx context.Context, onProgress api.ProgressFunc) error

// RunUpload runs fn behind a progress bar written to out. Interrupting the
// view cancels fn's context. The error is fn's.
func RunUpload(ctx context.Context, out io.Writer, title string, files []string, fn UploadFunc, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(out)}, opts...)
	p := tea.NewProgram(NewUploadModel(title, files), opts...)

	errCh := make(chan error, 1)
	go func() {
		err := fn(ctx, func(sent, total int64) {
			p.Send(ProgressMsg{Sent: sent, Total: total})
		})
		p.Send(DoneMsg{Err: err})
		errCh <- err
	}()

	final, runErr := p.Run()
	if m, ok := final.(UploadModel); ok && m.Cancelled() {
		cancel()
	}

	uploadErr := <-errCh
	if uploadErr == nil && runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("progress view failed: %w", runErr)
	}
	return uploadErr
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
