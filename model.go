package main

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

// ErrMonitorAborted is returned when the user quits the job monitor.
var ErrMonitorAborted = errors.New("job monitor aborted")

// Monitor blocks until job reaches a final state and returns that state.
// A cancelled or failed job yields an error wrapping ErrJobFailed.
type Monitor func(ctx context.Context, job Job, interval time.Duration) (JobStatus, error)

// SelectMonitor returns the spinner monitor when out is a terminal and
// noTUI is false, and the log monitor otherwise.
func SelectMonitor(out *os.File, noTUI bool) Monitor {
	if !noTUI && out != nil && (isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())) {
		return func(ctx context.Context, job Job, interval time.Duration) (JobStatus, error) {
			return TUIMonitor(ctx, job, interval, out)
		}
	}
	return LogMonitor
}

func finalStatusError(job Job, st JobStatus) error {
	if st.State == JobDone {
		return nil
	}
	return errors.Wrapf(ErrJobFailed, "job %s: %s", job.ID(), st.Describe())
}

// LogMonitor polls job every interval and logs each status change.
func LogMonitor(ctx context.Context, job Job, interval time.Duration) (JobStatus, error) {
	logger := GetLogger().With(zap.String("job_id", job.ID()))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	for {
		st, err := job.Status(ctx)
		if err != nil {
			return JobStatus{}, err
		}
		if desc := st.Describe(); desc != last {
			logger.Info("Job Status: "+desc,
				zap.Stringer("state", st.State),
				zap.Int("queue_position", st.QueuePosition))
			last = desc
		}
		if st.Final() {
			return st, finalStatusError(job, st)
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// TUIMonitor shows a spinner with the live job status on out until the job
// is final. ctrl+c or q aborts with ErrMonitorAborted.
func TUIMonitor(ctx context.Context, job Job, interval time.Duration, out io.Writer) (JobStatus, error) {
	m := newMonitorModel(ctx, job, interval)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return JobStatus{}, ctx.Err()
		}
		return JobStatus{}, errors.Wrap(err, "job monitor")
	}
	return final.(monitorModel).result(job)
}

type statusMsg struct {
	status JobStatus
	err    error
}

type pollMsg struct{}

// monitorModel is the bubbletea state of the job monitor.
type monitorModel struct {
	ctx      context.Context
	job      Job
	interval time.Duration
	spinner  spinner.Model
	status   JobStatus
	polled   bool
	err      error
	aborted  bool
	done     bool
}

func newMonitorModel(ctx context.Context, job Job, interval time.Duration) monitorModel {
	return monitorModel{
		ctx:      ctx,
		job:      job,
		interval: interval,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
	}
}

func (m monitorModel) poll() tea.Msg {
	st, err := m.job.Status(m.ctx)
	return statusMsg{status: st, err: err}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.aborted = true
			return m, tea.Quit
		}

	case statusMsg:
		m.polled = true
		m.status, m.err = msg.status, msg.err
		if m.err != nil || m.status.Final() {
			m.done = true
			return m, tea.Quit
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return pollMsg{} })

	case pollMsg:
		return m, m.poll

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m monitorModel) View() string {
	var sb strings.Builder
	switch {
	case m.err != nil:
		sb.WriteString(failStyle.Render("Job Status: " + m.err.Error()))
	case m.done && m.status.State == JobDone:
		sb.WriteString(okStyle.Render("Job Status: " + m.status.Describe()))
	case m.done:
		sb.WriteString(failStyle.Render("Job Status: " + m.status.Describe()))
	case !m.polled:
		sb.WriteString(m.spinner.View() + " Job Status: " + dimStyle.Render("checking…"))
	default:
		sb.WriteString(m.spinner.View() + " Job Status: " + m.status.Describe())
	}
	sb.WriteString("\n")
	if !m.done {
		sb.WriteString(dimStyle.Render("  " + m.job.ID() + "  q/^C abort"))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m monitorModel) result(job Job) (JobStatus, error) {
	switch {
	case m.err != nil:
		return m.status, m.err
	case m.aborted:
		return m.status, ErrMonitorAborted
	case !m.status.Final():
		return m.status, errors.Newf("job monitor stopped before job %s finished", job.ID())
	}
	return m.status, finalStatusError(job, m.status)
}
