package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/buildtool-accel/buildc/pkg/timeutil"
)

// reservedBottomLines implements spec §4.4.1 step 1: a status line plus one
// spare row held back as a portable-cursor safety margin.
const reservedBottomLines = 2

const lifecycleExceptionPrefix = "org.apache.maven.lifecycle.LifecycleExecutionException: "

// Frame is the fully composed, width-truncated set of lines the terminal
// display driver should diff against its previously drawn frame (spec
// §4.4.1 step 8). Frame itself performs no I/O.
type Frame struct {
	Lines []string
}

// Layout runs the §4.4.1 procedure against the model's current state for a
// terminal of the given size and returns the frame to draw. It is a pure
// read of Model and never mutates it.
func (m *Model) Layout(rows, cols int) Frame {
	available := rows - reservedBottomLines
	if available < 0 {
		available = 0
	}

	var lines []string

	if failureLine, ok := m.composeFailureLine(cols); ok {
		lines = append(lines, failureLine)
	}

	if transferLine, ok := m.composeGlobalTransferLine(); ok {
		lines = append(lines, truncate(transferLine, cols))
	}

	projects := m.Projects()
	remaining := available - len(lines) - 1 // -1 reserves the status line itself
	if remaining < 0 {
		remaining = 0
	}
	shown, hidden := m.composeProjectLines(projects, remaining, cols)
	lines = append(lines, shown...)

	status := m.composeStatusLine(hidden, cols)
	lines = append(lines, truncate(status, cols))

	return Frame{Lines: lines}
}

func truncate(s string, cols int) string {
	if cols <= 0 || len(s) <= cols {
		return s
	}
	if cols <= 1 {
		return s[:cols]
	}
	return s[:cols-1] + "…"
}

func digits(n int32) int {
	if n < 10 {
		return 1
	}
	d := 0
	for n > 0 {
		d++
		n /= 10
	}
	return d
}

func (m *Model) composeStatusLine(hidden int, cols int) string {
	if !m.BuildActive {
		return statusStyle.Render(m.BuildStatus)
	}

	doneDigits := digits(m.TotalProjects)
	donePad := fmt.Sprintf("%0*d", doneDigits, m.DoneProjects)

	used := len(m.Projects())
	maxDigits := digits(m.MaxThreads)
	threadWidth := 3*maxDigits + 2
	threads := fmt.Sprintf("%d/%d/%d", used, hidden, m.MaxThreads)
	threads = padRight(threads, threadWidth)

	pct := 0
	if m.TotalProjects > 0 {
		pct = int(float64(m.DoneProjects) / float64(m.TotalProjects) * 100)
	}

	elapsed := timeutil.FormatElapsedMMSS(time.Since(m.StartTime))

	return fmt.Sprintf("Building %s  daemon: %s  threads used/hidden/max: %s  progress: %s/%d %d%%  time: %s",
		m.Name, m.DaemonID, threads, donePad, m.TotalProjects, pct, elapsed)
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func (m *Model) composeFailureLine(cols int) (string, bool) {
	if len(m.Failures) == 0 {
		return "", false
	}

	halted := false
	for _, f := range m.Failures {
		if f.Halted {
			halted = true
			break
		}
	}
	label := "FAILURE:"
	if halted {
		label = "ABORTING FAILURE:"
	}

	var body string
	if len(m.Failures) == 1 {
		f := m.Failures[0]
		reason := strings.TrimPrefix(f.Exception, lifecycleExceptionPrefix)
		body = fmt.Sprintf("%s %s", f.ProjectID, reason)
	} else {
		ids := make([]string, len(m.Failures))
		for i, f := range m.Failures {
			ids[i] = f.ProjectID
		}
		body = fmt.Sprintf("%d projects failed: %s", len(m.Failures), strings.Join(ids, ", "))
	}

	line := failureStyle.Render(fmt.Sprintf("%s %s", label, body))
	return truncate(line, cols-1), true
}

func (m *Model) composeGlobalTransferLine() (string, bool) {
	transfers := m.Transfers.Global()
	if len(transfers) == 0 {
		return "", false
	}
	if len(transfers) > 1 {
		return transferStyle.Render(fmt.Sprintf("Downloading %d files...", len(transfers))), true
	}
	return transferStyle.Render(transferLine(transfers[0])), true
}

func transferLine(t Transfer) string {
	verb := "Downloading"
	prep := "from"
	if t.RequestType == 1 {
		verb = "Uploading"
		prep = "to"
	}
	coord := mavenCoordinate(t.ResourceName)
	return fmt.Sprintf("%s %s %s %s [%d/%d]", verb, coord, prep, t.RepositoryID, t.TransferredBytes, t.ContentLength)
}

// composeProjectLines implements layout steps 5-7: one line per active
// project (execution coordinates, or its own transfer line when active),
// up to linesPerProject most-recent log lines indented under it, hiding
// the earliest-started projects when there isn't enough room.
func (m *Model) composeProjectLines(projects []*Project, available int, cols int) (lines []string, hidden int) {
	if available <= 0 {
		return nil, len(projects)
	}

	visible := projects
	if extra := len(projects) - available; extra > 0 {
		// keep the most-recently-started projects, hide the oldest;
		// Projects() is already in start order.
		hidden = extra
		if hidden > len(visible) {
			hidden = len(visible)
		}
		visible = visible[hidden:]
	}

	remaining := available
	for _, p := range visible {
		if remaining <= 0 {
			hidden += len(visible)
			break
		}
		lines = append(lines, truncate(projectLine(p), cols))
		remaining--

		n := m.LinesPerProject
		if n > remaining {
			n = remaining
		}
		for _, l := range p.tailLog(n) {
			lines = append(lines, truncate("   "+l, cols))
			remaining--
		}
	}
	return lines, hidden
}

func projectLine(p *Project) string {
	id := projectIDStyle.Render(p.ID)
	if p.RunningExecution == nil {
		return id
	}
	e := p.RunningExecution
	coord := fmt.Sprintf("%s:%s:%s (%s)", e.PluginGroupID, e.PluginArtifactID, e.PluginVersion, e.Mojo)
	return fmt.Sprintf("%s %s", id, executionStyle.Render(coord))
}
