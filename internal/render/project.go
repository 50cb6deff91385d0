package render

import "github.com/buildtool-accel/buildc/internal/proto"

// Project is the render-side view of one unit of build work (spec §3.2).
// Its lifetime is owned entirely by the render loop (thread M) and it is
// never shared with any other goroutine.
type Project struct {
	ID               string
	RunningExecution *proto.MojoStarted
	// Log is the bounded append-only buffer of pending display lines
	// accumulated while the project is active in buffering mode.
	Log []string

	startedAt int // insertion order, used to decide which projects to hide when more projects are active than fit on screen (spec §4.4.1 step 7)
}

func newProject(id string, order int) *Project {
	return &Project{ID: id, startedAt: order}
}

func (p *Project) appendLog(line string) {
	p.Log = append(p.Log, line)
}

// tailLog returns up to n most recent log lines.
func (p *Project) tailLog(n int) []string {
	if n <= 0 || len(p.Log) == 0 {
		return nil
	}
	if n >= len(p.Log) {
		return p.Log
	}
	return p.Log[len(p.Log)-n:]
}

// Transfer is the latest known state of one resource transfer (spec §3.3).
type Transfer struct {
	ProjectID        string
	RequestType      proto.TransferRequestType
	RepositoryID     string
	RepositoryURL    string
	ResourceName     string
	ContentLength    int64
	TransferredBytes int64
	Failed           bool
	Exception        string
}

func transferFromEvent(e *proto.TransferEvent) Transfer {
	t := Transfer{
		ProjectID: e.ProjectID, RequestType: e.RequestType, RepositoryID: e.RepositoryID,
		RepositoryURL: e.RepositoryURL, ResourceName: e.ResourceName,
		ContentLength: e.ContentLength, TransferredBytes: e.TransferredBytes,
	}
	if e.Exception != nil {
		t.Failed = true
		t.Exception = *e.Exception
	}
	return t
}

// TransferTable implements spec §3.3: projectId -> resourceName -> latest
// Transfer. An empty projectId is stored under the literal empty string,
// the sentinel for "no project" (global transfers like metadata fetches).
type TransferTable struct {
	byProject map[string]map[string]Transfer
}

func newTransferTable() *TransferTable {
	return &TransferTable{byProject: make(map[string]map[string]Transfer)}
}

func (t *TransferTable) upsert(e *proto.TransferEvent) {
	m, ok := t.byProject[e.ProjectID]
	if !ok {
		m = make(map[string]Transfer)
		t.byProject[e.ProjectID] = m
	}
	m[e.ResourceName] = transferFromEvent(e)
}

func (t *TransferTable) remove(e *proto.TransferEvent) {
	m, ok := t.byProject[e.ProjectID]
	if !ok {
		return
	}
	delete(m, e.ResourceName)
	if len(m) == 0 {
		delete(t.byProject, e.ProjectID)
	}
}

// Global returns the transfers with no associated project (projectId == "").
func (t *TransferTable) Global() []Transfer {
	return t.forProject("")
}

func (t *TransferTable) forProject(id string) []Transfer {
	m := t.byProject[id]
	if len(m) == 0 {
		return nil
	}
	out := make([]Transfer, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func (t *TransferTable) count() int {
	n := 0
	for _, m := range t.byProject {
		n += len(m)
	}
	return n
}

// Failure is an arrival-ordered record of one ExecutionFailure (spec §3.4).
type Failure struct {
	ProjectID string
	Halted    bool
	Exception string
}
