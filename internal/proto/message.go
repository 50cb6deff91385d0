// Package proto defines the wire message model shared by the build client
// and the build daemon: a closed tagged union of 28 variants, the priority
// ordering used to replay a batch of already-received messages in canonical
// order, and the modified-UTF-8 framing codec that puts them on a byte
// stream.
//
// The union is modeled as a Go interface implemented by one concrete struct
// per variant rather than as an inheritance hierarchy, so dispatch over
// variants is exhaustive at the type-switch site instead of falling through
// an "unexpected type" branch.
package proto

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Tag identifies a Message variant on the wire. Values 1..28 are valid;
// any other value is a decode error.
type Tag byte

const (
	TagBuildRequest      Tag = 1
	TagBuildStarted      Tag = 2
	TagBuildFinished     Tag = 3
	TagProjectStarted    Tag = 4
	TagProjectStopped    Tag = 5
	TagMojoStarted       Tag = 6
	TagProjectLogMessage Tag = 7
	TagBuildLogMessage   Tag = 8
	TagBuildException    Tag = 9
	TagKeepAlive         Tag = 10
	TagStop              Tag = 11
	TagDisplay           Tag = 12
	TagPrompt            Tag = 13
	TagPromptResponse    Tag = 14
	TagBuildStatus       Tag = 15
	TagKeyboardInput     Tag = 16
	TagCancelBuild       Tag = 17

	TagTransferInitiated Tag = 18
	TagTransferStarted   Tag = 19
	TagTransferProgress  Tag = 20
	TagTransferCorrupted Tag = 21
	TagTransferSucceeded Tag = 22
	TagTransferFailed    Tag = 23

	TagExecutionFailure Tag = 24
	TagPrintOut         Tag = 25
	TagPrintErr         Tag = 26
	TagRequestInput     Tag = 27
	TagInputData        Tag = 28
)

// String returns the variant name for logging and error messages.
func (t Tag) String() string {
	if n, ok := tagNames[t]; ok {
		return n
	}
	return "Unknown"
}

var tagNames = map[Tag]string{
	TagBuildRequest:      "BuildRequest",
	TagBuildStarted:      "BuildStarted",
	TagBuildFinished:     "BuildFinished",
	TagProjectStarted:    "ProjectStarted",
	TagProjectStopped:    "ProjectStopped",
	TagMojoStarted:       "MojoStarted",
	TagProjectLogMessage: "ProjectLogMessage",
	TagBuildLogMessage:   "BuildLogMessage",
	TagBuildException:    "BuildException",
	TagKeepAlive:         "KeepAlive",
	TagStop:              "Stop",
	TagDisplay:           "Display",
	TagPrompt:            "Prompt",
	TagPromptResponse:    "PromptResponse",
	TagBuildStatus:       "BuildStatus",
	TagKeyboardInput:     "KeyboardInput",
	TagCancelBuild:       "CancelBuild",
	TagTransferInitiated: "TransferInitiated",
	TagTransferStarted:   "TransferStarted",
	TagTransferProgress:  "TransferProgressed",
	TagTransferCorrupted: "TransferCorrupted",
	TagTransferSucceeded: "TransferSucceeded",
	TagTransferFailed:    "TransferFailed",
	TagExecutionFailure:  "ExecutionFailure",
	TagPrintOut:          "PrintOut",
	TagPrintErr:          "PrintErr",
	TagRequestInput:      "RequestInput",
	TagInputData:         "InputData",
}

// Message is the common interface satisfied by every variant. It carries
// the wire tag plus the two implementation-local (never encoded) fields
// used for in-process ordering: a monotonic sequence number and a creation
// timestamp.
type Message interface {
	Tag() Tag
	meta() *envelope
}

// Seq returns the monotonic construction sequence number of m.
func Seq(m Message) uint64 { return m.meta().seq }

// CreatedAt returns the high-resolution creation timestamp of m.
func CreatedAt(m Message) time.Time { return m.meta().createdAt }

// envelope holds the implementation-local fields embedded in every variant.
type envelope struct {
	seq       uint64
	createdAt time.Time
}

var seqCounter uint64

func newEnvelope() envelope {
	return envelope{
		seq:       atomic.AddUint64(&seqCounter, 1),
		createdAt: time.Now(),
	}
}

// ── Build lifecycle ──────────────────────────────────────────────────────

type BuildRequest struct {
	envelope
	Args       []string
	WorkingDir string
	ProjectDir string
	Env        map[string]string
	// EnvOrder records the key order to use when encoding Env, since Go
	// maps have none of their own; decoding populates it with the order
	// keys were read off the wire so a re-encode round-trips byte-for-byte.
	EnvOrder []string
}

// NewBuildRequest constructs a request, deriving EnvOrder from env's keys
// in the order produced by the supplied envOrder (typically os.Environ(),
// which is already insertion-ordered by the OS).
func NewBuildRequest(args []string, workingDir, projectDir string, env map[string]string, envOrder []string) *BuildRequest {
	return &BuildRequest{envelope: newEnvelope(), Args: args, WorkingDir: workingDir, ProjectDir: projectDir, Env: env, EnvOrder: envOrder}
}
func (m *BuildRequest) Tag() Tag         { return TagBuildRequest }
func (m *BuildRequest) meta() *envelope  { return &m.envelope }

type BuildStarted struct {
	envelope
	ProjectID               string
	ProjectCount            int32
	MaxThreads              int32
	ArtifactIDDisplayLength int32
}

func NewBuildStarted(projectID string, projectCount, maxThreads, artifactIDDisplayLength int32) *BuildStarted {
	return &BuildStarted{envelope: newEnvelope(), ProjectID: projectID, ProjectCount: projectCount, MaxThreads: maxThreads, ArtifactIDDisplayLength: artifactIDDisplayLength}
}
func (m *BuildStarted) Tag() Tag        { return TagBuildStarted }
func (m *BuildStarted) meta() *envelope { return &m.envelope }

type BuildFinished struct {
	envelope
	ExitCode int32
}

func NewBuildFinished(exitCode int32) *BuildFinished {
	return &BuildFinished{envelope: newEnvelope(), ExitCode: exitCode}
}
func (m *BuildFinished) Tag() Tag        { return TagBuildFinished }
func (m *BuildFinished) meta() *envelope { return &m.envelope }

type ProjectStarted struct {
	envelope
	ProjectID string
}

func NewProjectStarted(projectID string) *ProjectStarted {
	return &ProjectStarted{envelope: newEnvelope(), ProjectID: projectID}
}
func (m *ProjectStarted) Tag() Tag        { return TagProjectStarted }
func (m *ProjectStarted) meta() *envelope { return &m.envelope }

type ProjectStopped struct {
	envelope
	ProjectID string
}

func NewProjectStopped(projectID string) *ProjectStopped {
	return &ProjectStopped{envelope: newEnvelope(), ProjectID: projectID}
}
func (m *ProjectStopped) Tag() Tag        { return TagProjectStopped }
func (m *ProjectStopped) meta() *envelope { return &m.envelope }

type MojoStarted struct {
	envelope
	ArtifactID       string
	PluginGroupID    string
	PluginArtifactID string
	PluginGoalPrefix string
	PluginVersion    string
	Mojo             string
	ExecutionID      string
}

func NewMojoStarted(artifactID, pluginGroupID, pluginArtifactID, pluginGoalPrefix, pluginVersion, mojo, executionID string) *MojoStarted {
	return &MojoStarted{
		envelope: newEnvelope(), ArtifactID: artifactID, PluginGroupID: pluginGroupID,
		PluginArtifactID: pluginArtifactID, PluginGoalPrefix: pluginGoalPrefix,
		PluginVersion: pluginVersion, Mojo: mojo, ExecutionID: executionID,
	}
}
func (m *MojoStarted) Tag() Tag        { return TagMojoStarted }
func (m *MojoStarted) meta() *envelope { return &m.envelope }

// ── Logging / status ─────────────────────────────────────────────────────

type ProjectLogMessage struct {
	envelope
	ProjectID string
	Message   string
}

func NewProjectLogMessage(projectID, message string) *ProjectLogMessage {
	return &ProjectLogMessage{envelope: newEnvelope(), ProjectID: projectID, Message: message}
}
func (m *ProjectLogMessage) Tag() Tag        { return TagProjectLogMessage }
func (m *ProjectLogMessage) meta() *envelope { return &m.envelope }

type BuildLogMessage struct {
	envelope
	Message string
}

func NewBuildLogMessage(message string) *BuildLogMessage {
	return &BuildLogMessage{envelope: newEnvelope(), Message: message}
}
func (m *BuildLogMessage) Tag() Tag        { return TagBuildLogMessage }
func (m *BuildLogMessage) meta() *envelope { return &m.envelope }

type BuildException struct {
	envelope
	Message    string
	ClassName  string
	StackTrace string
}

func NewBuildException(message, className, stackTrace string) *BuildException {
	return &BuildException{envelope: newEnvelope(), Message: message, ClassName: className, StackTrace: stackTrace}
}
func (m *BuildException) Tag() Tag        { return TagBuildException }
func (m *BuildException) meta() *envelope { return &m.envelope }

type BuildStatus struct {
	envelope
	Message string
}

func NewBuildStatus(message string) *BuildStatus {
	return &BuildStatus{envelope: newEnvelope(), Message: message}
}
func (m *BuildStatus) Tag() Tag        { return TagBuildStatus }
func (m *BuildStatus) meta() *envelope { return &m.envelope }

// ── Singletons: no payload, compared by tag only ─────────────────────────

type singleton struct {
	envelope
	tag Tag
}

func (s *singleton) Tag() Tag        { return s.tag }
func (s *singleton) meta() *envelope { return &s.envelope }

// KeepAlive, Stop and CancelBuild are structurally-equal, payload-free
// variants. Each call to the constructor returns a fresh envelope (so its
// sequence number reflects when it was enqueued) but the two are otherwise
// indistinguishable — the zero-sized-payload constructor pattern spec §9
// calls for in place of the source's mutable shared singleton instance.
func NewKeepAlive() Message   { return &singleton{envelope: newEnvelope(), tag: TagKeepAlive} }
func NewStop() Message        { return &singleton{envelope: newEnvelope(), tag: TagStop} }
func NewCancelBuild() Message { return &singleton{envelope: newEnvelope(), tag: TagCancelBuild} }

// ── Display / interactive prompts ────────────────────────────────────────

type Display struct {
	envelope
	ProjectID string
	Message   string
}

func NewDisplay(projectID, message string) *Display {
	return &Display{envelope: newEnvelope(), ProjectID: projectID, Message: message}
}
func (m *Display) Tag() Tag        { return TagDisplay }
func (m *Display) meta() *envelope { return &m.envelope }

type Prompt struct {
	envelope
	ProjectID string
	UID       string
	Message   string
	Password  bool
}

func NewPrompt(projectID, uid, message string, password bool) *Prompt {
	return &Prompt{envelope: newEnvelope(), ProjectID: projectID, UID: uid, Message: message, Password: password}
}
func (m *Prompt) Tag() Tag        { return TagPrompt }
func (m *Prompt) meta() *envelope { return &m.envelope }

type PromptResponse struct {
	envelope
	ProjectID string
	UID       string
	Message   string
}

func NewPromptResponse(projectID, uid, message string) *PromptResponse {
	return &PromptResponse{envelope: newEnvelope(), ProjectID: projectID, UID: uid, Message: message}
}
func (m *PromptResponse) Tag() Tag        { return TagPromptResponse }
func (m *PromptResponse) meta() *envelope { return &m.envelope }

// KeyboardInput is internal-only: it never crosses the wire, it is how the
// input handler (§4.5) hands a single interpreted keystroke to the render
// loop's inbound queue.
type KeyboardInput struct {
	envelope
	KeyStroke rune
}

func NewKeyboardInput(k rune) *KeyboardInput {
	return &KeyboardInput{envelope: newEnvelope(), KeyStroke: k}
}
func (m *KeyboardInput) Tag() Tag        { return TagKeyboardInput }
func (m *KeyboardInput) meta() *envelope { return &m.envelope }

// ── Transfers ─────────────────────────────────────────────────────────────

// TransferRequestType mirrors the upstream build engine's wire constant for
// the direction of an artifact transfer.
type TransferRequestType uint8

const (
	TransferGet TransferRequestType = iota
	TransferPut
)

// TransferEvent is the shared payload shape for all six Transfer* variants;
// the concrete Tag is carried separately per constructor so each variant is
// still its own Go type for type-switch dispatch.
type TransferEvent struct {
	envelope
	tag               Tag
	ProjectID         string
	RequestType       TransferRequestType
	RepositoryID      string
	RepositoryURL     string
	ResourceName      string
	ContentLength     int64
	TransferredBytes  int64
	Exception         *string
}

func (m *TransferEvent) Tag() Tag        { return m.tag }
func (m *TransferEvent) meta() *envelope { return &m.envelope }

// Validate checks the §3.1 invariant that TransferredBytes must not exceed
// ContentLength when both are known (neither is -1, the "unknown" sentinel).
func (m *TransferEvent) Validate() error {
	if m.ContentLength >= 0 && m.TransferredBytes >= 0 && m.TransferredBytes > m.ContentLength {
		return fmt.Errorf("proto: transferred bytes %d exceeds content length %d for %q", m.TransferredBytes, m.ContentLength, m.ResourceName)
	}
	return nil
}

func newTransferEvent(tag Tag, projectID string, requestType TransferRequestType, repositoryID, repositoryURL, resourceName string, contentLength, transferredBytes int64, exception *string) *TransferEvent {
	return &TransferEvent{
		envelope: newEnvelope(), tag: tag, ProjectID: projectID, RequestType: requestType,
		RepositoryID: repositoryID, RepositoryURL: repositoryURL, ResourceName: resourceName,
		ContentLength: contentLength, TransferredBytes: transferredBytes, Exception: exception,
	}
}

func NewTransferInitiated(projectID string, rt TransferRequestType, repoID, repoURL, resource string, contentLen int64) *TransferEvent {
	return newTransferEvent(TagTransferInitiated, projectID, rt, repoID, repoURL, resource, contentLen, -1, nil)
}
func NewTransferStarted(projectID string, rt TransferRequestType, repoID, repoURL, resource string, contentLen int64) *TransferEvent {
	return newTransferEvent(TagTransferStarted, projectID, rt, repoID, repoURL, resource, contentLen, 0, nil)
}
func NewTransferProgressed(projectID string, rt TransferRequestType, repoID, repoURL, resource string, contentLen, transferred int64) *TransferEvent {
	return newTransferEvent(TagTransferProgress, projectID, rt, repoID, repoURL, resource, contentLen, transferred, nil)
}
func NewTransferCorrupted(projectID string, rt TransferRequestType, repoID, repoURL, resource string, contentLen int64, exception string) *TransferEvent {
	return newTransferEvent(TagTransferCorrupted, projectID, rt, repoID, repoURL, resource, contentLen, -1, &exception)
}
func NewTransferSucceeded(projectID string, rt TransferRequestType, repoID, repoURL, resource string, contentLen int64) *TransferEvent {
	return newTransferEvent(TagTransferSucceeded, projectID, rt, repoID, repoURL, resource, contentLen, contentLen, nil)
}
func NewTransferFailed(projectID string, rt TransferRequestType, repoID, repoURL, resource string, contentLen int64, exception string) *TransferEvent {
	return newTransferEvent(TagTransferFailed, projectID, rt, repoID, repoURL, resource, contentLen, -1, &exception)
}

// ── Failures / output ─────────────────────────────────────────────────────

type ExecutionFailure struct {
	envelope
	ProjectID string
	Halted    bool
	Exception *string
}

func NewExecutionFailure(projectID string, halted bool, exception *string) *ExecutionFailure {
	return &ExecutionFailure{envelope: newEnvelope(), ProjectID: projectID, Halted: halted, Exception: exception}
}
func (m *ExecutionFailure) Tag() Tag        { return TagExecutionFailure }
func (m *ExecutionFailure) meta() *envelope { return &m.envelope }

type PrintOut struct {
	envelope
	Message string
}

func NewPrintOut(message string) *PrintOut { return &PrintOut{envelope: newEnvelope(), Message: message} }
func (m *PrintOut) Tag() Tag                { return TagPrintOut }
func (m *PrintOut) meta() *envelope         { return &m.envelope }

type PrintErr struct {
	envelope
	Message string
}

func NewPrintErr(message string) *PrintErr { return &PrintErr{envelope: newEnvelope(), Message: message} }
func (m *PrintErr) Tag() Tag                { return TagPrintErr }
func (m *PrintErr) meta() *envelope         { return &m.envelope }

type RequestInput struct {
	envelope
	ProjectID   string
	BytesToRead int32
}

func NewRequestInput(projectID string, bytesToRead int32) *RequestInput {
	return &RequestInput{envelope: newEnvelope(), ProjectID: projectID, BytesToRead: bytesToRead}
}
func (m *RequestInput) Tag() Tag        { return TagRequestInput }
func (m *RequestInput) meta() *envelope { return &m.envelope }

// InputData carries a chunk of client keyboard input back to the daemon.
// Data == nil means EOF; this is the only variant where a null string
// carries semantic meaning beyond "absent".
type InputData struct {
	envelope
	Data *string
}

func NewInputData(data *string) *InputData { return &InputData{envelope: newEnvelope(), Data: data} }
func (m *InputData) Tag() Tag               { return TagInputData }
func (m *InputData) meta() *envelope        { return &m.envelope }
