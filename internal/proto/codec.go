package proto

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

// Writer serializes Messages onto an underlying stream. Write is safe for
// concurrent use: callers either hold writeMu themselves or route every
// message through a single Writer so that no two messages' bytes ever
// interleave (spec §4.1 "write contract").
type Writer struct {
	mu sync.Mutex
	w  io.Writer
	// scratch is a reusable buffer to avoid an allocation per message;
	// owned by this Writer, not goroutine-local storage (spec §9).
	scratch bytes.Buffer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteMessage encodes m and writes it atomically with respect to any
// other call to WriteMessage on the same Writer.
func (wr *Writer) WriteMessage(m Message) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	wr.scratch.Reset()
	buf := &wr.scratch
	tag := m.Tag()
	if err := writeU8(buf, byte(tag)); err != nil {
		return ioErr(tag, err)
	}
	if err := encodePayload(buf, m); err != nil {
		return err
	}
	_, err := wr.w.Write(buf.Bytes())
	if err != nil {
		return ioErr(tag, err)
	}
	return nil
}

// Reader decodes Messages from an underlying stream. A single Reader must
// only ever be driven from one goroutine (the transport loop's reader
// task); it owns its own scratch buffer.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader { return &Reader{r: bufio.NewReader(r)} }

// ReadMessage decodes the next frame. It returns (nil, io.EOF) when the
// underlying stream ends cleanly before a new frame's tag byte — the "read
// returning <0 yields a null message" termination rule of spec §4.1.
func (rd *Reader) ReadMessage() (Message, error) {
	tagByte, err := rd.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, ioErr(0, err)
	}
	tag := Tag(tagByte)
	return decodePayload(rd.r, tag)
}

func encodePayload(w io.Writer, m Message) error {
	switch msg := m.(type) {
	case *BuildRequest:
		if err := writeStringList(w, msg.Args); err != nil {
			return ioErr(TagBuildRequest, err)
		}
		if err := writeNonNullString(w, msg.WorkingDir); err != nil {
			return ioErr(TagBuildRequest, err)
		}
		if err := writeNonNullString(w, msg.ProjectDir); err != nil {
			return ioErr(TagBuildRequest, err)
		}
		order := msg.EnvOrder
		if order == nil {
			order = mapKeysStable(msg.Env)
		}
		if err := writeStringMap(w, msg.Env, order); err != nil {
			return ioErr(TagBuildRequest, err)
		}
		return nil

	case *BuildStarted:
		if err := writeNonNullString(w, msg.ProjectID); err != nil {
			return ioErr(TagBuildStarted, err)
		}
		if err := writeI32(w, msg.ProjectCount); err != nil {
			return ioErr(TagBuildStarted, err)
		}
		if err := writeI32(w, msg.MaxThreads); err != nil {
			return ioErr(TagBuildStarted, err)
		}
		return wrapIOErr(TagBuildStarted, writeI32(w, msg.ArtifactIDDisplayLength))

	case *BuildFinished:
		return wrapIOErr(TagBuildFinished, writeI32(w, msg.ExitCode))

	case *ProjectStarted:
		return wrapIOErr(TagProjectStarted, writeNonNullString(w, msg.ProjectID))

	case *ProjectStopped:
		return wrapIOErr(TagProjectStopped, writeNonNullString(w, msg.ProjectID))

	case *MojoStarted:
		for _, s := range []string{msg.ArtifactID, msg.PluginGroupID, msg.PluginArtifactID, msg.PluginGoalPrefix, msg.PluginVersion, msg.Mojo, msg.ExecutionID} {
			if err := writeNonNullString(w, s); err != nil {
				return ioErr(TagMojoStarted, err)
			}
		}
		return nil

	case *ProjectLogMessage:
		if err := writeNonNullString(w, msg.ProjectID); err != nil {
			return ioErr(TagProjectLogMessage, err)
		}
		return wrapIOErr(TagProjectLogMessage, writeNonNullString(w, msg.Message))

	case *BuildLogMessage:
		return wrapIOErr(TagBuildLogMessage, writeNonNullString(w, msg.Message))

	case *BuildException:
		if err := writeNonNullString(w, msg.Message); err != nil {
			return ioErr(TagBuildException, err)
		}
		if err := writeNonNullString(w, msg.ClassName); err != nil {
			return ioErr(TagBuildException, err)
		}
		return wrapIOErr(TagBuildException, writeNonNullString(w, msg.StackTrace))

	case *singleton:
		return nil // KeepAlive, Stop, CancelBuild: empty payload

	case *Display:
		if err := writeNonNullString(w, msg.ProjectID); err != nil {
			return ioErr(TagDisplay, err)
		}
		return wrapIOErr(TagDisplay, writeNonNullString(w, msg.Message))

	case *Prompt:
		if err := writeNonNullString(w, msg.ProjectID); err != nil {
			return ioErr(TagPrompt, err)
		}
		if err := writeNonNullString(w, msg.UID); err != nil {
			return ioErr(TagPrompt, err)
		}
		if err := writeNonNullString(w, msg.Message); err != nil {
			return ioErr(TagPrompt, err)
		}
		return wrapIOErr(TagPrompt, writeBool(w, msg.Password))

	case *PromptResponse:
		if err := writeNonNullString(w, msg.ProjectID); err != nil {
			return ioErr(TagPromptResponse, err)
		}
		if err := writeNonNullString(w, msg.UID); err != nil {
			return ioErr(TagPromptResponse, err)
		}
		return wrapIOErr(TagPromptResponse, writeNonNullString(w, msg.Message))

	case *BuildStatus:
		return wrapIOErr(TagBuildStatus, writeNonNullString(w, msg.Message))

	case *KeyboardInput:
		return wrapIOErr(TagKeyboardInput, writeNonNullString(w, string(msg.KeyStroke)))

	case *TransferEvent:
		if err := writeNonNullString(w, msg.ProjectID); err != nil {
			return ioErr(msg.tag, err)
		}
		if err := writeU8(w, uint8(msg.RequestType)); err != nil {
			return ioErr(msg.tag, err)
		}
		if err := writeNonNullString(w, msg.RepositoryID); err != nil {
			return ioErr(msg.tag, err)
		}
		if err := writeNonNullString(w, msg.RepositoryURL); err != nil {
			return ioErr(msg.tag, err)
		}
		if err := writeNonNullString(w, msg.ResourceName); err != nil {
			return ioErr(msg.tag, err)
		}
		if err := writeI64(w, msg.ContentLength); err != nil {
			return ioErr(msg.tag, err)
		}
		if err := writeI64(w, msg.TransferredBytes); err != nil {
			return ioErr(msg.tag, err)
		}
		return wrapIOErr(msg.tag, writeString(w, msg.Exception))

	case *ExecutionFailure:
		if err := writeNonNullString(w, msg.ProjectID); err != nil {
			return ioErr(TagExecutionFailure, err)
		}
		if err := writeBool(w, msg.Halted); err != nil {
			return ioErr(TagExecutionFailure, err)
		}
		return wrapIOErr(TagExecutionFailure, writeString(w, msg.Exception))

	case *PrintOut:
		return wrapIOErr(TagPrintOut, writeNonNullString(w, msg.Message))

	case *PrintErr:
		return wrapIOErr(TagPrintErr, writeNonNullString(w, msg.Message))

	case *RequestInput:
		if err := writeNonNullString(w, msg.ProjectID); err != nil {
			return ioErr(TagRequestInput, err)
		}
		return wrapIOErr(TagRequestInput, writeI32(w, msg.BytesToRead))

	case *InputData:
		return wrapIOErr(TagInputData, writeString(w, msg.Data))

	default:
		return unknownTagErr(m.Tag())
	}
}

func wrapIOErr(tag Tag, err error) error {
	if err == nil {
		return nil
	}
	return ioErr(tag, err)
}

func decodePayload(r *bufio.Reader, tag Tag) (Message, error) {
	switch tag {
	case TagBuildRequest:
		args, err := readStringList(r, tag)
		if err != nil {
			return nil, err
		}
		workingDir, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		projectDir, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		env, order, err := readStringMap(r, tag)
		if err != nil {
			return nil, err
		}
		return &BuildRequest{envelope: newEnvelope(), Args: args, WorkingDir: workingDir, ProjectDir: projectDir, Env: env, EnvOrder: order}, nil

	case TagBuildStarted:
		projectID, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		count, err := readI32(r, tag)
		if err != nil {
			return nil, err
		}
		maxThreads, err := readI32(r, tag)
		if err != nil {
			return nil, err
		}
		displayLen, err := readI32(r, tag)
		if err != nil {
			return nil, err
		}
		return &BuildStarted{envelope: newEnvelope(), ProjectID: projectID, ProjectCount: count, MaxThreads: maxThreads, ArtifactIDDisplayLength: displayLen}, nil

	case TagBuildFinished:
		code, err := readI32(r, tag)
		if err != nil {
			return nil, err
		}
		return &BuildFinished{envelope: newEnvelope(), ExitCode: code}, nil

	case TagProjectStarted:
		id, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		return &ProjectStarted{envelope: newEnvelope(), ProjectID: id}, nil

	case TagProjectStopped:
		id, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		return &ProjectStopped{envelope: newEnvelope(), ProjectID: id}, nil

	case TagMojoStarted:
		vals := make([]string, 7)
		for i := range vals {
			s, err := readNonNullString(r, tag)
			if err != nil {
				return nil, err
			}
			vals[i] = s
		}
		return &MojoStarted{
			envelope: newEnvelope(), ArtifactID: vals[0], PluginGroupID: vals[1], PluginArtifactID: vals[2],
			PluginGoalPrefix: vals[3], PluginVersion: vals[4], Mojo: vals[5], ExecutionID: vals[6],
		}, nil

	case TagProjectLogMessage:
		id, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		msgTxt, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		return &ProjectLogMessage{envelope: newEnvelope(), ProjectID: id, Message: msgTxt}, nil

	case TagBuildLogMessage:
		msgTxt, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		return &BuildLogMessage{envelope: newEnvelope(), Message: msgTxt}, nil

	case TagBuildException:
		msgTxt, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		className, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		stack, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		return &BuildException{envelope: newEnvelope(), Message: msgTxt, ClassName: className, StackTrace: stack}, nil

	case TagKeepAlive:
		return &singleton{envelope: newEnvelope(), tag: TagKeepAlive}, nil
	case TagStop:
		return &singleton{envelope: newEnvelope(), tag: TagStop}, nil
	case TagCancelBuild:
		return &singleton{envelope: newEnvelope(), tag: TagCancelBuild}, nil

	case TagDisplay:
		id, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		msgTxt, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		return &Display{envelope: newEnvelope(), ProjectID: id, Message: msgTxt}, nil

	case TagPrompt:
		id, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		uid, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		msgTxt, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		pw, err := readBool(r, tag)
		if err != nil {
			return nil, err
		}
		return &Prompt{envelope: newEnvelope(), ProjectID: id, UID: uid, Message: msgTxt, Password: pw}, nil

	case TagPromptResponse:
		id, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		uid, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		msgTxt, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		return &PromptResponse{envelope: newEnvelope(), ProjectID: id, UID: uid, Message: msgTxt}, nil

	case TagBuildStatus:
		msgTxt, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		return &BuildStatus{envelope: newEnvelope(), Message: msgTxt}, nil

	case TagKeyboardInput:
		s, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		runes := []rune(s)
		if len(runes) != 1 {
			return nil, malformedErr(tag, errKeystrokeLength)
		}
		return &KeyboardInput{envelope: newEnvelope(), KeyStroke: runes[0]}, nil

	case TagTransferInitiated, TagTransferStarted, TagTransferProgress, TagTransferCorrupted, TagTransferSucceeded, TagTransferFailed:
		id, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		rt, err := readU8(r, tag)
		if err != nil {
			return nil, err
		}
		repoID, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		repoURL, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		resource, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		contentLen, err := readI64(r, tag)
		if err != nil {
			return nil, err
		}
		transferred, err := readI64(r, tag)
		if err != nil {
			return nil, err
		}
		exception, err := readString(r, tag)
		if err != nil {
			return nil, err
		}
		return &TransferEvent{
			envelope: newEnvelope(), tag: tag, ProjectID: id, RequestType: TransferRequestType(rt),
			RepositoryID: repoID, RepositoryURL: repoURL, ResourceName: resource,
			ContentLength: contentLen, TransferredBytes: transferred, Exception: exception,
		}, nil

	case TagExecutionFailure:
		id, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		halted, err := readBool(r, tag)
		if err != nil {
			return nil, err
		}
		exception, err := readString(r, tag)
		if err != nil {
			return nil, err
		}
		return &ExecutionFailure{envelope: newEnvelope(), ProjectID: id, Halted: halted, Exception: exception}, nil

	case TagPrintOut:
		msgTxt, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		return &PrintOut{envelope: newEnvelope(), Message: msgTxt}, nil

	case TagPrintErr:
		msgTxt, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		return &PrintErr{envelope: newEnvelope(), Message: msgTxt}, nil

	case TagRequestInput:
		id, err := readNonNullString(r, tag)
		if err != nil {
			return nil, err
		}
		n, err := readI32(r, tag)
		if err != nil {
			return nil, err
		}
		return &RequestInput{envelope: newEnvelope(), ProjectID: id, BytesToRead: n}, nil

	case TagInputData:
		data, err := readString(r, tag)
		if err != nil {
			return nil, err
		}
		return &InputData{envelope: newEnvelope(), Data: data}, nil

	default:
		return nil, unknownTagErr(tag)
	}
}

func mapKeysStable(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
