package proto

import (
	"bytes"
	"errors"
	"testing"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteMessage(m); err != nil {
		t.Fatalf("WriteMessage(%v): %v", m.Tag(), err)
	}
	r := NewReader(&buf)
	got, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage(%v): %v", m.Tag(), err)
	}
	if got.Tag() != m.Tag() {
		t.Fatalf("tag mismatch: got %v want %v", got.Tag(), m.Tag())
	}
	return got
}

func TestRoundTripBuildRequest(t *testing.T) {
	env := map[string]string{"PATH": "/usr/bin", "HOME": "/root"}
	order := []string{"PATH", "HOME"}
	req := NewBuildRequest([]string{"clean", "install"}, "/work", "/work/proj", env, order)
	got := roundTrip(t, req).(*BuildRequest)

	if len(got.Args) != 2 || got.Args[0] != "clean" || got.Args[1] != "install" {
		t.Errorf("Args mismatch: %v", got.Args)
	}
	if got.WorkingDir != "/work" || got.ProjectDir != "/work/proj" {
		t.Errorf("dirs mismatch: %v %v", got.WorkingDir, got.ProjectDir)
	}
	if got.Env["PATH"] != "/usr/bin" || got.Env["HOME"] != "/root" {
		t.Errorf("env mismatch: %v", got.Env)
	}
	if len(got.EnvOrder) != 2 || got.EnvOrder[0] != "PATH" || got.EnvOrder[1] != "HOME" {
		t.Errorf("env order not preserved: %v", got.EnvOrder)
	}
}

func TestRoundTripBuildStarted(t *testing.T) {
	m := NewBuildStarted("proj-a", 5, 4, 12)
	got := roundTrip(t, m).(*BuildStarted)
	if got.ProjectID != "proj-a" || got.ProjectCount != 5 || got.MaxThreads != 4 || got.ArtifactIDDisplayLength != 12 {
		t.Errorf("got %+v", got)
	}
}

func TestRoundTripMojoStarted(t *testing.T) {
	m := NewMojoStarted("art", "grp", "plugArt", "prefix", "1.0", "compile", "default-compile")
	got := roundTrip(t, m).(*MojoStarted)
	if got.ArtifactID != "art" || got.ExecutionID != "default-compile" {
		t.Errorf("got %+v", got)
	}
}

func TestRoundTripTransferEvent(t *testing.T) {
	m := NewTransferProgressed("proj", TransferGet, "central", "https://repo", "a.jar", 1000, 500)
	got := roundTrip(t, m).(*TransferEvent)
	if got.ContentLength != 1000 || got.TransferredBytes != 500 || got.ResourceName != "a.jar" {
		t.Errorf("got %+v", got)
	}
	if got.Exception != nil {
		t.Errorf("expected nil exception, got %v", *got.Exception)
	}
}

func TestRoundTripTransferFailedWithException(t *testing.T) {
	m := NewTransferFailed("proj", TransferPut, "central", "https://repo", "a.jar", -1, "connection reset")
	got := roundTrip(t, m).(*TransferEvent)
	if got.Exception == nil || *got.Exception != "connection reset" {
		t.Errorf("got %+v", got.Exception)
	}
}

func TestRoundTripExecutionFailureNilException(t *testing.T) {
	m := NewExecutionFailure("proj", true, nil)
	got := roundTrip(t, m).(*ExecutionFailure)
	if got.Exception != nil {
		t.Errorf("expected nil exception, got %v", *got.Exception)
	}
	if !got.Halted {
		t.Errorf("expected halted=true")
	}
}

func TestRoundTripInputDataEOF(t *testing.T) {
	m := NewInputData(nil)
	got := roundTrip(t, m).(*InputData)
	if got.Data != nil {
		t.Fatalf("expected EOF (nil data), got %v", *got.Data)
	}
}

func TestRoundTripInputDataValue(t *testing.T) {
	s := "y\n"
	m := NewInputData(&s)
	got := roundTrip(t, m).(*InputData)
	if got.Data == nil || *got.Data != "y\n" {
		t.Fatalf("got %v", got.Data)
	}
}

func TestRoundTripSingletons(t *testing.T) {
	for _, m := range []Message{NewKeepAlive(), NewStop(), NewCancelBuild()} {
		got := roundTrip(t, m)
		if got.Tag() != m.Tag() {
			t.Errorf("tag mismatch for singleton: got %v want %v", got.Tag(), m.Tag())
		}
	}
}

func TestRoundTripUnicodeStrings(t *testing.T) {
	// NUL, a 2-byte code point (beta, 0x3B2) and a 3-byte code point
	// (CJK 中, 0x4E2D).
	s := "a β中"
	m := NewBuildLogMessage(s)
	got := roundTrip(t, m).(*BuildLogMessage)
	if got.Message != s {
		t.Fatalf("got %q want %q", got.Message, s)
	}
}

func TestUnicodeWireBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := writeNonNullString(&buf, "a β中"); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x00, 0x00, 0x04, 0x61, 0xC0, 0x80, 0xCE, 0xB2, 0xE4, 0xB8, 0xAD}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % x want % x", buf.Bytes(), want)
	}
}

func TestNullStringEncoding(t *testing.T) {
	var buf bytes.Buffer
	if err := writeString(&buf, nil); err != nil {
		t.Fatal(err)
	}
	want := []byte{0xFF, 0xFF, 0xFF, 0xFF} // -1 as big-endian int32
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % x want % x", buf.Bytes(), want)
	}
}

func TestSurrogatePairRoundTrip(t *testing.T) {
	// U+1F600 GRINNING FACE, outside the BMP: must split into a UTF-16
	// surrogate pair, each half encoded as its own 3-byte sequence.
	s := "hi \U0001F600 there"
	m := NewDisplay("proj", s)
	got := roundTrip(t, m).(*Display)
	if got.Message != s {
		t.Fatalf("got %q want %q", got.Message, s)
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(200)
	r := NewReader(&buf)
	_, err := r.ReadMessage()
	if err == nil {
		t.Fatal("expected error for unknown tag")
	}
	var ce *CodecError
	if !errors.As(err, &ce) || ce.Kind != ErrUnknownTag {
		t.Fatalf("expected ErrUnknownTag, got %v", err)
	}
}

func TestDecodeMalformedContinuation(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(TagBuildLogMessage))
	buf.Write([]byte{0x00, 0x00, 0x00, 0x01}) // length = 1 character
	buf.Write([]byte{0xC0, 0x00})             // bad continuation byte
	r := NewReader(&buf)
	_, err := r.ReadMessage()
	if err == nil {
		t.Fatal("expected malformed error")
	}
	var ce *CodecError
	if !errors.As(err, &ce) || ce.Kind != ErrMalformed {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodePrematureEOF(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(TagBuildLogMessage))
	buf.Write([]byte{0x00, 0x00, 0x00, 0x05}) // claims 5 chars, provides none
	r := NewReader(&buf)
	_, err := r.ReadMessage()
	if err == nil {
		t.Fatal("expected unexpected-eof error")
	}
}

func TestReadMessageEmptyStreamIsEOF(t *testing.T) {
	var buf bytes.Buffer
	r := NewReader(&buf)
	_, err := r.ReadMessage()
	if err == nil {
		t.Fatal("expected io.EOF")
	}
}
