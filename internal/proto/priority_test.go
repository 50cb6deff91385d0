package proto

import "testing"

func TestSortByPriorityCanonicalOrder(t *testing.T) {
	stop := NewStop()
	finished := NewBuildFinished(0)
	started := NewProjectStarted("a")
	logMsg := NewProjectLogMessage("a", "x")
	keepAlive := NewKeepAlive()

	msgs := []Message{stop, finished, started, logMsg, keepAlive}
	SortByPriority(msgs)

	want := []Message{keepAlive, started, logMsg, finished, stop}
	for i, m := range msgs {
		if m != want[i] {
			t.Fatalf("position %d: got %v want %v", i, m.Tag(), want[i].Tag())
		}
	}
}

func TestSortByPriorityTiesResolveBySequence(t *testing.T) {
	a := NewProjectLogMessage("p", "first")
	b := NewBuildLogMessage("second")
	// both distinct classes (50 vs 51); instead verify same-class tie:
	c := NewProjectLogMessage("p", "third")

	msgs := []Message{c, a}
	SortByPriority(msgs)
	if msgs[0] != a || msgs[1] != c {
		t.Fatalf("expected construction order preserved within same class")
	}
	_ = b
}

func TestClassOfPanicsOnUnknownTag(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unmapped tag")
		}
	}()
	classOf(Tag(200))
}
