package conn

import "testing"

// lineDecoder frames messages on '\n', the simplest possible Decoder
// for exercising Feed/Processing without pulling in httpcodec.
type lineDecoder struct{}

func (lineDecoder) Decode(buf []byte) (int, error) {
	for i, b := range buf {
		if b == '\n' {
			return i + 1, nil
		}
	}
	return 0, ErrNeedMore
}

func TestConnectionFeedProcessingFramesCompleteMessages(t *testing.T) {
	c := New(-1, lineDecoder{}, 0)

	if err := c.Feed([]byte("hello\nworld\npartial")); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	var got []string
	more, err := c.Processing(func(msg []byte) {
		got = append(got, string(msg))
	})
	if err != nil {
		t.Fatalf("Processing: %v", err)
	}
	if more {
		t.Fatal("Processing should report no more work when only the unframed \"partial\" tail is left")
	}
	if len(got) != 2 || got[0] != "hello\n" || got[1] != "world\n" {
		t.Fatalf("got %v, want [hello\\n world\\n]", got)
	}
}

func TestConnectionFeedRejectsOverflow(t *testing.T) {
	c := New(-1, lineDecoder{}, 4)

	if err := c.Feed([]byte("abcd")); err != nil {
		t.Fatalf("Feed within cap: %v", err)
	}
	if err := c.Feed([]byte("e")); err != ErrBufferOverflow {
		t.Fatalf("Feed over cap: got %v, want ErrBufferOverflow", err)
	}
}

func TestConnectionQueueWriteAndWrote(t *testing.T) {
	c := New(-1, lineDecoder{}, 0)

	c.QueueWrite([]byte("abc"))
	c.QueueWrite([]byte("def"))
	if got := string(c.PendingOutput()); got != "abcdef" {
		t.Fatalf("PendingOutput = %q, want abcdef", got)
	}

	c.Wrote(3)
	if got := string(c.PendingOutput()); got != "def" {
		t.Fatalf("PendingOutput after Wrote(3) = %q, want def", got)
	}
}

func TestConnectionReleaseIsIdempotent(t *testing.T) {
	c := New(-1, lineDecoder{}, 0)
	c.Feed([]byte("x"))

	c.Release()
	c.Release() // must not panic on a nil input buffer

	if c.in != nil {
		t.Fatal("Release should leave the input buffer nil")
	}
}

func TestConnectionStateBitmask(t *testing.T) {
	c := New(-1, lineDecoder{}, 0)

	c.SetState(StateNoRead | StateNoWrite)
	if c.State()&StateNoRead == 0 {
		t.Fatal("StateNoRead should be set")
	}
	if c.IsClosed() {
		t.Fatal("fresh connection should not report closed")
	}

	c.SetState(StateClosed)
	if !c.IsClosed() {
		t.Fatal("IsClosed should report true after SetState(StateClosed)")
	}

	c.ClearState(StateNoWrite)
	if c.State()&StateNoWrite != 0 {
		t.Fatal("ClearState should have cleared StateNoWrite")
	}
}
