package irerr

import "testing"

func TestCollectorAccumulatesInOrder(t *testing.T) {
	c := NewCollector(0)
	c.Append(KindParse, "unexpected token %q", "}")
	c.Append(KindVerify, "block %s has no terminator", "entry")

	if c.Len() != 2 {
		t.Fatalf("expected 2 errors, got %d", c.Len())
	}
	errs := c.Errors()
	if errs[0].Kind != KindParse || errs[1].Kind != KindVerify {
		t.Fatal("errors out of order or wrong kind")
	}
	if errs[0].Error() != "parse: unexpected token \"}\"" {
		t.Fatalf("unexpected message: %s", errs[0].Error())
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(0)
	c.Append(KindRuntime, "divide by zero")
	c.Flush()
	if c.Len() != 0 {
		t.Fatal("expected empty collector after Flush")
	}
}

func TestViolationPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Violation to panic")
		}
	}()
	Violation("bad arity: want %d got %d", 2, 3)
}
