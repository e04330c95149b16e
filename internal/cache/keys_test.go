package cache

import "testing"

func TestQueryHash_NormalizesCaseAndWhitespace(t *testing.T) {
	base := QueryHash("is it open right now?")
	variants := []string{
		"Is it open right now?",
		"  is it open   right now?  ",
		"IS IT OPEN RIGHT NOW?",
	}
	for _, q := range variants {
		if got := QueryHash(q); got != base {
			t.Fatalf("QueryHash(%q) = %q, want %q", q, got, base)
		}
	}
}

func TestQueryHash_DistinctQueriesDiffer(t *testing.T) {
	if QueryHash("do they have wifi") == QueryHash("do they have parking") {
		t.Fatal("distinct queries must not collide")
	}
}

func TestQueryHash_Length(t *testing.T) {
	if got := len(QueryHash("anything")); got != 16 {
		t.Fatalf("expected 16 hex chars, got %d", got)
	}
}

func TestKeyNamespaces(t *testing.T) {
	h := QueryHash("is it open")

	if got := AnswerKey("b1", "is it open"); got != "qr:b1:"+h {
		t.Fatalf("AnswerKey = %q", got)
	}
	if got := AnswerPrefix("b1"); got != "qr:b1:" {
		t.Fatalf("AnswerPrefix = %q", got)
	}
	if got := HoursKey("b1"); got != "hours:b1" {
		t.Fatalf("HoursKey = %q", got)
	}
	if got := EmbeddingKey("is it open"); got != "emb:"+h {
		t.Fatalf("EmbeddingKey = %q", got)
	}
}
