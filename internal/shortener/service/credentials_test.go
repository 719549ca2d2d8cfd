package service

import "testing"

func TestParseCredentials(t *testing.T) {
	creds, err := ParseCredentials([]string{"abc", " def:3 ", "", "with:colon:2", "odd:x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Credential{
		{"abc", 1},
		{"def", 3},
		{"with:colon", 2},
		{"odd:x", 1},
	}
	if len(creds) != len(want) {
		t.Fatalf("expected %d credentials, got %+v", len(want), creds)
	}
	for i := range want {
		if creds[i] != want[i] {
			t.Errorf("credential %d: expected %+v, got %+v", i, want[i], creds[i])
		}
	}
}

func TestParseCredentialsNumericSuffixKey(t *testing.T) {
	creds, err := ParseCredentials([]string{"abc:123:1", "abc:123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds[0] != (Credential{"abc:123", 1}) {
		t.Errorf("explicit weight must keep the numeric suffix, got %+v", creds[0])
	}
	if creds[1] != (Credential{"abc", 123}) {
		t.Errorf("bare numeric suffix is the weight, got %+v", creds[1])
	}
}

func TestMaskKey(t *testing.T) {
	if got := maskKey("0123456789abcdef"); got != "****cdef" {
		t.Errorf("unexpected mask %q", got)
	}
	if got := maskKey("abc"); got != "****" {
		t.Errorf("short keys must be fully hidden, got %q", got)
	}
}

func TestParseCredentialsRejectsZeroWeight(t *testing.T) {
	if _, err := ParseCredentials([]string{"abc:0"}); err == nil {
		t.Error("expected error for zero weight")
	}
}

func TestCredentialPoolEmpty(t *testing.T) {
	p := NewCredentialPool(nil)
	if _, ok := p.Next(); ok {
		t.Error("expected empty pool to report false")
	}
}

func TestCredentialPoolWeightedRoundRobin(t *testing.T) {
	p := NewCredentialPool([]Credential{{"a", 5}, {"b", 1}, {"c", 1}})

	counts := map[string]int{}
	var seq []string
	for i := 0; i < 7; i++ {
		k, _ := p.Next()
		counts[k]++
		seq = append(seq, k)
	}
	if counts["a"] != 5 || counts["b"] != 1 || counts["c"] != 1 {
		t.Errorf("unexpected distribution %v", counts)
	}
	// Smooth: the heavy key is interleaved, not picked five times in a row.
	want := []string{"a", "a", "b", "a", "c", "a", "a"}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("expected sequence %v, got %v", want, seq)
		}
	}
}

func TestCredentialPoolEqualWeightsRotate(t *testing.T) {
	p := NewCredentialPool([]Credential{{"a", 1}, {"b", 1}, {"c", 1}})
	var seq []string
	for i := 0; i < 6; i++ {
		k, _ := p.Next()
		seq = append(seq, k)
	}
	want := []string{"a", "b", "c", "a", "b", "c"}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, seq)
		}
	}
}
