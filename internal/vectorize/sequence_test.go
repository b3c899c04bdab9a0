package vectorize

import (
	"reflect"
	"testing"
)

func TestNewSequenceReservesSpecialTokens(t *testing.T) {
	t.Parallel()
	s := NewSequence()
	want := []string{StartToken, EndToken, UnknownToken}
	if got := s.Tokens(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokens() = %v, want %v", got, want)
	}
	if s.MaxLen() != 0 {
		t.Fatalf("MaxLen() = %d, want 0", s.MaxLen())
	}
}

func TestAddAllAssignsIdsInFirstSeenOrder(t *testing.T) {
	t.Parallel()
	s := NewSequence()
	s.AddAll([][]string{
		Framed([]string{"light", "blue"}),
		Framed([]string{"blue"}),
		Framed([]string{"very", "light", "green"}),
	})

	if s.MaxLen() != 5 {
		t.Fatalf("MaxLen() = %d, want 5", s.MaxLen())
	}
	got := s.Vectorize([]string{"light", "blue", "very", "green"})
	want := []int{3, 4, 5, 6}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Vectorize = %v, want %v", got, want)
	}
	if s.NumTokens() != 7 {
		t.Fatalf("NumTokens() = %d, want 7", s.NumTokens())
	}
}

func TestVectorizeUnknownToken(t *testing.T) {
	t.Parallel()
	s := NewSequence()
	s.Add(Framed([]string{"red"}))
	got := s.Vectorize([]string{"red", "mauve"})
	if got[0] != 3 || got[1] != 2 {
		t.Fatalf("Vectorize = %v, want [3 2]", got)
	}
}

func TestPad(t *testing.T) {
	t.Parallel()
	s := NewSequence()
	s.Add(Framed([]string{"a", "b", "c"}))

	tests := []struct {
		name string
		desc []string
		want []string
	}{
		{"longest", []string{"a", "b", "c"}, []string{"<s>", "a", "b", "c", "</s>"}},
		{"short", []string{"a"}, []string{"<s>", "<s>", "<s>", "a", "</s>"}},
		{"empty", nil, []string{"<s>", "<s>", "<s>", "<s>", "</s>"}},
		{"overlong keeps prefix", []string{"a", "b", "c", "d", "e"}, []string{"<s>", "a", "b", "c", "</s>"}},
	}
	for _, tc := range tests {
		got := s.Pad(tc.desc)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: Pad(%v) = %v, want %v", tc.name, tc.desc, got, tc.want)
		}
		if len(got) != s.MaxLen() {
			t.Errorf("%s: padded length %d, want %d", tc.name, len(got), s.MaxLen())
		}
	}
}

func TestFromTokens(t *testing.T) {
	t.Parallel()
	orig := NewSequence()
	orig.Add(Framed([]string{"dark", "red"}))

	restored, err := FromTokens(orig.Tokens(), orig.MaxLen())
	if err != nil {
		t.Fatalf("FromTokens: %v", err)
	}
	seq := orig.Pad([]string{"red"})
	if !reflect.DeepEqual(restored.Vectorize(seq), orig.Vectorize(seq)) {
		t.Fatal("restored vectorizer disagrees with original")
	}

	if _, err := FromTokens([]string{"x", "y", "z"}, 4); err == nil {
		t.Fatal("expected error for vocabulary without reserved tokens")
	}
	if _, err := FromTokens(append(orig.Tokens(), "red"), 4); err == nil {
		t.Fatal("expected error for duplicate token")
	}
}

func TestUnvectorize(t *testing.T) {
	t.Parallel()
	s := NewSequence()
	s.Add([]string{"teal"})
	got, err := s.Unvectorize([]int{0, 3, 1})
	if err != nil {
		t.Fatalf("Unvectorize: %v", err)
	}
	if want := []string{"<s>", "teal", "</s>"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Unvectorize = %v, want %v", got, want)
	}
	if _, err := s.Unvectorize([]int{9}); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()
	if got := Tokenize("  light\tsky  blue\n"); !reflect.DeepEqual(got, []string{"light", "sky", "blue"}) {
		t.Fatalf("Tokenize = %v", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()
	s := NewSequence()
	s.Add(Framed([]string{"red"}))

	c := s.Clone()
	c.Add(Framed([]string{"a", "much", "longer", "zebra"}))

	if s.NumTokens() != 4 || s.MaxLen() != 3 {
		t.Fatalf("original changed: tokens=%v maxLen=%d", s.Tokens(), s.MaxLen())
	}
	if c.NumTokens() != 8 || c.MaxLen() != 6 {
		t.Fatalf("clone not extended: tokens=%v maxLen=%d", c.Tokens(), c.MaxLen())
	}
	if got := s.Vectorize([]string{"zebra"}); got[0] != 2 {
		t.Fatalf("original should not know zebra, got id %d", got[0])
	}
}
