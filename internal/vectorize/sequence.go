package vectorize

import (
	"fmt"
	"strings"
)

// Reserved tokens. They always occupy the first ids of the vocabulary.
const (
	StartToken   = "<s>"
	EndToken     = "</s>"
	UnknownToken = "<unk>"
)

// Sequence maps token sequences to integer ids and tracks the longest
// sequence it has seen.
type Sequence struct {
	tokens  []string
	indices map[string]int
	maxLen  int
}

func NewSequence() *Sequence {
	s := &Sequence{indices: make(map[string]int)}
	for _, tok := range []string{StartToken, EndToken, UnknownToken} {
		s.addToken(tok)
	}
	return s
}

// FromTokens rebuilds a vectorizer from a saved vocabulary.
func FromTokens(tokens []string, maxLen int) (*Sequence, error) {
	if len(tokens) < 3 || tokens[0] != StartToken || tokens[1] != EndToken || tokens[2] != UnknownToken {
		return nil, fmt.Errorf("vocabulary must start with %s %s %s", StartToken, EndToken, UnknownToken)
	}
	if maxLen < 2 {
		return nil, fmt.Errorf("max length %d too small", maxLen)
	}
	s := &Sequence{indices: make(map[string]int, len(tokens)), maxLen: maxLen}
	for _, tok := range tokens {
		if _, dup := s.indices[tok]; dup {
			return nil, fmt.Errorf("duplicate token %q", tok)
		}
		s.addToken(tok)
	}
	return s, nil
}

// Clone returns an independent copy that can be extended without affecting s.
func (s *Sequence) Clone() *Sequence {
	c := &Sequence{
		tokens:  make([]string, len(s.tokens)),
		indices: make(map[string]int, len(s.indices)),
		maxLen:  s.maxLen,
	}
	copy(c.tokens, s.tokens)
	for tok, id := range s.indices {
		c.indices[tok] = id
	}
	return c
}

func (s *Sequence) addToken(tok string) {
	if _, ok := s.indices[tok]; ok {
		return
	}
	s.indices[tok] = len(s.tokens)
	s.tokens = append(s.tokens, tok)
}

// Add registers the tokens of one sequence.
func (s *Sequence) Add(seq []string) {
	s.maxLen = max(s.maxLen, len(seq))
	for _, tok := range seq {
		s.addToken(tok)
	}
}

func (s *Sequence) AddAll(seqs [][]string) {
	for _, seq := range seqs {
		s.Add(seq)
	}
}

func (s *Sequence) Tokens() []string {
	out := make([]string, len(s.tokens))
	copy(out, s.tokens)
	return out
}

func (s *Sequence) NumTokens() int { return len(s.tokens) }
func (s *Sequence) MaxLen() int    { return s.maxLen }

// Vectorize maps tokens to ids. Unseen tokens map to the id of UnknownToken.
func (s *Sequence) Vectorize(seq []string) []int {
	unk := s.indices[UnknownToken]
	ids := make([]int, len(seq))
	for i, tok := range seq {
		id, ok := s.indices[tok]
		if !ok {
			id = unk
		}
		ids[i] = id
	}
	return ids
}

func (s *Sequence) Unvectorize(ids []int) ([]string, error) {
	out := make([]string, len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(s.tokens) {
			return nil, fmt.Errorf("token id %d out of range", id)
		}
		out[i] = s.tokens[id]
	}
	return out, nil
}

// Pad returns desc left-padded with StartToken and terminated by EndToken,
// MaxLen tokens long. Descriptions that do not fit keep their leading
// MaxLen-2 tokens.
func (s *Sequence) Pad(desc []string) []string {
	if keep := s.maxLen - 2; len(desc) > keep {
		desc = desc[:max(keep, 0)]
	}
	out := make([]string, 0, s.maxLen)
	for i := 0; i < s.maxLen-1-len(desc); i++ {
		out = append(out, StartToken)
	}
	out = append(out, desc...)
	return append(out, EndToken)
}

// Tokenize splits a description on whitespace.
func Tokenize(desc string) []string {
	return strings.Fields(desc)
}

// Framed wraps a tokenized description in start and end tokens.
func Framed(desc []string) []string {
	out := make([]string, 0, len(desc)+2)
	out = append(out, StartToken)
	out = append(out, desc...)
	return append(out, EndToken)
}
