package tokenize

import "iter"

// Token is one contiguous span of a TokenizedLine together with the scope
// stack active over that span, outermost first.
type Token struct {
	BufferStart int
	BufferEnd   int
	Scopes      []string
}

func (t Token) contains(col int) bool {
	return col >= t.BufferStart && col < t.BufferEnd
}

// TokenizedLine is an immutable, per-row tokenization result. Re-tokenizing a
// row always produces a wholesale replacement, never an in-place mutation.
type TokenizedLine struct {
	Text       string
	LineEnding string
	Tags       TagStream
	RuleStack  RuleStack
	OpenScopes ScopeStack
	Grammar    Grammar
}

// scopeNames resolves a ScopeStack to dotted scope names, skipping ids the
// grammar no longer recognizes (e.g. after a grammar swap).
func scopeNames(grammar Grammar, stack ScopeStack) []string {
	names := make([]string, 0, len(stack))
	for _, t := range stack {
		if name, ok := grammar.ScopeForID(-t); ok {
			names = append(names, name)
		}
	}
	return names
}

// Tokens iterates the spans of the line in order, threading the scope stack
// through open/close tags. Scope matching here is positional (tags are
// assumed well-formed, as guaranteed by scopesFromTags during caching); the
// value-matched variant lives in scopesFromTags.
func (tl *TokenizedLine) Tokens() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		col := 0
		scopes := scopeNames(tl.Grammar, tl.OpenScopes)
		for _, t := range tl.Tags {
			switch {
			case t > 0:
				tok := Token{BufferStart: col, BufferEnd: col + t, Scopes: append([]string(nil), scopes...)}
				if !yield(tok) {
					return
				}
				col += t
			case isScopeOpen(t):
				if name, ok := tl.Grammar.ScopeForID(-t); ok {
					scopes = append(scopes, name)
				} else {
					scopes = append(scopes, "")
				}
			default:
				if len(scopes) > 0 {
					scopes = scopes[:len(scopes)-1]
				}
			}
		}
	}
}

// TokenAtBufferColumn returns the token covering col; a col at or past the
// end of the last token returns that last token. A line without spans
// returns false.
func (tl *TokenizedLine) TokenAtBufferColumn(col int) (Token, bool) {
	var last Token
	haveLast := false
	for tok := range tl.Tokens() {
		if tok.contains(col) {
			return tok, true
		}
		last = tok
		haveLast = true
	}
	if haveLast && col >= last.BufferEnd {
		return last, true
	}
	return Token{}, false
}

// TokenStartColumnForBufferColumn returns the start column of the token
// covering col.
func (tl *TokenizedLine) TokenStartColumnForBufferColumn(col int) (int, bool) {
	tok, ok := tl.TokenAtBufferColumn(col)
	if !ok {
		return 0, false
	}
	return tok.BufferStart, true
}

// endOfLineScopes folds the line's own tags to produce the scope stack at
// end-of-line; it is the seed for the next row and the exhaustion case of
// ScopeDescriptorForPosition.
func (tl *TokenizedLine) endOfLineScopes(assert Assert, path string) ScopeStack {
	return scopesFromTags(tl.Grammar, tl.OpenScopes, tl.Tags, assert, path, tl.Text)
}

// IsComment reports whether the line's first non-whitespace token matches the
// grammar's comment selector. Blank lines and grammars without a comment
// selector are never comments.
func (tl *TokenizedLine) IsComment() bool {
	sel := commentSelectorFor(tl.Grammar)
	if sel == nil {
		return false
	}
	for tok := range tl.Tokens() {
		if isBlankSpan(tl.Text, tok) {
			continue
		}
		return sel(tok.Scopes)
	}
	return false
}

func isBlankSpan(text string, tok Token) bool {
	for i := tok.BufferStart; i < tok.BufferEnd && i < len(text); i++ {
		c := text[i]
		if c != ' ' && c != '\t' {
			return false
		}
	}
	return true
}
