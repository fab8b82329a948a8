package tokenize

import "github.com/sirupsen/logrus"

// ScopeStack is the sequence of scope-open tag ids active at a point on a
// line, outermost first.
type ScopeStack []int

// FoldViolation is the diagnostic payload attached to an unmatched scope
// close: the tag stream is corrupt and folding of the offending line is
// abandoned partway through.
type FoldViolation struct {
	GrammarScope   string
	UnmatchedClose string
	BufferPath     string
	BufferContents string
}

// Assert reports a FoldViolation. It never panics: the sole contract is
// "observe and continue" (§7, Invariant violation).
type Assert func(FoldViolation)

// logAssert is the default Assert: it logs the violation with structured
// fields instead of swallowing it silently.
func logAssert(v FoldViolation) {
	logrus.WithFields(logrus.Fields{
		"grammarScope":   v.GrammarScope,
		"unmatchedClose": v.UnmatchedClose,
		"bufferPath":     v.BufferPath,
	}).Error("tokenize: unmatched scope-close tag; abandoning fold for this line")
}

// scopesFromTags folds tags onto starting, returning the scope stack at
// end-of-line. On an unmatched close (no open found anywhere on the stack)
// it reports the violation via assert and returns the stack as it stood
// right before the offending tag, abandoning the remainder of the line.
func scopesFromTags(grammar Grammar, starting ScopeStack, tags TagStream, assert Assert, path, contents string) ScopeStack {
	scopes := append(ScopeStack(nil), starting...)
	for _, t := range tags {
		if t >= 0 {
			continue
		}
		if isScopeOpen(t) {
			scopes = append(scopes, t)
			continue
		}
		match := t + 1
		idx := -1
		for i := len(scopes) - 1; i >= 0; i-- {
			if scopes[i] == match {
				idx = i
				break
			}
		}
		if idx == -1 {
			if assert != nil {
				unmatchedName, _ := grammar.ScopeForID(-match)
				assert(FoldViolation{
					GrammarScope:   grammar.ScopeName(),
					UnmatchedClose: unmatchedName,
					BufferPath:     path,
					BufferContents: contents,
				})
			}
			break
		}
		scopes = scopes[:idx]
	}
	return scopes
}
