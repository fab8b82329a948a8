package grammar

import "github.com/friedelschoen/tokenbuf/tokenize"

// nullRuleStack is the Null Grammar's single, always-equal continuation: it
// never varies, so the first line tokenized with it is always a fixed point.
type nullRuleStack struct{}

func (nullRuleStack) Equal(other tokenize.RuleStack) bool {
	_, ok := other.(nullRuleStack)
	return ok
}

// Null is the fallback grammar assumed to exist for buffers with no
// detected language: every line is a single span wrapped in one root scope,
// and the buffer is considered fully tokenized the instant it is assigned
// (§4.5.1).
type Null struct {
	registry *ScopeRegistry
	scope    string
}

// NewNull returns a Null Grammar whose root scope is named scope (e.g.
// "text.plain").
func NewNull(scope string) *Null {
	if scope == "" {
		scope = "text.plain.null-grammar"
	}
	return &Null{registry: NewScopeRegistry(), scope: scope}
}

func (n *Null) Name() string      { return "Null Grammar" }
func (n *Null) ScopeName() string { return n.scope }

func (n *Null) TokenizeLine(text string, stack tokenize.RuleStack, isFirstLine bool) (tokenize.TagStream, tokenize.RuleStack) {
	start := n.registry.StartID(n.scope)
	end := n.registry.EndID(n.scope)

	tags := tokenize.TagStream{-start}
	if len(text) > 0 {
		tags = append(tags, len(text))
	}
	tags = append(tags, -end)

	return tags, nullRuleStack{}
}

func (n *Null) ScopeForID(id int) (string, bool)     { return n.registry.Name(id) }
func (n *Null) StartIDForScope(name string) int      { return n.registry.StartID(name) }
func (n *Null) EndIDForScope(name string) int        { return n.registry.EndID(name) }
func (n *Null) OnDidUpdate(cb func()) tokenize.Disposable {
	return tokenize.DisposableFunc(nil)
}

// IsNullGrammar satisfies the engine's fast-path detection hook.
func (n *Null) IsNullGrammar() bool { return true }
