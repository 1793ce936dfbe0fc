package rules

import (
	"sort"
	"sync"

	"github.com/solatis/dialkeeper/internal/types"
)

// GlobalAccount is the account key of the rule sets shared by every account.
const GlobalAccount = ""

// EngineKey identifies one installed rewriter.
type EngineKey struct {
	Account   string
	Direction types.Direction
}

// Engine is the registry of installed rewriters, one per account and
// direction. Account-specific rewriters shadow the global one.
// Install swaps whole rewriters; callers never edit an installed one.
type Engine struct {
	mu        sync.RWMutex
	rewriters map[EngineKey]*Rewriter
}

// NewEngine creates an engine with no rule sets installed.
func NewEngine() *Engine {
	return &Engine{rewriters: make(map[EngineKey]*Rewriter)}
}

// Install makes rw the rewriter for account and rw's direction.
func (e *Engine) Install(account string, rw *Rewriter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rewriters[EngineKey{Account: account, Direction: rw.Direction()}] = rw
}

// Remove uninstalls the rewriter for account and dir.
func (e *Engine) Remove(account string, dir types.Direction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rewriters, EngineKey{Account: account, Direction: dir})
}

// Rewriter returns the rewriter for account and dir, falling back to the
// global one, then to an empty rewriter.
func (e *Engine) Rewriter(account string, dir types.Direction) *Rewriter {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if rw, ok := e.rewriters[EngineKey{Account: account, Direction: dir}]; ok {
		return rw
	}
	if rw, ok := e.rewriters[EngineKey{Account: GlobalAccount, Direction: dir}]; ok {
		return rw
	}
	return NewRewriter(dir, false)
}

// Rewrite rewrites address with the rule set that applies to account.
func (e *Engine) Rewrite(account string, dir types.Direction, address string, ctx types.Context) types.Result {
	return e.Rewriter(account, dir).Rewrite(address, ctx)
}

// RewriteProgressively previews the rewrite of address for account.
func (e *Engine) RewriteProgressively(account string, dir types.Direction, address string, ctx types.Context) []string {
	return e.Rewriter(account, dir).RewriteProgressively(address, ctx)
}

// Keys lists installed rewriters ordered by account then direction.
func (e *Engine) Keys() []EngineKey {
	e.mu.RLock()
	keys := make([]EngineKey, 0, len(e.rewriters))
	for k := range e.rewriters {
		keys = append(keys, k)
	}
	e.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Account != keys[j].Account {
			return keys[i].Account < keys[j].Account
		}
		return keys[i].Direction < keys[j].Direction
	})
	return keys
}

// InstallDocument compiles doc into an outgoing and an incoming rewriter
// for account and installs both. Nothing is installed if doc fails to load.
// Returns the number of rules in the document.
func (e *Engine) InstallDocument(account string, doc *Document) (int, error) {
	accountSpecific := account != GlobalAccount
	out := NewRewriter(types.DirectionOutgoing, accountSpecific)
	if err := out.Load(doc); err != nil {
		return 0, err
	}
	in := NewRewriter(types.DirectionIncoming, accountSpecific)
	if err := in.Load(doc); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rewriters[EngineKey{Account: account, Direction: types.DirectionOutgoing}] = out
	e.rewriters[EngineKey{Account: account, Direction: types.DirectionIncoming}] = in
	return out.Len(), nil
}
