package docstore

import (
	"context"
	"sync"
)

// Mutation is a proposed write evaluated by collection rules before it is applied.
// Current is nil when the document does not exist yet; Proposed is nil for deletes.
type Mutation struct {
	Caller     string
	Collection string
	Key        string
	Current    *Document
	Proposed   *Document
	Reader     Reader
}

// IsCreate reports whether the mutation writes a new document.
func (m Mutation) IsCreate() bool {
	return m.Current == nil && m.Proposed != nil
}

// Rule accepts or refuses a mutation. Refusals should be built with Deny or Reject.
type Rule func(ctx context.Context, m Mutation) error

// Rules holds per-collection assertions run inside the write transaction.
type Rules struct {
	mu       sync.RWMutex
	onSet    map[string][]Rule
	onDelete map[string][]Rule
}

// NewRules constructs an empty rule set.
func NewRules() *Rules {
	return &Rules{
		onSet:    make(map[string][]Rule),
		onDelete: make(map[string][]Rule),
	}
}

// OnSet registers rules evaluated for creates and updates in collection.
func (r *Rules) OnSet(collection string, rules ...Rule) *Rules {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSet[collection] = append(r.onSet[collection], rules...)
	return r
}

// OnDelete registers rules evaluated before documents in collection are removed.
func (r *Rules) OnDelete(collection string, rules ...Rule) *Rules {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDelete[collection] = append(r.onDelete[collection], rules...)
	return r
}

func (r *Rules) checkSet(ctx context.Context, m Mutation) error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	rules := r.onSet[m.Collection]
	r.mu.RUnlock()
	return run(ctx, rules, m)
}

func (r *Rules) checkDelete(ctx context.Context, m Mutation) error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	rules := r.onDelete[m.Collection]
	r.mu.RUnlock()
	return run(ctx, rules, m)
}

func run(ctx context.Context, rules []Rule, m Mutation) error {
	for _, rule := range rules {
		if err := rule(ctx, m); err != nil {
			return annotate(err, m.Collection, m.Key)
		}
	}
	return nil
}
