package agentclient

import "sort"

// AgentDescriptor is the minimal shape the core needs from a resolved
// agent: enough to identify it to the session service. Richer metadata
// (model, prompt template, tool bindings) belongs to the markdown-loading
// glue layer spec.md places out of scope.
type AgentDescriptor struct {
	Name string
}

// Resolver maps an agent name to a descriptor. The core consumes only
// Resolve/ListNames; how names are populated (reading markdown files from
// disk, a remote catalog, ...) is an external collaborator's concern.
type Resolver interface {
	Resolve(name string) (AgentDescriptor, bool)
	ListNames() []string
}

// StaticResolver is an in-memory Resolver seeded at construction time —
// the simplest concrete Resolver the core ships, sufficient for tests and
// for a config-driven agents_dir glue layer to populate once at startup.
type StaticResolver struct {
	agents map[string]AgentDescriptor
}

// NewStaticResolver builds a Resolver from the given descriptors, keyed by
// their Name field.
func NewStaticResolver(descriptors ...AgentDescriptor) *StaticResolver {
	agents := make(map[string]AgentDescriptor, len(descriptors))
	for _, d := range descriptors {
		agents[d.Name] = d
	}
	return &StaticResolver{agents: agents}
}

func (r *StaticResolver) Resolve(name string) (AgentDescriptor, bool) {
	d, ok := r.agents[name]
	return d, ok
}

func (r *StaticResolver) ListNames() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
