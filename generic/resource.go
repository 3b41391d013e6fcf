package generic

import "sync"

// =============================================================================
// RESOURCE REGISTRY
// =============================================================================
//
// Stores persist a bucket's ResourceType as its ResourceID string. Domain
// packages register their concrete types on init() so that rows loaded back
// from SQLite carry the same typed value the services compare against.

var (
	resourceRegistry = make(map[string]ResourceType)
	registryMu       sync.RWMutex
)

// RegisterResource adds a resource type to the global registry.
func RegisterResource(r ResourceType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	resourceRegistry[r.ResourceID()] = r
}

// LookupResource finds a registered resource type by ID, or nil.
func LookupResource(id string) ResourceType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return resourceRegistry[id]
}

// UnknownResource stands in for IDs nobody registered.
type UnknownResource string

func (r UnknownResource) ResourceID() string     { return string(r) }
func (r UnknownResource) ResourceDomain() string { return "unknown" }

// GetOrCreateResource looks up a resource type, falling back to UnknownResource.
func GetOrCreateResource(id string) ResourceType {
	if r := LookupResource(id); r != nil {
		return r
	}
	return UnknownResource(id)
}
