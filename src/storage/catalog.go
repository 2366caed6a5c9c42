package storage

import (
	"sync"

	"github.com/grafeo-db/grafeo/src/common"
)

// Catalog interns labels, edge-types, and property keys into dense ids
// (spec.md §9: "'Global' catalog state ... lives inside the database
// object, guarded by a read-write lock; reads are lock-free once interned
// ids are obtained"). Once an id is handed out it is cached by the
// caller, so the read-write lock is only ever on the miss path.
type Catalog struct {
	mu sync.RWMutex

	labelByName map[string]common.LabelID
	labelNames  []string

	edgeTypeByName map[string]common.EdgeTypeID
	edgeTypeNames  []string

	propKeyByName map[string]common.PropertyKey
	propKeyNames  []string
}

func NewCatalog() *Catalog {
	return &Catalog{
		labelByName:    make(map[string]common.LabelID),
		edgeTypeByName: make(map[string]common.EdgeTypeID),
		propKeyByName:  make(map[string]common.PropertyKey),
	}
}

func (c *Catalog) InternLabel(name string) common.LabelID {
	c.mu.RLock()
	if id, ok := c.labelByName[name]; ok {
		c.mu.RUnlock()
		return id
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.labelByName[name]; ok {
		return id
	}

	id := common.LabelID(len(c.labelNames) + 1) // 0 is NilLabelID
	c.labelNames = append(c.labelNames, name)
	c.labelByName[name] = id

	return id
}

func (c *Catalog) LabelName(id common.LabelID) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if id == common.NilLabelID || int(id) > len(c.labelNames) {
		return "", false
	}
	return c.labelNames[id-1], true
}

func (c *Catalog) InternEdgeType(name string) common.EdgeTypeID {
	c.mu.RLock()
	if id, ok := c.edgeTypeByName[name]; ok {
		c.mu.RUnlock()
		return id
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.edgeTypeByName[name]; ok {
		return id
	}

	id := common.EdgeTypeID(len(c.edgeTypeNames) + 1)
	c.edgeTypeNames = append(c.edgeTypeNames, name)
	c.edgeTypeByName[name] = id

	return id
}

func (c *Catalog) EdgeTypeName(id common.EdgeTypeID) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if id == common.NilEdgeTypeID || int(id) > len(c.edgeTypeNames) {
		return "", false
	}
	return c.edgeTypeNames[id-1], true
}

func (c *Catalog) InternPropertyKey(name string) common.PropertyKey {
	c.mu.RLock()
	if id, ok := c.propKeyByName[name]; ok {
		c.mu.RUnlock()
		return id
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.propKeyByName[name]; ok {
		return id
	}

	id := common.PropertyKey(len(c.propKeyNames) + 1)
	c.propKeyNames = append(c.propKeyNames, name)
	c.propKeyByName[name] = id

	return id
}

func (c *Catalog) PropertyKeyName(id common.PropertyKey) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if id == common.NilPropertyKey || int(id) > len(c.propKeyNames) {
		return "", false
	}
	return c.propKeyNames[id-1], true
}

// Schema is a snapshot of every interned name, returned by the admin
// surface's schema() (spec.md §4.7).
type Schema struct {
	Labels       []string
	EdgeTypes    []string
	PropertyKeys []string
}

func (c *Catalog) Schema() Schema {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Schema{
		Labels:       append([]string(nil), c.labelNames...),
		EdgeTypes:    append([]string(nil), c.edgeTypeNames...),
		PropertyKeys: append([]string(nil), c.propKeyNames...),
	}
}
