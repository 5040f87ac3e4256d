package importer

import "github.com/kenneth/homevault/internal/entity"

// foreignID is an identifier taken from the exporting dataset. It lives in
// a different identifier space than entity.ID: a foreign value may collide
// textually with a local one by pure coincidence, so the two must never be
// compared or substituted. The only bridge between the spaces is the remap
// table.
type foreignID string

// remapTable translates foreign identifiers to local ones, per entity kind.
// It is built incrementally during a single import, is write-once per key
// (first writer wins) and never leaves the importer.
type remapTable struct {
	byKind map[entity.Kind]map[foreignID]entity.ID
}

func newRemapTable() *remapTable {
	return &remapTable{byKind: make(map[entity.Kind]map[foreignID]entity.ID)}
}

// put records a translation. Empty foreign identifiers are not recorded;
// an already-present key keeps its first value.
func (t *remapTable) put(kind entity.Kind, fid foreignID, local entity.ID) {
	if fid == "" || local.IsZero() {
		return
	}
	kindMap, ok := t.byKind[kind]
	if !ok {
		kindMap = make(map[foreignID]entity.ID)
		t.byKind[kind] = kindMap
	}
	if _, exists := kindMap[fid]; exists {
		return
	}
	kindMap[fid] = local
}

// resolve translates a reference field carried in an incoming record. The
// raw value is foreign; the result is the matching local identifier, or
// unset when the reference cannot be resolved. An unresolved reference must
// be dropped, never written through.
func (t *remapTable) resolve(kind entity.Kind, ref entity.ID) entity.ID {
	if ref.IsZero() {
		return ""
	}
	return t.byKind[kind][foreignID(ref)]
}

// size is the total number of recorded translations.
func (t *remapTable) size() int {
	total := 0
	for _, kindMap := range t.byKind {
		total += len(kindMap)
	}
	return total
}
