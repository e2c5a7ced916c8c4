// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package opgroup

import (
	"sort"
	"strings"

	"github.com/NVIDIA/rrtree/blunder"
	"github.com/NVIDIA/rrtree/logger"
)

func NewMap() *Map {
	return &Map{groups: make(map[*IndexEntry]*OperationGroup)}
}

// CopyMap returns a new Map with the same mappings as src; each group is cloned.
//
// A nil src yields an empty (non-nil) Map.
//
func CopyMap(src *Map) (newMap *Map) {
	newMap = NewMap()
	newMap.Copy(src)
	return
}

// Put maps entry to group, replacing any previous group. A nil or empty group removes the mapping.
func (m *Map) Put(entry *IndexEntry, group *OperationGroup) {
	if 0 == group.Size() {
		delete(m.groups, entry)
		return
	}
	m.groups[entry] = group
}

func (m *Map) Get(entry *IndexEntry) (group *OperationGroup, ok bool) {
	if nil == m {
		return
	}
	group, ok = m.groups[entry]
	return
}

func (m *Map) Remove(entry *IndexEntry) {
	if nil == m {
		return
	}
	delete(m.groups, entry)
}

func (m *Map) IsEmpty() bool {
	return 0 == m.Size()
}

// Size is the number of groups (not operations).
func (m *Map) Size() int {
	if nil == m {
		return 0
	}
	return len(m.groups)
}

// AddEntry appends op to entry's group, creating a singleton group if needed.
func (m *Map) AddEntry(entry *IndexEntry, op *Operation) {
	group, ok := m.groups[entry]
	if !ok {
		group = NewOperationGroup()
		m.groups[entry] = group
	}
	group.Add(op)
}

// AddIfNotExists is AddEntry unless entry's group already holds the same logical update.
func (m *Map) AddIfNotExists(entry *IndexEntry, op *Operation) (added bool) {
	group, ok := m.groups[entry]
	if ok && group.Contains(op) {
		added = false
		return
	}
	m.AddEntry(entry, op)
	added = true
	return
}

// Copy merges every group of src into m. Shared keys get the multiset union.
func (m *Map) Copy(src *Map) {
	src.Range(func(entry *IndexEntry, group *OperationGroup) bool {
		existing, ok := m.groups[entry]
		if ok {
			existing.Merge(group)
		} else {
			m.groups[entry] = group.clone()
		}
		return true
	})
}

// MoveGroupFrom relocates group, stored in src under entry, into m.
//
// The src mapping is removed entirely. If m already holds a group for entry the two are merged.
//
func (m *Map) MoveGroupFrom(src *Map, entry *IndexEntry, group *OperationGroup) {
	if nil != src {
		delete(src.groups, entry)
	}
	if 0 == group.Size() {
		return
	}
	existing, ok := m.groups[entry]
	if ok {
		existing.Merge(group)
	} else {
		m.groups[entry] = group
	}
}

// ClearAndSet replaces the whole content of m with the single mapping entry->group.
func (m *Map) ClearAndSet(entry *IndexEntry, group *OperationGroup) {
	m.groups = make(map[*IndexEntry]*OperationGroup)
	m.Put(entry, group)
}

// Entries returns the keys ordered by IndexEntry.ID with the orphan key (if any) last.
func (m *Map) Entries() (entries []*IndexEntry) {
	entries = make([]*IndexEntry, 0, m.Size())
	if nil == m {
		return
	}
	for entry := range m.groups {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if nil == entries[i] {
			return false
		}
		if nil == entries[j] {
			return true
		}
		return entries[i].ID < entries[j].ID
	})
	return
}

// Range calls f for each (entry, group) pair, in Entries() order, until f returns false.
func (m *Map) Range(f func(entry *IndexEntry, group *OperationGroup) bool) {
	for _, entry := range m.Entries() {
		if !f(entry, m.groups[entry]) {
			return
		}
	}
}

// Operations returns the groups, in Entries() order.
func (m *Map) Operations() (groups []*OperationGroup) {
	groups = make([]*OperationGroup, 0, m.Size())
	m.Range(func(_ *IndexEntry, group *OperationGroup) bool {
		groups = append(groups, group)
		return true
	})
	return
}

func (m *Map) distinctOps(assertUniqueInsertions bool, insertionsOnly bool) (ops []*Operation) {
	seen := make(map[OpKey]struct{})
	ops = make([]*Operation, 0)

	m.Range(func(entry *IndexEntry, group *OperationGroup) bool {
		group.Range(func(op *Operation) bool {
			if insertionsOnly && !op.IsInsertion() {
				return true
			}
			_, dup := seen[op.Key()]
			if dup {
				if assertUniqueInsertions && op.IsInsertion() {
					err := blunder.NewError(blunder.SplitInsertionError, "%v found under more than one group (again under %v)", op, entry)
					logger.PanicfWithError(err, "opgroup.Map holds a duplicated insertion")
				}
				return true
			}
			seen[op.Key()] = struct{}{}
			ops = append(ops, op)
			return true
		})
		return true
	})

	return
}

// NumOfDistinctOps counts logical updates across all groups; a deletion registered
// under several entries counts once. Without such sharing this is the sum of group sizes.
func (m *Map) NumOfDistinctOps() int {
	return len(m.distinctOps(false, false))
}

// Flatten returns every distinct operation once.
//
// An insertion may only ever be bound for a single subtree, so finding one
// twice is fatal.
//
func (m *Map) Flatten() []*Operation {
	return m.distinctOps(true, false)
}

// FlattenOnlyInsertions is Flatten() restricted to insertions.
func (m *Map) FlattenOnlyInsertions() []*Operation {
	return m.distinctOps(true, true)
}

func (m *Map) String() string {
	pairStrings := make([]string, 0, m.Size())
	m.Range(func(entry *IndexEntry, group *OperationGroup) bool {
		pairStrings = append(pairStrings, entry.String()+":"+group.String())
		return true
	})
	return "[" + strings.Join(pairStrings, " ") + "]"
}
