package snapshot

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/thiagovelsa/JudDesk-sub000/pkg/models"
)

// folderPlan is the result of sanitizing a snapshot's folder set before
// re-insertion: the rows to insert (ascending id) and the id remap for
// folders dropped by per-client deduplication.
type folderPlan struct {
	Folders []models.DocumentFolder
	Remap   map[int64]int64
}

// Resolve maps a folder id from the snapshot to its surviving id, or 0 when
// the id no longer resolves to any kept folder.
func (p *folderPlan) Resolve(id int64) int64 {
	if survivor, ok := p.Remap[id]; ok {
		id = survivor
	}
	for i := range p.Folders {
		if p.Folders[i].ID == id {
			return id
		}
	}
	return 0
}

// sanitizeFolders repairs a snapshot's folder rows so they can be inserted
// without violating the live schema's invariants:
//
//  1. rows with a non-positive id are dropped;
//  2. folders sharing a client keep only the lowest id, recording a remap;
//  3. parent references are remapped, and parents that no longer resolve
//     become NULL;
//  4. cycles in the parent chain are severed by nulling the parent of the
//     folder where the cycle was detected.
func sanitizeFolders(in []models.DocumentFolder) folderPlan {
	plan := folderPlan{Remap: make(map[int64]int64)}

	// Lowest-id survivor per client.
	survivorByClient := make(map[int64]int64)
	for _, f := range in {
		if f.ID <= 0 || f.ClientID == nil {
			continue
		}
		if keep, ok := survivorByClient[*f.ClientID]; !ok || f.ID < keep {
			survivorByClient[*f.ClientID] = f.ID
		}
	}

	kept := make(map[int64]*models.DocumentFolder)
	for _, f := range in {
		if f.ID <= 0 {
			continue
		}
		if f.ClientID != nil {
			if keep := survivorByClient[*f.ClientID]; keep != f.ID {
				plan.Remap[f.ID] = keep
				continue
			}
		}
		f := f
		kept[f.ID] = &f
	}

	// Remap parents, then null any that do not resolve.
	for _, f := range kept {
		if f.ParentID == nil {
			continue
		}
		pid := *f.ParentID
		if survivor, ok := plan.Remap[pid]; ok {
			pid = survivor
		}
		if _, ok := kept[pid]; !ok || pid == f.ID {
			f.ParentID = nil
			continue
		}
		f.ParentID = &pid
	}

	ids := make([]int64, 0, len(kept))
	for id := range kept {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	// Sever cycles: walk each parent chain; a node seen twice in one walk
	// means the chain loops, and the folder we started from loses its parent.
	// Walking from every folder guarantees each cycle is entered from inside
	// itself at least once, so no cycle survives.
	for _, id := range ids {
		f := kept[id]
		seen := map[int64]bool{id: true}
		cur := f
		for cur.ParentID != nil {
			next := *cur.ParentID
			if seen[next] {
				f.ParentID = nil
				break
			}
			seen[next] = true
			cur = kept[next]
		}
	}
	for _, id := range ids {
		plan.Folders = append(plan.Folders, *kept[id])
	}
	return plan
}

// stripAccents removes combining marks after NFD decomposition.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeFolderName canonicalizes a legacy folder name for find-or-create
// matching: trimmed, accent-stripped, lower-cased.
func normalizeFolderName(name string) string {
	out, _, err := transform.String(stripAccents, name)
	if err != nil {
		out = name
	}
	return strings.ToLower(strings.TrimSpace(out))
}
