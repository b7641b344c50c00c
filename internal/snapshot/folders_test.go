package snapshot

import (
	"testing"

	"github.com/thiagovelsa/JudDesk-sub000/pkg/models"
)

func i64(v int64) *int64 { return &v }

func folderByID(t *testing.T, plan folderPlan, id int64) models.DocumentFolder {
	t.Helper()
	for _, f := range plan.Folders {
		if f.ID == id {
			return f
		}
	}
	t.Fatalf("folder %d not in plan", id)
	return models.DocumentFolder{}
}

func TestSanitizeFolders_DropsNonPositiveIDs(t *testing.T) {
	plan := sanitizeFolders([]models.DocumentFolder{
		{ID: 0, Name: "zero"},
		{ID: -3, Name: "negative"},
		{ID: 5, Name: "kept"},
	})
	if len(plan.Folders) != 1 || plan.Folders[0].ID != 5 {
		t.Errorf("plan.Folders = %+v, want only id 5", plan.Folders)
	}
}

func TestSanitizeFolders_DedupesByClient(t *testing.T) {
	plan := sanitizeFolders([]models.DocumentFolder{
		{ID: 4, Name: "Acme (new)", ClientID: i64(1)},
		{ID: 2, Name: "Acme", ClientID: i64(1)},
		{ID: 9, Name: "child of dropped", ParentID: i64(4)},
		{ID: 3, Name: "Globex", ClientID: i64(2)},
	})

	if len(plan.Folders) != 3 {
		t.Fatalf("kept %d folders, want 3: %+v", len(plan.Folders), plan.Folders)
	}
	if got := plan.Resolve(4); got != 2 {
		t.Errorf("Resolve(4) = %d, want survivor 2", got)
	}
	if got := plan.Resolve(3); got != 3 {
		t.Errorf("Resolve(3) = %d, want 3", got)
	}

	// The child of the dropped duplicate follows the remap.
	child := folderByID(t, plan, 9)
	if child.ParentID == nil || *child.ParentID != 2 {
		t.Errorf("child parent = %v, want 2", child.ParentID)
	}
}

func TestSanitizeFolders_NullsDanglingParents(t *testing.T) {
	plan := sanitizeFolders([]models.DocumentFolder{
		{ID: 1, Name: "orphan", ParentID: i64(99)},
		{ID: 2, Name: "self", ParentID: i64(2)},
	})
	for _, id := range []int64{1, 2} {
		if f := folderByID(t, plan, id); f.ParentID != nil {
			t.Errorf("folder %d parent = %d, want nil", id, *f.ParentID)
		}
	}
}

func TestSanitizeFolders_SeversCycles(t *testing.T) {
	plan := sanitizeFolders([]models.DocumentFolder{
		{ID: 1, Name: "a", ParentID: i64(2)},
		{ID: 2, Name: "b", ParentID: i64(3)},
		{ID: 3, Name: "c", ParentID: i64(1)},
		{ID: 4, Name: "leaf", ParentID: i64(1)},
	})

	// After severing, every parent chain must terminate.
	byID := make(map[int64]models.DocumentFolder)
	for _, f := range plan.Folders {
		byID[f.ID] = f
	}
	for _, f := range plan.Folders {
		steps := 0
		cur := f
		for cur.ParentID != nil {
			steps++
			if steps > len(plan.Folders) {
				t.Fatalf("parent chain from %d does not terminate", f.ID)
			}
			cur = byID[*cur.ParentID]
		}
	}
	// The leaf outside the cycle keeps its parent.
	if leaf := folderByID(t, plan, 4); leaf.ParentID == nil || *leaf.ParentID != 1 {
		t.Errorf("leaf parent = %v, want 1", leaf.ParentID)
	}
}

func TestSanitizeFolders_Deterministic(t *testing.T) {
	in := []models.DocumentFolder{
		{ID: 1, Name: "a", ParentID: i64(2)},
		{ID: 2, Name: "b", ParentID: i64(1)},
	}
	first := sanitizeFolders(in)
	for i := 0; i < 20; i++ {
		again := sanitizeFolders(in)
		for j := range first.Folders {
			a, b := first.Folders[j], again.Folders[j]
			if a.ID != b.ID || (a.ParentID == nil) != (b.ParentID == nil) {
				t.Fatalf("run %d differs: %+v vs %+v", i, first.Folders, again.Folders)
			}
		}
	}
}

func TestNormalizeFolderName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Contratos", "contratos"},
		{"  Contratos  ", "contratos"},
		{"Petições", "peticoes"},
		{"AÇÃO", "acao"},
		{"Général", "general"},
	}
	for _, tt := range tests {
		if got := normalizeFolderName(tt.in); got != tt.want {
			t.Errorf("normalizeFolderName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
