package all

import (
	"testing"

	"starload/internal/storage"
)

func TestAllKindsRegistered(t *testing.T) {
	t.Parallel()

	got := storage.ListKinds()
	for _, want := range []string{"mssql", "mysql", "postgres", "sqlite"} {
		found := false
		for _, k := range got {
			if k == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("kind %q not registered; have %v", want, got)
		}
	}
}
