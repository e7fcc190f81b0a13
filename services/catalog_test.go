package services

import (
	"testing"
	"time"

	"ecolearn-engine/models"
	"ecolearn-engine/store"
)

func TestSeedCatalog(t *testing.T) {
	fixedClock(t, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	st := store.NewMemStore(func(a, b string) bool { return a == b })
	svc := NewCatalogService(st)

	if err := svc.SeedCatalog(); err != nil {
		t.Fatal(err)
	}
	n, err := st.CountChallenges()
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len(models.CatalogChallenges)) {
		t.Errorf("seeded %d challenges, want %d", n, len(models.CatalogChallenges))
	}

	// a populated store is never reseeded or clobbered
	if err := st.SaveChallenge(models.Challenge{ID: "synced", Title: "From Catalog Service"}); err != nil {
		t.Fatal(err)
	}
	before, _ := st.CountChallenges()
	if err := svc.SeedCatalog(); err != nil {
		t.Fatal(err)
	}
	after, _ := st.CountChallenges()
	if after != before {
		t.Errorf("reseed changed challenge count: %d -> %d", before, after)
	}
}
