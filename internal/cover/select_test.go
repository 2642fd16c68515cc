package cover

import (
	"testing"

	"coverarr/internal/domain"
)

func pick(t *testing.T, books []*domain.Book, providers map[string]*domain.Provider, pagePreference bool) map[string]string {
	t.Helper()

	kept := AutoPick(books, providers, pagePreference)

	byVolume := make(map[string]string)
	for _, book := range kept {
		if prev, ok := byVolume[book.VolumeName]; ok {
			t.Fatalf("volume %q kept twice: %s and %s", book.VolumeName, prev, book.Key())
		}
		byVolume[book.VolumeName] = book.Key()
	}
	return byVolume
}

func TestAutoPickOneSurvivorPerVolume(t *testing.T) {
	providers := map[string]*domain.Provider{
		"p1": {ID: "p1", Priority: 0},
		"p2": {ID: "p2", Priority: 1},
	}

	books := []*domain.Book{
		{ID: "a", ProviderID: "p1", VolumeName: "Volume 1", Meta: &domain.CoverMeta{Score: 30}},
		{ID: "b", ProviderID: "p2", VolumeName: "Volume 1", Meta: &domain.CoverMeta{Score: 40}},
		{ID: "c", ProviderID: "p1", VolumeName: "Volume 2", Meta: &domain.CoverMeta{Score: 10}},
	}

	byVolume := pick(t, books, providers, false)

	if len(byVolume) != 2 {
		t.Fatalf("kept %d volumes, want 2", len(byVolume))
	}
	if byVolume["Volume 1"] != "b|p2" {
		t.Errorf("Volume 1 winner = %s, want the higher score b|p2", byVolume["Volume 1"])
	}
	if byVolume["Volume 2"] != "c|p1" {
		t.Errorf("Volume 2 winner = %s, want the sole candidate c|p1", byVolume["Volume 2"])
	}
}

func TestAutoPickProviderPriorityBreaksTies(t *testing.T) {
	providers := map[string]*domain.Provider{
		"p1": {ID: "p1", Priority: 0},
		"p2": {ID: "p2", Priority: 1},
	}

	books := []*domain.Book{
		{ID: "a", ProviderID: "p2", VolumeName: "Volume 1", Meta: &domain.CoverMeta{Score: 30}},
		{ID: "b", ProviderID: "p1", VolumeName: "Volume 1", Meta: &domain.CoverMeta{Score: 30}},
	}

	byVolume := pick(t, books, providers, false)

	if byVolume["Volume 1"] != "b|p1" {
		t.Errorf("winner = %s, want the earlier provider b|p1", byVolume["Volume 1"])
	}
}

func TestAutoPickPageSupportPreference(t *testing.T) {
	providers := map[string]*domain.Provider{
		"p1": {ID: "p1", Priority: 0},
		"p2": {ID: "p2", Priority: 1, SupportsBookPages: true},
	}

	books := []*domain.Book{
		{ID: "a", ProviderID: "p1", VolumeName: "Volume 1", Meta: &domain.CoverMeta{Score: 50}},
		{ID: "b", ProviderID: "p2", VolumeName: "Volume 1", Meta: &domain.CoverMeta{Score: 20}},
	}

	// page preference off: higher score wins
	byVolume := pick(t, books, providers, false)
	if byVolume["Volume 1"] != "a|p1" {
		t.Errorf("winner = %s, want a|p1 without page preference", byVolume["Volume 1"])
	}

	// page preference on: the page-capable provider sorts ahead regardless
	byVolume = pick(t, books, providers, true)
	if byVolume["Volume 1"] != "b|p2" {
		t.Errorf("winner = %s, want b|p2 with page preference", byVolume["Volume 1"])
	}
}

func TestAutoPickLeavesBackingSetUntouched(t *testing.T) {
	providers := map[string]*domain.Provider{"p1": {ID: "p1"}}

	books := []*domain.Book{
		{ID: "a", ProviderID: "p1", VolumeName: "Volume 1", Meta: &domain.CoverMeta{Score: 1}},
		{ID: "b", ProviderID: "p1", VolumeName: "Volume 1", Meta: &domain.CoverMeta{Score: 2}},
	}

	AutoPick(books, providers, false)

	if len(books) != 2 {
		t.Errorf("backing slice shrank to %d entries", len(books))
	}
}
