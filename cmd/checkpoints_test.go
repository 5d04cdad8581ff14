package main

import (
	"testing"
	"time"

	"github.com/cwbudde/mandelcore/internal/render/store"
)

func TestSelectCheckpointsForDeletionKeepsMostRecent(t *testing.T) {
	now := time.Now()
	infos := []store.CheckpointInfo{
		{JobID: "a", Timestamp: now.Add(-3 * time.Hour)},
		{JobID: "b", Timestamp: now.Add(-2 * time.Hour)},
		{JobID: "c", Timestamp: now.Add(-1 * time.Hour)},
	}

	toDelete := selectCheckpointsForDeletion(infos, 1, 0)
	if len(toDelete) != 2 {
		t.Fatalf("want 2 deletions keeping last 1, got %d", len(toDelete))
	}
	for _, info := range toDelete {
		if info.JobID == "c" {
			t.Fatalf("most recent checkpoint should survive --keep-last, got it marked for deletion")
		}
	}
}

func TestSelectCheckpointsForDeletionByAge(t *testing.T) {
	now := time.Now()
	infos := []store.CheckpointInfo{
		{JobID: "old", Timestamp: now.Add(-72 * time.Hour)},
		{JobID: "new", Timestamp: now.Add(-1 * time.Hour)},
	}

	toDelete := selectCheckpointsForDeletion(infos, 0, 2)
	if len(toDelete) != 1 || toDelete[0].JobID != "old" {
		t.Fatalf("want only the 72h-old checkpoint deleted, got %+v", toDelete)
	}
}

func TestSelectCheckpointsForDeletionDedupesAcrossRules(t *testing.T) {
	now := time.Now()
	infos := []store.CheckpointInfo{
		{JobID: "old", Timestamp: now.Add(-72 * time.Hour)},
		{JobID: "mid", Timestamp: now.Add(-2 * time.Hour)},
		{JobID: "new", Timestamp: now.Add(-1 * time.Hour)},
	}

	toDelete := selectCheckpointsForDeletion(infos, 1, 2)
	if len(toDelete) != 2 {
		t.Fatalf("want 2 deletions (old by age, mid by keep-last), got %d: %+v", len(toDelete), toDelete)
	}
}
