package domain

import "testing"

func TestParseTaskType(t *testing.T) {
	t.Parallel() // Enable parallel execution

	for _, tt := range AllTaskTypes() {
		parsed, err := ParseTaskType(string(tt))
		if err != nil {
			t.Errorf("Expected %q to parse, got %v", tt, err)
		}
		if parsed != tt {
			t.Errorf("Expected %q, got %q", tt, parsed)
		}
	}

	if _, err := ParseTaskType("product_deleted"); err != ErrInvalidTaskType {
		t.Errorf("Expected error %v, got %v", ErrInvalidTaskType, err)
	}
}

func TestPriorityRanks(t *testing.T) {
	t.Parallel() // Enable parallel execution

	ranks := make(map[int]struct{})
	for _, tt := range AllTaskTypes() {
		ranks[tt.PriorityRank()] = struct{}{}
	}
	if len(ranks) < 4 {
		t.Errorf("Expected at least 4 distinct priority ranks, got %d", len(ranks))
	}

	// Reports must be served before passive content changes.
	if TaskTypeUserReport.PriorityRank() >= TaskTypeProductChange.PriorityRank() {
		t.Errorf("Expected user reports to outrank product changes")
	}
	if TaskTypeUserReport.PriorityRank() >= TaskTypeProductChangeInExternalSource.PriorityRank() {
		t.Errorf("Expected user reports to outrank external product changes")
	}

	if TaskType("unknown").PriorityRank() != -1 {
		t.Errorf("Expected unknown type rank to be -1")
	}
}

func TestAllTaskTypesOrderedByRank(t *testing.T) {
	t.Parallel() // Enable parallel execution

	types := AllTaskTypes()
	for i := 1; i < len(types); i++ {
		if types[i-1].PriorityRank() > types[i].PriorityRank() {
			t.Errorf("Expected %q before %q", types[i], types[i-1])
		}
	}
}

func TestDedupGroupMembers(t *testing.T) {
	t.Parallel() // Enable parallel execution

	members := DedupGroupMembers(TaskTypeProductChange)
	if len(members) != 1 || members[0] != TaskTypeProductChangeInExternalSource {
		t.Errorf("Expected product change group to contain the external kind, got %v", members)
	}

	if m := DedupGroupMembers(TaskTypeShopCreationReview); len(m) != 0 {
		t.Errorf("Expected shop creation review to be alone in its group, got %v", m)
	}

	if m := DedupGroupMembers(TaskTypeUserReport); m != nil {
		t.Errorf("Expected no group for user reports, got %v", m)
	}
}

func TestDescriptorLanguageAwareness(t *testing.T) {
	t.Parallel() // Enable parallel execution

	expected := map[TaskType]bool{
		TaskTypeUserReport:                    false,
		TaskTypeUserFeedback:                  false,
		TaskTypeShopCreationReview:            false,
		TaskTypeProductChange:                 true,
		TaskTypeProductChangeInExternalSource: true,
		TaskTypeCustomModerationAction:        false,
	}

	for tt, want := range expected {
		desc, ok := tt.Descriptor()
		if !ok {
			t.Fatalf("Expected descriptor for %q", tt)
		}
		if desc.LanguageAware != want {
			t.Errorf("Expected language awareness %v for %q, got %v", want, tt, desc.LanguageAware)
		}
	}
}
