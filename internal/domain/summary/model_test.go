package summary

import (
	"strings"
	"testing"
)

func TestBlockValidate(t *testing.T) {
	cases := []struct {
		name    string
		block   Block
		wantErr string
	}{
		{"valid text", Block{Kind: BlockText, Text: "Rest for two weeks."}, ""},
		{"text missing body", Block{Kind: BlockText}, "requires text"},
		{"text with list payload", Block{Kind: BlockText, Text: "x", Tasks: []TaskItem{{Text: "walk"}}}, "must not carry"},
		{"valid medications", Block{Kind: BlockMedications, Medications: []Medication{{Name: "Amoxicillin", Dose: "500mg"}}}, ""},
		{"empty medications", Block{Kind: BlockMedications}, "at least one medication"},
		{"medication without name", Block{Kind: BlockMedications, Medications: []Medication{{Dose: "500mg"}}}, "name is required"},
		{"valid tasks", Block{Kind: BlockTasks, Tasks: []TaskItem{{Text: "Change dressing daily"}}}, ""},
		{"task without text", Block{Kind: BlockTasks, Tasks: []TaskItem{{}}}, "text is required"},
		{"valid red flags", Block{Kind: BlockRedFlags, RedFlags: []RedFlag{{Symptom: "Fever above 39C"}}}, ""},
		{"red flag without symptom", Block{Kind: BlockRedFlags, RedFlags: []RedFlag{{}}}, "symptom is required"},
		{"valid appointments", Block{Kind: BlockAppointments, Appointments: []Appointment{{Title: "Follow-up"}}}, ""},
		{"appointment without title", Block{Kind: BlockAppointments, Appointments: []Appointment{{}}}, "title is required"},
		{"unknown kind", Block{Kind: "video"}, "invalid block kind"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.block.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("got %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateBlocksAssignsIDs(t *testing.T) {
	blocks := []Block{
		{Kind: BlockText, Text: "Keep the wound dry."},
		{ID: "b-1", Kind: BlockTasks, Tasks: []TaskItem{{Text: "Take temperature twice daily"}}},
	}
	if err := ValidateBlocks(blocks); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if blocks[0].ID == "" {
		t.Error("expected generated id for first block")
	}
	if blocks[1].ID != "b-1" {
		t.Errorf("existing id overwritten: %q", blocks[1].ID)
	}
}

func TestValidateBlocksReportsIndex(t *testing.T) {
	blocks := []Block{
		{Kind: BlockText, Text: "ok"},
		{Kind: BlockText},
	}
	err := ValidateBlocks(blocks)
	if err == nil || !strings.Contains(err.Error(), "block 1") {
		t.Errorf("got %v, want error naming block 1", err)
	}
}
