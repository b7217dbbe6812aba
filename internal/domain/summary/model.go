package summary

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Summary statuses.
const (
	StatusDraft    = "draft"
	StatusFinal    = "final"
	StatusShared   = "shared"
	StatusArchived = "archived"
)

// Block kinds. A block is one independently editable unit of a discharge
// summary; exactly the payload matching its kind may be set.
const (
	BlockText         = "text"
	BlockMedications  = "medications"
	BlockTasks        = "tasks"
	BlockRedFlags     = "red_flags"
	BlockAppointments = "appointments"
)

// PatientSummary maps to the patient_summaries table. Blocks are stored as an
// ordered JSONB array.
type PatientSummary struct {
	ID              uuid.UUID `db:"id" json:"id"`
	DoctorID        string    `db:"doctor_id" json:"doctor_id"`
	PatientUserID   *string   `db:"patient_user_id" json:"patient_user_id,omitempty"`
	Blocks          []Block   `db:"blocks" json:"blocks"`
	DischargeText   string    `db:"discharge_text" json:"discharge_text"`
	Status          string    `db:"status" json:"status"`
	PreferredLocale string    `db:"preferred_locale" json:"preferred_locale"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Block is one structured content unit. Kind selects which payload field is
// populated; the others stay empty.
type Block struct {
	ID           string        `json:"id"`
	Kind         string        `json:"kind"`
	Title        string        `json:"title,omitempty"`
	Text         string        `json:"text,omitempty"`
	Medications  []Medication  `json:"medications,omitempty"`
	Tasks        []TaskItem    `json:"tasks,omitempty"`
	RedFlags     []RedFlag     `json:"red_flags,omitempty"`
	Appointments []Appointment `json:"appointments,omitempty"`
}

// Medication is one entry of a medication-list block.
type Medication struct {
	Name     string `json:"name"`
	Dose     string `json:"dose,omitempty"`
	Schedule string `json:"schedule,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// TaskItem is one entry of a task-list block.
type TaskItem struct {
	Text    string     `json:"text"`
	DueDate *time.Time `json:"due_date,omitempty"`
	Done    bool       `json:"done"`
}

// RedFlag is one entry of a red-flag block: a warning symptom and what to do
// when it appears.
type RedFlag struct {
	Symptom string `json:"symptom"`
	Advice  string `json:"advice,omitempty"`
}

// Appointment is one entry of an appointment-list block.
type Appointment struct {
	Title    string     `json:"title"`
	Location string     `json:"location,omitempty"`
	Time     *time.Time `json:"time,omitempty"`
}

var validBlockKinds = map[string]bool{
	BlockText: true, BlockMedications: true, BlockTasks: true,
	BlockRedFlags: true, BlockAppointments: true,
}

// Validate checks that the block's kind is known and that its payload matches
// the kind.
func (b *Block) Validate() error {
	if !validBlockKinds[b.Kind] {
		return fmt.Errorf("invalid block kind: %s", b.Kind)
	}

	switch b.Kind {
	case BlockText:
		if b.Text == "" {
			return fmt.Errorf("text block requires text")
		}
		if len(b.Medications) > 0 || len(b.Tasks) > 0 || len(b.RedFlags) > 0 || len(b.Appointments) > 0 {
			return fmt.Errorf("text block must not carry list payloads")
		}
	case BlockMedications:
		if len(b.Medications) == 0 {
			return fmt.Errorf("medications block requires at least one medication")
		}
		for i, m := range b.Medications {
			if m.Name == "" {
				return fmt.Errorf("medication %d: name is required", i)
			}
		}
	case BlockTasks:
		if len(b.Tasks) == 0 {
			return fmt.Errorf("tasks block requires at least one task")
		}
		for i, task := range b.Tasks {
			if task.Text == "" {
				return fmt.Errorf("task %d: text is required", i)
			}
		}
	case BlockRedFlags:
		if len(b.RedFlags) == 0 {
			return fmt.Errorf("red_flags block requires at least one entry")
		}
		for i, rf := range b.RedFlags {
			if rf.Symptom == "" {
				return fmt.Errorf("red flag %d: symptom is required", i)
			}
		}
	case BlockAppointments:
		if len(b.Appointments) == 0 {
			return fmt.Errorf("appointments block requires at least one appointment")
		}
		for i, a := range b.Appointments {
			if a.Title == "" {
				return fmt.Errorf("appointment %d: title is required", i)
			}
		}
	}

	return nil
}

// ValidateBlocks validates every block and assigns ids to blocks missing one.
func ValidateBlocks(blocks []Block) error {
	for i := range blocks {
		if err := blocks[i].Validate(); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if blocks[i].ID == "" {
			blocks[i].ID = uuid.New().String()
		}
	}
	return nil
}
