package model

import (
	"regexp"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// LinkPattern is the scheme prefix every non-empty link must carry.
var LinkPattern = regexp.MustCompile(`^https?://`)

// TargetType classifies an exercise as an isolation or compound movement.
type TargetType string

const (
	TargetIsolation TargetType = "isolation"
	TargetCompound  TargetType = "compound"
)

// TargetTypes lists every valid TargetType in display order.
var TargetTypes = []TargetType{TargetIsolation, TargetCompound}

// ParseTargetType validates s against the enumeration.
func ParseTargetType(s string) (TargetType, error) {
	t := TargetType(strings.TrimSpace(s))
	if err := validation.Validate(t, validation.Required, validation.In(TargetIsolation, TargetCompound)); err != nil {
		return "", goerrors.New("target type must be one of: isolation, compound", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"value": s})
	}
	return t, nil
}

// ProgramInput is the upsert payload for a program. A nil ID inserts.
// CreatedAt is carried through on updates and ignored on inserts.
type ProgramInput struct {
	ID        *int64
	Title     string
	Link      *string
	Notes     *string
	CreatedAt time.Time
}

// Validate enforces the persistence rules for programs.
func (in ProgramInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required.Error("A title is required!")),
		validation.Field(&in.Link, validation.Match(LinkPattern).Error("Invalid link!")),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid program")
	}
	return nil
}

// IsInsert reports whether the input creates a new row.
func (in ProgramInput) IsInsert() bool { return in.ID == nil }

// Row builds the program row for this input.
func (in ProgramInput) Row() *Program {
	p := &Program{
		Title:     in.Title,
		Link:      normalizeOptional(in.Link),
		Notes:     normalizeOptional(in.Notes),
		CreatedAt: in.CreatedAt,
	}
	if in.ID != nil {
		p.ID = *in.ID
	}
	return p
}

// ProgramInputFrom copies an existing row into an update payload.
func ProgramInputFrom(p Program) ProgramInput {
	id := p.ID
	return ProgramInput{
		ID:        &id,
		Title:     p.Title,
		Link:      p.Link,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
	}
}

// ExerciseInput is the upsert payload for an exercise. A nil ID inserts.
type ExerciseInput struct {
	ID            *int64
	Title         string
	Link          *string
	Notes         *string
	PrimaryMuscle *int64
	TargetType    TargetType
	CreatedAt     time.Time
}

// Validate enforces the persistence rules for exercises.
func (in ExerciseInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required.Error("A title is required!")),
		validation.Field(&in.Link, validation.Match(LinkPattern).Error("Invalid link!")),
		validation.Field(&in.TargetType, validation.Required, validation.In(TargetIsolation, TargetCompound)),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid exercise")
	}
	return nil
}

// IsInsert reports whether the input creates a new row.
func (in ExerciseInput) IsInsert() bool { return in.ID == nil }

// Row builds the exercise row for this input.
func (in ExerciseInput) Row() *Exercise {
	e := &Exercise{
		Title:         in.Title,
		Link:          normalizeOptional(in.Link),
		Notes:         normalizeOptional(in.Notes),
		PrimaryMuscle: in.PrimaryMuscle,
		TargetType:    in.TargetType,
		CreatedAt:     in.CreatedAt,
	}
	if in.ID != nil {
		e.ID = *in.ID
	}
	return e
}

// ExerciseInputFrom copies an existing row into an update payload.
func ExerciseInputFrom(e Exercise) ExerciseInput {
	id := e.ID
	return ExerciseInput{
		ID:            &id,
		Title:         e.Title,
		Link:          e.Link,
		Notes:         e.Notes,
		PrimaryMuscle: e.PrimaryMuscle,
		TargetType:    e.TargetType,
		CreatedAt:     e.CreatedAt,
	}
}

func normalizeOptional(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
