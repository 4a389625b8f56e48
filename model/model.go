// Package model holds the entities exchanged with the remote data service.
//
// All rows except Muscle are owned by a single user. The client only ever holds
// ephemeral copies; the remote service is the source of truth.
package model

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the identity issued by the auth subsystem.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile is 1:1 with User and carries the unique display username.
type Profile struct {
	bun.BaseModel `bun:"table:profiles" json:"-"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id,omitempty"`
	UserID    string    `bun:"user_id,notnull,unique" json:"user_id"`
	Username  string    `bun:"username,notnull,unique" json:"username"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Program is a named set of routines owned by a user.
type Program struct {
	bun.BaseModel `bun:"table:programs" json:"-"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Title     string    `bun:"title,notnull" json:"title"`
	Link      *string   `bun:"link" json:"link"`
	Notes     *string   `bun:"notes" json:"notes"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
	CreatedBy string    `bun:"created_by,notnull" json:"created_by,omitempty"`
}

// Exercise is a single movement definition owned by a user.
type Exercise struct {
	bun.BaseModel `bun:"table:exercises" json:"-"`

	ID            int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Title         string     `bun:"title,notnull" json:"title"`
	Link          *string    `bun:"link" json:"link"`
	Notes         *string    `bun:"notes" json:"notes"`
	PrimaryMuscle *int64     `bun:"primary_muscle" json:"primary_muscle"`
	TargetType    TargetType `bun:"target_type,notnull" json:"target_type"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull" json:"updated_at"`
	CreatedBy     string     `bun:"created_by,notnull" json:"created_by,omitempty"`
}

// Muscle is read-only reference data shared by every user.
type Muscle struct {
	bun.BaseModel `bun:"table:muscles" json:"-"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Title     string    `bun:"title,notnull" json:"title"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Owned is implemented by rows scoped to a single user.
type Owned interface {
	GetID() int64
	SetID(id int64)
	Owner() string
	SetOwner(userID string)
	Stamp(now time.Time, insert bool)
	Created() time.Time
	// KeepCreated restores the stored creation time on rows that carry none.
	KeepCreated(stored time.Time)
}

func (p *Program) GetID() int64           { return p.ID }
func (p *Program) SetID(id int64)         { p.ID = id }
func (p *Program) Owner() string          { return p.CreatedBy }
func (p *Program) SetOwner(userID string) { p.CreatedBy = userID }

// Stamp sets UpdatedAt and, for inserts, CreatedAt. Updates keep whatever
// CreatedAt the payload carries; a zero value leaves the stored one untouched.
func (p *Program) Stamp(now time.Time, insert bool) {
	p.UpdatedAt = now
	if insert {
		p.CreatedAt = now
	}
}

func (p *Program) KeepCreated(stored time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = stored
	}
}

func (e *Exercise) GetID() int64           { return e.ID }
func (e *Exercise) SetID(id int64)         { e.ID = id }
func (e *Exercise) Owner() string          { return e.CreatedBy }
func (e *Exercise) SetOwner(userID string) { e.CreatedBy = userID }

// Stamp sets UpdatedAt and, for inserts, CreatedAt.
func (e *Exercise) Stamp(now time.Time, insert bool) {
	e.UpdatedAt = now
	if insert {
		e.CreatedAt = now
	}
}

func (e *Exercise) KeepCreated(stored time.Time) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = stored
	}
}

// Listed exposes the fields list views filter and sort on.
type Listed interface {
	ListTitle() string
	Created() time.Time
	Updated() time.Time
}

func (p Program) ListTitle() string  { return p.Title }
func (p Program) Created() time.Time { return p.CreatedAt }
func (p Program) Updated() time.Time { return p.UpdatedAt }

func (e Exercise) ListTitle() string  { return e.Title }
func (e Exercise) Created() time.Time { return e.CreatedAt }
func (e Exercise) Updated() time.Time { return e.UpdatedAt }

// StringValue dereferences an optional string, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// OptionalString maps "" to nil so empty form values persist as absent.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
