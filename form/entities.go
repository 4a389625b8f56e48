package form

import (
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/model"
)

// Field names.
const (
	FieldTitle         = "title"
	FieldLink          = "link"
	FieldNotes         = "notes"
	FieldPrimaryMuscle = "primary_muscle"
	FieldTargetType    = "target_type"
	FieldUsername      = "username"
	FieldEmail         = "email"
	FieldPassword      = "password"
	FieldCode          = "code"
)

func valid() *bool {
	ok := true
	return &ok
}

func entityFields(title string, link, notes *string) []*Field {
	return []*Field{
		NewField(FieldTitle, true, Required("A title is required!")).Init(title, nil),
		NewField(FieldLink, false, Link("Invalid link!")).Init(model.StringValue(link), nil),
		NewField(FieldNotes, false).Init(model.StringValue(notes), nil),
	}
}

// ProgramForm builds the create form when p is nil and the edit form otherwise.
func ProgramForm(p *model.Program) *Form {
	if p == nil {
		return New(entityFields("", nil, nil)...)
	}
	return New(entityFields(p.Title, p.Link, p.Notes)...)
}

// ProgramInput reads f into an upsert payload. editing is the row being edited,
// or nil for a new program.
func ProgramInput(f *Form, editing *model.Program) model.ProgramInput {
	v := f.Values()
	in := model.ProgramInput{
		Title: v[FieldTitle],
		Link:  model.OptionalString(v[FieldLink]),
		Notes: model.OptionalString(v[FieldNotes]),
	}
	if editing != nil {
		id := editing.ID
		in.ID = &id
		in.CreatedAt = editing.CreatedAt
	}
	return in
}

// ExerciseForm builds the create form when e is nil and the edit form
// otherwise. New exercises default to isolation.
func ExerciseForm(e *model.Exercise) *Form {
	title, target, muscle := "", string(model.TargetIsolation), ""
	var link, notes *string
	if e != nil {
		title, link, notes, target = e.Title, e.Link, e.Notes, string(e.TargetType)
		if e.PrimaryMuscle != nil {
			muscle = strconv.FormatInt(*e.PrimaryMuscle, 10)
		}
	}

	targets := make([]string, len(model.TargetTypes))
	for i, t := range model.TargetTypes {
		targets[i] = string(t)
	}

	fields := append(entityFields(title, link, notes),
		NewField(FieldPrimaryMuscle, false, Numeric("Select a muscle!")).Init(muscle, nil),
		NewField(FieldTargetType, true, OneOf("Select a target type!", targets...)).Init(target, nil),
	)
	return New(fields...)
}

// ExerciseInput reads f into an upsert payload. editing is the row being
// edited, or nil for a new exercise.
func ExerciseInput(f *Form, editing *model.Exercise) (model.ExerciseInput, error) {
	v := f.Values()
	target, err := model.ParseTargetType(v[FieldTargetType])
	if err != nil {
		return model.ExerciseInput{}, err
	}
	in := model.ExerciseInput{
		Title:      v[FieldTitle],
		Link:       model.OptionalString(v[FieldLink]),
		Notes:      model.OptionalString(v[FieldNotes]),
		TargetType: target,
	}
	if raw := strings.TrimSpace(v[FieldPrimaryMuscle]); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return model.ExerciseInput{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "primary muscle must be a muscle id")
		}
		in.PrimaryMuscle = &id
	}
	if editing != nil {
		id := editing.ID
		in.ID = &id
		in.CreatedAt = editing.CreatedAt
	}
	return in, nil
}

// SignupForm asks for a username, checked for uniqueness elsewhere through
// Field.SetValid, plus email and password.
func SignupForm() *Form {
	return New(
		NewField(FieldUsername, true),
		NewField(FieldEmail, true, Email("Enter a valid email address!")).Init("", valid()),
		NewField(FieldPassword, true, MinLength(6, "Must be at least 6 characters long!")).Init("", valid()),
	)
}

func LoginForm() *Form {
	return New(
		NewField(FieldEmail, true, Email("Please enter a valid email!")).Init("", valid()),
		NewField(FieldPassword, true, Required("Password is required!")).Init("", valid()),
	)
}

// EmailForm is the first step of a password reset.
func EmailForm() *Form {
	return New(
		NewField(FieldEmail, true, Email("Enter a valid email!")).Init("", valid()),
	)
}

// OTPForm takes the emailed six digit code.
func OTPForm() *Form {
	return New(
		NewField(FieldCode, true,
			Numeric("Must contain numbers only!"),
			Digits(6, "Must be six digits!"),
		).Init("", valid()),
	)
}

// PasswordForm sets the new password after a verified reset.
func PasswordForm() *Form {
	return New(
		NewField(FieldPassword, true, MinLength(6, "Must have at least 6 characters!")).Init("", valid()),
	)
}
