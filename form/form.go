// Package form models editable form fields: a value, its validity and the
// validators that decide it. Forms gate submission on every field.
package form

import "slices"

// Value is the state of one input. Valid is nil until the field is edited,
// unless the form initialises it.
type Value struct {
	Value string
	Valid *bool
}

// IsValid treats an unknown validity as valid.
func (v Value) IsValid() bool {
	return v.Valid == nil || *v.Valid
}

// State is the edit lifecycle of a field.
type State int

const (
	Untouched State = iota
	Editing
	Settled
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Settled:
		return "settled"
	default:
		return "untouched"
	}
}

// Field is one input of a Form.
type Field struct {
	Name       string
	Required   bool
	Validators []Validator

	value Value
	state State
}

// NewField builds an untouched field with an empty value.
func NewField(name string, required bool, validators ...Validator) *Field {
	return &Field{Name: name, Required: required, Validators: validators}
}

// Init sets the starting value without marking the field as edited. A nil
// valid leaves validity unknown.
func (f *Field) Init(value string, valid *bool) *Field {
	f.value = Value{Value: value, Valid: valid}
	f.state = Untouched
	return f
}

// Set records an edit and recomputes validity from every validator.
func (f *Field) Set(value string) {
	ok := f.check(value)
	f.value = Value{Value: value, Valid: &ok}
	f.state = Editing
}

// SetValid overrides validity from an outside check, such as a uniqueness
// lookup. The value is kept.
func (f *Field) SetValid(ok bool) {
	f.value.Valid = &ok
}

// Blur settles the field.
func (f *Field) Blur() {
	f.state = Settled
}

func (f *Field) Value() Value  { return f.value }
func (f *Field) String() string { return f.value.Value }
func (f *Field) State() State   { return f.state }
func (f *Field) Valid() bool    { return f.value.IsValid() }

// Errors returns the messages of failing validators. It is empty while the
// value is empty.
func (f *Field) Errors() []string {
	if f.value.Value == "" {
		return nil
	}
	var out []string
	for _, v := range f.Validators {
		if !v.Validate(f.value.Value) {
			out = append(out, v.Message)
		}
	}
	return out
}

func (f *Field) check(value string) bool {
	for _, v := range f.Validators {
		if !v.Validate(value) {
			return false
		}
	}
	return true
}

// Form is an ordered set of fields.
type Form struct {
	fields   []*Field
	defaults []Value
}

// New returns a form holding fields in order. The current field values become
// the defaults restored by Reset.
func New(fields ...*Field) *Form {
	defaults := make([]Value, len(fields))
	for i, fd := range fields {
		defaults[i] = fd.value
	}
	return &Form{fields: fields, defaults: defaults}
}

// Field returns the field called name, or nil.
func (f *Form) Field(name string) *Field {
	i := slices.IndexFunc(f.fields, func(fd *Field) bool { return fd.Name == name })
	if i < 0 {
		return nil
	}
	return f.fields[i]
}

// Fields returns the fields in order.
func (f *Form) Fields() []*Field {
	return slices.Clone(f.fields)
}

// Set edits the named field. Unknown names are ignored.
func (f *Form) Set(name, value string) {
	if fd := f.Field(name); fd != nil {
		fd.Set(value)
	}
}

// CanSubmit reports whether every field is valid and every required field has
// a value. Untouched fields count as valid but an empty required one still
// blocks.
func (f *Form) CanSubmit() bool {
	for _, fd := range f.fields {
		if !fd.Valid() {
			return false
		}
		if fd.Required && fd.value.Value == "" {
			return false
		}
	}
	return true
}

// Submit settles every field and reports whether the form may be submitted.
func (f *Form) Submit() bool {
	for _, fd := range f.fields {
		fd.Blur()
	}
	return f.CanSubmit()
}

// Values returns field values by name.
func (f *Form) Values() map[string]string {
	out := make(map[string]string, len(f.fields))
	for _, fd := range f.fields {
		out[fd.Name] = fd.value.Value
	}
	return out
}

// Reset puts every field back to its default value and untouched state.
func (f *Form) Reset() {
	for i, fd := range f.fields {
		fd.value = f.defaults[i]
		fd.state = Untouched
	}
}

// Editor owns the form of the entity being edited and rebuilds it, defaults
// included, whenever a different entity is loaded.
type Editor[T any] struct {
	build   func(entity *T) *Form
	current *T
	form    *Form
}

// NewEditor starts with the form for a new entity.
func NewEditor[T any](build func(entity *T) *Form) *Editor[T] {
	return &Editor[T]{build: build, form: build(nil)}
}

// Edit returns the form for entity. The same pointer keeps the form and its
// edits; a different one, nil included, gets a fresh form.
func (e *Editor[T]) Edit(entity *T) *Form {
	if entity != e.current {
		e.current = entity
		e.form = e.build(entity)
	}
	return e.form
}

func (e *Editor[T]) Form() *Form { return e.form }
func (e *Editor[T]) Entity() *T  { return e.current }
