package form

import (
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldValidityIsConjunction(t *testing.T) {
	f := NewField(FieldCode, true,
		Numeric("Must contain numbers only!"),
		Digits(6, "Must be six digits!"),
	)
	assert.Equal(t, Untouched, f.State())
	assert.True(t, f.Valid(), "unknown validity counts as valid")

	cases := []struct {
		value  string
		valid  bool
		errors []string
	}{
		{"123456", true, nil},
		{"12345", false, []string{"Must be six digits!"}},
		{"12a456", false, []string{"Must contain numbers only!"}},
		{"abc", false, []string{"Must contain numbers only!", "Must be six digits!"}},
		{"", false, nil},
	}
	for _, tc := range cases {
		f.Set(tc.value)
		assert.Equal(t, tc.valid, f.Valid(), "value %q", tc.value)
		assert.Equal(t, tc.errors, f.Errors(), "value %q", tc.value)
		assert.Equal(t, Editing, f.State())
	}

	f.Blur()
	assert.Equal(t, Settled, f.State())
}

func TestLinkValidator(t *testing.T) {
	link := Link("Invalid link!")
	for _, ok := range []string{"", "http://a.test", "https://a.test/x?y=1"} {
		assert.True(t, link.Validate(ok), ok)
	}
	for _, bad := range []string{"a.test", "ftp://a.test", " https://a.test", "HTTP://a.test"} {
		assert.False(t, link.Validate(bad), bad)
	}
}

func TestValidators(t *testing.T) {
	assert.False(t, Required("x").Validate(""))
	assert.True(t, Required("x").Validate(" "))
	assert.True(t, Email("x").Validate("a@b"))
	assert.False(t, Email("x").Validate("ab"))
	assert.True(t, MinLength(3, "x").Validate("äöü"))
	assert.False(t, MinLength(3, "x").Validate(""))
	assert.True(t, Numeric("x").Validate(""))
	assert.True(t, Numeric("x").Validate("1.5"))
	assert.True(t, OneOf("x", "a", "b").Validate("b"))
	assert.False(t, OneOf("x", "a", "b").Validate("c"))

	lenRule := FromRule(validation.Length(2, 4), "x")
	assert.True(t, lenRule.Validate("abc"))
	assert.False(t, lenRule.Validate("abcde"))
}

func TestCanSubmit(t *testing.T) {
	f := LoginForm()
	assert.False(t, f.CanSubmit(), "required fields are empty")

	f.Set(FieldEmail, "lifter@example.test")
	assert.False(t, f.CanSubmit())

	f.Set(FieldPassword, "x")
	assert.True(t, f.CanSubmit())

	f.Set(FieldEmail, "lifter")
	assert.False(t, f.CanSubmit())
	assert.Equal(t, []string{"Please enter a valid email!"}, f.Field(FieldEmail).Errors())
	assert.False(t, f.Submit())
	assert.Equal(t, Settled, f.Field(FieldPassword).State())
}

func TestSignupUsernameUsesOutsideValidity(t *testing.T) {
	f := SignupForm()
	f.Set(FieldUsername, "lifter")
	f.Set(FieldEmail, "lifter@example.test")
	f.Set(FieldPassword, "secret1")
	assert.True(t, f.CanSubmit())

	f.Field(FieldUsername).SetValid(false)
	assert.False(t, f.CanSubmit())
	assert.Equal(t, "lifter", f.Field(FieldUsername).String())
}

func TestProgramFormRoundTrip(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	link := "https://example.test"
	p := &model.Program{ID: 9, Title: "PPL", Link: &link, CreatedAt: created}

	f := ProgramForm(p)
	assert.Equal(t, map[string]string{FieldTitle: "PPL", FieldLink: link, FieldNotes: ""}, f.Values())
	assert.True(t, f.CanSubmit())

	f.Set(FieldLink, "")
	f.Set(FieldNotes, "deload")
	in := ProgramInput(f, p)
	require.NotNil(t, in.ID)
	assert.Equal(t, int64(9), *in.ID)
	assert.Nil(t, in.Link)
	assert.Equal(t, "deload", model.StringValue(in.Notes))
	assert.True(t, in.CreatedAt.Equal(created))
	assert.NoError(t, in.Validate())

	empty := ProgramForm(nil)
	assert.False(t, empty.CanSubmit())
	assert.Nil(t, ProgramInput(empty, nil).ID)
}

func TestExerciseForm(t *testing.T) {
	f := ExerciseForm(nil)
	assert.Equal(t, string(model.TargetIsolation), f.Field(FieldTargetType).String())

	f.Set(FieldTitle, "Curl")
	f.Set(FieldPrimaryMuscle, "3")
	require.True(t, f.CanSubmit())

	in, err := ExerciseInput(f, nil)
	require.NoError(t, err)
	require.NotNil(t, in.PrimaryMuscle)
	assert.Equal(t, int64(3), *in.PrimaryMuscle)
	assert.Equal(t, model.TargetIsolation, in.TargetType)

	f.Set(FieldTargetType, "cardio")
	assert.False(t, f.CanSubmit())
	_, err = ExerciseInput(f, nil)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryBadInput))

	f.Set(FieldTargetType, "compound")
	f.Set(FieldPrimaryMuscle, "1.5")
	_, err = ExerciseInput(f, nil)
	assert.Error(t, err)
}

func TestResetRestoresDefaults(t *testing.T) {
	f := ProgramForm(&model.Program{Title: "PPL"})
	f.Set(FieldTitle, "")
	f.Field(FieldTitle).Blur()

	f.Reset()
	assert.Equal(t, "PPL", f.Field(FieldTitle).String())
	assert.Equal(t, Untouched, f.Field(FieldTitle).State())
	assert.Nil(t, f.Field(FieldTitle).Value().Valid)
}

func TestEditorRebuildsOnEntityChange(t *testing.T) {
	e := NewEditor(ProgramForm)
	assert.Equal(t, "", e.Form().Field(FieldTitle).String())

	a := &model.Program{ID: 1, Title: "A"}
	b := &model.Program{ID: 2, Title: "B"}

	fa := e.Edit(a)
	assert.Equal(t, "A", fa.Field(FieldTitle).String())
	fa.Set(FieldTitle, "A edited")
	assert.Same(t, fa, e.Edit(a), "same entity keeps edits")
	assert.Equal(t, "A edited", e.Form().Field(FieldTitle).String())

	fb := e.Edit(b)
	assert.NotSame(t, fa, fb)
	assert.Equal(t, "B", fb.Field(FieldTitle).String())
	assert.Same(t, b, e.Entity())

	fn := e.Edit(nil)
	assert.Equal(t, "", fn.Field(FieldTitle).String())
}

func TestUnknownFieldIgnored(t *testing.T) {
	f := EmailForm()
	f.Set("nope", "x")
	assert.Nil(t, f.Field("nope"))
	assert.Len(t, f.Fields(), 1)
}
