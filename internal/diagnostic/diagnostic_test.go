package diagnostic

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{
		Severity: SeverityWarning,
		Category: CategoryResolve,
		File:     "src/users.controller.ts",
		Line:     10,
		Message:  "cannot resolve module './missing'",
		Hint:     "check the import path",
	}
	assert.Equal(t, "src/users.controller.ts:10: warning[resolve]: cannot resolve module './missing'\n    hint: check the import path", d.String())

	doc := Diagnostic{Severity: SeverityError, Category: CategoryOpenAPICompliance, Message: "paths: missing"}
	assert.Equal(t, "error[openapi-compliance]: paths: missing", doc.String())
}

func TestCollector_Warn(t *testing.T) {
	c := NewCollector(false, false)
	c.Warn(CategoryParse, "test.ts", 5, "syntax error")
	c.WarnWithHint(CategoryParameterInvalid, "test.ts", 9, "path parameter 'q' is an object", "use @QueryParams")

	assert.Equal(t, 2, c.WarningCount())
	assert.Zero(t, c.ErrorCount())
	assert.False(t, c.HasErrors())
	assert.Equal(t, "use @QueryParams", c.Diagnostics()[1].Hint)
}

func TestCollector_StrictMode(t *testing.T) {
	c := NewCollector(true, false)
	c.Warn(CategoryRouteConflict, "test.ts", 1, "GET /users declared twice")

	assert.Equal(t, 1, c.ErrorCount())
	assert.Zero(t, c.WarningCount())
	assert.True(t, c.HasErrors())
}

func TestCollector_QuietMode(t *testing.T) {
	c := NewCollector(false, true)
	c.Warn(CategoryParse, "test.ts", 1, "syntax error")
	assert.Empty(t, c.Diagnostics())
}

func TestCollector_DiagnosticsSorted(t *testing.T) {
	c := NewCollector(false, false)
	c.Warn(CategoryParse, "b.ts", 3, "third")
	c.Warn(CategoryParse, "a.ts", 7, "second")
	c.Warn(CategoryOpenAPICompliance, "", 0, "first")
	c.Warn(CategoryParse, "b.ts", 3, "fourth")

	var messages []string
	for _, d := range c.Diagnostics() {
		messages = append(messages, d.Message)
	}
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, messages)
}

func TestCollector_Summary(t *testing.T) {
	assert.Empty(t, NewCollector(false, false).Summary())

	c := NewCollector(false, false)
	c.Warn(CategoryParse, "a.ts", 1, "warn1")
	assert.Equal(t, "1 warning", c.Summary())
	c.Warn(CategoryParse, "b.ts", 2, "warn2")
	assert.Equal(t, "2 warnings", c.Summary())

	strict := NewCollector(true, false)
	strict.Warn(CategoryParse, "a.ts", 1, "warn")
	assert.Equal(t, "1 error", strict.Summary())
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.Warn(CategoryParse, "", 0, "test")
	assert.False(t, c.HasErrors())
	assert.Empty(t, c.Summary())
	assert.Nil(t, c.Diagnostics())

	var buf bytes.Buffer
	require.NoError(t, c.Print(&buf))
	assert.Empty(t, buf.String())
}

func TestCollector_Print(t *testing.T) {
	c := NewCollector(false, false)
	c.Warn(CategoryParse, "test.ts", 10, "unexpected token")

	var buf bytes.Buffer
	require.NoError(t, c.Print(&buf))
	assert.Equal(t, "test.ts:10: warning[parse]: unexpected token\n1 warning\n", buf.String())
}

func TestError_UnwrapsToSentinel(t *testing.T) {
	cases := []struct {
		category Category
		want     error
	}{
		{CategoryDuplicate, ErrDuplicateDeclaration},
		{CategoryTypeUnsupported, ErrUnsupportedType},
		{CategoryConfigMissing, ErrMissingConfig},
		{CategoryMalformedDefault, ErrMalformedDefault},
	}
	for _, tc := range cases {
		t.Run(string(tc.category), func(t *testing.T) {
			err := fmt.Errorf("generate: %w", Errorf(tc.category, "boom"))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestError_At(t *testing.T) {
	e := Errorf(CategoryTypeUnsupported, "unknown type %s", "Set<string>")
	located := e.At("dto.ts", 7)
	assert.Equal(t, "dto.ts:7: unknown type Set<string>", located.Error())
	assert.Empty(t, e.File, "At must not mutate the receiver")

	again := located.At("other.ts", 1)
	assert.Equal(t, "dto.ts", again.File)

	var target *Error
	require.True(t, errors.As(fmt.Errorf("wrap: %w", located), &target))
	assert.Equal(t, SeverityError, target.Diagnostic().Severity)
}

func TestLocate(t *testing.T) {
	assert.NoError(t, Locate(nil, "a.ts", 1))

	wrapped := fmt.Errorf("compiling User: %w", Errorf(CategoryMalformedDefault, "Malformed default value x"))
	located := Locate(wrapped, "user.ts", 4)
	assert.ErrorIs(t, located, ErrMalformedDefault)
	var target *Error
	require.True(t, errors.As(located, &target))
	assert.Equal(t, "user.ts", target.File)
	assert.Equal(t, 4, target.Line)

	plain := errors.New("boom")
	assert.Equal(t, "user.ts:4: boom", Locate(plain, "user.ts", 4).Error())
	assert.ErrorIs(t, Locate(plain, "user.ts", 4), plain)
	assert.Same(t, plain, Locate(plain, "", 0))
}
