package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChemError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	chemErr := New(ErrCodeParseFailed, "molblock failed to parse", originalErr)

	require.NotNil(t, chemErr)
	assert.Equal(t, originalErr, errors.Unwrap(chemErr))
	assert.True(t, errors.Is(chemErr, originalErr))
}

func TestChemError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeMissingPKField,
			message:  "primary key field missing from schema",
			expected: "[ERR_101_MISSING_PK_FIELD] primary key field missing from schema",
		},
		{
			name:     "input error",
			code:     ErrCodeMissingPK,
			message:  "record has no pk value",
			expected: "[ERR_401_MISSING_PK] record has no pk value",
		},
		{
			name:     "toolkit error",
			code:     ErrCodeToolkit,
			message:  "avalon fingerprint failed",
			expected: "[ERR_501_TOOLKIT] avalon fingerprint failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestChemError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeParseFailed, "molblock A failed", nil)
	err2 := New(ErrCodeParseFailed, "molblock B failed", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestChemError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeParseFailed, "parse failed", nil)
	err2 := New(ErrCodeMissingPK, "missing pk", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestChemError_WithDetail_AddsContext(t *testing.T) {
	err := New(ErrCodeMissingPK, "record has no pk value", nil)

	err = err.WithDetail("line_number", "42")
	err = err.WithDetail("dataset_name", "sample.sdf")

	assert.Equal(t, "42", err.Details["line_number"])
	assert.Equal(t, "sample.sdf", err.Details["dataset_name"])
}

func TestChemError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeMissingPKField, CategoryConfig},
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeIndexIO, CategoryIndexIO},
		{ErrCodeNoIndexYet, CategoryIndexIO},
		{ErrCodeMissingPK, CategoryInput},
		{ErrCodeParseFailed, CategoryInput},
		{ErrCodeQueryParse, CategoryQueryParse},
		{ErrCodeToolkit, CategoryToolkit},
		{ErrCodeShutDown, CategoryLifecycle},
		{ErrCodeTooManyErrors, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestChemError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeTooManyErrors, SeverityFatal},
		{ErrCodeToolkitInit, SeverityFatal},
		{ErrCodeMissingPKField, SeverityFatal},
		{ErrCodeIndexIO, SeverityError},
		{ErrCodeMissingPK, SeverityWarning},
		{ErrCodeParseFailed, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestWrap_CreatesChemErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")

	chemErr := Wrap(ErrCodeInternal, originalErr)

	require.NotNil(t, chemErr)
	assert.Equal(t, ErrCodeInternal, chemErr.Code)
	assert.Equal(t, "something went wrong", chemErr.Message)
	assert.Equal(t, originalErr, chemErr.Cause)
}

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestToolkitError_CreatesToolkitCategoryError(t *testing.T) {
	err := ToolkitError("substructure match raised", nil)

	assert.Equal(t, CategoryToolkit, err.Category)
	assert.Equal(t, ErrCodeToolkit, err.Code)
}

func TestIndexIOError_CreatesIndexIOCategoryError(t *testing.T) {
	err := IndexIOError("cannot open index directory", nil)

	assert.Equal(t, CategoryIndexIO, err.Category)
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "too many consecutive errors",
			err:      New(ErrCodeTooManyErrors, "aborted ingest", nil),
			expected: true,
		},
		{
			name:     "toolkit failed to activate",
			err:      New(ErrCodeToolkitInit, "native library load failed", nil),
			expected: true,
		},
		{
			name:     "non-fatal error",
			err:      New(ErrCodeParseFailed, "skip this record", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

func TestGetCode_ExtractsCodeFromChemError(t *testing.T) {
	err := New(ErrCodeParseFailed, "failed", nil)
	assert.Equal(t, ErrCodeParseFailed, GetCode(err))
	assert.Equal(t, "", GetCode(errors.New("plain")))
}

func TestGetCategory_ExtractsCategoryFromChemError(t *testing.T) {
	err := New(ErrCodeToolkit, "failed", nil)
	assert.Equal(t, CategoryToolkit, GetCategory(err))
	assert.Equal(t, Category(""), GetCategory(errors.New("plain")))
}
