package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/fingerprint"
)

func TestValidate_Complete(t *testing.T) {
	rec := Assemble(inventoryDoc, "").Record

	v := Validate(rec)

	assert.True(t, v.Valid, v.Errors)
	assert.Empty(t, v.Errors)
	assert.Empty(t, v.Warnings)
	assert.InDelta(t, 100.0, v.Completeness, 0.001)
}

func TestValidate_MissingRequired(t *testing.T) {
	rec := &domain.Record{Title: "Only a title"}

	v := Validate(rec)

	assert.False(t, v.Valid)
	assert.Contains(t, v.Errors, "missing required field: description")
	assert.Contains(t, v.Errors, "missing required field: problem_statement")
	assert.InDelta(t, 10.0, v.Completeness, 0.001)
	assert.NotEmpty(t, v.Warnings)
}

func TestValidate_Shape(t *testing.T) {
	rec := &domain.Record{
		Title:            "",
		Description:      "d",
		ProblemStatement: "p",
		ContentHash:      "NOT-A-HASH",
		Category:         domain.Category("robot"),
	}

	v := Validate(rec)

	assert.False(t, v.Valid)
	assert.Contains(t, v.Errors, "title failed required")
	assert.Contains(t, v.Errors, "content_hash failed fingerprint")
	assert.Contains(t, v.Errors, "category failed oneof")
}

func TestValidate_AcceptsRealFingerprint(t *testing.T) {
	rec := &domain.Record{
		Title:            "t",
		Description:      "d",
		ProblemStatement: "p",
		ContentHash:      fingerprint.Fingerprint("t", "d"),
		Category:         domain.CategoryAgent,
		Status:           domain.StatusQueue,
	}

	v := Validate(rec)
	assert.True(t, v.Valid, v.Errors)
}

func TestValidate_Nil(t *testing.T) {
	v := Validate(nil)
	assert.False(t, v.Valid)
}

func TestValidation_Diagnostics(t *testing.T) {
	v := Validation{Errors: []string{"e"}, Warnings: []string{"w"}}

	d := v.Diagnostics()

	assert.Equal(t, []domain.Diagnostic{
		{Severity: domain.SeverityWarning, Message: "e"},
		{Severity: domain.SeverityInfo, Message: "w"},
	}, d)
}
