package markdown

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// LowCompleteness is the score below which a warning is raised.
const LowCompleteness = 50.0

// Validation grades a parsed record.
type Validation struct {
	Valid        bool
	Errors       []string
	Warnings     []string
	Completeness float64
}

// recordShape holds the constraints on a record's identity fields.
type recordShape struct {
	Title       string `validate:"required,max=500"`
	ContentHash string `validate:"omitempty,fingerprint"`
	Category    string `validate:"omitempty,oneof=platform agent"`
	Status      string `validate:"omitempty,oneof=queue processed in_progress completed failed"`
}

var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

var validate = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("fingerprint", func(fl validator.FieldLevel) bool {
		return hashPattern.MatchString(fl.Field().String())
	})
	return v
})

// Validate checks required fields and scores how complete a record is
// over ten headline fields.
func Validate(r *domain.Record) Validation {
	v := Validation{Valid: true}
	if r == nil {
		return Validation{Errors: []string{"record is nil"}}
	}

	shape := recordShape{
		Title:       r.Title,
		ContentHash: r.ContentHash,
		Category:    string(r.Category),
		Status:      string(r.Status),
	}
	if err := validate().Struct(shape); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			v.Errors = append(v.Errors, err.Error())
		}
		for _, fe := range verrs {
			v.Errors = append(v.Errors, fmt.Sprintf("%s failed %s", fieldName(fe.Field()), fe.Tag()))
		}
		v.Valid = false
	}

	required := []struct {
		name  string
		value string
	}{
		{FieldDescription, r.Description},
		{FieldProblemStatement, r.ProblemStatement},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			v.Errors = append(v.Errors, "missing required field: "+f.name)
			v.Valid = false
		}
	}

	present := []bool{
		strings.TrimSpace(r.Title) != "",
		strings.TrimSpace(r.Description) != "",
		strings.TrimSpace(r.ProblemStatement) != "",
		len(r.TargetUsers) > 0,
		len(r.UserStories) > 0,
		len(r.Requirements) > 0,
		len(r.AcceptanceCriteria) > 0,
		len(r.TechnicalRequirements) > 0,
		len(r.SuccessMetrics) > 0,
		strings.TrimSpace(r.Timeline) != "",
	}
	n := 0
	for _, ok := range present {
		if ok {
			n++
		}
	}
	v.Completeness = float64(n) / float64(len(present)) * 100

	if v.Completeness < LowCompleteness {
		v.Warnings = append(v.Warnings, "low completeness score, consider adding more detail")
	}

	return v
}

// Diagnostics converts validation findings into diagnostics.
func (v Validation) Diagnostics() []domain.Diagnostic {
	out := make([]domain.Diagnostic, 0, len(v.Errors)+len(v.Warnings))
	for _, e := range v.Errors {
		out = append(out, domain.Diagnostic{Severity: domain.SeverityWarning, Message: e})
	}
	for _, w := range v.Warnings {
		out = append(out, domain.Diagnostic{Severity: domain.SeverityInfo, Message: w})
	}
	return out
}

func fieldName(goName string) string {
	switch goName {
	case "ContentHash":
		return "content_hash"
	default:
		return strings.ToLower(goName)
	}
}
