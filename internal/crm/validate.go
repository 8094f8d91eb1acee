package crm

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/sells-group/leadledger/internal/model"
)

// MinSummaryLength is the shortest trimmed summary a commit accepts.
const MinSummaryLength = 3

// commitInput is the subset of a lead checked before it reaches the ledger.
type commitInput struct {
	Status  string `validate:"actionable"`
	Summary string `validate:"summary"`
}

var fieldMessages = map[string]string{
	"Status":  "select a status",
	"Summary": "summary too short",
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Only statuses that route to a partition are accepted.
	_ = v.RegisterValidation("actionable", func(fl validator.FieldLevel) bool {
		st := model.Status(fl.Field().String())
		return st.IsTerminal() || st.IsQueued()
	})
	_ = v.RegisterValidation("summary", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(fl.Field().String()) >= MinSummaryLength
	})
	return v
}

// validateCommit returns a *model.ValidationError naming the first failing
// field, status before summary.
func (s *Service) validateCommit(lead model.Lead) error {
	in := commitInput{
		Status:  string(lead.Status),
		Summary: strings.TrimSpace(lead.Summary),
	}
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &model.ValidationError{Field: "lead", Message: err.Error()}
	}
	first := verrs[0]
	for _, fe := range verrs {
		if fe.Field() == "Status" {
			first = fe
			break
		}
	}
	return &model.ValidationError{
		Field:   strings.ToLower(first.Field()),
		Message: fieldMessages[first.Field()],
	}
}
