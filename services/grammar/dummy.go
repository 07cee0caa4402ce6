package grammar

import (
	"context"
	"strings"

	"github.com/trezcool/masomo-portal/core/tutor"
)

// Dummy is used when no grammar service is configured: it only flags lowercase sentence starts.
type Dummy struct{}

var _ tutor.Checker = Dummy{} // interface compliance check

func (Dummy) Check(_ context.Context, text string) (tutor.Report, error) {
	report := tutor.Report{Details: []tutor.Issue{}, GrammarScore: 100}
	first := strings.TrimSpace(text)
	if first == "" {
		return report, nil
	}
	if r := []rune(first)[0]; strings.ToUpper(string(r)) != string(r) {
		report.Details = append(report.Details, tutor.Issue{
			Error:       "This sentence does not start with an uppercase letter.",
			Suggestions: []string{strings.ToUpper(string(r)) + string([]rune(first)[1:])},
			Context:     first,
		})
		report.IssuesFound = 1
		report.GrammarScore = 90
	}
	return report, nil
}
