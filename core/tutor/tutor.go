package tutor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/activity"
	"github.com/trezcool/masomo-portal/core/user"
)

var (
	// errors
	ErrCheckerUnavailable = errors.New("failed to connect to the grammar checker service")
	ErrRateLimited        = errors.New("too many grammar checks, slow down")
)

// Issue is one grammar problem found in the text.
type Issue struct {
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions"`
	Context     string   `json:"context"`
}

// Report is the grammar checking service's answer.
type Report struct {
	IssuesFound  int     `json:"issues_found"`
	Details      []Issue `json:"details"`
	GrammarScore float64 `json:"grammar_score"`
}

// Checker checks the grammar of a text. Implementations talk to the external service.
type Checker interface {
	Check(ctx context.Context, text string) (Report, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, studentID, activityType, details string) (activity.Activity, error)
}

type Answer struct {
	Report Report `json:"report"`
	Reply  string `json:"reply"`
}

type Service struct {
	checker    Checker
	activities ActivityRecorder
	logger     core.Logger

	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewService(checker Checker, activities ActivityRecorder, logger core.Logger, conf core.TutorConfig) *Service {
	return &Service{
		checker:    checker,
		activities: activities,
		logger:     logger,
		limit:      rate.Limit(conf.RateLimit),
		burst:      conf.RateBurst,
		limiters:   make(map[string]*rate.Limiter),
	}
}

func (svc *Service) limiter(userID string) *rate.Limiter {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	l, ok := svc.limiters[userID]
	if !ok {
		l = rate.NewLimiter(svc.limit, svc.burst)
		svc.limiters[userID] = l
	}
	return l
}

// Ask checks the user's text and formats the tutor's reply. Students' questions are logged as activities.
func (svc *Service) Ask(ctx context.Context, usr user.User, text string) (Answer, error) {
	text = core.CleanString(text)
	if text == "" {
		return Answer{}, core.NewValidationError(
			errors.New("text is required"),
			core.FieldError{Field: "text", Error: "this field is required"},
		)
	}
	if !svc.limiter(usr.ID).Allow() {
		return Answer{}, ErrRateLimited
	}

	if usr.IsStudent() && svc.activities != nil {
		if _, err := svc.activities.Record(ctx, usr.ID, activity.TypeChatAI, text); err != nil {
			return Answer{}, errors.Wrap(err, "recording activity")
		}
	}

	report, err := svc.checker.Check(ctx, text)
	if err != nil {
		svc.logger.Warn("grammar check failed", err, usr)
		return Answer{}, errors.Wrap(ErrCheckerUnavailable, err.Error())
	}
	return Answer{Report: report, Reply: FormatReply(report)}, nil
}

// FormatReply renders a report as the tutor's chat message.
func FormatReply(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Found %d issue(s).\n", r.IssuesFound)
	for i, issue := range r.Details {
		suggestions := strings.Join(issue.Suggestions, ", ")
		if suggestions == "" {
			suggestions = "No suggestions"
		}
		fmt.Fprintf(&b, "\n%d. Error: %s\nSuggestion: %s\nContext: \"%s\"\n", i+1, issue.Error, suggestions, issue.Context)
	}
	fmt.Fprintf(&b, "\n🧠 Grammar Score: %s/100", strconv.FormatFloat(r.GrammarScore, 'f', -1, 64))
	return b.String()
}
