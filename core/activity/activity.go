package activity

import (
	"context"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
)

// Activity types
const (
	TypeChatAI      = "chat_ai"
	TypeChatTeacher = "chat_teacher"
	TypeLogin       = "login"
	TypeLogout      = "logout"
)

var NowFunc = time.Now // mockable

type Activity struct {
	ID           string `json:"id"`
	StudentID    string `json:"studentId"`
	ActivityType string `json:"activityType"`
	Details      string `json:"details,omitempty"`
	Timestamp    int64  `json:"timestamp"` // ms since epoch
}

type (
	Repository interface {
		AddActivity(ctx context.Context, act Activity) (Activity, error)
		QueryActivities(ctx context.Context) ([]Activity, error)
	}

	Service struct {
		repo         Repository
		detailsLimit int
	}
)

func NewService(repo Repository, detailsLimit int) *Service {
	return &Service{repo: repo, detailsLimit: detailsLimit}
}

// Record stores a new activity for the student. Details longer than the configured limit are truncated.
func (svc *Service) Record(ctx context.Context, studentID, activityType, details string) (Activity, error) {
	act, err := svc.repo.AddActivity(ctx, Activity{
		StudentID:    studentID,
		ActivityType: activityType,
		Details:      Truncate(core.CleanString(details), svc.detailsLimit),
		Timestamp:    core.Clock(NowFunc).UnixMilli(),
	})
	return act, errors.Wrap(err, "adding activity")
}

// List returns the activities, newest first, optionally restricted to one student.
func (svc *Service) List(ctx context.Context, studentID string) ([]Activity, error) {
	all, err := svc.repo.QueryActivities(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying activities")
	}
	acts := make([]Activity, 0, len(all))
	for _, a := range all {
		if studentID == "" || a.StudentID == studentID {
			acts = append(acts, a)
		}
	}
	sort.SliceStable(acts, func(i, j int) bool { return acts[i].Timestamp > acts[j].Timestamp })
	return acts, nil
}

// Truncate cuts s to limit runes, marking the cut with "...". A limit <= 0 disables truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
