package activity_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/activity"
	"github.com/trezcool/masomo-portal/storage/localstore"
	testutil "github.com/trezcool/masomo-portal/tests"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		s     string
		limit int
		want  string
	}{
		{name: "short", s: "hello", limit: 50, want: "hello"},
		{name: "exact", s: "hello", limit: 5, want: "hello"},
		{name: "long", s: "hello world", limit: 5, want: "hello..."},
		{name: "runes", s: "héllo wörld", limit: 7, want: "héllo w..."},
		{name: "no limit", s: "hello", limit: 0, want: "hello"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, activity.Truncate(tc.s, tc.limit))
		})
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := activity.NewService(localstore.NewActivityRepository(testutil.NewStore(), core.NewSequenceIDGen("a")), 50)

	var ms int64
	activity.NowFunc = func() time.Time {
		ms += 1000
		return time.Unix(0, ms*int64(time.Millisecond))
	}
	defer func() { activity.NowFunc = time.Now }()

	act, err := svc.Record(ctx, "s1", activity.TypeChatAI, strings.Repeat("x", 60))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 50)+"...", act.Details)
	assert.Equal(t, int64(1000), act.Timestamp)

	_, err = svc.Record(ctx, "s2", activity.TypeLogin, "")
	require.NoError(t, err)
	_, err = svc.Record(ctx, "s1", activity.TypeChatTeacher, "hi")
	require.NoError(t, err)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3000), all[0].Timestamp, "newest first")

	mine, err := svc.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, activity.TypeChatTeacher, mine[0].ActivityType)
}
