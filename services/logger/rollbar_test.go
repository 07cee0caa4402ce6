package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/user"
)

func TestRollbarLogger_print(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
		log   func(l *RollbarLogger)
		want  string
	}{
		{
			name: "warn with error and fields",
			log: func(l *RollbarLogger) {
				l.Warn("malformed collection", errors.New("bad json"), map[string]interface{}{"collection": "chats", "a": 1})
			},
			want: "WARN malformed collection error=\"bad json\" a=1 collection=chats\n",
		},
		{
			name: "user",
			log:  func(l *RollbarLogger) { l.Error("boom", user.User{ID: "u1", Username: "jane.smith"}) },
			want: "ERROR boom user=jane.smith\n",
		},
		{
			name: "debug hidden",
			log:  func(l *RollbarLogger) { l.Debug("message sent") },
			want: "",
		},
		{
			name:  "debug shown",
			debug: true,
			log:   func(l *RollbarLogger) { l.Debug("message sent", map[string]interface{}{"message": "m1"}) },
			want:  "DEBUG message sent message=m1\n",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			conf := core.NewTestConfig()
			conf.Debug = tc.debug
			l := NewRollbarLogger(log.New(&buf, "", 0), conf)
			tc.log(l)
			assert.Equal(t, tc.want, buf.String())
		})
	}
}
