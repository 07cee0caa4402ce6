package grammar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/tutor"
)

func TestClient_Check(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req checkRequest
		if r.Method != http.MethodPost || json.NewDecoder(r.Body).Decode(&req) != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if req.Text == "boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"issues_found":1,"details":[{"error":"Possible spelling mistake found.","suggestions":["their"],"context":"` + req.Text + `"}],"grammar_score":80}`))
	}))
	defer srv.Close()

	tests := []struct {
		name    string
		token   string
		text    string
		want    tutor.Report
		wantErr bool
	}{
		{
			name:  "ok",
			token: "tok",
			text:  "thier book",
			want: tutor.Report{
				IssuesFound:  1,
				Details:      []tutor.Issue{{Error: "Possible spelling mistake found.", Suggestions: []string{"their"}, Context: "thier book"}},
				GrammarScore: 80,
			},
		},
		{name: "unauthorized", token: "", text: "hi", wantErr: true},
		{name: "server error", token: "tok", text: "boom", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewClient(core.TutorConfig{URL: srv.URL, AccessToken: tc.token})
			got, err := c.Check(context.Background(), tc.text)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClient_Check_unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(core.TutorConfig{URL: url}).Check(context.Background(), "hi")
	assert.Error(t, err)
}

func TestClient_Check_contextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewClient(core.TutorConfig{URL: srv.URL, Timeout: 10 * time.Second}).Check(ctx, "hi")
	assert.Error(t, err)
	assert.Less(t, int64(time.Since(start)), int64(5*time.Second), "the request follows ctx, not the client timeout")
}

func TestDummy(t *testing.T) {
	r, err := Dummy{}.Check(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Equal(t, 1, r.IssuesFound)
	assert.Equal(t, "Hello there", r.Details[0].Suggestions[0])

	r, err = Dummy{}.Check(context.Background(), "Hello there")
	require.NoError(t, err)
	assert.Equal(t, 0, r.IssuesFound)
	assert.Equal(t, float64(100), r.GrammarScore)
}
