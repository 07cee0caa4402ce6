package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/masomo-portal/apps/api/echo"
	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/activity"
	"github.com/trezcool/masomo-portal/core/chat"
	"github.com/trezcool/masomo-portal/core/tutor"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/services/grammar"
	"github.com/trezcool/masomo-portal/storage/kv/inmem"
	"github.com/trezcool/masomo-portal/storage/localstore"
	testutil "github.com/trezcool/masomo-portal/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*Server
	usrRepo user.Repository
	actSvc  *activity.Service
}

// brokenChatsKV fails every access to the chats collection, like a storage quota exceeded.
type brokenChatsKV struct {
	*inmem.Store
}

func (kv brokenChatsKV) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.HasSuffix(key, localstore.CollectionChats) {
		return nil, errors.New("storage disabled")
	}
	return kv.Store.Get(ctx, key)
}

func (kv brokenChatsKV) Set(ctx context.Context, key string, value []byte) error {
	if strings.HasSuffix(key, localstore.CollectionChats) {
		return errors.New("quota exceeded")
	}
	return kv.Store.Set(ctx, key, value)
}

func setup(t *testing.T, brokenChats ...bool) testApp {
	t.Helper()
	conf := core.NewTestConfig()
	logger := core.NewNopLogger()

	var kv core.KVStore = inmem.New()
	if len(brokenChats) > 0 && brokenChats[0] {
		kv = brokenChatsKV{inmem.New()}
	}
	store := localstore.New(kv, localstore.Options{Namespace: "test", Logger: logger})

	// set up repos & services
	usrRepo := localstore.NewUserRepository(store, core.NewSequenceIDGen("u"))
	usrSvc := user.NewService(usrRepo, logger)
	actSvc := activity.NewService(localstore.NewActivityRepository(store, core.NewSequenceIDGen("a")), conf.Tutor.DetailsLimit)
	chatSvc := chat.NewService(localstore.NewChatRepository(store, core.NewSequenceIDGen("m"), nil), usrSvc, actSvc, logger, conf.Chat)
	tutorSvc := tutor.NewService(grammar.Dummy{}, actSvc, logger, conf.Tutor)

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	// set up server
	srv := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		ChatSvc:        chatSvc,
		TutorSvc:       tutorSvc,
		ActivitySvc:    actSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return testApp{Server: srv, usrRepo: usrRepo, actSvc: actSvc}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (app testApp) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func (app testApp) createUser(t *testing.T, name, uname, role string, isActive bool) user.User {
	return testutil.CreateUser(t, app.usrRepo, name, uname, uname+"@test.cd", "password", role, isActive)
}

func getToken(t *testing.T, app testApp, usr user.User) string {
	token, err := app.GenerateToken(app.GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runTests(t *testing.T, app testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func TestHome(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo API!", rec.Body.String())
}
