package localstore

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/storage/kv/inmem"
)

var errBackendDown = errors.New("backend down")

// failingKV fails every call with errBackendDown.
type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, errBackendDown }
func (failingKV) Set(context.Context, string, []byte) error   { return errBackendDown }
func (failingKV) Close() error                                { return nil }

// readOnlyKV reads from an in-memory backend but refuses writes, like a full quota.
type readOnlyKV struct {
	*inmem.Store
}

func (readOnlyKV) Set(context.Context, string, []byte) error { return errBackendDown }

type record struct {
	ID   string `json:"id"`
	Tags []int  `json:"tags"`
}

func newTestStore(opts Options) (*Store, *inmem.Store) {
	kv := inmem.New()
	return New(kv, opts), kv
}

func TestStore_roundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(Options{Namespace: "test"})

	in := []record{{ID: "1", Tags: []int{1, 2}}, {ID: "2", Tags: []int{}}}
	require.NoError(t, s.Write(ctx, CollectionReports, in))

	var out []record
	require.NoError(t, s.Read(ctx, CollectionReports, &out))
	assert.Equal(t, in, out)
}

func TestStore_Read(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		stored  string
		strict  bool
		want    []record
		wantErr error
	}{
		{name: "missing collection", want: []record{}},
		{name: "null", stored: "null", want: []record{}},
		{name: "empty array", stored: "[]", want: []record{}},
		{name: "records", stored: `[{"id":"1","tags":[3]}]`, want: []record{{ID: "1", Tags: []int{3}}}},
		{name: "malformed", stored: `[{"id":`, want: []record{}},
		{name: "malformed strict", stored: `{"id":"1"}`, strict: true, want: []record{}, wantErr: core.ErrMalformedRecord},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, kv := newTestStore(Options{Namespace: "test", Strict: tc.strict})
			if tc.stored != "" {
				require.NoError(t, kv.Set(ctx, "test:"+CollectionReports, []byte(tc.stored)))
			}

			out := []record{{ID: "stale"}}
			err := s.Read(ctx, CollectionReports, &out)
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, errors.Cause(err))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestStore_Read_badDestination(t *testing.T) {
	s, _ := newTestStore(Options{})
	var out record
	assert.Error(t, s.Read(context.Background(), CollectionReports, &out))
}

func TestStore_storageErrors(t *testing.T) {
	ctx := context.Background()
	s := New(failingKV{}, Options{})

	var out []record
	err := s.Read(ctx, CollectionChats, &out)
	require.Error(t, err)
	assert.True(t, core.IsStorageUnavailable(err))
	assert.Equal(t, errBackendDown, errors.Cause(err).(*core.StorageError).Err)

	err = s.Write(ctx, CollectionChats, []record{})
	require.Error(t, err)
	assert.True(t, core.IsStorageUnavailable(err))
	assert.Equal(t, "write", errors.Cause(err).(*core.StorageError).Op)
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(Options{Namespace: "test"})

	add := func(id string) error {
		var recs []record
		return s.Update(ctx, CollectionReports, &recs, func() (bool, error) {
			recs = append(recs, record{ID: id})
			return true, nil
		})
	}
	require.NoError(t, add("1"))
	require.NoError(t, add("2"))

	// unchanged: nothing written
	var recs []record
	require.NoError(t, s.Update(ctx, CollectionReports, &recs, func() (bool, error) {
		recs = nil
		return false, nil
	}))

	var out []record
	require.NoError(t, s.Read(ctx, CollectionReports, &out))
	assert.Equal(t, []record{{ID: "1"}, {ID: "2"}}, out)
}

func TestStore_namespaces(t *testing.T) {
	ctx := context.Background()
	kv := inmem.New()
	s1 := New(kv, Options{Namespace: "school1"})
	s2 := New(kv, Options{Namespace: "school2"})

	require.NoError(t, s1.Write(ctx, CollectionSubjects, []string{"maths"}))
	var out []string
	require.NoError(t, s2.Read(ctx, CollectionSubjects, &out))
	assert.Empty(t, out)
}
