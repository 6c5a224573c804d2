package descriptor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gluonch/carrot2/errors"
)

type MockKeyValue struct {
	mock.Mock
}

func (m *MockKeyValue) Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error) {
	args := m.Called(ctx, key)
	if entry := args.Get(0); entry != nil {
		return entry.(jetstream.KeyValueEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockKeyValue) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	args := m.Called(ctx, key, value)
	if rev := args.Get(0); rev != nil {
		return rev.(uint64), args.Error(1)
	}
	return 1, args.Error(1)
}

type MockKeyValueEntry struct {
	key       string
	value     []byte
	operation jetstream.KeyValueOp
}

func (m *MockKeyValueEntry) Bucket() string                  { return "descriptors" }
func (m *MockKeyValueEntry) Key() string                     { return m.key }
func (m *MockKeyValueEntry) Value() []byte                   { return m.value }
func (m *MockKeyValueEntry) Revision() uint64                { return 1 }
func (m *MockKeyValueEntry) Created() time.Time              { return time.Now() }
func (m *MockKeyValueEntry) Delta() uint64                   { return 0 }
func (m *MockKeyValueEntry) Operation() jetstream.KeyValueOp { return m.operation }

func readAll(t *testing.T, res Resource) string {
	t.Helper()
	rc, err := res.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestKVLocator_Locate(t *testing.T) {
	ctx := context.Background()
	kv := &MockKeyValue{}
	kv.On("Get", ctx, "dep.json").Return(&MockKeyValueEntry{
		key: "dep.json", value: []byte(`{"kind": "label"}`), operation: jetstream.KeyValuePut,
	}, nil)
	kv.On("Get", ctx, "gone.json").Return(&MockKeyValueEntry{
		key: "gone.json", operation: jetstream.KeyValueDelete,
	}, nil)
	kv.On("Get", ctx, "absent.json").Return(nil, jetstream.ErrKeyNotFound)
	kv.On("Get", ctx, "broken.json").Return(nil, fmt.Errorf("nats: connection closed"))

	locator := NewKVLocator("descriptors", kv)

	res, found, err := locator.Locate(ctx, "dep.json")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "kv://descriptors/dep.json", res.Location())
	assert.Equal(t, `{"kind": "label"}`, readAll(t, res))

	_, found, err = locator.Locate(ctx, "gone.json")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = locator.Locate(ctx, "absent.json")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = locator.Locate(ctx, "broken.json")
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))

	kv.AssertExpectations(t)
}

func TestKVLocator_ResolverUsesBucket(t *testing.T) {
	ctx := context.Background()
	kv := &MockKeyValue{}
	kv.On("Get", ctx, "stop.json").Return(nil, jetstream.ErrKeyNotFound)
	kv.On("Get", ctx, "stop.yaml").Return(&MockKeyValueEntry{
		key: "stop.yaml", value: []byte("kind: label\nconfig:\n  label: from-kv\n"), operation: jetstream.KeyValuePut,
	}, nil)
	kv.On("Put", ctx, "stop.yaml", mock.Anything).Return(uint64(2), nil)

	locator := NewKVLocator("descriptors", kv)
	require.NoError(t, locator.Publish(ctx, "stop.yaml", []byte("kind: label\n")))

	resolved, err := NewResolver(locator, testKinds(t)).Resolve(ctx, "stop")
	require.NoError(t, err)
	assert.Equal(t, "from-kv", build(t, resolved).Meta().Name)
	assert.Equal(t, "kv://descriptors/stop.yaml", resolved.Location)
}

func TestKVLocator_LookupFailureIsLoaderError(t *testing.T) {
	ctx := context.Background()
	kv := &MockKeyValue{}
	kv.On("Get", ctx, "dep.json").Return(nil, fmt.Errorf("nats: timeout"))

	_, err := NewResolver(NewKVLocator("descriptors", kv), testKinds(t)).Resolve(ctx, "dep")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrLoaderFailed))
}

func TestMultiLocator(t *testing.T) {
	ctx := context.Background()
	kv := &MockKeyValue{}
	kv.On("Get", ctx, "dep.json").Return(&MockKeyValueEntry{
		key: "dep.json", value: []byte(`{"kind": "label", "config": {"label": "kv"}}`), operation: jetstream.KeyValuePut,
	}, nil)
	kv.On("Get", ctx, "local.json").Return(nil, jetstream.ErrKeyNotFound)

	dirs := NewFSLocator(fstest.MapFS{
		"local.json": {Data: []byte(`{"kind": "label", "config": {"label": "local"}}`)},
	})
	locator := MultiLocator{dirs, NewKVLocator("descriptors", kv)}

	res, found, err := locator.Locate(ctx, "local.json")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "fs[0]/local.json", res.Location())

	res, found, err = locator.Locate(ctx, "dep.json")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "kv://descriptors/dep.json", res.Location())

	_, found, err = MultiLocator{dirs}.Locate(ctx, "none.json")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDirLocator_SkipsDirectoriesAndInvalidPaths(t *testing.T) {
	fsys := fstest.MapFS{
		"dep.json/inner": {Data: []byte("x")},
	}
	locator := NewFSLocator(fsys)

	_, found, err := locator.Locate(context.Background(), "dep.json")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = locator.Locate(context.Background(), "../dep.json")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDirLocator_OSDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dep.toml"), []byte("kind = \"label\"\n"), 0o600))

	resolved, err := NewResolver(NewDirLocator(t.TempDir(), dir), testKinds(t)).Resolve(context.Background(), "dep")
	require.NoError(t, err)
	assert.Equal(t, dir+"/dep.toml", resolved.Location)
}
