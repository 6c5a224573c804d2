package descriptor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/gluonch/carrot2/errors"
)

// Resource is a located descriptor
type Resource interface {
	// Location identifies the resource for logs and errors
	Location() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Locator finds descriptor resources by file name. Locate reports found=false
// when no resource exists; an error means the lookup itself failed.
type Locator interface {
	Locate(ctx context.Context, name string) (res Resource, found bool, err error)
}

// DirLocator searches an ordered list of file systems
type DirLocator struct {
	roots []root
}

type root struct {
	label string
	fsys  fs.FS
}

// NewDirLocator creates a locator over directories, searched in order
func NewDirLocator(dirs ...string) *DirLocator {
	l := &DirLocator{}
	for _, dir := range dirs {
		l.roots = append(l.roots, root{label: dir, fsys: os.DirFS(dir)})
	}
	return l
}

// NewFSLocator creates a locator over file systems, searched in order
func NewFSLocator(fsys ...fs.FS) *DirLocator {
	l := &DirLocator{}
	for i, f := range fsys {
		l.roots = append(l.roots, root{label: fmt.Sprintf("fs[%d]", i), fsys: f})
	}
	return l
}

// Locate implements Locator
func (l *DirLocator) Locate(_ context.Context, name string) (Resource, bool, error) {
	if !fs.ValidPath(name) {
		return nil, false, nil
	}

	for _, r := range l.roots {
		info, err := fs.Stat(r.fsys, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, false, errors.WrapTransient(err, "DirLocator", "Locate", fmt.Sprintf("stat %s in %s", name, r.label))
		}
		if info.IsDir() {
			continue
		}
		return &fsResource{root: r, name: name}, true, nil
	}
	return nil, false, nil
}

type fsResource struct {
	root root
	name string
}

func (r *fsResource) Location() string {
	return r.root.label + "/" + r.name
}

func (r *fsResource) Open(context.Context) (io.ReadCloser, error) {
	return r.root.fsys.Open(r.name)
}

// KeyValueStore is the subset of a JetStream key-value bucket the KV locator uses
type KeyValueStore interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// KVLocator finds descriptors stored in a JetStream key-value bucket, keyed
// by file name.
type KVLocator struct {
	bucket string
	kv     KeyValueStore
}

// NewKVLocator creates a locator reading from kv. bucket is used for locations only.
func NewKVLocator(bucket string, kv KeyValueStore) *KVLocator {
	return &KVLocator{bucket: bucket, kv: kv}
}

// Locate implements Locator
func (l *KVLocator) Locate(ctx context.Context, name string) (Resource, bool, error) {
	entry, err := l.kv.Get(ctx, name)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) ||
			errors.Is(err, jetstream.ErrInvalidKey) {
			return nil, false, nil
		}
		return nil, false, errors.WrapTransient(err, "KVLocator", "Locate", fmt.Sprintf("get %s", name))
	}
	if entry.Operation() != jetstream.KeyValuePut {
		return nil, false, nil
	}

	return &kvResource{
		location: fmt.Sprintf("kv://%s/%s", l.bucket, name),
		value:    bytes.Clone(entry.Value()),
	}, true, nil
}

// Publish stores a descriptor under name
func (l *KVLocator) Publish(ctx context.Context, name string, data []byte) error {
	if _, err := l.kv.Put(ctx, name, data); err != nil {
		return errors.WrapTransient(err, "KVLocator", "Publish", fmt.Sprintf("put %s", name))
	}
	return nil
}

type kvResource struct {
	location string
	value    []byte
}

func (r *kvResource) Location() string {
	return r.location
}

func (r *kvResource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(r.value)), nil
}

// MultiLocator tries locators in order and returns the first match
type MultiLocator []Locator

// Locate implements Locator
func (m MultiLocator) Locate(ctx context.Context, name string) (Resource, bool, error) {
	for _, l := range m {
		res, found, err := l.Locate(ctx, name)
		if err != nil || found {
			return res, found, err
		}
	}
	return nil, false, nil
}
