//go:build integration

package natsclient_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gluonch/carrot2/component"
	"github.com/gluonch/carrot2/descriptor"
	"github.com/gluonch/carrot2/errors"
	"github.com/gluonch/carrot2/natsclient"
)

type named struct {
	component.Base
}

func TestIntegration_KeyValueGetOrCreate(t *testing.T) {
	tc := natsclient.NewTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first, err := tc.Client.KeyValue(ctx, jetstream.KeyValueConfig{Bucket: "descriptors"})
	require.NoError(t, err)
	_, err = first.Put(ctx, "probe", []byte("1"))
	require.NoError(t, err)

	second, err := tc.Bucket(ctx, "descriptors")
	require.NoError(t, err)
	entry, err := second.Get(ctx, "probe")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), entry.Value())

	assert.True(t, tc.Client.Health().IsHealthy())
}

func TestIntegration_KVLocatorResolve(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithKVBuckets("descriptors"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := tc.Bucket(ctx, "descriptors")
	require.NoError(t, err)

	kinds := descriptor.NewKinds()
	require.NoError(t, kinds.Register(descriptor.KindConfig{
		Name: "named",
		Builder: func(raw json.RawMessage) (component.Component, error) {
			var cfg struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(raw, &cfg); err != nil {
				return nil, err
			}
			return &named{Base: component.NewBase(component.Metadata{Name: cfg.Name}, component.Capabilities{})}, nil
		},
	}))

	locator := descriptor.NewKVLocator("descriptors", kv)
	require.NoError(t, locator.Publish(ctx, "remote.yaml", []byte("kind: named\nconfig:\n  name: Remote\n")))

	resolver := descriptor.NewResolver(locator, kinds)

	resolved, err := resolver.Resolve(ctx, "remote")
	require.NoError(t, err)
	assert.Equal(t, "kv://descriptors/remote.yaml", resolved.Location)

	c, err := resolved.Factory()
	require.NoError(t, err)
	assert.Equal(t, "Remote", c.Meta().Name)

	require.NoError(t, kv.Delete(ctx, "remote.yaml"))
	_, err = resolver.Resolve(ctx, "remote")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDescriptorNotFound)
}
