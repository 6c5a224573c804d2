package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/gluonch/carrot2/componentregistry"
	"github.com/gluonch/carrot2/config"
	"github.com/gluonch/carrot2/controller"
	"github.com/gluonch/carrot2/descriptor"
	"github.com/gluonch/carrot2/errors"
	"github.com/gluonch/carrot2/metric"
	"github.com/gluonch/carrot2/natsclient"
	"github.com/gluonch/carrot2/pkg/retry"
	"github.com/gluonch/carrot2/process"
)

// app is a controller assembled from configuration
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	kinds   *descriptor.Kinds
	ctrl    *controller.Controller
	metrics *metric.MetricsRegistry

	nats      *natsclient.Client
	kvLocator *descriptor.KVLocator
}

// newApp builds the kind catalog, descriptor locators and resolver, then
// registers the configured components and processes.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, kinds: descriptor.NewKinds()}

	if err := componentregistry.Register(a.kinds); err != nil {
		return nil, fmt.Errorf("register kinds: %w", err)
	}
	logger.Debug("Component kinds registered", "kinds", a.kinds.Names())

	if cfg.Metrics.Enabled {
		a.metrics = metric.NewMetricsRegistry()
	}

	if cfg.NATS.URL != "" {
		if err := a.connectNATS(ctx); err != nil {
			return nil, err
		}
	}

	locators := descriptor.MultiLocator{descriptor.NewDirLocator(cfg.Autoload.Paths...)}
	if a.kvLocator != nil {
		locators = append(locators, a.kvLocator)
	}

	loaders, err := descriptor.LoadersFor(cfg.Autoload.Extensions...)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	resolver := descriptor.NewResolver(locators, a.kinds,
		descriptor.WithLoaders(loaders...),
		descriptor.WithLogger(logger),
	)

	opts := []controller.Option{
		controller.WithMaxIdle(cfg.Pool.MaxIdle),
		controller.WithResolver(resolver),
		controller.WithAutoload(cfg.Autoload.Enabled),
		controller.WithLogger(logger),
	}
	if a.metrics != nil {
		opts = append(opts, controller.WithMetrics(a.metrics))
	}
	a.ctrl = controller.New(opts...)

	if err := a.registerComponents(); err != nil {
		a.close(ctx)
		return nil, err
	}
	if err := a.addProcesses(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) connectNATS(ctx context.Context) error {
	opts := []natsclient.ClientOption{
		natsclient.WithName(appName),
		natsclient.WithTimeout(a.cfg.NATS.Timeout),
		natsclient.WithLogger(a.logger),
	}
	if a.metrics != nil {
		opts = append(opts, natsclient.WithMetrics(a.metrics))
	}
	client, err := natsclient.NewClient(a.cfg.NATS.URL, opts...)
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.ConnectWithRetry(ctx, retry.DefaultConfig()); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	kv, err := client.KeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      a.cfg.NATS.Bucket,
		Description: "carrot2 component descriptors",
	})
	if err != nil {
		_ = client.Close(ctx)
		return fmt.Errorf("open descriptor bucket: %w", err)
	}

	a.nats = client
	a.kvLocator = descriptor.NewKVLocator(a.cfg.NATS.Bucket, kv)
	return nil
}

func (a *app) registerComponents() error {
	for _, cc := range a.cfg.Components {
		kind, ok := a.kinds.Lookup(cc.Kind)
		if !ok {
			return errors.WrapInvalid(errors.Errorf(errors.ErrInvalidConfig, "component %q: unknown kind %q", cc.ID, cc.Kind),
				"app", "registerComponents", "kind lookup")
		}

		var raw json.RawMessage
		if len(cc.Config) > 0 {
			data, err := json.Marshal(cc.Config)
			if err != nil {
				return errors.WrapInvalid(err, "app", "registerComponents", fmt.Sprintf("%s config encoding", cc.ID))
			}
			raw = data
		}

		factory, err := kind.Factory(raw)
		if err != nil {
			return fmt.Errorf("component %s: %w", cc.ID, err)
		}
		if err := a.ctrl.RegisterFactory(cc.ID, factory); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) addProcesses(ctx context.Context) error {
	for _, pc := range a.cfg.Processes {
		name := pc.Name
		if name == "" {
			name = pc.ID
		}
		p := process.NewPipeline(name, pc.Stages...).WithDescription(pc.Description)
		if err := a.ctrl.AddProcess(ctx, pc.ID, p); err != nil {
			return fmt.Errorf("process %s: %w", pc.ID, err)
		}
	}
	return nil
}

func (a *app) close(ctx context.Context) {
	if a.nats != nil {
		if err := a.nats.Close(ctx); err != nil {
			a.logger.Warn("NATS close failed", "error", err)
		}
	}
}
