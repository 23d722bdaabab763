package cli

import (
	"arquitectura/internal/blob"
	"arquitectura/internal/config"
	"arquitectura/internal/core"
	"arquitectura/pkg/domain"
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger returns a development logger writing to w in debug mode and a
// production logger otherwise.
func newLogger(debug bool, w io.Writer) (*zap.Logger, error) {
	if !debug {
		return zap.NewProduction()
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zap.DebugLevel), zap.Development()), nil
}

// runtime is the set of collaborators a running command owns.
type runtime struct {
	store   domain.DocumentStore
	service *core.Service
	expvar  *core.ExpvarMetricsRecorder
}

func (r *runtime) Close(ctx context.Context) error {
	return r.store.Close(ctx)
}

// openRuntime connects the document and blob stores and assembles the service.
func openRuntime(ctx context.Context, cfg config.Config, logger *zap.Logger, reg prometheus.Registerer, trace io.Writer) (*runtime, error) {
	store, err := core.OpenDocumentStore(ctx, cfg.StorageConfig())
	if err != nil {
		return nil, err
	}
	blobs, err := blob.Open(ctx, cfg.BlobConfig())
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	prom, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	rt := &runtime{store: store, expvar: core.NewExpvarMetricsRecorder("")}

	opts := []core.ServiceOption{
		core.WithLogger(core.NewZapLogger(logger.Sugar())),
		core.WithMetricsRecorder(core.MultiMetricsRecorder{prom, rt.expvar}),
		core.WithBlobStore(blobs),
	}
	if cfg.Debug && trace != nil {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(trace)))
	}
	rt.service = core.NewService(store, opts...)
	return rt, nil
}
