package xcontext

import (
	"context"
	"net/http"

	"github.com/lootbox-lab/backend/config"
	"github.com/lootbox-lab/backend/pkg/logger"
	"gorm.io/gorm"
)

type (
	configsKey    struct{}
	loggerKey     struct{}
	dbKey         struct{}
	txKey         struct{}
	httpClientKey struct{}
)

type dbTransaction struct {
	tx       *gorm.DB
	finished bool
}

func WithConfigs(ctx context.Context, cfg config.Configs) context.Context {
	return context.WithValue(ctx, configsKey{}, cfg)
}

func Configs(ctx context.Context) config.Configs {
	cfg, ok := ctx.Value(configsKey{}).(config.Configs)
	if !ok {
		return config.Configs{}
	}

	return cfg
}

func WithLogger(ctx context.Context, l logger.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func Logger(ctx context.Context) logger.Logger {
	l, ok := ctx.Value(loggerKey{}).(logger.Logger)
	if !ok {
		return logger.NewLogger(logger.INFO)
	}

	return l
}

func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey{}, db)
}

// DB returns the current database handle. If a transaction was opened with
// WithDBTransaction and not yet finished, it is returned instead of the
// root handle.
func DB(ctx context.Context) *gorm.DB {
	if t, ok := ctx.Value(txKey{}).(*dbTransaction); ok && !t.finished {
		return t.tx
	}

	db, ok := ctx.Value(dbKey{}).(*gorm.DB)
	if !ok {
		return nil
	}

	return db
}

func WithDBTransaction(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey{}, &dbTransaction{tx: DB(ctx).Begin()})
}

func WithCommitDBTransaction(ctx context.Context) context.Context {
	if t, ok := ctx.Value(txKey{}).(*dbTransaction); ok && !t.finished {
		t.tx.Commit()
		t.finished = true
	}

	return ctx
}

func WithRollbackDBTransaction(ctx context.Context) context.Context {
	if t, ok := ctx.Value(txKey{}).(*dbTransaction); ok && !t.finished {
		t.tx.Rollback()
		t.finished = true
	}

	return ctx
}

type mergedContext struct {
	context.Context

	values context.Context
}

// Merge combines the cancellation and deadline of live with the values of
// values. Values stored directly on live still win.
func Merge(live, values context.Context) context.Context {
	return mergedContext{Context: live, values: values}
}

func (ctx mergedContext) Value(key any) any {
	if v := ctx.Context.Value(key); v != nil {
		return v
	}

	return ctx.values.Value(key)
}

func WithHTTPClient(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, httpClientKey{}, client)
}

func HTTPClient(ctx context.Context) *http.Client {
	client, ok := ctx.Value(httpClientKey{}).(*http.Client)
	if !ok {
		return http.DefaultClient
	}

	return client
}
