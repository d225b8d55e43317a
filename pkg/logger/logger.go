// Package logger exposes a process-wide zap logger together with field
// helpers so call sites don't import zap directly.
package logger

import (
	"time"

	"go.uber.org/zap"
)

var Log *zap.Logger = zap.NewNop()

// Init replaces the no-op default with a production logger.
func Init() error {
	l, err := zap.NewProduction()
	if err != nil {
		return err
	}
	Log = l
	return nil
}

func Sync() {
	_ = Log.Sync()
}

func String(key, value string) zap.Field {
	return zap.String(key, value)
}

func Int(key string, value int) zap.Field {
	return zap.Int(key, value)
}

func Int64(key string, value int64) zap.Field {
	return zap.Int64(key, value)
}

func Duration(key string, value time.Duration) zap.Field {
	return zap.Duration(key, value)
}

func Error(err error) zap.Field {
	return zap.Error(err)
}
