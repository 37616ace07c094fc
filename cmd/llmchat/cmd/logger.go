package cmd

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger escreve no formato de console em w; WARN por padrão, DEBUG com --verbose.
func newLogger(w io.Writer, verbose bool) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	level := zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		level.SetLevel(zap.DebugLevel)
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core).Sugar()
}
