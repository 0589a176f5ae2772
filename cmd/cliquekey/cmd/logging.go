package cmd

import (
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func registerLogFlags(flags *pflag.FlagSet) {
	flags.String("log.level", "info", "the minimum log level to log")
	flags.String("log.encoding", "console", "configures log encoding. can either be 'console' or 'json'")
	flags.String("log.output", "stderr", "can be stdout, stderr, or a filename")
	flags.Bool("log.caller", false, "if true, log function filename and line number")
}

// newLogger creates a logger configured by the log.* settings.
func newLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(vip.GetString("log.level"))
	if err != nil {
		return nil, Error.Wrap(err)
	}

	output := vip.GetString("log.output")
	return zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		DisableCaller:     !vip.GetBool("log.caller"),
		DisableStacktrace: true,
		Encoding:          vip.GetString("log.encoding"),
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "T",
			LevelKey:       "L",
			NameKey:        "N",
			CallerKey:      "C",
			MessageKey:     "M",
			StacktraceKey:  "S",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{output},
	}.Build()
}
