//go:build unix

// Command myshell is an interactive POSIX-style shell with pipeline
// execution and job control. With no arguments it reads from the
// controlling terminal; given one argument it treats it as a script
// path and runs it non-interactively.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jsnshll/myshell/internal/config"
	"github.com/jsnshll/myshell/internal/diag"
	"github.com/jsnshll/myshell/internal/historystore"
	"github.com/jsnshll/myshell/internal/httpapi"
	"github.com/jsnshll/myshell/internal/linesource"
	"github.com/jsnshll/myshell/internal/logsink"
	"github.com/jsnshll/myshell/internal/shell"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	log := newLogger(cfg)
	defer log.Sync()

	var histBackend historystore.Backend
	if cfg.RedisAddr != "" {
		histBackend = historystore.NewRedisBackend(cfg.RedisAddr, "myshell:history")
	} else {
		histBackend = historystore.NewFileBackend(filepath.Join(config.HomeDir(), ".myshell_history"))
	}

	interactive := len(os.Args) < 2
	lines := linesource.NewDefault(os.Stdin, os.Stdout, histBackend)
	sink := logsink.NewDefault(newLogWriter())

	sh, err := shell.New(log, lines, sink, interactive, cfg.MonitorInterval)
	if err != nil {
		fmt.Fprintf(os.Stderr, "myshell: %v\n", err)
		diag.PrintChain(os.Stderr, err)
		return 1
	}

	var api *httpapi.Server
	if cfg.HTTPAddr != "" {
		api = httpapi.NewServer(log, sh.Table, sh.Log, httpapi.Options{
			Addr:       cfg.HTTPAddr,
			Env:        cfg.Env,
			AdminToken: cfg.AdminToken,
		})
		go func() {
			if err := api.ListenAndServe(); err != nil {
				log.Warn("admin http surface stopped", zap.Error(err))
			}
		}()
	}

	runStartupScript(sh)

	var status int
	if interactive {
		status = sh.RunInteractive()
	} else {
		f, err := os.Open(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "myshell: %s: %v\n", os.Args[1], err)
			return 1
		}
		status = sh.RunScript(f)
		f.Close()
	}

	if api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = api.Shutdown(ctx)
	}
	return status
}

// runStartupScript sources $HOME/.myshellrc with the same line-processing
// rules as script mode. Its absence is not an error.
func runStartupScript(sh *shell.Shell) {
	path := filepath.Join(config.HomeDir(), ".myshellrc")
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	sh.Source(f)
}

func newLogger(cfg config.Config) *zap.Logger {
	if cfg.Env == "prod" {
		log, err := zap.NewProductionConfig().Build()
		if err != nil {
			return zap.NewNop()
		}
		return log.Named("myshell")
	}

	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	log, err := logConfig.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log.Named("myshell")
}

// newLogWriter opens the activity log file the log sink appends to,
// falling back to a discarding writer if it cannot be created so a
// read-only $HOME never prevents the shell from starting.
func newLogWriter() io.Writer {
	path := filepath.Join(config.HomeDir(), ".myshell_activity.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return io.Discard
	}
	return f
}
