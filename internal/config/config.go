// Package config reads the shell's environment-driven configuration, the
// same way zmux-server's main.go reads ENV: a handful of named
// environment variables, each with a documented default, read once at
// startup.
package config

import (
	"os"
	"os/user"
	"strconv"
	"time"
)

// Config holds every environment-driven setting the shell consults at
// startup. Nothing here is re-read once the shell is running.
type Config struct {
	// Env is "dev" or "prod" ($MYSHELL_ENV), selecting the zap logger
	// config the way zmux-server's ENV selects Gin's mode.
	Env string
	// HTTPAddr is the admin HTTP surface's bind address
	// ($MYSHELL_HTTP_ADDR). Empty disables the admin surface entirely.
	HTTPAddr string
	// RedisAddr optionally backs history persistence
	// ($MYSHELL_REDIS_ADDR). Empty means a local history file instead.
	// The activity log is a local file either way.
	RedisAddr string
	// AdminToken gates the admin HTTP surface's mutating routes
	// ($MYSHELL_ADMIN_TOKEN). Empty disables auth on those routes —
	// the admin surface itself still requires HTTPAddr to be set.
	AdminToken string
	// MonitorInterval is the reaper monitor's sweep period
	// ($MYSHELL_MONITOR_INTERVAL), default 1s.
	MonitorInterval time.Duration
}

// Load reads Config from the process environment.
func Load() Config {
	c := Config{
		Env:             os.Getenv("MYSHELL_ENV"),
		HTTPAddr:        os.Getenv("MYSHELL_HTTP_ADDR"),
		RedisAddr:       os.Getenv("MYSHELL_REDIS_ADDR"),
		AdminToken:      os.Getenv("MYSHELL_ADMIN_TOKEN"),
		MonitorInterval: time.Second,
	}
	if c.Env == "" {
		c.Env = "dev"
	}
	if raw := os.Getenv("MYSHELL_MONITOR_INTERVAL"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			c.MonitorInterval = time.Duration(n) * time.Millisecond
		}
	}
	return c
}

// HomeDir resolves the directory the startup script and cd's bare form
// treat as home: $HOME first, then the password database via os/user,
// then ".". Callers should not rely on any particular fallback beyond
// that ordering — a shell restarted under a different HOME mid-session
// is not guaranteed to agree with any earlier resolution.
func HomeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	if u, err := user.Current(); err == nil && u.HomeDir != "" {
		return u.HomeDir
	}
	return "."
}
