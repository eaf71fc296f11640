// cmd/preflight/main.go
package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/hamed0406/endpointresolver/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	admin := strings.TrimSpace(os.Getenv("ADMIN_API_KEYS"))
	pub := strings.TrimSpace(os.Getenv("PUBLIC_API_KEYS"))

	if admin == "" {
		fail("ADMIN_API_KEYS is empty (resolve/invalidate routes will 403).")
	}
	if pub == "" {
		fail("PUBLIC_API_KEYS is empty (status and proxy routes will 401).")
	}
	for name, v := range map[string]string{"ADMIN_API_KEYS": admin, "PUBLIC_API_KEYS": pub} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	cfg := config.FromEnv()

	if os.Getenv("API_ADDR") == "" {
		warn("API_ADDR is empty; defaulting to " + cfg.Addr)
	} else {
		ok("API_ADDR=" + cfg.Addr)
	}
	ok("PROFILE=" + cfg.Profile)

	if cfg.DatabaseURL == "" {
		warn("DATABASE_URL empty; resolution history and alert state stay in memory.")
	} else {
		ok("DATABASE_URL present")
	}

	if !strings.HasPrefix(cfg.HealthPath, "/") {
		fail("HEALTH_PATH must start with '/': " + cfg.HealthPath)
	}
	for _, f := range cfg.Fallbacks {
		u, err := url.Parse(f.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			fail("FALLBACK_URLS has an invalid entry: " + f.URL)
		}
	}
	ok(fmt.Sprintf("%d static fallback(s)", len(cfg.Fallbacks)))

	if cfg.Profile == config.ProfileProduction && cfg.LANScan {
		warn("LAN_SCAN is on in production; probes will walk the local subnet.")
	}
	if cfg.RetryAttempts == 0 {
		warn("RETRY_ATTEMPTS=0; a failed request will not re-resolve the backend.")
	}

	if cfg.SlackWebhook == "" {
		warn("SLACK_WEBHOOK empty; endpoint alerts go to the log only.")
	} else {
		ok("SLACK_WEBHOOK present")
	}

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; any origin may call the API from a browser.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	ok("preflight passed")
}
