// Package sanitize builds scrubbed environments for child processes. The
// gateway never spawns anything itself; callers take the sanitized map and
// pass it to their own process runner.
package sanitize

import (
	"os"
	"strings"
)

// secretNames are exact (upper-cased) variable names that never survive
// sanitization.
var secretNames = map[string]bool{
	"PASSWORD":    true,
	"PASSWD":      true,
	"SECRET":      true,
	"TOKEN":       true,
	"KEY":         true,
	"API_KEY":     true,
	"APIKEY":      true,
	"ACCESS_KEY":  true,
	"PRIVATE_KEY": true,
	"CREDENTIALS": true,
	"AUTH":        true,
	"AUTH_TOKEN":  true,
	"PASSPHRASE":  true,
}

// secretPrefixes drop whole families of provider and service variables.
// Matching is on the upper-cased name.
var secretPrefixes = []string{
	"OPENAI_",
	"ANTHROPIC_",
	"TELEGRAM_",
	"AWS_",
	"AZURE_",
	"GCP_",
	"GOOGLE_",
	"GMAIL_",
	"GITHUB_",
	"GITLAB_",
	"SLACK_",
	"DISCORD_",
	"STRIPE_",
	"TWILIO_",
	"SENDGRID_",
	"SMTP_",
	"DATABASE_",
	"POSTGRES_",
	"MYSQL_",
	"REDIS_",
	"NPM_TOKEN",
	"PRIVATE_KEY",
	"SSH_",
	"VAULT_",
	"DOCKER_",
	"KUBE",
	"HOMEASSISTANT_",
	"SPOTIFY_",
}

// baseline variables are force-set after filtering so the sanitized
// environment stays runnable even if stripping removed them. Values come
// from the real environment when present, otherwise from these defaults.
var baseline = map[string]string{
	"PATH": "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
	"HOME": "/tmp",
	"USER": "agent",
	"LANG": "en_US.UTF-8",
	"TERM": "xterm-256color",
}

// Environment returns a fresh map copied from the process environment with
// secret-bearing variables removed. extraPrefixes extends the built-in
// prefix list (config-supplied, matched upper-cased). The real process
// environment is never modified.
func Environment(extraPrefixes []string) map[string]string {
	env := make(map[string]string)

	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if isSecret(name, extraPrefixes) {
			continue
		}
		env[name] = value
	}

	for name, fallback := range baseline {
		if current, ok := os.LookupEnv(name); ok {
			env[name] = current
		} else if _, ok := env[name]; !ok {
			env[name] = fallback
		}
	}

	return env
}

func isSecret(name string, extraPrefixes []string) bool {
	upper := strings.ToUpper(name)
	if secretNames[upper] {
		return true
	}
	for _, p := range secretPrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	for _, p := range extraPrefixes {
		if p != "" && strings.HasPrefix(upper, strings.ToUpper(p)) {
			return true
		}
	}
	return false
}
