package sanitize

import (
	"os"
	"testing"
)

func TestEnvironmentStripsSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-not-real")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "not-real")
	t.Setenv("TELEGRAM_BOT_TOKEN", "not-real")
	t.Setenv("PASSWORD", "hunter2")
	t.Setenv("TOKEN", "abc")
	t.Setenv("PRIVATE_KEY_PEM", "----")

	env := Environment(nil)

	for _, name := range []string{
		"OPENAI_API_KEY", "AWS_SECRET_ACCESS_KEY", "TELEGRAM_BOT_TOKEN",
		"PASSWORD", "TOKEN", "PRIVATE_KEY_PEM",
	} {
		if _, ok := env[name]; ok {
			t.Errorf("%s survived sanitization", name)
		}
	}
}

func TestEnvironmentBaseline(t *testing.T) {
	env := Environment(nil)

	for _, name := range []string{"PATH", "HOME", "LANG", "TERM", "USER"} {
		if env[name] == "" {
			t.Errorf("baseline variable %s missing or empty", name)
		}
	}
}

func TestEnvironmentKeepsHarmlessVariables(t *testing.T) {
	t.Setenv("EDITOR", "vim")
	t.Setenv("GOPATH", "/home/user/go")

	env := Environment(nil)
	if env["EDITOR"] != "vim" {
		t.Error("EDITOR dropped")
	}
	if env["GOPATH"] != "/home/user/go" {
		t.Error("GOPATH dropped")
	}
}

func TestEnvironmentExtraPrefixes(t *testing.T) {
	t.Setenv("MYAPP_DB_PASSWORD", "not-real")
	t.Setenv("MYAPP_FEATURE_FLAG", "on")

	env := Environment([]string{"myapp_"})
	if _, ok := env["MYAPP_DB_PASSWORD"]; ok {
		t.Error("extra prefix not applied")
	}
	if _, ok := env["MYAPP_FEATURE_FLAG"]; ok {
		t.Error("extra prefix matching should cover the whole family")
	}
}

func TestEnvironmentCaseInsensitive(t *testing.T) {
	t.Setenv("openai_api_key", "sk-test-not-real")

	env := Environment(nil)
	if _, ok := env["openai_api_key"]; ok {
		t.Error("lowercase secret variable survived")
	}
}

func TestEnvironmentDoesNotMutateProcess(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-not-real")

	_ = Environment(nil)

	// Sanitization works on a copy; the real environment keeps the value.
	if v, ok := os.LookupEnv("OPENAI_API_KEY"); !ok || v != "sk-test-not-real" {
		t.Error("process environment was mutated")
	}
}
