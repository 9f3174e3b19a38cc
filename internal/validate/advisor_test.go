package validate

import (
	"strings"
	"testing"
)

func TestWarningsElevatedPrivileges(t *testing.T) {
	a := NewRiskAdvisor(testProvider(t))

	warnings := a.Warnings("sudo apt update")
	if len(warnings) == 0 {
		t.Fatal("no warnings for sudo command")
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "elevated privileges") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings %v do not mention elevated privileges", warnings)
	}
}

func TestWarningsBenignCommand(t *testing.T) {
	a := NewRiskAdvisor(testProvider(t))

	for _, command := range []string{"ls -la", "git status", "echo hi", ""} {
		if warnings := a.Warnings(command); len(warnings) != 0 {
			t.Errorf("Warnings(%q) = %v, want none", command, warnings)
		}
	}
}

func TestWarningsAccumulate(t *testing.T) {
	a := NewRiskAdvisor(testProvider(t))

	// Both the sudo rule and the recursive-delete rule should fire, in
	// table order.
	warnings := a.Warnings("sudo rm -r /tmp/build")
	if len(warnings) < 2 {
		t.Fatalf("got %d warnings, want at least 2: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0], "elevated privileges") {
		t.Errorf("first warning %q is not the sudo rule", warnings[0])
	}
}

func TestWarningsCoverage(t *testing.T) {
	a := NewRiskAdvisor(testProvider(t))

	for _, command := range []string{
		"kill -9 1234",
		"systemctl restart nginx",
		"apt-get remove curl",
		"chmod -R 755 /srv/app",
		"git push origin main --force",
		"dd if=disk.img of=backup.img",
		"shutdown -h now",
	} {
		if warnings := a.Warnings(command); len(warnings) == 0 {
			t.Errorf("Warnings(%q) empty, want at least one", command)
		}
	}
}
