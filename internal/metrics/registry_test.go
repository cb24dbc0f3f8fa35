package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteTextfile(t *testing.T) {
	reg, m := NewRegistry()
	m.ObserveLogin(true)
	m.ObserveRefresh("interrupted", 0)

	path := filepath.Join(t.TempDir(), "nested", "teacherpanel.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	for _, want := range []string{
		`teacherpanel_logins_total{success="true"} 1`,
		`teacherpanel_token_refreshes_total{outcome="interrupted"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}
