// ./internal/arch/arch_test.go
package arch

import (
	"bytes"
	"encoding/json"
	"io"
	"os/exec"
	"strings"
	"testing"
)

const module = "methcall/"

type pkg struct {
	ImportPath string
	Imports    []string
	Standard   bool
}

// under reports whether path is pkg or one of its subpackages.
func under(path, pkg string) bool {
	return path == pkg || strings.HasPrefix(path, pkg+"/")
}

func TestImportBoundaries(t *testing.T) {
	cmd := exec.Command("go", "list", "-json", "./...")
	cmd.Dir = "../.."
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		t.Fatalf("go list: %v", err)
	}
	dec := json.NewDecoder(&out)

	outer := []string{
		"methcall/internal/analysis", "methcall/internal/app", "methcall/internal/appshell",
		"methcall/internal/cli", "methcall/cmd",
	}
	bans := map[string][]string{
		// The scheduler knows nothing about reads, calls or formats.
		"methcall/internal/pipeline": append([]string{
			"methcall/internal/fasta", "methcall/internal/meth", "methcall/internal/logsum",
			"methcall/internal/writers", "methcall/internal/metrics", "methcall/internal/config",
		}, outer...),
		"methcall/internal/fasta": append([]string{
			"methcall/internal/pipeline", "methcall/internal/meth", "methcall/internal/writers",
		}, outer...),
		"methcall/internal/meth": append([]string{
			"methcall/internal/pipeline", "methcall/internal/writers",
		}, outer...),
		"methcall/internal/writers": append([]string{
			"methcall/internal/pipeline", "methcall/internal/fasta",
		}, outer...),
		"methcall/internal/logsum":    append([]string{"methcall/internal/pipeline"}, outer...),
		"methcall/internal/metrics":   outer,
		"methcall/internal/telemetry": append([]string{"methcall/internal/pipeline"}, outer...),
		"methcall/internal/config":    append([]string{"methcall/internal/pipeline"}, outer...),
		"methcall/pkg/api":            {"methcall/internal"},
	}

	var (
		violations []string
		seen       int
	)
	for {
		var p pkg
		if err := dec.Decode(&p); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !strings.HasPrefix(p.ImportPath, module) {
			continue
		}
		seen++
		imp := p.ImportPath
		for prefix, forbidden := range bans {
			if !under(imp, prefix) {
				continue
			}
			for _, dep := range p.Imports {
				if !strings.HasPrefix(dep, module) {
					continue
				}
				for _, ban := range forbidden {
					if under(dep, ban) {
						violations = append(violations, imp+" → "+dep)
					}
				}
			}
		}
	}

	if seen == 0 {
		t.Fatalf("go list returned no %s packages", module)
	}
	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n  %s", strings.Join(violations, "\n  "))
	}
}
