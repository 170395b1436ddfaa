package main

import (
	"os"
	"strings"

	"catalog-cli/internal/cli"
)

// isTemplateRef reports whether s looks like <category>/<template>. Paths
// such as ./x or /tmp/x are not references.
func isTemplateRef(s string) bool {
	s = strings.TrimSpace(s)
	cat, tpl, ok := strings.Cut(s, "/")
	if !ok || cat == "" || tpl == "" || strings.Contains(tpl, "/") {
		return false
	}
	return cat != "." && cat != ".."
}

func rewriteDirectCopyArgs(argv []string) []string {
	// Convenience: `catalog <category>/<template>` works like
	// `catalog copy <category>/<template>`.
	//
	// Cobra treats the first non-flag token as a subcommand, so argv is
	// rewritten before parsing. Persistent flags may come first
	// (`catalog --data ./x.json greeting/hello`), so look for the first
	// positional token rather than argv[1].
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config": true,
		"--store":  true,
		"--data":   true,
		"--format": true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
	}

	insert := func(i int) []string {
		out := make([]string, 0, len(argv)+1)
		out = append(out, argv[:i]...)
		out = append(out, "copy")
		out = append(out, argv[i:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isTemplateRef(argv[i+1]) {
				return insert(i + 1)
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			continue
		}

		if isTemplateRef(a) {
			return insert(i)
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteDirectCopyArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
