package cli

import (
	"fmt"
	"slices"
	"strings"

	"catalog-cli/internal/store"

	"github.com/spf13/pflag"
)

var storeBackends = []string{store.BackendFile, store.BackendSQLite, store.BackendPostgres, store.BackendRemote}

// storeFlag is --store. It rejects unknown backends at parse time and
// remembers whether it was given, so the configured backend is only
// overridden explicitly.
type storeFlag struct {
	value string
	set   bool
}

var _ pflag.Value = (*storeFlag)(nil)

func (f *storeFlag) String() string { return f.value }

func (f *storeFlag) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(storeBackends, s) {
		return fmt.Errorf("must be one of %s", strings.Join(storeBackends, ", "))
	}
	f.value, f.set = s, true
	return nil
}

func (*storeFlag) Type() string { return "backend" }
