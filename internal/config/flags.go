package config

import (
	"fmt"
	"sort"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"data-dir":      "data_dir",
	"verbose":       "verbose",
	"log-format":    "log_format",
	"store-timeout": "store_timeout",
	"rules":         "rules_file",
	"mirror":        "mirror.driver",
	"mirror-dsn":    "mirror.dsn",
	"authority":     "authority.backend",
	"root":          "authority.root",
	"github-repo":   "authority.github.repository",
	"github-branch": "authority.github.branch",
	"github-dir":    "authority.github.dir",
	"incoming":      "watch.incoming",
	"uploaded":      "watch.uploaded",
	"addr":          "http.addr",
	"cors-origin":   "http.cors_origins",

	"reconcile-interval": "reconcile.interval",
}

// BindFlags binds every known flag present in fs. A flag only overrides
// the file and environment when it was set explicitly.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	names := make([]string, 0, len(FlagKeys))
	for name := range FlagKeys {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(FlagKeys[name], f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}
