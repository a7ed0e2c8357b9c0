package cmd

import (
	"github.com/spf13/pflag"
)

// bindFlag ties a flag to a configuration key. A flag left at its default does not
// override the config file or environment.
func bindFlag(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
