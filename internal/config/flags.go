package config

import (
	"github.com/spf13/pflag"
)

// Flags holds command-line values that override file and environment
// options when explicitly set.
type Flags struct {
	fs   *pflag.FlagSet
	vals Options
}

// AddFlags registers the option flags on fs.
func AddFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.vals.Input, "input", "i", "", "input location (table store or document directory)")
	fs.StringVarP(&f.vals.Output, "output", "o", "", "output location (document directory or table store)")
	fs.StringVarP(&f.vals.Dataset, "dataset", "d", "", "dataset name")
	fs.StringVar(&f.vals.Document, "document", "", "document name (default <dataset>.json)")
	fs.Var(&f.vals.Compare, "compare", "compare the imported dataset with the reference (YES|NO)")
	fs.StringVar(&f.vals.Reference, "reference", "", "reference table store location for --compare")
	return f
}

// Overlay copies every flag the user set onto o.
func (f *Flags) Overlay(o *Options) {
	set := map[string]func(){
		"input":     func() { o.Input = f.vals.Input },
		"output":    func() { o.Output = f.vals.Output },
		"dataset":   func() { o.Dataset = f.vals.Dataset },
		"document":  func() { o.Document = f.vals.Document },
		"compare":   func() { o.Compare = f.vals.Compare },
		"reference": func() { o.Reference = f.vals.Reference },
	}
	for name, apply := range set {
		if fl := f.fs.Lookup(name); fl != nil && fl.Changed {
			apply()
		}
	}
}
