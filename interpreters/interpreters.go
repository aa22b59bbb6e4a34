// Package interpreters gathers the hook interpreters.
package interpreters

import (
	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/interpreters/ecmascript"
	"github.com/Comcast/kexec/interpreters/native"
	"github.com/Comcast/kexec/interpreters/noop"
)

// Standard returns the usual interpreters by name.
func Standard() core.InterpretersMap {
	return StandardWithLibraries("")
}

// StandardWithLibraries is Standard with ECMAScript interpreters that
// find "requires" libraries in the given directory.  An empty
// directory means the ecmascript.DefaultLibraryProvider.
func StandardWithLibraries(dir string) core.InterpretersMap {
	is := core.InterpretersMap{}

	var lp ecmascript.LibraryProvider
	if dir != "" {
		lp = ecmascript.MakeFileLibraryProvider(dir)
	}

	es := ecmascript.NewInterpreter()
	es.LibraryProvider = lp
	is["ecmascript"] = es
	is["ecmascript-5.1"] = es

	ext := ecmascript.NewInterpreter()
	ext.Extended = true
	ext.LibraryProvider = lp
	is["ecmascript-ext"] = ext
	is["ecmascript-5.1-ext"] = ext
	is["goja"] = ext

	is["native"] = native.NewInterpreter()

	is["noop"] = noop.NewInterpreter()

	return is
}
