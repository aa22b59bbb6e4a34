/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package core provides the core gear for rewriting program
// configurations with the rules of a Definition.
//
// The primary type is Definition.  A Definition declares symbols (with
// attributes like "function", "hook", "list", and "bag"), gives an
// ordered list of Rules, and can carry Hooks, which are built-in
// implementations of function symbols.
//
// A Definition can use arbitrary code for hooks.  When a Definition is
// Compiled, the compiler looks for HookSources, each of which should
// specify an Interpreter.  An Interpreter should know how to Compile
// and Exec a HookSource.  Alternately, a native Definition can provide
// a Hook implemented in Go.
//
// A Context holds the state of one run: the fresh-variable counter,
// the cache for function evaluation, Stats, and a diagnostics Sink.
// Many runs can share one compiled Definition concurrently, but each
// run needs its own Context.
//
// Function symbols are evaluated eagerly by Context.Evaluate.  The
// transition rules are applied by the rewriters in package rewrite.
//
// To use this package, make a Definition (or ParseDefinition).  Then
// Compile() it.  You might also want to Analyze() it (see package
// tools).  Then give it to an executor.
package core
