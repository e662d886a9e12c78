package emit

import _ "embed"

// Support runtimes ship alongside the generated program. The Go runtime
// is stored with a .txt extension so the toolchain never tries to build
// it as part of this module.

//go:embed support/runtime_go.txt
var supportGoRuntime []byte

//go:embed support/runtime_cpp.hpp
var supportCppRuntime []byte

//go:embed support/runtime_rust.txt
var supportRustRuntime []byte

//go:embed support/runtime_assemblyscript.ts
var supportAssemblyScriptRuntime []byte
