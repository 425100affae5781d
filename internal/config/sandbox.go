package config

import (
	lua "github.com/yuin/gopher-lua"
)

const (
	luaCallStackSize = 256
	luaRegistrySize  = 8 * 1024
)

// blockedGlobals are removed from every config VM. Configs are declarative:
// they may compute values but never touch the host or load code.
var blockedGlobals = []string{
	"os", "io", "debug",
	"require", "module", "package",
	"dofile", "loadfile", "load", "loadstring",
	"getmetatable", "setmetatable", "rawget", "rawset", "rawequal",
	"getfenv", "setfenv",
	"collectgarbage",
}

// sandboxLuaVM strips the host-facing and code-loading globals from L.
// string, table and math stay available together with the basic helpers
// (type, tostring, tonumber, pairs, ipairs, next, select).
func sandboxLuaVM(L *lua.LState) {
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
}

// newSandboxedVM creates a size-limited Lua VM with the sandbox applied.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{
		CallStackSize: luaCallStackSize,
		RegistrySize:  luaRegistrySize,
	})
	sandboxLuaVM(L)
	return L
}
