package emit

import (
	"regexp"
	"strconv"
)

var (
	identRe     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	intPrimRe   = regexp.MustCompile(`^[iu][0-9]+$`)
	zigReserved = map[string]bool{}
)

func init() {
	for _, s := range []string{
		// Keywords
		"addrspace", "align", "allowzero", "and", "anyframe", "anytype", "asm",
		"async", "await", "break", "callconv", "catch", "comptime", "const",
		"continue", "defer", "else", "enum", "errdefer", "error", "export",
		"extern", "fn", "for", "if", "inline", "linksection", "noalias",
		"noinline", "nosuspend", "opaque", "or", "orelse", "packed", "pub",
		"resume", "return", "struct", "suspend", "switch", "test",
		"threadlocal", "try", "union", "unreachable", "usingnamespace", "var",
		"volatile", "while",
		// Primitive types and values
		"anyerror", "anyopaque", "bool", "c_char", "c_short", "c_ushort",
		"c_int", "c_uint", "c_long", "c_ulong", "c_longlong", "c_ulonglong",
		"c_longdouble", "comptime_float", "comptime_int", "f16", "f32", "f64",
		"f80", "f128", "isize", "usize", "noreturn", "type", "void", "true",
		"false", "null", "undefined", "_",
	} {
		zigReserved[s] = true
	}
}

// ident quotes name as a Zig identifier if it is not a plain one.
func ident(name string) string {
	if identRe.MatchString(name) && !zigReserved[name] && !intPrimRe.MatchString(name) {
		return name
	}
	return "@" + strconv.Quote(name)
}
