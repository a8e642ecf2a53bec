package codeio_test

import (
	"fmt"

	"github.com/refaktor/zigbind/codeio"
)

func ExampleCodeBuilder() {
	var cb codeio.CodeBuilder
	cb.Blank()
	cb.Linef(`const std = @import("std");`)
	cb.Blank()
	cb.Blank()
	cb.Block(`pub const ImVec2 = extern struct {`, `};`, func() {
		cb.Linef(`x: f32,`)
		cb.Linef(`y: f32,`)
	})
	cb.Blank()
	cb.Block(`pub fn main() void {`, `}`, func() {
		for i := 0; i < 3; i++ {
			cb.Linef(`std.debug.print("Hello %v\n", .{});`, i)
		}
		cb.Append("// appended\n\n// text")
	})
	fmt.Print(cb.String())
	// Output:
	// const std = @import("std");
	//
	// pub const ImVec2 = extern struct {
	//     x: f32,
	//     y: f32,
	// };
	//
	// pub fn main() void {
	//     std.debug.print("Hello 0\n", .{});
	//     std.debug.print("Hello 1\n", .{});
	//     std.debug.print("Hello 2\n", .{});
	//     // appended
	//
	//     // text
	// }
}
