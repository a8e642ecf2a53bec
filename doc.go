/*
Package zigbind generates Zig bindings for C and C++ headers.

For every configured target it emits one .zig file with extern struct
records, enum constants and extern fn declarations, plus C++ companion
sources with extern "C" shims for functions that return aggregates by value.

# Architecture pipeline (for developers)

Each element in the pipeline has distinct sub-packages that do a specific part. These are then "glued" together by [GenerationRun].
 1. [config]: Parse the user-supplied target configuration and symbol lists
 2. [cparse] (or [decl.LoadJSON]): Turn each header into the declaration model of package [decl]
 3. [resolve]: Rewrite type references through the target's overrides into Zig types
 4. [selector]: Pick the methods bound for each configured struct
 5. [emit]: Render the binding source in declaration order
 6. [shim]: Render the by-value return shims, grouped by header
*/
package zigbind
