// Package script runs Lua edit scripts against a piece table.
//
// Scripts run in a gopher-lua state with only the base, table, string and
// math libraries. The global pt is the table being edited; its elements are
// grapheme clusters and its indexes are 0-based:
//
//	pt:insert(0, "Hello, ")   -- insert text before index 0
//	local c = pt:remove(0)    -- remove and return one cluster
//	pt:remove_range(0, 3)     -- remove [0, 3)
//	print(pt:len(), pt:text(), pt:pieces())
//
// piecetable.new(text) creates further tables with the same methods.
// Index errors are raised as Lua errors carrying the table's message.
package script
