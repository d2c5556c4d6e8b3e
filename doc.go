/*
Package chainmap provides a thread-safe chained hash table mapping string
keys to opaque values.

Table is designed as a small building block for programs that need a
concurrent key/value store with a predictable memory footprint: the bucket
count is fixed at creation and the table never rehashes. Collisions are
resolved by chaining, with the newest entry at the head of each chain.

Basic usage:

	import "github.com/theflywheel/chainmap"

	// Create a table with 64 buckets
	tab, err := chainmap.New(64)
	if err != nil {
		log.Fatal(err)
	}

	// Insert data; duplicate keys are rejected, not overwritten
	if err := tab.Put("apple", &Fruit{Color: "red"}); err != nil {
		log.Fatal(err)
	}

	// Retrieve data
	if v, ok := tab.Get("apple"); ok {
		fmt.Println(v.(*Fruit).Color)
	}

	// Remove an entry, disposing of its value
	_ = tab.Delete("apple", func(v any) { v.(*Fruit).Release() })

	// Tear down, disposing of everything still stored
	_ = tab.Close(func(v any) { v.(*Fruit).Release() })

Features:

  - Fixed bucket count chosen at creation, no rehashing, deterministic footprint
  - Separate chaining with newest-first chains for collision resolution
  - Single table-wide mutex: every operation is linearizable
  - Unique keys enforced at insert time rather than overwrite-on-collision
  - Caller-supplied dispose callbacks reclaim values on Delete and Close
  - Scan locates entries by non-key criteria with early termination
  - Checksummed binary snapshots (Save/Load) for persisting a table
  - Optional structured diagnostics through a zap logger
*/
package chainmap
