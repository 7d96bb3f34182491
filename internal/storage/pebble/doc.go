// Package pebblestore opens the Pebble database behind the pebble
// persistence backend. Topic logs write through CommitBatch so the configured
// fsync mode and storage metrics apply to every append and expiry.
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data/store",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	b := db.NewBatch()
//	_ = b.Set([]byte("k"), []byte("v"), nil)
//	_ = db.CommitBatch(ctx, b)
//	b.Close()
//
//	v, err := db.Get([]byte("k"))
package pebblestore
