// Package storage persists finished profile reports as JSON files.
//
// Reports are written to a temporary file and renamed into place, so a
// reader never sees a half-written report. The Manager remembers which
// reports exist, including those left by earlier runs.
//
// Usage:
//
//	manager, err := storage.NewManager("./reports", true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	path, err := manager.SaveReport("nasa", report)
package storage
