// Package storage writes export archives to the output directory.
//
// Archives are streamed to a ".part" file and renamed into place once the
// download completes, so an interrupted run never leaves a truncated zip under
// the final name. Existing files are kept unless overwriting is enabled; a
// numbered name is used instead:
//
//	manager, err := storage.NewManager("exports", false)
//	name, err := storage.FileNameFromURL(location)
//	saved, err := manager.Save(resp.Body, name, nil)
package storage
