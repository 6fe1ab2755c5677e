// Package storage provides atomic file management for a single directory.
//
// Every write goes to a temporary file in the target directory, is synced,
// and is then renamed over the destination. A crash mid-write leaves the
// previous version intact. Both the checkpoint cache and the glossary
// artifact writer store their JSON documents through a Manager.
//
// Usage:
//
//	m, err := storage.NewManager("data/glossary")
//	if err != nil {
//	    return err
//	}
//	if err := m.WriteJSON("index.json", idx, true); err != nil {
//	    return err
//	}
package storage
