// Package files provides file system operations and discovery utilities
// for the BAAC importer.
//
// Discovery walks the data root laid out as <data>/<year>/*<keyword>*.csv
// and locates the four source tables of each year.
//
// Manager provides the file operations the cache and exporters need, rooted
// at a base directory. Writes go through a temp file and rename.
//
// Example usage:
//
//	discovery := files.NewDiscovery("data/raw")
//	years, err := discovery.YearDirectories()
//
//	manager := files.NewManager("data/cache", logger)
//	err = manager.WriteFile("snapshot.sig", []byte(signature))
package files
