package rangefetch

import "fmt"

type ManifestEntry struct {
	FileID string
	Dest   string
}

// A Manifest lists files to download, each with its own destination.
type Manifest []ManifestEntry

// AddEntry appends an entry. Listing the same destination twice is an error.
func (m Manifest) AddEntry(fileID, dest string) (Manifest, error) {
	for _, entry := range m {
		if entry.Dest != dest {
			continue
		}
		if entry.FileID != fileID {
			return m, fmt.Errorf("duplicate destination %s with different files: %s and %s", dest, entry.FileID, fileID)
		}
		return m, fmt.Errorf("duplicate entry: %s %s", fileID, dest)
	}
	return append(m, ManifestEntry{FileID: fileID, Dest: dest}), nil
}
