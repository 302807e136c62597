package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"baaccli/internal/files"
	"baaccli/pkg/contracts/domain"
)

// SignatureEntry is one located source file.
type SignatureEntry struct {
	Year    int
	Keyword string
	Size    int64
}

func (e SignatureEntry) String() string {
	return fmt.Sprintf("%d-%s-%d", e.Year, e.Keyword, e.Size)
}

// Signature fingerprints the source file set.
type Signature struct {
	Entries []SignatureEntry
	Hash    string
}

// ComputeSignature walks the year directories in ascending order and, for each
// table kind, takes the first matching file. Kinds without a file are left
// out, so adding the missing file later changes the signature.
func ComputeSignature(discovery *files.Discovery) (Signature, error) {
	years, err := discovery.YearDirectories()
	if err != nil {
		return Signature{}, fmt.Errorf("list year directories: %w", err)
	}

	var entries []SignatureEntry
	for _, year := range years {
		for _, kind := range domain.TableKinds {
			file, ok, err := discovery.FindTableFile(year.Path, kind)
			if err != nil {
				return Signature{}, fmt.Errorf("scan %s: %w", year.Path, err)
			}
			if !ok {
				continue
			}
			entries = append(entries, SignatureEntry{Year: year.Year, Keyword: kind.Keyword(), Size: file.Size})
		}
	}
	return NewSignature(entries), nil
}

// NewSignature hashes the entries in the given order.
func NewSignature(entries []SignatureEntry) Signature {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.String()
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "-")))
	return Signature{Entries: entries, Hash: hex.EncodeToString(sum[:])}
}
