package files

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"baaccli/pkg/contracts/domain"
)

// yearDirPattern matches the year directory names of the BAAC layout.
var yearDirPattern = regexp.MustCompile(`^[12]0[0-9]{2}$`)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// YearDir is one year directory under the data root.
type YearDir struct {
	Year int
	Path string
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// BasePath returns the data root.
func (d *Discovery) BasePath() string {
	return d.basePath
}

// YearDirectories lists the year directories under the data root in
// ascending year order. A missing root yields no years.
func (d *Discovery) YearDirectories() ([]YearDir, error) {
	dirs, err := d.ListDirectories("")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var years []YearDir
	for _, dir := range dirs {
		if !yearDirPattern.MatchString(dir.Name) {
			continue
		}
		year, _ := strconv.Atoi(dir.Name)
		years = append(years, YearDir{Year: year, Path: dir.Path})
	}

	sort.Slice(years, func(i, j int) bool {
		return years[i].Year < years[j].Year
	})
	return years, nil
}

// FindTableFile returns the first CSV file, by name, whose name contains the
// table keyword case-insensitively.
func (d *Discovery) FindTableFile(dir string, kind domain.TableKind) (FileInfo, bool, error) {
	files, err := d.FindCSVFiles(dir)
	if err != nil {
		return FileInfo{}, false, err
	}

	keyword := strings.ToLower(kind.Keyword())
	for _, file := range files {
		if strings.Contains(strings.ToLower(file.Name), keyword) {
			return file, true, nil
		}
	}
	return FileInfo{}, false, nil
}

// LocateYear finds the four source tables of a year. The error lists every
// table kind that has no file.
func (d *Discovery) LocateYear(dir YearDir) (map[domain.TableKind]FileInfo, error) {
	located := make(map[domain.TableKind]FileInfo, len(domain.TableKinds))
	var missing []string
	for _, kind := range domain.TableKinds {
		file, ok, err := d.FindTableFile(dir.Path, kind)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, kind.Keyword())
			continue
		}
		located[kind] = file
	}
	if len(missing) > 0 {
		return located, fmt.Errorf("no file for %s in %s", strings.Join(missing, ", "), dir.Path)
	}
	return located, nil
}

// FindCSVFiles finds all CSV files in the specified directory, sorted by name
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(strings.ToLower(name), ".csv") {
			info, err := entry.Info()
			if err != nil {
				continue
			}

			files = append(files, FileInfo{
				Path:    filepath.Join(fullPath, name),
				Name:    name,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// ListDirectories lists all subdirectories in the specified directory
func (d *Discovery) ListDirectories(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, err
	}

	var dirs []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			info, err := entry.Info()
			if err != nil {
				continue
			}

			dirs = append(dirs, FileInfo{
				Path:    filepath.Join(fullPath, entry.Name()),
				Name:    entry.Name(),
				ModTime: info.ModTime(),
				IsDir:   true,
			})
		}
	}

	return dirs, nil
}

// resolve joins relative directories onto the base path
func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
