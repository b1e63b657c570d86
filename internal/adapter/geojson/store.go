// Package geojson persists a scored region and its hail points as GeoJSON
// FeatureCollections, the format the dashboard reads.
package geojson

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
)

// Store reads and writes the two cache files of a run.
type Store struct {
	tractsPath string
	pointsPath string
}

// NewStore creates a store over the tract and point file paths.
func NewStore(tractsPath, pointsPath string) *Store {
	return &Store{tractsPath: tractsPath, pointsPath: pointsPath}
}

// TractsPath is the scored region file.
func (s *Store) TractsPath() string { return s.tractsPath }

// PointsPath is the joined hail point file.
func (s *Store) PointsPath() string { return s.pointsPath }

// Exists reports whether both cache files are present.
func (s *Store) Exists() (bool, error) {
	for _, p := range []string{s.tractsPath, s.pointsPath} {
		_, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return true, nil
}

// Save writes the region and points. Tract features are written in GEOID
// order and properties are key-sorted, so equal inputs produce identical
// bytes. Both files are staged before either is renamed into place.
func (s *Store) Save(region domain.Region, points []domain.HailPoint) error {
	tracts, err := EncodeTracts(region.Tracts)
	if err != nil {
		return err
	}
	pts, err := EncodePoints(points)
	if err != nil {
		return err
	}
	return writeAll(map[string][]byte{s.tractsPath: tracts, s.pointsPath: pts})
}

// Load reads both cache files.
func (s *Store) Load() (domain.Region, []domain.HailPoint, error) {
	tracts, err := readTracts(s.tractsPath)
	if err != nil {
		return domain.Region{}, nil, err
	}
	points, err := readPoints(s.pointsPath)
	if err != nil {
		return domain.Region{}, nil, err
	}
	return domain.Region{CRS: domain.WGS84, Tracts: tracts}, points, nil
}

// StateFileName is the per-state region file read by the dashboard state
// selector, e.g. gdf_MO_with_hail_risk.geojson.
func StateFileName(state string) string {
	return fmt.Sprintf("gdf_%s_with_hail_risk.geojson", strings.ToUpper(state))
}

// SaveStateFiles writes one region file per state code found in tracts, in
// dir, and returns the paths written.
func SaveStateFiles(dir string, tracts []domain.TractRecord) ([]string, error) {
	var order []string
	byState := make(map[string][]domain.TractRecord)
	for _, t := range tracts {
		if _, ok := byState[t.State]; !ok {
			order = append(order, t.State)
		}
		byState[t.State] = append(byState[t.State], t)
	}

	files := make(map[string][]byte, len(order))
	paths := make([]string, 0, len(order))
	for _, st := range order {
		data, err := EncodeTracts(byState[st])
		if err != nil {
			return nil, err
		}
		p := filepath.Join(dir, StateFileName(st))
		files[p] = data
		paths = append(paths, p)
	}
	if err := writeAll(files); err != nil {
		return nil, err
	}
	return paths, nil
}

func readTracts(path string) ([]domain.TractRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tracts: %w", err)
	}
	tracts, err := DecodeTracts(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return tracts, nil
}

func readPoints(path string) ([]domain.HailPoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read points: %w", err)
	}
	points, err := DecodePoints(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return points, nil
}

// writeAll stages every file as a temp sibling, then renames them in turn.
func writeAll(files map[string][]byte) error {
	staged := make(map[string]string, len(files))
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()

	for path, data := range files {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
		if err != nil {
			return fmt.Errorf("stage %s: %w", path, err)
		}
		staged[path] = tmp.Name()
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	for path, tmp := range staged {
		if err := os.Rename(tmp, path); err != nil {
			return fmt.Errorf("commit %s: %w", path, err)
		}
		delete(staged, path)
	}
	return nil
}
