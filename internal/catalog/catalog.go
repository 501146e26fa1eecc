// Package catalog implements AETHERA's Dataset Catalog: it
// maps a logical dataset request (name, country?) to a concrete file path
// and format, preferring country-specific pre-clipped files over
// continental sources. It never opens a dataset, only locates it.
//
// The enumeration strategy mirrors InMAP's approach to discovering
// grid/population inputs in inmaputil/config.go (maybeDownload + glob
// patterns over a configured root): walk the data root once, index by
// logical name, and cache the index for the life of the process.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/model"
	"github.com/sirupsen/logrus"
)

var recognizedExt = map[string]model.DatasetFormat{
	".shp":     model.FormatShapefile,
	".gpkg":    model.FormatGeoPackage,
	".tif":     model.FormatGeoTIFF,
	".tiff":    model.FormatGeoTIFF,
	".parquet": model.FormatParquet,
	".csv":     model.FormatCSV,
}

// nameRE captures "<logical_name>[_<COUNTRY>]" from a file's base name;
// logical names may themselves contain underscores (e.g. "land_cover").
var nameRE = regexp.MustCompile(`^([a-zA-Z0-9_]+?)(?:_([A-Z]{3}))?$`)

// Catalog discovers and caches dataset descriptors under a data root.
type Catalog struct {
	Root string
	Log  *logrus.Entry

	once    sync.Once
	scanErr error
	// byName[logicalName] -> country code ("" for global) -> descriptor
	byName map[string]map[string]model.DatasetDescriptor
}

// New returns a Catalog rooted at dataRoot. Enumeration is lazy: the first
// Locate or AvailabilityReport call scans the tree once and caches the
// result for the Catalog's lifetime.
func New(dataRoot string, log *logrus.Entry) *Catalog {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Catalog{Root: dataRoot, Log: log}
}

func (c *Catalog) ensureScanned() error {
	c.once.Do(func() {
		c.byName = make(map[string]map[string]model.DatasetDescriptor)
		c.scanErr = filepath.Walk(c.Root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			format, ok := recognizedExt[ext]
			if !ok {
				return nil
			}
			base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			m := nameRE.FindStringSubmatch(base)
			if m == nil {
				return nil
			}
			logicalName, country := m[1], m[2]
			desc := model.DatasetDescriptor{
				LogicalName: logicalName,
				Country:     country,
				Path:        path,
				Format:      format,
				ModTime:     info.ModTime(),
				SizeBytes:   info.Size(),
			}
			if c.byName[logicalName] == nil {
				c.byName[logicalName] = make(map[string]model.DatasetDescriptor)
			}
			c.byName[logicalName][country] = desc
			return nil
		})
	})
	return c.scanErr
}

// Locate resolves (name, country) to the best candidate descriptor,
// preferring a country-specific pre-clipped file over the continental
// (global) one.1 resolution order (a)/(b). A glob-pattern
// fallback (c) additionally matches "<name>*" when no exact match exists.
func (c *Catalog) Locate(name, country string, required bool) (*model.DatasetDescriptor, error) {
	if err := c.ensureScanned(); err != nil {
		return nil, errs.Wrap(errs.StorageError, "catalog", fmt.Errorf("scanning data root %s: %w", c.Root, err))
	}
	byCountry := c.byName[name]
	var desc *model.DatasetDescriptor
	if byCountry != nil {
		if country != "" {
			if d, ok := byCountry[country]; ok {
				dd := d
				desc = &dd
			}
		}
		if desc == nil {
			if d, ok := byCountry[""]; ok {
				dd := d
				desc = &dd
			}
		}
	}
	if desc == nil {
		if d := c.globFallback(name); d != nil {
			desc = d
		}
	}
	if desc == nil {
		if required {
			return nil, errs.New(errs.DatasetMissing, "catalog", fmt.Sprintf("required dataset %q (country=%q) not found under %s", name, country, c.Root))
		}
		return nil, nil
	}
	desc.Required = required
	return desc, nil
}

// globFallback implements resolution order (c): a loose glob match on
// "<name>*" in the directories directly below the data root or, when
// none matches there, in the data root itself. Deeper levels are not
// searched.
func (c *Catalog) globFallback(name string) *model.DatasetDescriptor {
	matches, err := filepath.Glob(filepath.Join(c.Root, "**", name+"*"))
	if err != nil || len(matches) == 0 {
		// filepath.Glob does not support "**"; fall back to a root-level glob.
		matches, _ = filepath.Glob(filepath.Join(c.Root, name+"*"))
	}
	for _, m := range matches {
		ext := strings.ToLower(filepath.Ext(m))
		if format, ok := recognizedExt[ext]; ok {
			info, err := os.Stat(m)
			if err != nil {
				continue
			}
			return &model.DatasetDescriptor{
				LogicalName: name,
				Path:        m,
				Format:      format,
				ModTime:     info.ModTime(),
				SizeBytes:   info.Size(),
			}
		}
	}
	return nil
}

// AvailabilityReport enumerates the given logical names (with their
// required-ness, as declared by the caller's project-type configuration)
// and reports whether each was found. It is called once at run start and
// persisted as dataset_availability.json.
func (c *Catalog) AvailabilityReport(names map[string]bool, country string) (map[string]model.DatasetAvailability, error) {
	if err := c.ensureScanned(); err != nil {
		return nil, errs.Wrap(errs.StorageError, "catalog", err)
	}
	report := make(map[string]model.DatasetAvailability, len(names))
	for name, required := range names {
		desc, err := c.Locate(name, country, false)
		if err != nil {
			return nil, err
		}
		if desc == nil {
			report[name] = model.DatasetAvailability{Present: false, Required: required, Reason: "no candidate file found"}
			continue
		}
		report[name] = model.DatasetAvailability{Present: true, Path: desc.Path, Required: required}
	}
	return report, nil
}
