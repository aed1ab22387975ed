package fetcher

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	DefaultLicenceURL    = "https://www2.aer.ca/t/Production/views/COM-WellLicenceAllList/WellLicenceAllAB.csv"
	DefaultStatusURL     = "https://static.aer.ca/prd/data/wells/ST37.zip"
	DefaultProductionURL = "https://www.petrinex.gov.ab.ca/publicdata/API/Files/AB/Vol/{month}/CSV"

	LicenceFile = "WellLicenceAllAB.csv"
	StatusFile  = "ST37.txt"

	// ProductionPattern matches downloaded production files; names sort by month.
	ProductionPattern = "Petrinex_Vol_*.csv"

	monthPlaceholder = "{month}"
)

// ProductionFile is the local name of the production feed for a YYYY-MM month.
func ProductionFile(month string) string {
	return fmt.Sprintf("Petrinex_Vol_%s.csv", month)
}

// Dataset describes where one source is downloaded from and where it lands.
// Archive downloads are unpacked and the first member with Member's
// extension is kept under File.
type Dataset struct {
	Source  models.Source `yaml:"source"`
	URL     string        `yaml:"url"`
	File    string        `yaml:"file"`
	Archive bool          `yaml:"archive"`
	Member  string        `yaml:"member,omitempty"`
}

// Manifest lists the datasets of a run.
type Manifest struct {
	Datasets []Dataset `yaml:"datasets"`
}

// DefaultManifest returns the public AER and Petrinex locations. month is
// substituted into the production URL and file name.
func DefaultManifest(month string) Manifest {
	return Manifest{
		Datasets: []Dataset{
			{Source: models.SourceLicences, URL: DefaultLicenceURL, File: LicenceFile},
			{Source: models.SourceStatuses, URL: DefaultStatusURL, File: StatusFile, Archive: true, Member: ".txt"},
			{Source: models.SourceProduction, URL: DefaultProductionURL, File: ProductionFile(month), Archive: true, Member: ".csv"},
		},
	}.WithMonth(month)
}

// LoadManifest reads a YAML manifest and overlays it on base. Entries are
// matched by source; fields left empty keep the base value.
func LoadManifest(path string, base Manifest) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var override Manifest
	if err := yaml.Unmarshal(data, &override); err != nil {
		return base, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	return base.Merge(override)
}

// Merge overlays other on m.
func (m Manifest) Merge(other Manifest) (Manifest, error) {
	out := Manifest{Datasets: append([]Dataset(nil), m.Datasets...)}
	for _, o := range other.Datasets {
		i := out.index(o.Source)
		if i < 0 {
			return m, fmt.Errorf("manifest names unknown source %q", o.Source)
		}
		d := &out.Datasets[i]
		if o.URL != "" {
			d.URL = o.URL
		}
		if o.File != "" {
			d.File = o.File
		}
		if o.Member != "" {
			d.Member = o.Member
		}
		d.Archive = o.Archive || (d.Archive && o.URL == "")
	}
	return out, nil
}

// WithMonth fills the {month} placeholder of every URL and file name.
func (m Manifest) WithMonth(month string) Manifest {
	out := Manifest{Datasets: make([]Dataset, len(m.Datasets))}
	for i, d := range m.Datasets {
		d.URL = strings.ReplaceAll(d.URL, monthPlaceholder, month)
		d.File = strings.ReplaceAll(d.File, monthPlaceholder, month)
		out.Datasets[i] = d
	}
	return out
}

// Dataset returns the entry for source.
func (m Manifest) Dataset(source models.Source) (Dataset, bool) {
	i := m.index(source)
	if i < 0 {
		return Dataset{}, false
	}
	return m.Datasets[i], true
}

func (m Manifest) index(source models.Source) int {
	for i, d := range m.Datasets {
		if d.Source == source {
			return i
		}
	}
	return -1
}
