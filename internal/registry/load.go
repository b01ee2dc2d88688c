package registry

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// fileDescriptor is the YAML shape of one service entry.
type fileDescriptor struct {
	Key            string      `yaml:"key"`
	Name           string      `yaml:"name"`
	Description    string      `yaml:"description"`
	URL            string      `yaml:"url"`
	Credentials    Credentials `yaml:"credentials"`
	QueryType      string      `yaml:"query_type"`
	ResultRegex    string      `yaml:"result_regex"`
	LayerTypename  string      `yaml:"layer_typename"`
	ServiceVersion string      `yaml:"service_version"`
	SRID           int         `yaml:"srid"`
	TimeToLive     int         `yaml:"time_to_live"` // seconds
}

type fileGroup struct {
	Key      string   `yaml:"key"`
	Name     string   `yaml:"name"`
	Services []string `yaml:"services"`
}

type registryFile struct {
	Services []fileDescriptor `yaml:"services"`
	Groups   []fileGroup      `yaml:"groups"`
}

// LoadFile reads a registry YAML file and returns the populated registry.
// Descriptor defaults (SRID 4326, 7-day TTL) are applied here so the rest
// of the system never sees zero values.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read file")
	}
	return Load(data)
}

// Load parses registry YAML bytes.
func Load(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "registry: parse yaml")
	}

	r := New()
	for _, fd := range file.Services {
		if fd.Key == "" {
			return nil, eris.New("registry: service entry missing key")
		}
		if fd.URL == "" {
			return nil, eris.Errorf("registry: service %q missing url", fd.Key)
		}
		proto, err := ParseProtocol(fd.QueryType)
		if err != nil {
			return nil, eris.Wrapf(err, "registry: service %q", fd.Key)
		}

		d := &ServiceDescriptor{
			Key:            fd.Key,
			Name:           fd.Name,
			Description:    fd.Description,
			URL:            fd.URL,
			Credentials:    fd.Credentials,
			Protocol:       proto,
			ExtractionRule: fd.ResultRegex,
			LayerName:      fd.LayerTypename,
			ServiceVersion: fd.ServiceVersion,
			SRID:           fd.SRID,
			CacheTTL:       time.Duration(fd.TimeToLive) * time.Second,
		}
		if d.SRID == 0 {
			d.SRID = DefaultSRID
		}
		if d.CacheTTL == 0 {
			d.CacheTTL = DefaultTTL
		}
		r.Register(d)
	}

	for _, fg := range file.Groups {
		if fg.Key == "" {
			return nil, eris.New("registry: group entry missing key")
		}
		for _, key := range fg.Services {
			if _, ok := r.GetByKey(key); !ok {
				return nil, eris.Errorf("registry: group %q references unknown service %q", fg.Key, key)
			}
		}
		r.RegisterGroup(&Group{Key: fg.Key, Name: fg.Name, Services: fg.Services})
	}

	zap.L().Info("registry loaded",
		zap.Int("services", len(file.Services)),
		zap.Int("groups", len(file.Groups)),
	)
	return r, nil
}
