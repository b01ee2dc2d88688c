package registry

import (
	"time"

	"github.com/rotisserie/eris"
)

// Protocol identifies the query protocol of an upstream geodata service.
type Protocol int

const (
	// WFS is an OGC Web Feature Service (GetFeature, GML payloads).
	WFS Protocol = iota + 1
	// WMS is an OGC Web Map Service (GetFeatureInfo, single-pixel values).
	WMS
	// REST is a plain HTTP endpoint with a regex extraction rule.
	REST
	// Wiki is a MediaWiki geosearch endpoint.
	Wiki
)

// String returns the protocol name as it appears in registry files.
func (p Protocol) String() string {
	switch p {
	case WFS:
		return "WFS"
	case WMS:
		return "WMS"
	case REST:
		return "REST"
	case Wiki:
		return "Wikipedia"
	default:
		return "unknown"
	}
}

// ParseProtocol converts a registry-file string into a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "WFS":
		return WFS, nil
	case "WMS":
		return WMS, nil
	case "REST":
		return REST, nil
	case "Wikipedia", "WIKI":
		return Wiki, nil
	default:
		return 0, eris.Errorf("registry: unknown protocol %q (valid: WFS, WMS, REST, Wikipedia)", s)
	}
}

const (
	// DefaultSRID is the spatial reference assumed when a descriptor does not set one.
	DefaultSRID = 4326
	// DefaultTTL is the cache lifetime assumed when a descriptor does not set one (7 days).
	DefaultTTL = 604800 * time.Second
)

// Credentials holds optional upstream access credentials.
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	APIKey   string `yaml:"api_key"`
}

// ServiceDescriptor is the immutable configuration of one upstream geodata
// service. Descriptors are loaded once at startup and never mutated at
// request-handling time, so they need no locking.
type ServiceDescriptor struct {
	Key            string
	Name           string
	Description    string
	URL            string
	Credentials    Credentials
	Protocol       Protocol
	ExtractionRule string // XML tag name for WFS/WMS, regex for REST/Wikipedia
	LayerName      string
	ServiceVersion string
	SRID           int           // native SRID of the service
	CacheTTL       time.Duration // lifetime of cache entries produced from this service
}

// Group is an ordered list of service keys resolved together.
type Group struct {
	Key      string
	Name     string
	Services []string
}
