// Package source defines the ETF document sources tracked by the
// ingestion pipeline. The registry is immutable once built: callers
// construct it at startup from defaults, config, or a YAML file, and
// pass it into the pipeline explicitly.
package source

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/holdings-cli/internal/config"
)

// Source describes one fetchable holdings document.
type Source struct {
	// Code is the short unique identifier (e.g. "EMBI").
	Code string `yaml:"code"`
	// Name is the human-readable fund name.
	Name string `yaml:"name"`
	// URL is the document location: http(s), ftp, or a local path.
	URL string `yaml:"url"`
	// HeaderSkip is the number of leading non-data rows before the
	// header row of the tabular document.
	HeaderSkip int `yaml:"header_skip"`
}

// Registry is an ordered, read-only set of sources.
type Registry struct {
	sources []Source
	byCode  map[string]Source
}

// NewRegistry builds a registry from the given sources, preserving order.
func NewRegistry(sources []Source) (*Registry, error) {
	r := &Registry{byCode: make(map[string]Source, len(sources))}
	for _, s := range sources {
		if s.Code == "" {
			return nil, eris.New("source: empty code")
		}
		if s.URL == "" {
			return nil, eris.Errorf("source: %s has no url", s.Code)
		}
		if s.HeaderSkip < 0 {
			return nil, eris.Errorf("source: %s has negative header_skip", s.Code)
		}
		if _, dup := r.byCode[s.Code]; dup {
			return nil, eris.Errorf("source: duplicate code %s", s.Code)
		}
		r.byCode[s.Code] = s
		r.sources = append(r.sources, s)
	}
	return r, nil
}

// All returns the sources in registration order.
func (r *Registry) All() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Get returns a source by code.
func (r *Registry) Get(code string) (Source, error) {
	s, ok := r.byCode[code]
	if !ok {
		return Source{}, eris.Errorf("source: unknown code %q", code)
	}
	return s, nil
}

// Len returns the number of registered sources.
func (r *Registry) Len() int { return len(r.sources) }

// Subset returns a registry restricted to the named codes, in the
// order given. Unknown codes are an error.
func (r *Registry) Subset(codes []string) (*Registry, error) {
	var picked []Source
	for _, code := range codes {
		s, err := r.Get(code)
		if err != nil {
			return nil, err
		}
		picked = append(picked, s)
	}
	return NewRegistry(picked)
}

// Defaults returns the built-in iShares emerging-market bond sources.
func Defaults() []Source {
	return []Source{
		{
			Code:       "CEMBI",
			Name:       "iShares Emerging Markets Corporate Bond ETF",
			URL:        "https://www.ishares.com/us/products/239525/ishares-emerging-markets-corporate-bond-etf/1467271812596.ajax?fileType=csv&fileName=CEMB_holdings&dataType=fund",
			HeaderSkip: 9,
		},
		{
			Code:       "EMBI",
			Name:       "iShares J.P. Morgan USD Emerging Markets Bond ETF",
			URL:        "https://www.ishares.com/us/products/239572/ishares-jp-morgan-usd-emerging-markets-bond-etf/1467271812596.ajax?fileType=csv&fileName=EMB_holdings&dataType=fund",
			HeaderSkip: 9,
		},
		{
			Code:       "GBI",
			Name:       "iShares Emerging Markets Local Currency Bond ETF",
			URL:        "https://www.ishares.com/us/products/239528/ishares-emerging-markets-local-currency-bond-etf/1467271812596.ajax?fileType=csv&fileName=LEMB_holdings&dataType=fund",
			HeaderSkip: 9,
		},
		{
			Code:       "EMHY",
			Name:       "iShares Emerging Markets High Yield Bond ETF",
			URL:        "https://www.ishares.com/us/products/239527/ishares-emerging-markets-high-yield-bond-etf/1467271812596.ajax?fileType=csv&fileName=EMHY_holdings&dataType=fund",
			HeaderSkip: 9,
		},
	}
}

// LoadFile reads sources from a standalone YAML file of the form:
//
//	sources:
//	  - code: EMBI
//	    name: ...
//	    url: ...
//	    header_skip: 9
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", path)
	}

	var wrapper struct {
		Sources []Source `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "source: parse %s", path)
	}
	if len(wrapper.Sources) == 0 {
		return nil, eris.Errorf("source: no sources in %s", path)
	}

	return NewRegistry(wrapper.Sources)
}

// FromConfig builds the registry from loaded configuration: the
// sources file wins if set, then the inline list, then the defaults.
func FromConfig(cfg *config.Config) (*Registry, error) {
	if cfg.SourcesFile != "" {
		return LoadFile(cfg.SourcesFile)
	}
	if len(cfg.Sources) > 0 {
		sources := make([]Source, 0, len(cfg.Sources))
		for _, sc := range cfg.Sources {
			sources = append(sources, Source{
				Code:       sc.Code,
				Name:       sc.Name,
				URL:        sc.URL,
				HeaderSkip: sc.HeaderSkip,
			})
		}
		return NewRegistry(sources)
	}
	return NewRegistry(Defaults())
}
