package protocol

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"solace/internal/logging"
	"solace/internal/therapy"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

//go:embed schema.json
var catalogSchema []byte

// Store serves the protocol catalog. It always holds a valid catalog: the
// embedded default at construction, then whatever the last successful
// Reload produced. A failed reload never replaces a good catalog.
type Store struct {
	mu      sync.RWMutex
	path    string
	catalog Catalog
	schema  *jsonschema.Schema
}

// NewStore builds a store from the embedded catalog, then overlays the
// file at path when one is given and readable. A missing or invalid file
// is logged and the embedded catalog keeps serving.
func NewStore(path string) (*Store, error) {
	schema, err := compileCatalogSchema()
	if err != nil {
		return nil, err
	}

	catalog, err := parseCatalog(embeddedCatalog, schema)
	if err != nil {
		return nil, fmt.Errorf("embedded catalog invalid: %w", err)
	}

	s := &Store{path: path, catalog: catalog, schema: schema}
	if path != "" {
		if err := s.Reload(); err != nil {
			logging.ProtocolWarn("catalog file not loaded, serving embedded defaults: %v", err)
		}
	}
	return s, nil
}

// Reload re-reads the catalog file, validates it against the schema and
// swaps it in atomically. On any error the previous catalog stays active.
func (s *Store) Reload() error {
	if s.path == "" {
		return fmt.Errorf("no catalog file configured")
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	catalog, err := parseCatalog(data, s.schema)
	if err != nil {
		return fmt.Errorf("parse catalog %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()

	logging.Protocol("catalog reloaded from %s: %d methods", s.path, len(catalog.Methods))
	return nil
}

// Variation returns the named variation of a method. Unknown methods or
// variations degrade to the builtin safe protocol so a session can always
// proceed.
func (s *Store) Variation(method therapy.Method, name string) Variation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proto, ok := s.catalog.Methods[string(method)]
	if !ok {
		logging.ProtocolWarn("no catalog entry for method %s, serving builtin protocol", method)
		return builtinVariation()
	}
	variation, ok := proto.Variations[name]
	if !ok {
		logging.ProtocolWarn("method %s has no variation %q, serving builtin protocol", method, name)
		return builtinVariation()
	}
	return variation
}

// Methods lists the catalog's methods, sorted.
func (s *Store) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.catalog.Methods))
	for name := range s.catalog.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VariationNames lists the variations of one method, sorted.
func (s *Store) VariationNames(method therapy.Method) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proto, ok := s.catalog.Methods[string(method)]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(proto.Variations))
	for name := range proto.Variations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Path returns the watched catalog file, empty when only the embedded
// catalog is in use.
func (s *Store) Path() string {
	return s.path
}

func compileCatalogSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog-schema.json", strings.NewReader(string(catalogSchema))); err != nil {
		return nil, fmt.Errorf("add catalog schema: %w", err)
	}
	schema, err := compiler.Compile("catalog-schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	return schema, nil
}

// parseCatalog validates the YAML document against the JSON schema before
// decoding it into typed form. Validation runs on the raw document so
// unknown fields are rejected, not silently dropped.
func parseCatalog(data []byte, schema *jsonschema.Schema) (Catalog, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Catalog{}, fmt.Errorf("yaml: %w", err)
	}
	jsonDoc, err := json.Marshal(raw)
	if err != nil {
		return Catalog{}, fmt.Errorf("convert to json: %w", err)
	}
	var doc any
	if err := json.Unmarshal(jsonDoc, &doc); err != nil {
		return Catalog{}, fmt.Errorf("decode json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return Catalog{}, fmt.Errorf("schema: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	for name := range catalog.Methods {
		if !knownMethod(name) {
			logging.ProtocolWarn("catalog declares unknown method %q, entry ignored by routing", name)
		}
	}
	return catalog, nil
}
