package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"gridstead/internal/sim/grid"
)

// ResourceID is an interned resource identifier: an index into the resource
// palette. Interning happens once at load so the tick loop never touches
// resource name strings.
type ResourceID uint16

// TerrainID is an interned terrain kind, an index into the terrain palette.
type TerrainID uint8

// TerrainMask is a set of terrain kinds. The zero mask is empty.
type TerrainMask uint32

func (m TerrainMask) Has(t TerrainID) bool { return m&(1<<t) != 0 }
func (m TerrainMask) Empty() bool          { return m == 0 }

func (m *TerrainMask) add(t TerrainID) { *m |= 1 << t }

type Catalogs struct {
	Resources  ResourceCatalog
	Terrain    TerrainCatalog
	Structures StructureCatalog
}

type ResourceCatalog struct {
	Palette       []string
	Index         map[string]ResourceID
	PaletteDigest string
	DefsDigest    string
}

// Name returns the palette name for id. Unknown ids map to "?", which only
// happens on a corrupted snapshot.
func (c *ResourceCatalog) Name(id ResourceID) string {
	if int(id) >= len(c.Palette) {
		return "?"
	}
	return c.Palette[id]
}

type TerrainCatalog struct {
	Palette       []string
	Index         map[string]TerrainID
	PaletteDigest string
	DefsDigest    string
}

func (c *TerrainCatalog) Name(id TerrainID) string {
	if int(id) >= len(c.Palette) {
		return "?"
	}
	return c.Palette[id]
}

type StructureCatalog struct {
	ByID   map[string]*StructureDef
	Order  []string // ids sorted, for deterministic iteration
	Digest string
}

// Lookup returns the definition for id, or nil.
func (c *StructureCatalog) Lookup(id string) *StructureDef {
	return c.ByID[id]
}

// StructureDef is an immutable, validated structure definition. All resource
// and terrain references are interned; placement and production code never
// sees raw strings.
type StructureDef struct {
	ID                  string
	Size                grid.Size
	Cost                []ResourceAmount
	ConstructionSeconds float64

	Rotatable        bool
	AllowedTerrain   TerrainMask // empty = any terrain
	ForbiddenTerrain TerrainMask

	Production *ProductionSpec
	Storage    *StorageSpec
}

type ResourceAmount struct {
	Resource ResourceID
	Amount   int
}

type ProductionSpec struct {
	Inputs     []ResourceAmount
	Outputs    []ResourceAmount
	Rate       float64
	Efficiency float64 // in [0,1]
}

type StorageSpec struct {
	InputCapacity  int
	OutputCapacity int
}

// Raw document shapes (configs/*.json).

type resourceDoc struct {
	ID string `json:"id"`
}

type terrainDoc struct {
	ID string `json:"id"`
}

type structureDoc struct {
	ID                  string         `json:"id"`
	Size                [2]int         `json:"size"`
	Cost                map[string]int `json:"cost,omitempty"`
	ConstructionSeconds float64        `json:"construction_seconds"`
	Placement           placementDoc   `json:"placement"`
	Production          *productionDoc `json:"production,omitempty"`
	Storage             *storageDoc    `json:"storage,omitempty"`
}

type placementDoc struct {
	AllowedTerrain   []string `json:"allowed_terrain,omitempty"`
	ForbiddenTerrain []string `json:"forbidden_terrain,omitempty"`
	Rotatable        bool     `json:"rotatable"`
}

type productionDoc struct {
	Inputs     []resourceCountDoc `json:"inputs,omitempty"`
	Outputs    []resourceCountDoc `json:"outputs"`
	Rate       float64            `json:"rate"`
	Efficiency float64            `json:"efficiency"`
}

type resourceCountDoc struct {
	Resource string `json:"resource"`
	Amount   int    `json:"amount"`
}

type storageDoc struct {
	InputCapacity  int `json:"input_capacity"`
	OutputCapacity int `json:"output_capacity"`
}

// Load reads and validates all catalogs. Malformed definitions fail here, at
// load time, never inside the tick loop.
func Load(configDir, schemaDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadResources(filepath.Join(configDir, "resources.json"), filepath.Join(schemaDir, "resources.schema.json"), &c.Resources); err != nil {
		return nil, err
	}
	if err := loadTerrain(filepath.Join(configDir, "terrain.json"), filepath.Join(schemaDir, "terrain.schema.json"), &c.Terrain); err != nil {
		return nil, err
	}
	if err := loadStructures(filepath.Join(configDir, "structures.json"), filepath.Join(schemaDir, "structures.schema.json"), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// validateSchema checks raw JSON against the schema at schemaPath.
func validateSchema(schemaPath string, raw []byte) error {
	s, err := jsonschema.Compile(schemaPath)
	if err != nil {
		return fmt.Errorf("compile %s: %w", filepath.Base(schemaPath), err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("schema %s: %w", filepath.Base(schemaPath), err)
	}
	return nil
}

func loadResources(path, schemaPath string, out *ResourceCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)
	if err := validateSchema(schemaPath, raw); err != nil {
		return fmt.Errorf("resources.json: %w", err)
	}

	var defs []resourceDoc
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("resources.json: %w", err)
	}
	ids := make([]string, 0, len(defs))
	seen := map[string]bool{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("resources.json: empty id")
		}
		if seen[d.ID] {
			return fmt.Errorf("resources.json: duplicate id %s", d.ID)
		}
		seen[d.ID] = true
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)

	out.Palette = ids
	out.Index = make(map[string]ResourceID, len(ids))
	for i, id := range ids {
		out.Index[id] = ResourceID(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadTerrain(path, schemaPath string, out *TerrainCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)
	if err := validateSchema(schemaPath, raw); err != nil {
		return fmt.Errorf("terrain.json: %w", err)
	}

	var defs []terrainDoc
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("terrain.json: %w", err)
	}
	ids := make([]string, 0, len(defs))
	seen := map[string]bool{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("terrain.json: empty id")
		}
		if seen[d.ID] {
			return fmt.Errorf("terrain.json: duplicate id %s", d.ID)
		}
		seen[d.ID] = true
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	// TerrainMask is 32 bits wide.
	if len(ids) > 32 {
		return fmt.Errorf("terrain.json: too many terrain kinds (%d, max 32)", len(ids))
	}

	out.Palette = ids
	out.Index = make(map[string]TerrainID, len(ids))
	for i, id := range ids {
		out.Index[id] = TerrainID(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadStructures(path, schemaPath string, c *Catalogs) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c.Structures.Digest = sha256Hex(raw)
	if err := validateSchema(schemaPath, raw); err != nil {
		return fmt.Errorf("structures.json: %w", err)
	}

	var docs []structureDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return fmt.Errorf("structures.json: %w", err)
	}

	c.Structures.ByID = make(map[string]*StructureDef, len(docs))
	for _, doc := range docs {
		def, err := compileStructure(doc, c)
		if err != nil {
			return fmt.Errorf("structures.json: %s: %w", doc.ID, err)
		}
		if _, dup := c.Structures.ByID[def.ID]; dup {
			return fmt.Errorf("structures.json: duplicate id %s", def.ID)
		}
		c.Structures.ByID[def.ID] = def
	}

	ids := make([]string, 0, len(c.Structures.ByID))
	for id := range c.Structures.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	c.Structures.Order = ids
	return nil
}

func compileStructure(doc structureDoc, c *Catalogs) (*StructureDef, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("empty id")
	}
	if doc.Size[0] <= 0 || doc.Size[1] <= 0 {
		return nil, fmt.Errorf("non-positive size %dx%d", doc.Size[0], doc.Size[1])
	}
	if doc.ConstructionSeconds <= 0 {
		return nil, fmt.Errorf("non-positive construction_seconds %g", doc.ConstructionSeconds)
	}

	def := &StructureDef{
		ID:                  doc.ID,
		Size:                grid.Size{W: doc.Size[0], H: doc.Size[1]},
		ConstructionSeconds: doc.ConstructionSeconds,
		Rotatable:           doc.Placement.Rotatable,
	}

	for _, name := range doc.Placement.AllowedTerrain {
		t, ok := c.Terrain.Index[name]
		if !ok {
			return nil, fmt.Errorf("unknown terrain %q in allowed_terrain", name)
		}
		def.AllowedTerrain.add(t)
	}
	for _, name := range doc.Placement.ForbiddenTerrain {
		t, ok := c.Terrain.Index[name]
		if !ok {
			return nil, fmt.Errorf("unknown terrain %q in forbidden_terrain", name)
		}
		def.ForbiddenTerrain.add(t)
	}

	// Cost interned in a stable order.
	costNames := make([]string, 0, len(doc.Cost))
	for name := range doc.Cost {
		costNames = append(costNames, name)
	}
	sort.Strings(costNames)
	for _, name := range costNames {
		r, ok := c.Resources.Index[name]
		if !ok {
			return nil, fmt.Errorf("unknown resource %q in cost", name)
		}
		n := doc.Cost[name]
		if n <= 0 {
			return nil, fmt.Errorf("non-positive cost for %s", name)
		}
		def.Cost = append(def.Cost, ResourceAmount{Resource: r, Amount: n})
	}

	if doc.Production != nil {
		p, err := compileProduction(*doc.Production, c)
		if err != nil {
			return nil, err
		}
		def.Production = p
	}

	if doc.Storage != nil {
		if doc.Storage.InputCapacity < 0 || doc.Storage.OutputCapacity < 0 {
			return nil, fmt.Errorf("negative storage capacity")
		}
		def.Storage = &StorageSpec{
			InputCapacity:  doc.Storage.InputCapacity,
			OutputCapacity: doc.Storage.OutputCapacity,
		}
	}
	return def, nil
}

func compileProduction(doc productionDoc, c *Catalogs) (*ProductionSpec, error) {
	if doc.Rate <= 0 {
		return nil, fmt.Errorf("non-positive production rate %g", doc.Rate)
	}
	if doc.Efficiency < 0 || doc.Efficiency > 1 {
		return nil, fmt.Errorf("efficiency %g outside [0,1]", doc.Efficiency)
	}
	if len(doc.Outputs) == 0 {
		return nil, fmt.Errorf("production with no outputs")
	}

	p := &ProductionSpec{Rate: doc.Rate, Efficiency: doc.Efficiency}
	intern := func(docs []resourceCountDoc, where string) ([]ResourceAmount, error) {
		out := make([]ResourceAmount, 0, len(docs))
		seen := map[ResourceID]bool{}
		for _, rc := range docs {
			r, ok := c.Resources.Index[rc.Resource]
			if !ok {
				return nil, fmt.Errorf("unknown resource %q in %s", rc.Resource, where)
			}
			if rc.Amount <= 0 {
				return nil, fmt.Errorf("non-positive amount for %s in %s", rc.Resource, where)
			}
			if seen[r] {
				return nil, fmt.Errorf("duplicate resource %s in %s", rc.Resource, where)
			}
			seen[r] = true
			out = append(out, ResourceAmount{Resource: r, Amount: rc.Amount})
		}
		return out, nil
	}

	var err error
	if p.Inputs, err = intern(doc.Inputs, "inputs"); err != nil {
		return nil, err
	}
	if p.Outputs, err = intern(doc.Outputs, "outputs"); err != nil {
		return nil, err
	}
	return p, nil
}
