package epub

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/juju/schema"
	"gopkg.in/yaml.v3"
)

// CollectionConfig describes a collection: its title, its short name, and
// the chapters in reading order.
type CollectionConfig struct {
	// Name is the title of the collection.
	Name string

	// ID is the short name of the collection. It is the base of the output
	// file name and seeds the collection identifier.
	ID string

	ReadingOrder []ChapterConfig
}

// ChapterConfig describes one chapter of a collection.
type ChapterConfig struct {
	URL string

	// Respec requests rendering of a ReSpec source before conversion. It is
	// implied by any field of Config.
	Respec bool

	Config RespecConfig
}

// RespecConfig overrides fields of a ReSpec source's configuration.
type RespecConfig struct {
	PublishDate     string
	SpecStatus      string
	AddSectionLinks *bool
	MaxTocLevel     int
}

// IsZero reports whether no override is set.
func (r RespecConfig) IsZero() bool {
	return r.PublishDate == "" && r.SpecStatus == "" && r.AddSectionLinks == nil && r.MaxTocLevel == 0
}

// Source returns the chapter source described by cc.
func (cc ChapterConfig) Source() ChapterSource {
	return ChapterSource{
		URL:     cc.URL,
		Options: ConvertOptions{Respec: cc.Respec, Config: cc.Config},
	}
}

var respecSchema = schema.FieldMap(
	schema.Fields{
		"publishDate":     schema.String(),
		"specStatus":      schema.String(),
		"addSectionLinks": schema.OneOf(schema.Bool(), schema.String()),
		"maxTocLevel":     schema.ForceInt(),
	},
	schema.Defaults{
		"publishDate":     schema.Omit,
		"specStatus":      schema.Omit,
		"addSectionLinks": schema.Omit,
		"maxTocLevel":     schema.Omit,
	},
)

var chapterSchema = schema.FieldMap(
	schema.Fields{
		"url":    schema.String(),
		"respec": schema.Bool(),
		"config": respecSchema,
	},
	schema.Defaults{
		"respec": false,
		"config": schema.Omit,
	},
)

var collectionSchema = schema.FieldMap(
	schema.Fields{
		"name":         schema.String(),
		"id":           schema.String(),
		"readingOrder": schema.List(chapterSchema),
	},
	nil,
)

// validID matches collection ids usable as file names.
var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ParseCollectionConfig decodes a JSON or YAML collection descriptor,
// checks it against the descriptor schema, and normalizes it. Every failure
// is an ErrConfiguration.
func ParseCollectionConfig(data []byte) (CollectionConfig, error) {
	var raw interface{}
	if err := yaml.Unmarshal(stripBOM(data), &raw); err != nil {
		return CollectionConfig{}, fmt.Errorf("epub: decode collection configuration: %w: %w", ErrConfiguration, err)
	}
	if raw == nil {
		return CollectionConfig{}, fmt.Errorf("epub: empty collection configuration: %w", ErrConfiguration)
	}

	v, err := collectionSchema.Coerce(raw, nil)
	if err != nil {
		return CollectionConfig{}, fmt.Errorf("epub: collection configuration: %w: %w", ErrConfiguration, err)
	}
	m := v.(map[string]interface{})

	cfg := CollectionConfig{
		Name: strings.TrimSpace(m["name"].(string)),
		ID:   strings.TrimSpace(m["id"].(string)),
	}
	for i, item := range m["readingOrder"].([]interface{}) {
		cc, err := chapterConfig(item.(map[string]interface{}))
		if err != nil {
			return CollectionConfig{}, fmt.Errorf("epub: readingOrder[%d]: %w", i, err)
		}
		cfg.ReadingOrder = append(cfg.ReadingOrder, cc)
	}

	if err := cfg.Validate(); err != nil {
		return CollectionConfig{}, err
	}
	return cfg, nil
}

func chapterConfig(m map[string]interface{}) (ChapterConfig, error) {
	cc := ChapterConfig{
		URL:    strings.TrimSpace(m["url"].(string)),
		Respec: m["respec"].(bool),
	}

	rm, ok := m["config"].(map[string]interface{})
	if !ok {
		return cc, nil
	}
	if s, ok := rm["publishDate"].(string); ok {
		cc.Config.PublishDate = strings.TrimSpace(s)
	}
	if s, ok := rm["specStatus"].(string); ok {
		cc.Config.SpecStatus = strings.TrimSpace(s)
	}
	if n, ok := rm["maxTocLevel"].(int); ok {
		cc.Config.MaxTocLevel = n
	}
	switch links := rm["addSectionLinks"].(type) {
	case bool:
		cc.Config.AddSectionLinks = &links
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(links))
		if err != nil {
			return ChapterConfig{}, fmt.Errorf("epub: addSectionLinks %q: %w", links, ErrConfiguration)
		}
		cc.Config.AddSectionLinks = &b
	}
	if !cc.Config.IsZero() {
		cc.Respec = true
	}
	return cc, nil
}

// Validate checks the invariants of a normalized configuration.
func (cfg CollectionConfig) Validate() error {
	if cfg.Name == "" {
		return fmt.Errorf("epub: collection has no name: %w", ErrConfiguration)
	}
	if !validID.MatchString(cfg.ID) {
		return fmt.Errorf("epub: collection id %q is not a valid file name: %w", cfg.ID, ErrConfiguration)
	}
	if len(cfg.ReadingOrder) == 0 {
		return fmt.Errorf("epub: collection %s has an empty reading order: %w", cfg.ID, ErrConfiguration)
	}
	for i, cc := range cfg.ReadingOrder {
		if cc.URL == "" {
			return fmt.Errorf("epub: readingOrder[%d] has no url: %w", i, ErrConfiguration)
		}
		if cc.Config.MaxTocLevel < 0 {
			return fmt.Errorf("epub: readingOrder[%d]: negative maxTocLevel: %w", i, ErrConfiguration)
		}
	}
	return nil
}

// LoadCollectionConfig fetches a collection descriptor from an http(s) URL
// or a local path and parses it. A failed retrieval is an ErrFetch.
func LoadCollectionConfig(ctx context.Context, location string) (CollectionConfig, error) {
	data, _, err := fetch(ctx, nil, location)
	if err != nil {
		return CollectionConfig{}, err
	}
	return ParseCollectionConfig(data)
}
