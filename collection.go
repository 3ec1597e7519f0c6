package epub

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"golang.org/x/sync/errgroup"
)

// dateLayout is the layout of chapter publication dates.
const dateLayout = "2006-01-02"

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger. A nil logger discards.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithPublishingHost sets the host of the technical reports, used for cross
// references between chapters.
func WithPublishingHost(host string) Option {
	return func(a *Assembler) {
		if host != "" {
			a.host = host
		}
	}
}

// WithTransferPolicy replaces DefaultTransferPolicy.
func WithTransferPolicy(p TransferPolicy) Option {
	return func(a *Assembler) {
		a.policy = p
	}
}

// WithClock sets the clock giving the publication date of a collection
// whose chapters carry no date.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// Assembler builds collections out of chapters rendered by a Converter.
// An Assembler holds no per-collection state and may run several builds
// concurrently.
type Assembler struct {
	conv   Converter
	logger *slog.Logger
	host   string
	policy TransferPolicy
	now    func() time.Time
}

// NewAssembler returns an assembler rendering chapters with conv.
func NewAssembler(conv Converter, opts ...Option) *Assembler {
	a := &Assembler{
		conv:   conv,
		logger: slog.New(slog.DiscardHandler),
		host:   DefaultPublishingHost,
		policy: DefaultTransferPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Collection is a set of extracted chapters with the collection-level
// metadata aggregated from them.
type Collection struct {
	// Title is the collection title.
	Title string

	// Name is the collection's short name; the output file is
	// "<Name>.epub".
	Name string

	// Identifier is the collection's dc:identifier, a "urn:uuid:" URN
	// derived from Name.
	Identifier string

	// Editors is the union of the chapters' editors, without repetitions,
	// in order of first appearance.
	Editors []string

	// Date is the most recent chapter publication date.
	Date time.Time

	// WCAGConforms reports that every chapter declares WCAG conformance.
	WCAGConforms bool

	// Chapters are the extracted chapters in reading order.
	Chapters []*Chapter

	host   string
	policy TransferPolicy
}

// Assemble validates cfg, extracts all chapters concurrently, and
// aggregates their metadata. The first chapter in reading order is the one
// contributing shared assets. If any chapter fails, the whole collection
// fails; the other extractions run to completion and are discarded.
func (a *Assembler) Assemble(ctx context.Context, cfg CollectionConfig) (*Collection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	chapters := make([]*Chapter, len(cfg.ReadingOrder))
	var g errgroup.Group
	for i, cc := range cfg.ReadingOrder {
		pending := NewPendingChapter(cc.Source(), i == 0)
		g.Go(func() error {
			ch, err := pending.Extract(ctx, a.conv, a.policy)
			if err != nil {
				return errors.Annotatef(err, "chapter %d (%s)", i, cc.URL)
			}
			chapters[i] = ch
			a.logger.Debug("chapter extracted",
				slog.String("url", cc.URL),
				slog.String("name", ch.info.Name),
				slog.Int("resources", len(ch.resources)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	coll := &Collection{
		Title:        cfg.Name,
		Name:         cfg.ID,
		Identifier:   collectionIdentifier(a.host, cfg.ID),
		WCAGConforms: true,
		Chapters:     chapters,
		host:         a.host,
		policy:       a.policy,
	}

	seenNames := make(map[string]bool, len(chapters))
	seenEditors := make(map[string]bool)
	for _, ch := range chapters {
		info := ch.info
		// Cross references match names case-insensitively.
		key := strings.ToLower(info.Name)
		if seenNames[key] {
			return nil, fmt.Errorf("epub: chapter name %q used twice: %w", info.Name, ErrDuplicateID)
		}
		seenNames[key] = true

		for _, e := range info.Editors {
			if !seenEditors[e] {
				seenEditors[e] = true
				coll.Editors = append(coll.Editors, e)
			}
		}

		if info.Date != "" {
			d, err := time.Parse(dateLayout, info.Date)
			if err != nil {
				return nil, fmt.Errorf("epub: chapter %s: date %q: %w", info.Name, info.Date, ErrParse)
			}
			if d.After(coll.Date) {
				coll.Date = d
			}
		}

		coll.WCAGConforms = coll.WCAGConforms && info.WCAGConforms
	}
	if coll.Date.IsZero() {
		now := a.now().UTC()
		coll.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return coll, nil
}

// Build assembles the collection described by cfg and stores it in a new
// container named "<id>.epub". Nothing is returned unless every step
// succeeds.
func (a *Assembler) Build(ctx context.Context, cfg CollectionConfig) (*Container, error) {
	coll, err := a.Assemble(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c, err := coll.Store()
	if err != nil {
		return nil, err
	}
	a.logger.Info("collection built",
		slog.String("id", coll.Name),
		slog.String("identifier", coll.Identifier),
		slog.Int("chapters", len(coll.Chapters)),
		slog.Int("entries", len(c.Paths())),
	)
	return c, nil
}

// collectionIdentifier derives a stable URN for a collection id.
func collectionIdentifier(host, id string) string {
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://"+host+"/TR/"+id+"/")).String()
}

// placedResource is a chapter resource at its collection path and id.
type placedResource struct {
	Resource
	main bool
}

// place maps the resources of ch to their collection paths and ids. The
// returned map takes chapter ids to collection ids.
func (c *Collection) place(ch *Chapter) ([]placedResource, map[string]string) {
	name := ch.info.Name
	prefix := idPrefix(name)
	out := make([]placedResource, 0, len(ch.resources))
	ids := make(map[string]string, len(ch.resources))
	for _, r := range ch.resources {
		p := placedResource{Resource: r, main: r.Path == mainDocument}
		p.Path = c.policy.TargetPath(name, r.Path)
		if c.policy.Classify(r.Path) != TransferOnce {
			p.ID = prefix + r.ID
		}
		ids[r.ID] = p.ID
		out = append(out, p)
	}
	return out, ids
}

var nonNameChar = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// idPrefix turns a chapter name into a prefix for XML ids.
func idPrefix(name string) string {
	p := nonNameChar.ReplaceAllString(name, "_")
	if p == "" || !(p[0] == '_' || (p[0] >= 'A' && p[0] <= 'Z') || (p[0] >= 'a' && p[0] <= 'z')) {
		p = "_" + p
	}
	return p + "_"
}

// packageBuilder fills a builder with the collection's metadata, the
// generated documents, and every chapter's resources and reading order.
func (c *Collection) packageBuilder() (*PackageBuilder, error) {
	b := NewPackageBuilder(c.Identifier, c.Title)
	b.AddCreators(c.Editors...)
	b.AddDates(c.Date)
	if c.WCAGConforms {
		b.AddWCAGLink()
	}

	fixed := []ManifestItem{
		{ID: StartID, Href: coverPath, MediaType: MediaTypeXHTML},
		{ID: coverImageID, Href: coverSVGPath, MediaType: MediaTypeSVG, Properties: "cover-image"},
		{ID: navID, Href: navPath, MediaType: MediaTypeXHTML, Properties: "nav"},
		{ID: MainID, Href: titlePath, MediaType: MediaTypeXHTML},
	}
	for _, it := range fixed {
		if err := b.AddManifestItem(it, false); err != nil {
			return nil, err
		}
	}

	for _, ch := range c.Chapters {
		placed, ids := c.place(ch)
		for _, p := range placed {
			if err := b.AddManifestItem(p.ManifestItem(), false); err != nil {
				return nil, fmt.Errorf("epub: chapter %s: %w", ch.info.Name, err)
			}
		}

		nonLinear := make(map[string]bool, len(ch.info.NonLinear))
		for _, id := range ch.info.NonLinear {
			nonLinear[id] = true
		}
		for _, ref := range ch.spine {
			id, ok := ids[ref.IDRef]
			if !ok {
				continue
			}
			b.AddSpineItem(id, ref.NonLinear || nonLinear[ref.IDRef])
		}
	}
	return b, nil
}

// PackageDocument returns the serialized package document of the
// collection.
func (c *Collection) PackageDocument() (string, error) {
	b, err := c.packageBuilder()
	if err != nil {
		return "", err
	}
	return b.Serialize()
}

// Store writes the collection into a new container: the package document,
// the cover, navigation, and title pages, then every chapter resource. The
// main content document of each chapter gets its cross references to
// sibling chapters rewritten.
func (c *Collection) Store() (*Container, error) {
	opf, err := c.PackageDocument()
	if err != nil {
		return nil, err
	}
	nav, err := MergeNavigation(c.Title, c.Chapters, c.policy)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(c.Chapters))
	toc := make([]titleChapter, 0, len(c.Chapters))
	for _, ch := range c.Chapters {
		names = append(names, ch.info.Name)
		tc := titleChapter{Title: ch.info.Title}
		if tc.Title == "" {
			tc.Title = ch.info.Name
		}
		if ch.hasResource(mainDocument) {
			tc.Href = c.policy.TargetPath(ch.info.Name, mainDocument)
		}
		toc = append(toc, tc)
	}

	out := NewContainer(c.Name + ".epub")
	text := PutOptions{Compress: true}
	generated := []struct {
		path, text string
	}{
		{packagePath, opf},
		{coverPath, coverPage(c.Title)},
		{coverSVGPath, coverImage(c.Title, c.Date)},
		{navPath, nav},
		{titlePath, titlePage(c.Title, c.Editors, c.Date, toc)},
	}
	for _, g := range generated {
		if err := out.PutText(g.path, g.text, text); err != nil {
			return nil, err
		}
	}

	for _, ch := range c.Chapters {
		placed, _ := c.place(ch)
		siblings := siblingNames(names, ch.info.Name)
		for _, p := range placed {
			if out.Has(p.Path) {
				return nil, fmt.Errorf("epub: chapter %s: path %s already stored: %w", ch.info.Name, p.Path, ErrDuplicateID)
			}
			data := p.Data
			if p.main && p.Text {
				data = []byte(RewriteCrossReferences(string(data), ch.info.Name, siblings, c.host))
			}
			if err := out.Put(p.Path, data, p.storeOptions()); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
