// Package epub assembles EPUB 3 collections out of single-document EPUB
// files, such as W3C technical reports rendered one by one.
//
// A collection is described by a [CollectionConfig]: a title, a short id,
// and the chapter documents in reading order. Each chapter is rendered by a
// [Converter] into a self-contained EPUB [Container]; the [Assembler]
// extracts the chapters concurrently, merges their resources under one
// folder per chapter, and writes a new package document, navigation
// document, cover, and title page for the whole collection.
//
// # Building a collection
//
//	cfg, err := epub.LoadCollectionConfig(ctx, "vc.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	a := epub.NewAssembler(&epub.ArchiveConverter{Endpoint: endpoint})
//	c, err := a.Build(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	f, _ := os.Create(c.Name())
//	defer f.Close()
//	c.WriteTo(f)
//
// # Chapters
//
// A [PendingChapter] only records where a chapter comes from.
// [PendingChapter.Extract] renders it and returns an immutable [Chapter]
// holding the resources worth transferring, with their payloads. Which
// entries are transferred is decided by a [TransferPolicy]: files
// regenerated for the collection are never copied, shared assets such as
// the base style sheet are copied once, from the first chapter only.
//
// Absolute links between chapters of the same collection are rewritten to
// relative ones by [RewriteCrossReferences].
//
// # Package documents
//
// [PackageBuilder] accumulates metadata, manifest items, and spine entries
// and serializes them as an EPUB 3 package document. [DetectProperties] and
// [OverviewResource] compute the manifest properties of a content document.
//
// # Error Handling
//
// The package defines sentinel errors; wrapped errors keep their kind:
//   - [ErrConfiguration] – the collection descriptor is malformed
//   - [ErrFetch] – a chapter or descriptor could not be retrieved
//   - [ErrParse] – a chapter archive or one of its documents is unreadable
//   - [ErrDuplicateID] – two manifest items or chapters collide
//   - [ErrDanglingSpineRef] – a spine entry names no manifest item
//   - [ErrNotInitialized] – a [Chapter] was not produced by an extraction
//   - [ErrNotFound] – a requested entry is not in the container
//   - [ErrContainerSealed] – a container was written to after serialization
package epub
