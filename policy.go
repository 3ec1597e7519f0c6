package epub

import "path"

// Transfer classifies a chapter entry for copying into a collection.
type Transfer int

const (
	// TransferAlways entries are copied under the chapter's folder.
	TransferAlways Transfer = iota

	// TransferOnce entries are shared assets, copied once at the collection
	// root by the first chapter.
	TransferOnce

	// TransferNever entries are regenerated at the collection level.
	TransferNever
)

// String returns the name of the transfer class.
func (t Transfer) String() string {
	switch t {
	case TransferOnce:
		return "once"
	case TransferNever:
		return "never"
	default:
		return "always"
	}
}

// TransferPolicy decides which chapter entries move into a collection and
// where they land. Entries are matched by their href relative to the
// chapter's package document.
type TransferPolicy struct {
	// NeverTransfer lists entries regenerated for the collection.
	NeverTransfer []string

	// TransferOnce lists shared assets kept at their top-level path and
	// contributed only by the first chapter.
	TransferOnce []string
}

// DefaultTransferPolicy returns the policy for chapters produced by the
// single-document converter.
func DefaultTransferPolicy() TransferPolicy {
	return TransferPolicy{
		NeverTransfer: []string{
			mimetypePath,
			containerPath,
			packagePath,
			navPath,
			titlePath,
			coverSVGPath,
		},
		TransferOnce: []string{
			"StyleSheets/base.css",
			"Icons/w3c_main.png",
		},
	}
}

// Classify returns the transfer class of href.
func (p TransferPolicy) Classify(href string) Transfer {
	href = path.Clean(href)
	for _, n := range p.NeverTransfer {
		if n == href {
			return TransferNever
		}
	}
	for _, o := range p.TransferOnce {
		if o == href {
			return TransferOnce
		}
	}
	return TransferAlways
}

// Transferable reports whether href is copied from a chapter; first marks
// the collection's first chapter, the only one contributing shared assets.
func (p TransferPolicy) Transferable(href string, first bool) bool {
	switch p.Classify(href) {
	case TransferNever:
		return false
	case TransferOnce:
		return first
	default:
		return true
	}
}

// TargetPath returns the collection path of a chapter entry: shared assets
// keep their path, everything else moves under "<chapterName>/".
func (p TransferPolicy) TargetPath(chapterName, href string) string {
	if p.Classify(href) == TransferOnce {
		return path.Clean(href)
	}
	return chapterName + "/" + path.Clean(href)
}
