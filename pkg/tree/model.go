package tree

import "encoding/json"

// Kind classifies a course block by how it is archived.
type Kind string

const (
	KindCourse      Kind = "course"
	KindChapter     Kind = "chapter"
	KindSequential  Kind = "sequential"
	KindVertical    Kind = "vertical"
	KindHTML        Kind = "html"
	KindVideo       Kind = "video"
	KindUnavailable Kind = "unavailable"
)

// kindAliases maps source block types onto archive kinds. Text-like blocks
// all archive the way plain HTML blocks do.
var kindAliases = map[string]Kind{
	"course":           KindCourse,
	"chapter":          KindChapter,
	"sequential":       KindSequential,
	"vertical":         KindVertical,
	"html":             KindHTML,
	"problem":          KindHTML,
	"freetextresponse": KindHTML,
	"qualtricssurvey":  KindHTML,
	"video":            KindVideo,
}

// KindOf maps a source block type to its archive kind. Unknown types report
// ok=false so the caller can decide between aborting and archiving a
// placeholder.
func KindOf(blockType string) (Kind, bool) {
	k, ok := kindAliases[blockType]
	return k, ok
}

// BlockData is one block record from the course blocks API.
type BlockData struct {
	ID              string          `json:"id"`
	BlockID         string          `json:"block_id"`
	Type            string          `json:"type"`
	DisplayName     string          `json:"display_name"`
	StudentViewURL  string          `json:"student_view_url"`
	LMSWebURL       string          `json:"lms_web_url"`
	Descendants     []string        `json:"descendants"`
	StudentViewData json.RawMessage `json:"student_view_data"`
}

// BlocksResponse is the course blocks API payload.
type BlocksResponse struct {
	Root   string               `json:"root"`
	Blocks map[string]BlockData `json:"blocks"`
}

// Unit is one node of the archived course tree.
type Unit struct {
	Data BlockData
	Kind Kind

	// Token is a run-scoped unique id used to key generated page elements.
	Token string
	// RelativePath is the unit's directory under the build root, slash
	// separated ("course/chapter-1/seq-1/vertical-1").
	RelativePath string
	// RootURL is the back-jump prefix from the unit's directory to the
	// build root.
	RootURL string
	// FolderName is the last segment of RelativePath.
	FolderName string

	Descendants []*Unit

	// Content holds the unit's localized HTML, filled during download and
	// consumed during render.
	Content string
}

// Tree is the parsed course structure.
type Tree struct {
	// Root is the course block itself.
	Root *Unit
	// All lists every unit in construction order.
	All []*Unit
}
