package tree

import (
	"net/url"
	"path"
)

// ResolveJumpTo maps a jump_to link's server path onto the archive page
// holding the targeted block. A block matches when its block id equals the
// path's last segment or its LMS web URL carries the same path. Only
// vertical and course units have pages of their own, so other matches
// redirect down their first descendant chain.
func (t *Tree) ResolveJumpTo(targetPath string) (string, bool) {
	last := path.Base(targetPath)
	for _, unit := range t.All {
		if unit.Data.BlockID == last || lmsWebPath(unit) == targetPath {
			return pageForUnit(unit)
		}
	}
	return "", false
}

func pageForUnit(unit *Unit) (string, bool) {
	if unit.Kind == KindVertical || unit.Kind == KindCourse {
		return unit.RelativePath + "/index.html", true
	}
	if len(unit.Descendants) == 0 {
		return "", false
	}
	return pageForUnit(unit.Descendants[0])
}

func lmsWebPath(unit *Unit) string {
	parsed, err := url.Parse(unit.Data.LMSWebURL)
	if err != nil {
		return ""
	}
	return parsed.Path
}
