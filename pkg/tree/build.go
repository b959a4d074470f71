package tree

import (
	"fmt"

	"github.com/google/uuid"

	"course-archiver/pkg/utils"
)

// Build turns a blocks API response into a Tree. Directory names come from
// slugified display names, accumulated from the root down; RootURL gains one
// back jump per level. A block of an unsupported type aborts the build
// unless ignoreUnsupported is set, in which case it becomes a placeholder
// unit.
func Build(resp *BlocksResponse, ignoreUnsupported bool) (*Tree, error) {
	t := &Tree{}

	var makeUnit func(currentPath, currentID, rootURL string) (*Unit, error)
	makeUnit = func(currentPath, currentID, rootURL string) (*Unit, error) {
		block, ok := resp.Blocks[currentID]
		if !ok {
			return nil, fmt.Errorf("%w: block %q referenced but not present in response", utils.ErrParsing, currentID)
		}

		folder := utils.Slugify(block.DisplayName)
		unitPath := currentPath + "/" + folder
		rootURL += "../"

		kind, supported := KindOf(block.Type)
		if !supported {
			if !ignoreUnsupported {
				return nil, fmt.Errorf("%w: block type %q at %s", utils.ErrUnsupportedUnit, block.Type, block.StudentViewURL)
			}
			kind = KindUnavailable
		}

		unit := &Unit{
			Data:         block,
			Kind:         kind,
			Token:        uuid.NewString(),
			RelativePath: unitPath,
			RootURL:      rootURL,
			FolderName:   folder,
		}
		for _, childID := range block.Descendants {
			child, err := makeUnit(unitPath, childID, rootURL)
			if err != nil {
				return nil, err
			}
			unit.Descendants = append(unit.Descendants, child)
		}

		if kind == KindCourse {
			t.Root = unit
		}
		t.All = append(t.All, unit)
		return unit, nil
	}

	root, err := makeUnit("course", resp.Root, "../")
	if err != nil {
		return nil, err
	}
	if t.Root == nil {
		t.Root = root
	}
	return t, nil
}
