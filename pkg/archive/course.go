package archive

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"course-archiver/pkg/tree"
	"course-archiver/pkg/utils"
)

// CourseInfo is the course detail API payload, as far as the archive needs
// it for titles and summary metadata.
type CourseInfo struct {
	ID               string `json:"course_id"`
	Name             string `json:"name"`
	Org              string `json:"org"`
	ShortDescription string `json:"short_description"`
	Media            struct {
		CourseImage struct {
			URI string `json:"uri"`
		} `json:"course_image"`
	} `json:"media"`
}

// courseIDFromURL extracts the URL-encoded course identifier from a course
// page URL: the part between the instance's course prefix and its trailing
// page segment.
func courseIDFromURL(courseURL, instanceURL, coursePrefix, coursePageName string) (string, error) {
	pattern := regexp.QuoteMeta(instanceURL+coursePrefix) + ".*" + regexp.QuoteMeta(coursePageName)
	match := regexp.MustCompile(pattern).FindString(courseURL)
	if match == "" {
		return "", fmt.Errorf("%w: course URL %q does not match %s<course-id>%s on %s",
			utils.ErrParsing, courseURL, coursePrefix, coursePageName, instanceURL)
	}
	id := match[len(instanceURL+coursePrefix) : len(match)-len(coursePageName)]
	// Course ids arrive either raw or already percent-encoded.
	if !strings.Contains(id, "%3") {
		id = url.QueryEscape(id)
	}
	return id, nil
}

// prepareCourseData resolves the course id, loads the course detail and
// blocks APIs and builds the unit tree.
func (a *Archiver) prepareCourseData(ctx context.Context) error {
	// Instances commonly redirect shortened or legacy course URLs.
	courseURL, err := a.sess.GetRedirection(ctx, a.cfg.CourseURL)
	if err != nil {
		a.log.Warnf("Cannot resolve course URL redirection, using it as is: %v", err)
		courseURL = a.cfg.CourseURL
	}
	id, err := courseIDFromURL(courseURL, a.instance.InstanceURL, a.instance.CoursePrefix, a.instance.CoursePageName)
	if err != nil {
		return err
	}
	a.courseID = id

	decoded, err := url.QueryUnescape(id)
	if err != nil {
		decoded = id
	}
	a.loc.SetCoursePathPrefix(a.instance.PathPrefix(decoded))
	a.log.WithField("course_id", decoded).Info("Getting course info ...")

	infoPath := "/api/courses/v1/courses/" + a.courseID + "?username=" + url.QueryEscape(a.sess.User)
	if err := a.sess.GetAPIJSON(ctx, infoPath, nil, &a.courseInfo); err != nil {
		return err
	}

	a.log.Info("Getting course structure ...")
	blocksPath := "/api/courses/v1/blocks/?" + url.Values{
		"course_id":         {decoded},
		"username":          {a.sess.User},
		"depth":             {"all"},
		"requested_fields":  {"graded,format,student_view_multi_device"},
		"student_view_data": {"video"},
		"block_counts":      {"video"},
		"nav_depth":         {"3"},
	}.Encode()
	var blocks tree.BlocksResponse
	if err := a.sess.GetAPIJSON(ctx, blocksPath, nil, &blocks); err != nil {
		return err
	}

	courseTree, err := tree.Build(&blocks, a.cfg.IgnoreUnsupportedUnits)
	if err != nil {
		return err
	}
	a.tree = courseTree
	a.log.WithField("units", len(courseTree.All)).Info("Course structure parsed")
	return nil
}

// instanceURL builds an absolute URL on the instance for a server path,
// passing already-absolute URLs through.
func (a *Archiver) instanceURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return a.instance.InstanceURL + path
}
