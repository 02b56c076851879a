package statebox

import (
	"strings"
)

// DocumentPath derives the storage path for a release's state document:
// {prefix}/{major-line}/statebox/{release}.yaml. The major line is the first
// two dotted components of the release string ("4.16" for "4.16.9"); releases
// without a second component use the release string itself.
func DocumentPath(prefix, release string) string {
	parts := strings.SplitN(release, ".", 3)
	majorLine := release
	if len(parts) >= 2 {
		majorLine = parts[0] + "." + parts[1]
	}
	return strings.TrimSuffix(prefix, "/") + "/" + majorLine + "/statebox/" + release + ".yaml"
}
