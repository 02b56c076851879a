package statebox

import "strings"

// Merge reconciles two divergent versions of a state document after a save
// hit a version conflict. Remote is the base: it is authoritative for
// everything this process did not touch. The result is deterministic, and
// commutative in practice when the two sides edited disjoint parts.
//
// Policy per section:
//   - metadata: local non-nil values win; nested maps are unioned key-by-key
//     with local keys winning on collision, scalars are last-writer-wins.
//   - tasks: local task replaces the remote task of the same name wholesale;
//     local-only tasks are appended. Tasks are not field-merged because only
//     one writer is expected to progress a given task at a time; two writers
//     racing on the same task will have one side's non-overlapping fields
//     clobbered. Known limitation.
//   - issues: matched by normalized description. Resolution always beats
//     non-resolution; between two resolutions the later resolvedAt wins;
//     local-only issues are appended.
//
// Neither input is mutated.
func Merge(local, remote *StateDocument) *StateDocument {
	merged := remote.Clone()
	merged.Metadata = mergeMetadata(local.Metadata, merged.Metadata)
	merged.Tasks = mergeTasks(local.Tasks, merged.Tasks)
	merged.Issues = mergeIssues(local.Issues, merged.Issues)
	return merged
}

func mergeMetadata(local, remote Metadata) Metadata {
	if remote == nil {
		remote = Metadata{}
	}
	for key, localVal := range local {
		if localVal == nil {
			continue
		}
		localMap, localIsMap := asStringMap(localVal)
		if !localIsMap {
			remote[key] = localVal
			continue
		}
		remoteMap, remoteIsMap := asStringMap(remote[key])
		if !remoteIsMap {
			remote[key] = copyStringMap(localMap)
			continue
		}
		union := copyStringMap(remoteMap)
		for k, v := range localMap {
			union[k] = v
		}
		remote[key] = union
	}
	return remote
}

func copyStringMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeTasks(local, remote []Task) []Task {
	localByName := make(map[TaskName]Task, len(local))
	for _, t := range local {
		localByName[t.Name] = t
	}

	merged := make([]Task, 0, len(remote)+len(local))
	seen := make(map[TaskName]bool, len(remote))
	for _, rt := range remote {
		seen[rt.Name] = true
		if lt, ok := localByName[rt.Name]; ok {
			merged = append(merged, lt)
		} else {
			merged = append(merged, rt)
		}
	}
	// Local-only tasks keep their original relative order.
	for _, lt := range local {
		if !seen[lt.Name] {
			merged = append(merged, lt)
		}
	}
	return merged
}

// normalizeDescription trims and case-folds issue text for matching.
func normalizeDescription(desc string) string {
	return strings.ToLower(strings.TrimSpace(desc))
}

func mergeIssues(local, remote []Issue) []Issue {
	remoteByDesc := make(map[string]int, len(remote))
	for i, ri := range remote {
		remoteByDesc[normalizeDescription(ri.Description)] = i
	}

	merged := append([]Issue(nil), remote...)
	for _, li := range local {
		idx, ok := remoteByDesc[normalizeDescription(li.Description)]
		if !ok {
			merged = append(merged, li)
			continue
		}
		merged[idx] = pickIssue(li, merged[idx])
	}
	return merged
}

// pickIssue chooses between two versions of the same issue.
func pickIssue(local, remote Issue) Issue {
	switch {
	case local.Resolved && !remote.Resolved:
		return local
	case remote.Resolved && !local.Resolved:
		return remote
	case local.Resolved && remote.Resolved:
		if laterResolved(local, remote) {
			return local
		}
		return remote
	default:
		return remote
	}
}

func laterResolved(a, b Issue) bool {
	switch {
	case a.ResolvedAt == nil:
		return false
	case b.ResolvedAt == nil:
		return true
	default:
		return a.ResolvedAt.After(*b.ResolvedAt)
	}
}
