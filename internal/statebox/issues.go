package statebox

import (
	"context"
	"strings"

	sberr "git.home.luguber.info/inful/statebox/internal/errors"
)

// maxIssueDescription bounds issue text; anything longer belongs in a linked
// ticket, not the state document.
const maxIssueDescription = 2000

// AddIssue records a new issue against the release. Blocking issues naming
// tasks are checked against the at-most-one-unresolved-blocker-per-task rule;
// general issues (no related tasks) are exempt. Descriptions are deduplicated
// case-insensitively against unresolved issues: a duplicate returns the
// existing entry with created=false instead of appending.
func (s *StateBox) AddIssue(ctx context.Context, description string, blocker bool, relatedTasks []TaskName) (Issue, bool, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return Issue{}, false, sberr.New(sberr.KindValidation, "issue description must not be blank")
	}
	if len(description) > maxIssueDescription {
		return Issue{}, false, sberr.Newf(sberr.KindValidation, "issue description exceeds %d characters", maxIssueDescription)
	}
	for _, name := range relatedTasks {
		if !name.Valid() {
			return Issue{}, false, sberr.Newf(sberr.KindValidation, "unknown task name %q in related tasks", name)
		}
	}

	var (
		result  Issue
		created bool
	)
	_, err := s.mutate(ctx, true, func(doc *StateDocument) (Event, error) {
		normalized := normalizeDescription(description)
		for i := range doc.Issues {
			if !doc.Issues[i].Resolved && normalizeDescription(doc.Issues[i].Description) == normalized {
				result = doc.Issues[i]
				created = false
				return Event{}, errNoChange
			}
		}

		if blocker {
			for _, name := range relatedTasks {
				if existing := unresolvedBlockerFor(doc, name); existing != nil {
					return Event{}, sberr.Newf(sberr.KindDomainRule,
						"task %s already has an unresolved blocker: %q", name, existing.Description).
						WithContext("task", string(name)).
						WithContext("existing", existing.Description)
				}
			}
		}

		issue := Issue{
			Description:  description,
			ReportedAt:   s.now(),
			Blocker:      blocker,
			RelatedTasks: append([]TaskName(nil), relatedTasks...),
		}
		doc.Issues = append(doc.Issues, issue)
		result = issue
		created = true
		return Event{Release: s.release, Type: EventIssueAdded, Detail: description, At: s.now()}, nil
	})
	if err != nil {
		return Issue{}, false, err
	}
	return result, created, nil
}

// ResolveIssue marks an unresolved issue resolved. The query is matched
// exactly (case-insensitive) first; failing that, by substring containment
// against all unresolved issues. No match or multiple substring matches is a
// domain-rule error listing the candidates, so the caller can disambiguate
// without re-querying.
func (s *StateBox) ResolveIssue(ctx context.Context, query, resolution string) (Issue, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Issue{}, sberr.New(sberr.KindValidation, "issue query must not be blank")
	}

	var resolved Issue
	_, err := s.mutate(ctx, true, func(doc *StateDocument) (Event, error) {
		idx, err := findIssue(doc, query)
		if err != nil {
			return Event{}, err
		}
		now := s.now()
		doc.Issues[idx].Resolved = true
		doc.Issues[idx].Resolution = resolution
		doc.Issues[idx].ResolvedAt = &now
		resolved = doc.Issues[idx]
		return Event{Release: s.release, Type: EventIssueResolved, Detail: resolved.Description, At: now}, nil
	})
	if err != nil {
		return Issue{}, err
	}
	return resolved, nil
}

func findIssue(doc *StateDocument, query string) (int, error) {
	normalizedQuery := normalizeDescription(query)

	unresolved := make([]int, 0, len(doc.Issues))
	for i := range doc.Issues {
		if !doc.Issues[i].Resolved {
			unresolved = append(unresolved, i)
		}
	}

	// Exact case-insensitive match wins outright.
	for _, i := range unresolved {
		if normalizeDescription(doc.Issues[i].Description) == normalizedQuery {
			return i, nil
		}
	}

	// Fall back to substring containment.
	matches := make([]int, 0, 2)
	for _, i := range unresolved {
		if strings.Contains(normalizeDescription(doc.Issues[i].Description), normalizedQuery) {
			matches = append(matches, i)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return 0, sberr.Newf(sberr.KindDomainRule, "no unresolved issue matches %q; unresolved issues: %s",
			query, issueDescriptions(doc, unresolved))
	default:
		return 0, sberr.Newf(sberr.KindDomainRule, "%q matches %d unresolved issues, be more specific: %s",
			query, len(matches), issueDescriptions(doc, matches))
	}
}

func issueDescriptions(doc *StateDocument, indexes []int) string {
	if len(indexes) == 0 {
		return "(none)"
	}
	parts := make([]string, len(indexes))
	for i, idx := range indexes {
		parts[i] = "\"" + doc.Issues[idx].Description + "\""
	}
	return strings.Join(parts, "; ")
}

func unresolvedBlockerFor(doc *StateDocument, name TaskName) *Issue {
	for i := range doc.Issues {
		is := &doc.Issues[i]
		if is.Blocker && !is.Resolved && is.References(name) {
			return is
		}
	}
	return nil
}

// IssueFilter selects issues in GetIssues. Nil fields match everything.
type IssueFilter struct {
	Resolved *bool
	Blocker  *bool
	Task     *TaskName
}

// GetIssues returns the issues matching the filter, in document order.
func (s *StateBox) GetIssues(ctx context.Context, filter IssueFilter) ([]Issue, error) {
	doc, err := s.Load(ctx, false)
	if err != nil {
		return nil, err
	}
	var out []Issue
	for _, is := range doc.Issues {
		if filter.Resolved != nil && is.Resolved != *filter.Resolved {
			continue
		}
		if filter.Blocker != nil && is.Blocker != *filter.Blocker {
			continue
		}
		if filter.Task != nil && !is.References(*filter.Task) {
			continue
		}
		out = append(out, is)
	}
	return out, nil
}

// GetTaskBlocker returns the unresolved blocker referencing the task, if any.
func (s *StateBox) GetTaskBlocker(ctx context.Context, name TaskName) (Issue, bool, error) {
	if !name.Valid() {
		return Issue{}, false, sberr.Newf(sberr.KindValidation, "unknown task name %q", name)
	}
	doc, err := s.Load(ctx, false)
	if err != nil {
		return Issue{}, false, err
	}
	if b := unresolvedBlockerFor(doc, name); b != nil {
		return *b, true, nil
	}
	return Issue{}, false, nil
}

// GetGeneralBlockers returns unresolved blockers with no related tasks,
// i.e. release-wide impediments.
func (s *StateBox) GetGeneralBlockers(ctx context.Context) ([]Issue, error) {
	doc, err := s.Load(ctx, false)
	if err != nil {
		return nil, err
	}
	var out []Issue
	for _, is := range doc.Issues {
		if is.Blocker && !is.Resolved && is.General() {
			out = append(out, is)
		}
	}
	return out, nil
}
