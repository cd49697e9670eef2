package ref

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/dag"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/loader"
	"github.com/vk/apispec/internal/pointer"
)

// Names of the findings Check can produce.
const (
	RuleUnresolved = "ref.unresolved"
	RuleCycle      = "ref.cycle"
)

// Check reports references in doc that cannot be resolved and chains of
// pure aliases that loop back on themselves. A schema that refers to itself
// through properties or items is recursive, not cyclic, and is accepted.
func (r *Resolver) Check(ctx context.Context, doc *loader.Document) issue.List {
	logger := ctxlog.Component(ctx, "ref")

	var issues issue.List
	refs := Collect(doc.Data)
	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		// Refs merged in from an included file are relative to that file.
		base := doc.OriginOf(ref.At.String())
		if _, err := r.Resolve(ctx, base, doc.Data, ref.Value); err != nil {
			issues = append(issues, issue.New(RuleUnresolved, issue.SeverityError, ref.At.Append(Key),
				"unresolved reference %q: %s", ref.Value, describe(err)))
		}
	}

	if cycle := aliasCycle(doc.Data, refs); cycle != nil {
		issues = append(issues, *cycle)
	}

	logger.Debug("References checked.", "path", doc.Path, "refs", len(refs), "issues", len(issues))
	return issues
}

// aliasCycle builds a graph of ref-only objects pointing at each other and
// reports the first loop in it.
func aliasCycle(data map[string]any, refs []Ref) *issue.Issue {
	aliases := map[string]string{}
	for _, ref := range refs {
		if !ref.IsLocal() {
			continue
		}
		holder, err := ref.At.Get(data)
		if err != nil {
			continue
		}
		m, _ := holder.(map[string]any)
		if _, ok := refOnly(m); !ok {
			continue
		}
		target, err := pointer.ParseFragment(ref.Value)
		if err != nil {
			continue
		}
		aliases[ref.At.String()] = target.String()
	}

	froms := make([]string, 0, len(aliases))
	for from := range aliases {
		froms = append(froms, from)
	}
	sort.Strings(froms)

	g := dag.New()
	for _, from := range froms {
		g.AddNode(from)
	}
	for _, from := range froms {
		to := aliases[from]
		if !g.HasNode(to) {
			continue
		}
		if err := g.AddEdge(from, to); err != nil {
			return cycleIssue(err)
		}
	}
	if err := g.DetectCycles(); err != nil {
		return cycleIssue(err)
	}
	return nil
}

func cycleIssue(err error) *issue.Issue {
	var cycle *dag.CycleError
	if !errors.As(err, &cycle) {
		return nil
	}
	at, _ := pointer.Parse(cycle.Start())
	steps := make([]string, len(cycle.Path))
	for i, p := range cycle.Path {
		steps[i] = "#" + p
	}
	found := issue.New(RuleCycle, issue.SeverityError, at.Append(Key),
		"reference cycle: %s", strings.Join(steps, " -> "))
	return &found
}
