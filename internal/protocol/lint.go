package protocol

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Issue is one catalog problem found by Lint.
type Issue struct {
	Method    string
	Variation string
	Detail    string
}

func (i Issue) String() string {
	if i.Variation == "" {
		return fmt.Sprintf("%s: %s", i.Method, i.Detail)
	}
	return fmt.Sprintf("%s/%s: %s", i.Method, i.Variation, i.Detail)
}

// Lint runs the semantic checks the JSON schema cannot express, one
// method per goroutine. Issues are advisory: the store keeps serving a
// catalog that lints dirty, degrading bad entries to the builtin
// protocol at lookup time.
func (s *Store) Lint(ctx context.Context) ([]Issue, error) {
	s.mu.RLock()
	catalog := s.catalog
	s.mu.RUnlock()

	var mu sync.Mutex
	var issues []Issue

	g, ctx := errgroup.WithContext(ctx)
	for name, proto := range catalog.Methods {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			found := lintMethod(name, proto)
			mu.Lock()
			issues = append(issues, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Method != issues[j].Method {
			return issues[i].Method < issues[j].Method
		}
		if issues[i].Variation != issues[j].Variation {
			return issues[i].Variation < issues[j].Variation
		}
		return issues[i].Detail < issues[j].Detail
	})
	return issues, nil
}

func lintMethod(name string, proto Protocol) []Issue {
	var issues []Issue

	if !knownMethod(name) {
		issues = append(issues, Issue{Method: name, Detail: "unknown method, entry ignored by routing"})
	}
	if len(proto.Variations) == 0 {
		issues = append(issues, Issue{Method: name, Detail: "no variations"})
		return issues
	}
	if _, ok := proto.Variations["standard"]; !ok {
		issues = append(issues, Issue{Method: name, Detail: "missing standard variation, detection defaults will miss"})
	}

	for vname, v := range proto.Variations {
		if len(v.Steps) == 0 {
			issues = append(issues, Issue{Method: name, Variation: vname, Detail: "no steps"})
			continue
		}
		for i, step := range v.Steps {
			if step.Index != i {
				issues = append(issues, Issue{
					Method: name, Variation: vname,
					Detail: fmt.Sprintf("step %d declares index %d", i, step.Index),
				})
			}
			if strings.TrimSpace(step.Instruction) == "" {
				issues = append(issues, Issue{
					Method: name, Variation: vname,
					Detail: fmt.Sprintf("step %d has an empty instruction", i),
				})
			}
		}
		// Progression past the last step needs indicators to match on.
		last := v.Steps[len(v.Steps)-1]
		if len(last.SuccessIndicators) == 0 {
			issues = append(issues, Issue{
				Method: name, Variation: vname,
				Detail: "final step has no success indicators, completion is unreachable without adjustment",
			})
		}
		for key, ar := range v.AdaptiveResponses {
			if len(ar.Keywords) == 0 {
				issues = append(issues, Issue{
					Method: name, Variation: vname,
					Detail: fmt.Sprintf("adaptive response %q has no keywords", key),
				})
			}
			if strings.TrimSpace(ar.Message) == "" {
				issues = append(issues, Issue{
					Method: name, Variation: vname,
					Detail: fmt.Sprintf("adaptive response %q has an empty message", key),
				})
			}
		}
	}
	return issues
}
