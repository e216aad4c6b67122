package core

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// sequentialItems runs items one after another in input order. Each item gets
// a fresh retry policy; a producer error aborts the batch without results.
func sequentialItems[State any, Item any, Result any](s *settings, base BatchBaseNode[State, Item, Result]) executor[Items[Item], []Result] {
	return func(ctx context.Context, rt *runtime, items Items[Item], params Params) ([]Result, error) {
		results := []Result{}
		if items == nil {
			return results, nil
		}
		i := 0
		for item, err := range items {
			if err != nil {
				return nil, wrapNodeError(s.name, PhaseItems, err)
			}
			result, err := runItem(ctx, rt, s, base, i, item, params)
			if err != nil {
				return nil, err
			}
			results = append(results, result)
			i++
		}
		return results, nil
	}
}

// parallelItems drains the sequence first, then runs every item in its own
// goroutine. There is no concurrency cap. The first fallback failure fails
// the batch once all goroutines have returned.
func parallelItems[State any, Item any, Result any](s *settings, base BatchBaseNode[State, Item, Result]) executor[Items[Item], []Result] {
	return func(ctx context.Context, rt *runtime, items Items[Item], params Params) ([]Result, error) {
		all, err := items.Collect()
		if err != nil {
			return nil, wrapNodeError(s.name, PhaseItems, err)
		}
		results := make([]Result, len(all))

		var g errgroup.Group
		for i, item := range all {
			g.Go(func() error {
				result, err := runItem(ctx, rt, s, base, i, item, params)
				if err != nil {
					return err
				}
				results[i] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return results, nil
	}
}

func runItem[State any, Item any, Result any](ctx context.Context, rt *runtime, s *settings, base BatchBaseNode[State, Item, Result], index int, item Item, params Params) (Result, error) {
	return executeWithRetry(ctx, rt, s.name, index, s.retry,
		func(attempt int) (Result, error) {
			return base.Exec(ctx, item, params, attempt)
		},
		func(err error, attempt int) (Result, error) {
			return base.ExecFallback(ctx, item, err, params, attempt)
		})
}
