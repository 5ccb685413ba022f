package subagent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// SpawnAll runs every request concurrently and returns one Outcome per
// request in the same order, using the same settle-all discipline as
// toolexec.Executor.Dispatch: one child's failure does not cancel its
// siblings.
func (s *Spawner) SpawnAll(ctx context.Context, reqs []Request) []Outcome {
	outcomes := make([]Outcome, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			out, err := s.Spawn(gctx, req)
			if err != nil {
				out = Outcome{Success: false, FinalText: err.Error()}
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
