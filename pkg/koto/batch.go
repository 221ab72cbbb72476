package koto

import "golang.org/x/sync/errgroup"

// RunBatch evaluates several independent scripts concurrently, each on its
// own fresh VM built by newVM (so the caller controls bindings/module
// roots per run). Safe because no two goroutines ever touch the same
// exec.VM - the VM's single-writer register-file constraint only forbids
// concurrent use of the SAME instance, not independent instances. Useful
// for a host running a batch of unrelated scripts (e.g. one per request).
func RunBatch(sources []string, newVM func() *VM) ([]interface{}, error) {
	results := make([]interface{}, len(sources))
	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			v := newVM()
			r, err := v.Run(src)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
