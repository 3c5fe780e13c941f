package worker

import (
	"context"
	"sync"
)

// ForEach runs fn for indices [0,n) with at most parallel goroutines in
// flight. Dispatch stops once ctx is cancelled: indices not yet started are
// simply never run, which lets an interrupted sweep leave untouched jobs
// reselectable. Started calls always run to completion.
func ForEach(ctx context.Context, parallel, n int, fn func(ctx context.Context, i int)) {
	if parallel <= 0 {
		parallel = 1
	}
	if parallel > n {
		parallel = n
	}
	if n <= 0 {
		return
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, parallel)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(ctx, i)
		}(i)
	}
	wg.Wait()
}
