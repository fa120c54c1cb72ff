// Package retry provides bounded polling with a pluggable delay strategy.
//
// Export jobs are awaited by polling a progress resource at a fixed interval.
// Poll runs the first attempt immediately, waits between attempts, and gives
// up with a timeout error once the attempt cap or the wall-clock limit is
// reached:
//
//	err := retry.Poll(ctx, retry.FixedInterval(time.Second, 0, 30*time.Minute),
//	    func(ctx context.Context, attempt int) (bool, error) {
//	        p, err := fetchProgress(ctx)
//	        if err != nil {
//	            return false, err
//	        }
//	        return p.Finished, nil
//	    })
package retry
