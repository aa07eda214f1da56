// Package coordinator triggers sync runs: for one connection on demand, for all
// active connections at once, and on a cron schedule in serve mode.
//
// Every run holds the per-connection lock for its whole duration. A trigger that
// finds the lock taken reports the connection as skipped and does not retry.
// Runs for different connections fan out with bounded concurrency, and a failed
// connection never stops its siblings:
//
//	results, err := coord.RunSyncAll(ctx)
//	for _, r := range results {
//	    if r.Err != nil {
//	        // r.Err is a *sync.Error with Kind and Stage
//	    }
//	}
//
// Each run moves the connection's status to Syncing before it starts and to
// Complete or Failed when it ends, marks the connection synced on success and
// publishes a sync event.
package coordinator
