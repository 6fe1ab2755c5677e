// Package mediawiki provides a rate-limited client for the MediaWiki action API.
//
// All calls use format=json&formatversion=2. The client:
//   - waits on a shared ratelimit.Limiter before every HTTP request
//   - retries transient failures and throttling through pkg/retry
//   - surfaces the {"error":{...}} envelope as a typed *errors.Error
//   - follows continue objects for prop queries
//
// Example usage:
//
//	client := mediawiki.NewClientFromConfig(cfg, log)
//
//	list, err := client.ListPages(ctx, 0, 500, "")
//	cats, err := client.FetchCategories(ctx, []int{12, 13, 14})
//	content, err := client.FetchContent(ctx, []int{12, 13, 14})
package mediawiki
