// Package linclient provides the primary entry point for constructing a
// Linear API client with retries, a TTL cache, cursor pagination and
// identifier resolution already wired together.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/linctl/pkg/linclient"
//	  "github.com/fivetwenty-io/linctl/pkg/linear"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := linclient.NewWithAPIKey("lin_api_...")
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  // "ENG" may be a team key or name; a cached catalog answers without a request.
//	  teamID, err := cli.ResolveTeamID(ctx, "ENG")
//	  if err != nil { log.Fatal(err) }
//
//	  // Walk every issue of the team, one page in memory at a time.
//	  _, err = cli.Paginator().StreamNodes(ctx, linear.PageRequest{ /* ... */ },
//	    linear.PaginationOptions{All: true},
//	    func(ctx context.Context, nodes []any) error { return nil })
//	  _ = teamID
//	}
//
// # Persistence
//
// The cache backend is chosen by linear.CacheConfig: a per-profile directory
// of JSON files, a NATS JetStream key-value bucket shared between machines,
// process memory, or nothing.
package linclient
