// Package search serves paginated job, company and user searches, job
// recommendations and single entity lookups through the cache.
//
// Every search follows the same steps: the normalized parameters are turned
// into a canonical cache key, the owning partition is consulted, and on a
// miss the query package composes the predicates, the pagination package
// runs the count and row queries, and the assembled page is cached with an
// operation specific TTL.
//
//	svc := search.NewService(manager, jobs, companies, users, search.WithLogger(logger))
//	page := svc.SearchJobs(ctx, search.JobSearchParams{
//		JobFilter: query.JobFilter{Search: "golang", Location: "Berlin"},
//		Params:    pagination.Params{Page: 1, Limit: 20},
//	})
//
// Job pages and recommendations live in the jobs partition and are tagged
// with model.JobTag for every job they contain, so
// manager.InvalidateJobCache(model.JobTag(id)) drops every cached page that
// shows that job. Company and user searches live in the search partition.
//
// Datastore failures are logged, recorded on the span and turned into an
// empty page, an empty slice or a not found result. They are never cached.
package search
