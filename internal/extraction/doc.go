// Package extraction runs the live recipe extraction: it submits a video
// link, polls the job on a fixed interval until it completes, fails or runs
// out of budget, fetches the results once, and keeps the set of ingredients
// and shopping-list items the user has checked off.
//
// Session is the entry point. Poller is usable on its own for headless
// callers that only need status updates.
package extraction
