// Package feed adapts real-time subscriptions to the event router.
//
// A subscription is any io.Reader producing one JSON envelope per line:
//
//	{"type":"message","payload":{"id":"...","senderProfileId":"..."},"ts":1710442800000}
//
// Run consumes one subscription; RunAll runs several concurrently, mirroring
// the independent match and message listeners of the server. Unknown kinds
// are counted and skipped so newer servers can add kinds safely.
package feed
