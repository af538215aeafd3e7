// Package app wires the client core together.
//
// App owns one snapshot store, one Router and one state.Store. Incoming
// events go through Handle, which routes them (dedup, foreground, mute) and
// then folds anything that was not a duplicate into the cache:
//
//	a, err := app.New(cfg, logger, presenter)
//	a.Start(ctx, identity)
//	a.Handle(ctx, ev)
//	defer a.Close()
package app
