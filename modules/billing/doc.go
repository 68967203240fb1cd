// Package billing mounts the billing core over HTTP: the plan catalog, the
// caller's subscription, quota-gated inventory creation, payment gateway
// webhooks and the per-user event stream.
//
// Authentication is external. The host application supplies a ViewerFunc
// that resolves the caller from the request; every route except the
// webhooks and metrics requires one.
//
//	mod := billing.New(billing.Deps{
//	    Catalog:    catalog,
//	    Engine:     engine,
//	    Resolver:   resolver,
//	    Gate:       gate,
//	    Inventory:  inv,
//	    Reconciler: rec,
//	    Hub:        hub,
//	    Viewer:     viewerFromSession,
//	}, billing.WithLogger(log))
//
//	r := chi.NewRouter()
//	r.Mount("/billing", mod.Router())
package billing
