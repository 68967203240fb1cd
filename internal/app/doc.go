// Package app wires the billing services from configuration. It is shared
// by the billingd server and the billingctl maintenance CLI so both run the
// same stores, locks and publishers.
package app
