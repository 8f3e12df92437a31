// Package api exposes a compiled protocol catalog over HTTP.
//
// The server carries the request id, access log and panic recovery
// middleware. Handler serves the most recent catalog.Result published
// with Update, so a long running serve process can recompile and swap
// results without restarting.
package api
